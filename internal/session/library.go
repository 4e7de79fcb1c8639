package session

import (
	"context"
	"fmt"
	"log"
	"strings"

	"storyloom-backend/internal/models"
)

// tokenLocked returns the stashed auth token or the gate error. Callers
// hold mu.
func (s *Session) tokenLocked() (string, error) {
	if s.user == nil || s.authToken == "" {
		return "", ErrAuthRequired
	}
	return s.authToken, nil
}

// RefreshLibrary pulls the user's saved stories and mirrors them into the
// session.
func (s *Session) RefreshLibrary(ctx context.Context, lib LibraryClient) ([]models.SavedStory, error) {
	s.mu.Lock()
	token, err := s.tokenLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	stories, err := lib.List(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("refresh library: %w", err)
	}

	s.mu.Lock()
	s.savedStories = stories
	s.mu.Unlock()
	return stories, nil
}

// SaveStory persists the current story once. A story that already has a
// library identity cannot be saved again; re-saving is refused before any
// upstream call. The returned record's id becomes the session's loaded id,
// which is what makes the save-once guard stick.
func (s *Session) SaveStory(ctx context.Context, lib LibraryClient) (*models.SavedStory, error) {
	s.mu.Lock()
	token, err := s.tokenLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.story == nil {
		s.mu.Unlock()
		return nil, ErrNoStory
	}
	if s.loadedStoryID != nil {
		s.mu.Unlock()
		return nil, ErrAlreadySaved
	}
	req := models.SaveStoryRequest{
		Title:      s.story.Title,
		Genre:      s.story.Genre,
		Content:    s.story.Content,
		ReadTime:   s.story.ReadTime,
		AgeGroup:   s.ageGroup,
		CoverImage: s.coverImage,
		Questions:  s.story.Questions,
		Flashcards: s.flashcards,
	}
	epoch := s.epoch
	s.mu.Unlock()

	record, err := lib.Save(ctx, token, req)
	if err != nil {
		return nil, fmt.Errorf("save story: %w", err)
	}

	s.mu.Lock()
	if s.epoch == epoch {
		id := record.ID
		s.loadedStoryID = &id
	}
	s.savedStories = append([]models.SavedStory{*record}, s.savedStories...)
	s.mu.Unlock()

	s.refreshStats(ctx, lib, token)
	return record, nil
}

// LoadStory replaces the whole session with a saved record: story, quiz
// material, flashcards and cover all come from the library, and every
// piece of derived state from the previous story is gone.
func (s *Session) LoadStory(ctx context.Context, lib LibraryClient, id int64) error {
	s.mu.Lock()
	token, err := s.tokenLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	record, err := lib.Get(ctx, token, id)
	if err != nil {
		return fmt.Errorf("load story %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetStoryLocked()
	s.story = &models.StoryWithQuiz{
		Story: models.Story{
			Title:    record.Title,
			Genre:    record.Genre,
			Content:  record.Content,
			ReadTime: record.ReadTime,
		},
		Questions: record.Questions,
	}
	s.coverImage = record.CoverImage
	s.ageGroup = record.AgeGroup
	s.flashcards = record.Flashcards
	recordID := record.ID
	s.loadedStoryID = &recordID
	s.state = StateReady
	s.stateErr = ""
	s.view = ViewStory
	return nil
}

// DeleteCurrent removes the loaded story from the library. confirm is the
// explicit user acknowledgement; declining deletes nothing and is not an
// error. A successful delete abandons the story and lands on home.
func (s *Session) DeleteCurrent(ctx context.Context, lib LibraryClient, confirm bool) (bool, error) {
	s.mu.Lock()
	token, err := s.tokenLocked()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if s.loadedStoryID == nil {
		s.mu.Unlock()
		return false, ErrNotFromLibrary
	}
	if !confirm {
		s.mu.Unlock()
		return false, nil
	}
	id := *s.loadedStoryID
	s.mu.Unlock()

	if err := lib.Delete(ctx, token, id); err != nil {
		return false, fmt.Errorf("delete story %d: %w", id, err)
	}

	s.mu.Lock()
	s.removeSavedLocked(id)
	s.resetStoryLocked()
	s.state = StateIdle
	s.stateErr = ""
	s.view = ViewHome
	s.mu.Unlock()
	return true, nil
}

// DeleteStory removes a record from the library list view. If the record
// happens to be the loaded story, the session abandons it the same way
// DeleteCurrent does.
func (s *Session) DeleteStory(ctx context.Context, lib LibraryClient, id int64, confirm bool) (bool, error) {
	s.mu.Lock()
	token, err := s.tokenLocked()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if !confirm {
		s.mu.Unlock()
		return false, nil
	}
	loaded := s.loadedStoryID != nil && *s.loadedStoryID == id
	s.mu.Unlock()

	if err := lib.Delete(ctx, token, id); err != nil {
		return false, fmt.Errorf("delete story %d: %w", id, err)
	}

	s.mu.Lock()
	s.removeSavedLocked(id)
	if loaded {
		s.resetStoryLocked()
		s.state = StateIdle
		s.stateErr = ""
		s.view = ViewHome
	}
	s.mu.Unlock()
	return true, nil
}

// UpdateCurrent edits the loaded story's title and content in place. The
// edit persists upstream first, then patches the in-memory story and the
// library mirror. Quiz, flashcards and cover stay as generated for the
// original text; only the words change.
func (s *Session) UpdateCurrent(ctx context.Context, lib LibraryClient, req models.UpdateStoryRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.Content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	s.mu.Lock()
	token, err := s.tokenLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.loadedStoryID == nil {
		s.mu.Unlock()
		return ErrNotFromLibrary
	}
	id := *s.loadedStoryID
	s.mu.Unlock()

	if err := lib.Update(ctx, token, id, req); err != nil {
		return fmt.Errorf("update story %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadedStoryID == nil || *s.loadedStoryID != id {
		return nil
	}
	s.story.Title = req.Title
	s.story.Content = req.Content
	// The cached translation described the old text.
	s.translation = nil
	s.language = models.SourceLanguage
	s.narration.ForceIdle()
	for i := range s.savedStories {
		if s.savedStories[i].ID == id {
			s.savedStories[i].Title = req.Title
			s.savedStories[i].Content = req.Content
			break
		}
	}
	return nil
}

// RefreshStats pulls the user's activity stats on demand.
func (s *Session) RefreshStats(ctx context.Context, lib LibraryClient) (*models.UserStats, error) {
	s.mu.Lock()
	token, err := s.tokenLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	stats, err := lib.Stats(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("refresh stats: %w", err)
	}

	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return stats, nil
}

// refreshStats is the best-effort variant used after mutations.
func (s *Session) refreshStats(ctx context.Context, lib LibraryClient, token string) {
	stats, err := lib.Stats(ctx, token)
	if err != nil {
		log.Printf("session %s: stats refresh failed: %v", s.ID, err)
		return
	}
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

func (s *Session) removeSavedLocked(id int64) {
	for i := range s.savedStories {
		if s.savedStories[i].ID == id {
			s.savedStories = append(s.savedStories[:i], s.savedStories[i+1:]...)
			return
		}
	}
}
