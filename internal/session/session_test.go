package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"storyloom-backend/internal/models"
	"storyloom-backend/internal/narration"
)

// nopEngine is a narration device that accepts everything.
type nopEngine struct{}

func (nopEngine) Speak(narration.Utterance) error { return nil }
func (nopEngine) Pause() error                    { return nil }
func (nopEngine) Resume() error                   { return nil }
func (nopEngine) Cancel() error                   { return nil }

func newTestSession() *Session {
	return New(uuid.New(), nopEngine{})
}

// fakeGeneration implements GenerationClient with overridable behavior.
// The defaults succeed with deterministic content.
type fakeGeneration struct {
	mu             sync.Mutex
	storyFn        func(models.GenerateStoryRequest) (*models.Story, error)
	quizFn         func(models.GenerateQuizRequest) (*models.Quiz, error)
	flashFn        func(models.GenerateFlashcardsRequest) (*models.FlashcardSet, error)
	imageFn        func(models.CoverImageRequest) (*models.CoverImageResult, error)
	translateFn    func(text, lang string) (string, error)
	translateCalls []string
	imageCalls     int
}

func (f *fakeGeneration) GenerateStory(ctx context.Context, req models.GenerateStoryRequest) (*models.Story, error) {
	if f.storyFn != nil {
		return f.storyFn(req)
	}
	return &models.Story{
		Title:    "The Brave Fox",
		Genre:    "Adventure",
		Content:  "Once upon a time a fox set out across the valley.",
		ReadTime: "3 min",
	}, nil
}

func (f *fakeGeneration) GenerateQuiz(ctx context.Context, req models.GenerateQuizRequest) (*models.Quiz, error) {
	if f.quizFn != nil {
		return f.quizFn(req)
	}
	return &models.Quiz{Questions: []models.QuizQuestion{
		{Question: "Who set out?", Options: []string{"A fox", "A bear", "A crow"}, Correct: 0},
		{Question: "Where to?", Options: []string{"The sea", "The valley"}, Correct: 1},
	}}, nil
}

func (f *fakeGeneration) GenerateFlashcards(ctx context.Context, req models.GenerateFlashcardsRequest) (*models.FlashcardSet, error) {
	if f.flashFn != nil {
		return f.flashFn(req)
	}
	return &models.FlashcardSet{Flashcards: []models.Flashcard{
		{Word: "valley", Definition: "low land between hills", Example: "The fox crossed the valley."},
	}}, nil
}

func (f *fakeGeneration) GenerateCoverImage(ctx context.Context, req models.CoverImageRequest) (*models.CoverImageResult, error) {
	f.mu.Lock()
	f.imageCalls++
	f.mu.Unlock()
	if f.imageFn != nil {
		return f.imageFn(req)
	}
	data := "data:image/png;base64,QUJD"
	return &models.CoverImageResult{ImageData: &data}, nil
}

func (f *fakeGeneration) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	f.mu.Lock()
	f.translateCalls = append(f.translateCalls, text)
	f.mu.Unlock()
	if f.translateFn != nil {
		return f.translateFn(text, targetLanguage)
	}
	return targetLanguage + ":" + text, nil
}

func (f *fakeGeneration) translateCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.translateCalls)
}

// fakeLibrary implements LibraryClient against an in-memory map.
type fakeLibrary struct {
	mu        sync.Mutex
	nextID    int64
	records   map[int64]*models.SavedStory
	saveCalls int
	delCalls  int
	statsErr  error
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{nextID: 1, records: make(map[int64]*models.SavedStory)}
}

func (f *fakeLibrary) List(ctx context.Context, token string) ([]models.SavedStory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SavedStory, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeLibrary) Get(ctx context.Context, token string, id int64) (*models.SavedStory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("story %d: %w", id, ErrNotFound)
	}
	rec := *r
	return &rec, nil
}

func (f *fakeLibrary) Save(ctx context.Context, token string, req models.SaveStoryRequest) (*models.SavedStory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	record := &models.SavedStory{
		ID:         f.nextID,
		Title:      req.Title,
		Genre:      req.Genre,
		Content:    req.Content,
		AgeGroup:   req.AgeGroup,
		ReadTime:   req.ReadTime,
		CoverImage: req.CoverImage,
		Questions:  req.Questions,
		Flashcards: req.Flashcards,
	}
	f.records[f.nextID] = record
	f.nextID++
	rec := *record
	return &rec, nil
}

func (f *fakeLibrary) Update(ctx context.Context, token string, id int64, req models.UpdateStoryRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return fmt.Errorf("story %d: %w", id, ErrNotFound)
	}
	r.Title = req.Title
	r.Content = req.Content
	return nil
}

func (f *fakeLibrary) Delete(ctx context.Context, token string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delCalls++
	if _, ok := f.records[id]; !ok {
		return fmt.Errorf("story %d: %w", id, ErrNotFound)
	}
	delete(f.records, id)
	return nil
}

func (f *fakeLibrary) Stats(ctx context.Context, token string) (*models.UserStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.UserStats{TotalStoriesSaved: len(f.records)}, nil
}

func (f *fakeLibrary) RecordActivity(ctx context.Context, token string) (*models.UserStats, error) {
	return f.Stats(ctx, token)
}

// signIn installs a test identity.
func signIn(s *Session) {
	s.SetUser(&models.User{ID: 7, Username: "reader"}, "test-token")
}

// generateStory runs a full successful generation for tests that need a
// ready session.
func generateStory(t *testing.T, s *Session, gen *fakeGeneration, lib LibraryClient) {
	t.Helper()
	req := models.GenerateStoryRequest{Theme: "adventure", AgeGroup: "6-8"}
	epoch, err := s.BeginGeneration(req)
	if err != nil {
		t.Fatalf("BeginGeneration: %v", err)
	}
	if err := s.RunGeneration(context.Background(), gen, lib, epoch, req, nil); err != nil {
		t.Fatalf("RunGeneration: %v", err)
	}
}
