package session

import (
	"context"
	"log"
	"strings"

	"storyloom-backend/internal/models"
)

const maxPromptLen = 500

// BeginGeneration applies the synchronous entry effects of a new story
// request and returns the epoch the resulting job must commit under.
// Derived state that would describe the previous story (translation,
// cover, narration) is cleared immediately; the story text itself stays
// visible until the replacement lands.
func (s *Session) BeginGeneration(req models.GenerateStoryRequest) (uint64, error) {
	if strings.TrimSpace(req.Theme) == "" {
		return 0, &ValidationError{Field: "theme", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.AgeGroup) == "" {
		return 0, &ValidationError{Field: "ageGroup", Reason: "must not be empty"}
	}
	if len(req.Prompt) > maxPromptLen {
		return 0, &ValidationError{Field: "prompt", Reason: "exceeds 500 characters"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateGenerating {
		return 0, ErrGenerationBusy
	}

	s.epoch++
	s.state = StateGenerating
	s.stateErr = ""
	s.ageGroup = req.AgeGroup
	s.coverImage = nil
	s.translation = nil
	s.translating = false
	s.language = models.SourceLanguage
	s.narration.ForceIdle()

	return s.epoch, nil
}

// RunGeneration executes one story-generation job. Story text comes first;
// quiz and cover image fan out concurrently once it lands. The cover image
// is the one leg allowed to fail: its absence degrades to a nil cover,
// while a quiz failure fails the whole job. The commit is epoch-guarded, so
// a job superseded mid-flight changes nothing.
func (s *Session) RunGeneration(ctx context.Context, gen GenerationClient, lib LibraryClient, epoch uint64, req models.GenerateStoryRequest, progress func(step int, name string)) error {
	report := func(step int, name string) {
		if progress != nil {
			progress(step, name)
		}
	}

	report(1, "generating_story")
	story, err := gen.GenerateStory(ctx, req)
	if err != nil {
		if !s.failGeneration(epoch, err) {
			return ErrSuperseded
		}
		return err
	}

	report(2, "generating_quiz")
	type quizResult struct {
		questions []models.QuizQuestion
		err       error
	}
	quizCh := make(chan quizResult, 1)
	imageCh := make(chan *string, 1)

	go func() {
		quiz, err := gen.GenerateQuiz(ctx, models.GenerateQuizRequest{
			Title:    story.Title,
			Content:  story.Content,
			AgeGroup: req.AgeGroup,
		})
		if err != nil {
			quizCh <- quizResult{err: err}
			return
		}
		quizCh <- quizResult{questions: quiz.Questions}
	}()

	go func() {
		res, err := gen.GenerateCoverImage(ctx, models.CoverImageRequest{
			Title:   story.Title,
			Genre:   story.Genre,
			Summary: coverSummary(story),
		})
		if err != nil || res.ImageData == nil {
			if err != nil {
				log.Printf("session %s: cover image degraded: %v", s.ID, err)
			}
			imageCh <- nil
			return
		}
		imageCh <- res.ImageData
	}()

	qr := <-quizCh
	cover := <-imageCh
	if qr.err != nil {
		if !s.failGeneration(epoch, qr.err) {
			return ErrSuperseded
		}
		return qr.err
	}

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		log.Printf("session %s: discarding superseded generation (epoch %d, now %d)", s.ID, epoch, s.epoch)
		return ErrSuperseded
	}
	s.story = &models.StoryWithQuiz{Story: *story, Questions: qr.questions}
	s.coverImage = cover
	s.state = StateReady
	s.stateErr = ""
	s.view = ViewStory
	s.quiz = models.QuizProgress{}
	s.flashcards = nil
	s.flashcardsBusy = false
	s.cardIndex = 0
	s.cardFlipped = false
	s.loadedStoryID = nil
	token := s.authToken
	s.mu.Unlock()

	if token != "" {
		// Streak bookkeeping must never fail a successful generation.
		if stats, err := lib.RecordActivity(ctx, token); err != nil {
			log.Printf("session %s: activity recording failed: %v", s.ID, err)
		} else {
			s.mu.Lock()
			s.stats = stats
			s.mu.Unlock()
		}
	}
	return nil
}

func (s *Session) failGeneration(epoch uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.state = StateFailed
	s.stateErr = err.Error()
	return true
}

// AbortGeneration rolls back a generation whose job never made it onto the
// queue. The session lands in the failed state instead of staying wedged
// on the busy guard.
func (s *Session) AbortGeneration(epoch uint64, err error) {
	s.failGeneration(epoch, err)
}

// AbortFlashcards releases the flashcard busy flag when enqueueing the job
// failed after BeginFlashcards claimed it.
func (s *Session) AbortFlashcards(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	s.flashcardsBusy = false
}

func coverSummary(story *models.Story) string {
	if story.ImageDescription != "" {
		return story.ImageDescription
	}
	content := story.Content
	if len(content) > 300 {
		content = content[:300]
	}
	return content
}

// BeginFlashcards gates a flashcard-generation request. Every request
// fetches a fresh set; the committed result replaces whatever deck the
// session held.
func (s *Session) BeginFlashcards() (epoch uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.story == nil {
		return 0, ErrNoStory
	}
	if s.flashcardsBusy {
		return 0, ErrFlashcardsBusy
	}
	s.flashcardsBusy = true
	return s.epoch, nil
}

// RunFlashcards executes one flashcard-generation job.
func (s *Session) RunFlashcards(ctx context.Context, gen GenerationClient, epoch uint64, req models.GenerateFlashcardsRequest) error {
	set, err := gen.GenerateFlashcards(ctx, req)
	if err != nil {
		s.mu.Lock()
		stale := epoch != s.epoch
		if !stale {
			s.flashcardsBusy = false
		}
		s.mu.Unlock()
		if stale {
			return ErrSuperseded
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return ErrSuperseded
	}
	s.flashcards = set.Flashcards
	s.flashcardsBusy = false
	s.cardIndex = 0
	s.cardFlipped = false
	s.view = ViewFlashcards
	return nil
}

// FlipCard toggles the visible face of the current flashcard.
func (s *Session) FlipCard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.flashcards) == 0 {
		return ErrNoStory
	}
	s.cardFlipped = !s.cardFlipped
	return nil
}

// NextCard advances through the deck, wrapping at the end. The new card
// always starts front-facing.
func (s *Session) NextCard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.flashcards) == 0 {
		return ErrNoStory
	}
	s.cardIndex = (s.cardIndex + 1) % len(s.flashcards)
	s.cardFlipped = false
	return nil
}

// PrevCard steps back through the deck, wrapping at the front.
func (s *Session) PrevCard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.flashcards) == 0 {
		return ErrNoStory
	}
	s.cardIndex = (s.cardIndex - 1 + len(s.flashcards)) % len(s.flashcards)
	s.cardFlipped = false
	return nil
}
