package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"storyloom-backend/internal/models"
)

func TestGenerationProducesCompleteSession(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{}
	lib := newFakeLibrary()

	generateStory(t, sess, gen, lib)

	snap := sess.Snapshot()
	if snap.State != StateReady {
		t.Fatalf("expected ready, got %s", snap.State)
	}
	if snap.View != ViewStory {
		t.Errorf("expected story view, got %s", snap.View)
	}
	if snap.Story == nil || snap.Story.Title == "" {
		t.Fatal("expected a story")
	}
	if len(snap.Story.Questions) == 0 {
		t.Error("expected quiz questions alongside the story")
	}
	if snap.CoverImage == nil {
		t.Error("expected a cover image")
	}
	if snap.Quiz == nil || snap.Quiz.CurrentQuestion != 0 || snap.Quiz.Score != 0 {
		t.Errorf("expected zeroed quiz progress, got %+v", snap.Quiz)
	}
	if snap.LoadedStoryID != nil {
		t.Error("a fresh generation must not carry a library identity")
	}
	if snap.Language != models.SourceLanguage {
		t.Errorf("expected source language, got %s", snap.Language)
	}
}

func TestCoverImageFailureDegradesToNil(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{
		imageFn: func(models.CoverImageRequest) (*models.CoverImageResult, error) {
			return nil, errors.New("image service down")
		},
	}

	generateStory(t, sess, gen, newFakeLibrary())

	snap := sess.Snapshot()
	if snap.State != StateReady {
		t.Fatalf("image failure must not fail the generation, got state %s", snap.State)
	}
	if snap.CoverImage != nil {
		t.Error("expected nil cover after image failure")
	}
	if snap.Story == nil || len(snap.Story.Questions) == 0 {
		t.Error("story and quiz must survive an image failure")
	}
}

func TestQuizFailureFailsGeneration(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{
		quizFn: func(models.GenerateQuizRequest) (*models.Quiz, error) {
			return nil, errors.New("quiz service down")
		},
	}

	req := models.GenerateStoryRequest{Theme: "adventure", AgeGroup: "6-8"}
	epoch, err := sess.BeginGeneration(req)
	if err != nil {
		t.Fatalf("BeginGeneration: %v", err)
	}
	if err := sess.RunGeneration(context.Background(), gen, newFakeLibrary(), epoch, req, nil); err == nil {
		t.Fatal("expected the job to fail")
	}

	snap := sess.Snapshot()
	if snap.State != StateFailed {
		t.Fatalf("expected failed, got %s", snap.State)
	}
	if snap.Story != nil {
		t.Error("a failed generation must not commit a partial story")
	}
}

func TestSupersededGenerationDiscarded(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{}

	req := models.GenerateStoryRequest{Theme: "adventure", AgeGroup: "6-8"}
	epoch, err := sess.BeginGeneration(req)
	if err != nil {
		t.Fatalf("BeginGeneration: %v", err)
	}

	// The user abandons the request before the job lands.
	sess.NewStory()

	if err := sess.RunGeneration(context.Background(), gen, newFakeLibrary(), epoch, req, nil); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}

	snap := sess.Snapshot()
	if snap.Story != nil {
		t.Error("a superseded generation must not commit")
	}
	if snap.State != StateIdle {
		t.Errorf("expected idle, got %s", snap.State)
	}
}

func TestSupersededFailureDiscarded(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{
		storyFn: func(models.GenerateStoryRequest) (*models.Story, error) {
			return nil, errors.New("story service down")
		},
	}

	req := models.GenerateStoryRequest{Theme: "adventure", AgeGroup: "6-8"}
	epoch, err := sess.BeginGeneration(req)
	if err != nil {
		t.Fatalf("BeginGeneration: %v", err)
	}
	sess.NewStory()
	if err := sess.RunGeneration(context.Background(), gen, newFakeLibrary(), epoch, req, nil); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}

	if snap := sess.Snapshot(); snap.State != StateIdle {
		t.Errorf("a superseded failure must not mark the session failed, got %s", snap.State)
	}
}

func TestBeginGenerationValidation(t *testing.T) {
	long := make([]byte, maxPromptLen+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name string
		req  models.GenerateStoryRequest
	}{
		{"empty theme", models.GenerateStoryRequest{AgeGroup: "6-8"}},
		{"empty age group", models.GenerateStoryRequest{Theme: "adventure"}},
		{"oversized prompt", models.GenerateStoryRequest{Theme: "adventure", AgeGroup: "6-8", Prompt: string(long)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newTestSession()
			_, err := sess.BeginGeneration(tt.req)
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBeginGenerationBusyGuard(t *testing.T) {
	sess := newTestSession()
	req := models.GenerateStoryRequest{Theme: "adventure", AgeGroup: "6-8"}
	if _, err := sess.BeginGeneration(req); err != nil {
		t.Fatalf("BeginGeneration: %v", err)
	}
	if _, err := sess.BeginGeneration(req); !errors.Is(err, ErrGenerationBusy) {
		t.Fatalf("expected ErrGenerationBusy, got %v", err)
	}
}

func TestAbortedGenerationUnblocksRetry(t *testing.T) {
	sess := newTestSession()
	req := models.GenerateStoryRequest{Theme: "adventure", AgeGroup: "6-8"}
	epoch, err := sess.BeginGeneration(req)
	if err != nil {
		t.Fatalf("BeginGeneration: %v", err)
	}

	// The job never reached the queue.
	sess.AbortGeneration(epoch, errors.New("queue unavailable"))

	snap := sess.Snapshot()
	if snap.State != StateFailed {
		t.Fatalf("expected failed, got %s", snap.State)
	}
	if snap.Error == "" {
		t.Error("expected the enqueue error surfaced in the session")
	}

	if _, err := sess.BeginGeneration(req); err != nil {
		t.Fatalf("retry after abort must succeed, got %v", err)
	}
}

func TestAbortedFlashcardsUnblocksRetry(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{}
	generateStory(t, sess, gen, newFakeLibrary())

	epoch, err := sess.BeginFlashcards()
	if err != nil {
		t.Fatalf("BeginFlashcards: %v", err)
	}
	sess.AbortFlashcards(epoch)

	if _, err := sess.BeginFlashcards(); err != nil {
		t.Fatalf("retry after abort must succeed, got %v", err)
	}
}

func TestStaleAbortIsIgnored(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{}
	req := models.GenerateStoryRequest{Theme: "adventure", AgeGroup: "6-8"}
	epoch, err := sess.BeginGeneration(req)
	if err != nil {
		t.Fatalf("BeginGeneration: %v", err)
	}
	if err := sess.RunGeneration(context.Background(), gen, newFakeLibrary(), epoch, req, nil); err != nil {
		t.Fatalf("RunGeneration: %v", err)
	}

	// An abort carrying an old epoch must not touch the newer story.
	sess.AbortGeneration(epoch-1, errors.New("late failure"))
	if snap := sess.Snapshot(); snap.State != StateReady {
		t.Errorf("expected ready, got %s", snap.State)
	}
}

func TestGenerationEntryEffects(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{}
	lib := newFakeLibrary()
	generateStory(t, sess, gen, lib)

	// Put derived state in place, then start a second generation.
	if err := sess.Translate(context.Background(), gen, "es", 4); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if _, err := sess.BeginGeneration(models.GenerateStoryRequest{Theme: "space", AgeGroup: "6-8"}); err != nil {
		t.Fatalf("BeginGeneration: %v", err)
	}

	snap := sess.Snapshot()
	if snap.State != StateGenerating {
		t.Errorf("expected generating, got %s", snap.State)
	}
	if snap.Translation != nil || snap.Language != models.SourceLanguage {
		t.Error("entry must clear the translation cache and reset the language")
	}
	if snap.CoverImage != nil {
		t.Error("entry must clear the cover image")
	}
	if snap.Narration.State != "idle" {
		t.Errorf("entry must cancel narration, got %s", snap.Narration.State)
	}
	if snap.Story == nil {
		t.Error("the previous story stays visible until replaced")
	}
}

func TestFlashcardsRequireStory(t *testing.T) {
	sess := newTestSession()
	if _, err := sess.BeginFlashcards(); !errors.Is(err, ErrNoStory) {
		t.Fatalf("expected ErrNoStory, got %v", err)
	}
}

func TestFlashcardsGenerate(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{}
	generateStory(t, sess, gen, newFakeLibrary())

	epoch, err := sess.BeginFlashcards()
	if err != nil {
		t.Fatalf("BeginFlashcards: %v", err)
	}
	req := models.GenerateFlashcardsRequest{Content: "text", AgeGroup: "6-8"}
	if err := sess.RunFlashcards(context.Background(), gen, epoch, req); err != nil {
		t.Fatalf("RunFlashcards: %v", err)
	}

	snap := sess.Snapshot()
	if len(snap.Flashcards) == 0 {
		t.Fatal("expected flashcards")
	}
	if snap.View != ViewFlashcards || snap.CardIndex != 0 || snap.CardFlipped {
		t.Errorf("expected flashcards view at card 0 front-facing, got %+v", snap)
	}
}

func TestFlashcardsRegenerateAndReplace(t *testing.T) {
	sess := newTestSession()
	decks := [][]models.Flashcard{
		{{Word: "first"}, {Word: "deck"}},
		{{Word: "second"}},
	}
	var calls int
	gen := &fakeGeneration{
		flashFn: func(models.GenerateFlashcardsRequest) (*models.FlashcardSet, error) {
			set := &models.FlashcardSet{Flashcards: decks[calls]}
			calls++
			return set, nil
		},
	}
	generateStory(t, sess, gen, newFakeLibrary())

	req := models.GenerateFlashcardsRequest{Content: "text", AgeGroup: "6-8"}
	for i := 0; i < 2; i++ {
		epoch, err := sess.BeginFlashcards()
		if err != nil {
			t.Fatalf("BeginFlashcards #%d: %v", i+1, err)
		}
		if err := sess.RunFlashcards(context.Background(), gen, epoch, req); err != nil {
			t.Fatalf("RunFlashcards #%d: %v", i+1, err)
		}
	}

	if calls != 2 {
		t.Fatalf("expected 2 upstream fetches, got %d", calls)
	}
	snap := sess.Snapshot()
	if len(snap.Flashcards) != 1 || snap.Flashcards[0].Word != "second" {
		t.Errorf("second request must replace the deck wholesale, got %+v", snap.Flashcards)
	}
	if snap.CardIndex != 0 || snap.CardFlipped {
		t.Error("a replaced deck starts at card 0 front-facing")
	}
}

func TestSupersededFlashcardsDiscarded(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{}
	generateStory(t, sess, gen, newFakeLibrary())

	epoch, err := sess.BeginFlashcards()
	if err != nil {
		t.Fatalf("BeginFlashcards: %v", err)
	}
	sess.NewStory()

	req := models.GenerateFlashcardsRequest{Content: "text", AgeGroup: "6-8"}
	if err := sess.RunFlashcards(context.Background(), gen, epoch, req); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if snap := sess.Snapshot(); snap.Flashcards != nil {
		t.Error("a superseded flashcard job must not commit")
	}
}

func TestCardNavigationWraps(t *testing.T) {
	sess := newTestSession()
	gen := &fakeGeneration{
		flashFn: func(models.GenerateFlashcardsRequest) (*models.FlashcardSet, error) {
			return &models.FlashcardSet{Flashcards: []models.Flashcard{
				{Word: "a"}, {Word: "b"}, {Word: "c"},
			}}, nil
		},
	}
	generateStory(t, sess, gen, newFakeLibrary())
	epoch, _ := sess.BeginFlashcards()
	sess.RunFlashcards(context.Background(), gen, epoch, models.GenerateFlashcardsRequest{})

	sess.FlipCard()
	if snap := sess.Snapshot(); !snap.CardFlipped {
		t.Error("expected flipped card")
	}
	sess.NextCard()
	if snap := sess.Snapshot(); snap.CardIndex != 1 || snap.CardFlipped {
		t.Errorf("expected card 1 front-facing, got index %d flipped %v", snap.CardIndex, snap.CardFlipped)
	}
	sess.PrevCard()
	sess.PrevCard()
	if snap := sess.Snapshot(); snap.CardIndex != 2 {
		t.Errorf("expected wrap to last card, got %d", snap.CardIndex)
	}
}

// TestQuizAndImageOverlap blocks each of the two follow-up calls until the
// other has started. A sequential implementation deadlocks here and trips
// the timeouts.
func TestQuizAndImageOverlap(t *testing.T) {
	quizEntered := make(chan struct{})
	imageEntered := make(chan struct{})
	gen := &fakeGeneration{
		quizFn: func(models.GenerateQuizRequest) (*models.Quiz, error) {
			close(quizEntered)
			select {
			case <-imageEntered:
			case <-time.After(2 * time.Second):
				return nil, errors.New("cover image request never started")
			}
			return &models.Quiz{Questions: []models.QuizQuestion{
				{Question: "Q?", Options: []string{"a", "b"}, Correct: 0},
			}}, nil
		},
		imageFn: func(models.CoverImageRequest) (*models.CoverImageResult, error) {
			close(imageEntered)
			select {
			case <-quizEntered:
			case <-time.After(2 * time.Second):
				return nil, errors.New("quiz request never started")
			}
			data := "data:image/png;base64,QUJD"
			return &models.CoverImageResult{ImageData: &data}, nil
		},
	}

	sess := newTestSession()
	generateStory(t, sess, gen, nil)
	snap := sess.Snapshot()
	if snap.State != StateReady || snap.CoverImage == nil {
		t.Errorf("expected ready session with cover, got %s cover %v", snap.State, snap.CoverImage)
	}
}

func TestActivityRecordedOnSuccess(t *testing.T) {
	sess := newTestSession()
	signIn(sess)
	lib := newFakeLibrary()
	generateStory(t, sess, &fakeGeneration{}, lib)

	if snap := sess.Snapshot(); snap.Stats == nil {
		t.Error("expected stats refreshed after a signed-in generation")
	}
}
