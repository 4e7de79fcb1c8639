// Package session implements the story session orchestrator: one Session
// per browser, holding the active story, quiz attempt, flashcards,
// translation cache, narration machine and library mirror, with every
// mutation serialized through the session lock and guarded by a generation
// epoch so late results from superseded work are discarded.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyloom-backend/internal/models"
	"storyloom-backend/internal/narration"
)

// LifecycleState tracks where the session is in the generate cycle.
type LifecycleState string

const (
	StateIdle       LifecycleState = "idle"
	StateGenerating LifecycleState = "generating"
	StateReady      LifecycleState = "ready"
	StateFailed     LifecycleState = "failed"
)

// View is the screen the client should be presenting.
type View string

const (
	ViewHome       View = "home"
	ViewStory      View = "story"
	ViewQuiz       View = "quiz"
	ViewResults    View = "results"
	ViewFlashcards View = "flashcards"
	ViewLibrary    View = "library"
	ViewLogin      View = "login"
	ViewRegister   View = "register"
	ViewProfile    View = "profile"
)

// GenerationClient is the slice of the Generation Service this package
// consumes.
type GenerationClient interface {
	GenerateStory(ctx context.Context, req models.GenerateStoryRequest) (*models.Story, error)
	GenerateQuiz(ctx context.Context, req models.GenerateQuizRequest) (*models.Quiz, error)
	GenerateFlashcards(ctx context.Context, req models.GenerateFlashcardsRequest) (*models.FlashcardSet, error)
	GenerateCoverImage(ctx context.Context, req models.CoverImageRequest) (*models.CoverImageResult, error)
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// LibraryClient is the slice of the Library Service this package consumes.
type LibraryClient interface {
	List(ctx context.Context, token string) ([]models.SavedStory, error)
	Get(ctx context.Context, token string, id int64) (*models.SavedStory, error)
	Save(ctx context.Context, token string, req models.SaveStoryRequest) (*models.SavedStory, error)
	Update(ctx context.Context, token string, id int64, req models.UpdateStoryRequest) error
	Delete(ctx context.Context, token string, id int64) error
	Stats(ctx context.Context, token string) (*models.UserStats, error)
	RecordActivity(ctx context.Context, token string) (*models.UserStats, error)
}

// Session is one browser's orchestrator state. All fields behind mu; the
// narration controller carries its own lock and is safe to call while mu is
// held only through the stored pointer (it never calls back).
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	epoch    uint64
	state    LifecycleState
	stateErr string
	view     View

	story      *models.StoryWithQuiz
	coverImage *string
	ageGroup   string

	flashcards     []models.Flashcard
	flashcardsBusy bool
	cardIndex      int
	cardFlipped    bool

	translation *models.TranslationBundle
	language    string
	translating bool

	quiz models.QuizProgress

	narration *narration.Controller

	user          *models.User
	authToken     string
	savedStories  []models.SavedStory
	stats         *models.UserStats
	loadedStoryID *int64

	lastSeen time.Time
}

func New(id uuid.UUID, engine narration.Engine) *Session {
	return &Session{
		ID:        id,
		state:     StateIdle,
		view:      ViewHome,
		language:  models.SourceLanguage,
		narration: narration.NewController(engine),
		lastSeen:  time.Now(),
	}
}

// Snapshot is the full client-facing session view.
type Snapshot struct {
	State         LifecycleState            `json:"state"`
	Error         string                    `json:"error,omitempty"`
	View          View                      `json:"view"`
	Epoch         uint64                    `json:"epoch"`
	Story         *models.StoryWithQuiz     `json:"story,omitempty"`
	CoverImage    *string                   `json:"coverImage,omitempty"`
	AgeGroup      string                    `json:"ageGroup,omitempty"`
	Flashcards    []models.Flashcard        `json:"flashcards,omitempty"`
	CardIndex     int                       `json:"cardIndex"`
	CardFlipped   bool                      `json:"cardFlipped"`
	Language      string                    `json:"language"`
	Translation   *models.TranslationBundle `json:"translation,omitempty"`
	Translating   bool                      `json:"translating"`
	Quiz          *models.QuizProgress      `json:"quiz,omitempty"`
	Narration     narration.Snapshot        `json:"narration"`
	User          *models.User              `json:"user,omitempty"`
	Library       []models.SavedStory       `json:"library,omitempty"`
	Stats         *models.UserStats         `json:"stats,omitempty"`
	LoadedStoryID *int64                    `json:"loadedStoryId,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         s.state,
		Error:         s.stateErr,
		View:          s.view,
		Epoch:         s.epoch,
		Story:         s.story,
		CoverImage:    s.coverImage,
		AgeGroup:      s.ageGroup,
		Flashcards:    s.flashcards,
		CardIndex:     s.cardIndex,
		CardFlipped:   s.cardFlipped,
		Language:      s.language,
		Translation:   s.translation,
		Translating:   s.translating,
		Narration:     s.narration.Snapshot(),
		User:          s.user,
		Library:       s.savedStories,
		Stats:         s.stats,
		LoadedStoryID: s.loadedStoryID,
	}
	if s.story != nil {
		q := s.quiz
		snap.Quiz = &q
	}
	return snap
}

// SetView switches the client-facing screen without touching content.
// Only navigation targets that carry no preconditions are accepted here;
// story, quiz and results are reached through their operations.
func (s *Session) SetView(v View) error {
	switch v {
	case ViewHome, ViewLibrary, ViewLogin, ViewRegister, ViewProfile:
	default:
		return &ValidationError{Field: "view", Reason: "not directly navigable"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
	return nil
}

// NewStory abandons the current story and returns to a blank home screen.
// Everything derived from the story goes with it; the epoch bump orphans
// any generation or translation still in flight.
func (s *Session) NewStory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetStoryLocked()
	s.state = StateIdle
	s.stateErr = ""
	s.view = ViewHome
}

// resetStoryLocked clears all story-derived state. Callers hold mu.
func (s *Session) resetStoryLocked() {
	s.epoch++
	s.story = nil
	s.coverImage = nil
	s.ageGroup = ""
	s.flashcards = nil
	s.flashcardsBusy = false
	s.cardIndex = 0
	s.cardFlipped = false
	s.translation = nil
	s.language = models.SourceLanguage
	s.translating = false
	s.quiz = models.QuizProgress{}
	s.loadedStoryID = nil
	s.narration.ForceIdle()
}

// SetUser installs an authenticated identity after a login or register
// round-trip. The token is kept so background work (activity recording,
// stats refresh) can act for the user without re-reading the cookie.
func (s *Session) SetUser(user *models.User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.authToken = token
	s.view = ViewHome
}

// ClearUser drops identity and everything fetched under it.
func (s *Session) ClearUser() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.authToken = ""
	s.savedStories = nil
	s.stats = nil
	s.loadedStoryID = nil
}

func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Narration exposes the controller for the WebSocket relay (voice
// inventories and playback events arrive there).
func (s *Session) Narration() *narration.Controller {
	return s.narration
}

// Touch marks the session live for the expiry sweep.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

func (s *Session) lastSeenAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
