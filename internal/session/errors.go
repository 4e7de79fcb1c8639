package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for precondition failures. Handlers map these onto the
// HTTP error taxonomy; everything else from this package is an upstream or
// internal failure.
var (
	ErrNoStory         = errors.New("no active story")
	ErrNoQuiz          = errors.New("the active story has no quiz")
	ErrGenerationBusy  = errors.New("story generation already in progress")
	ErrTranslationBusy = errors.New("translation already in progress")
	ErrFlashcardsBusy  = errors.New("flashcard generation already in progress")
	ErrNoSelection     = errors.New("select an answer first")
	ErrNotRevealed     = errors.New("submit the answer before moving on")
	ErrQuizFinished    = errors.New("quiz already finished")
	ErrAuthRequired    = errors.New("sign in to use the library")
	ErrAlreadySaved    = errors.New("story is already in the library")
	ErrNotFromLibrary  = errors.New("the current story was not loaded from the library")
	ErrConfirmRequired = errors.New("confirmation required")
	ErrNotFound        = errors.New("not found")
)

// ErrSuperseded reports that an async job finished after the session moved
// on to a different story. The result was discarded; nothing about the
// outcome may reach the client.
var ErrSuperseded = errors.New("job superseded by a newer story")

// ValidationError marks request input the orchestrator refuses at the
// boundary, before anything upstream is called.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
