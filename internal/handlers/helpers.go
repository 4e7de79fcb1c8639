package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"storyloom-backend/internal/models"
	"storyloom-backend/internal/narration"
	"storyloom-backend/internal/session"
	"storyloom-backend/internal/upstream"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

// handleServiceError maps orchestrator and upstream failures onto the HTTP
// error taxonomy. Precondition failures are conflicts, not server errors:
// the session is fine, the operation just does not apply to its state.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *session.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields(
			"VALIDATION_ERROR", "Validation failed",
			map[string]string{valErr.Field: valErr.Reason}, r))
		return
	}

	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		switch upErr.Status {
		case http.StatusNotFound:
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", upErr.Message, r))
		case http.StatusUnauthorized:
			writeJSON(w, http.StatusUnauthorized, errorResp("AUTH_REQUIRED", upErr.Message, r))
		default:
			writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", upErr.Message, r))
		}
		return
	}

	switch {
	case errors.Is(err, session.ErrAuthRequired):
		writeJSON(w, http.StatusUnauthorized, errorResp("AUTH_REQUIRED", err.Error(), r))
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", err.Error(), r))
	case errors.Is(err, session.ErrNoStory),
		errors.Is(err, session.ErrNoQuiz),
		errors.Is(err, session.ErrGenerationBusy),
		errors.Is(err, session.ErrTranslationBusy),
		errors.Is(err, session.ErrFlashcardsBusy),
		errors.Is(err, session.ErrNoSelection),
		errors.Is(err, session.ErrNotRevealed),
		errors.Is(err, session.ErrQuizFinished),
		errors.Is(err, session.ErrAlreadySaved),
		errors.Is(err, session.ErrNotFromLibrary),
		errors.Is(err, narration.ErrNoText):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", err.Error(), r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
