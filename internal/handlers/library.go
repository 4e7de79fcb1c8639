package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storyloom-backend/internal/models"
	"storyloom-backend/internal/session"
)

// LibraryHandler drives the saved-story surface. All operations go through
// the session so its mirror of the library stays coherent with what the
// user sees.
type LibraryHandler struct {
	sessions *session.Manager
	library  session.LibraryClient
}

func NewLibraryHandler(sessions *session.Manager, library session.LibraryClient) *LibraryHandler {
	return &LibraryHandler{sessions: sessions, library: library}
}

func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(h.sessions, r)
	stories, err := sess.RefreshLibrary(r.Context(), h.library)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stories": stories})
}

func (h *LibraryHandler) Save(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(h.sessions, r)
	record, err := sess.SaveStory(r.Context(), h.library)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"story": record})
}

func (h *LibraryHandler) Load(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid story ID", r))
		return
	}

	sess := currentSession(h.sessions, r)
	if err := sess.LoadStory(r.Context(), h.library, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type deleteRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *LibraryHandler) DeleteCurrent(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sess := currentSession(h.sessions, r)
	deleted, err := sess.DeleteCurrent(r.Context(), h.library, req.Confirm)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":  deleted,
		"snapshot": sess.Snapshot(),
	})
}

func (h *LibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid story ID", r))
		return
	}
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sess := currentSession(h.sessions, r)
	deleted, err := sess.DeleteStory(r.Context(), h.library, id, req.Confirm)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":  deleted,
		"snapshot": sess.Snapshot(),
	})
}

func (h *LibraryHandler) UpdateCurrent(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sess := currentSession(h.sessions, r)
	if err := sess.UpdateCurrent(r.Context(), h.library, req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *LibraryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(h.sessions, r)
	stats, err := sess.RefreshStats(r.Context(), h.library)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}
