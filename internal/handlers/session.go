package handlers

import (
	"encoding/json"
	"net/http"

	"storyloom-backend/internal/middleware"
	"storyloom-backend/internal/session"
)

// SessionHandler serves the session snapshot and bare navigation.
type SessionHandler struct {
	sessions *session.Manager
}

func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// currentSession resolves the caller's session from the cookie the
// middleware guaranteed.
func currentSession(m *session.Manager, r *http.Request) *session.Session {
	return m.GetOrCreate(middleware.GetSessionID(r.Context()))
}

func (h *SessionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(h.sessions, r)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *SessionHandler) SetView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View session.View `json:"view"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sess := currentSession(h.sessions, r)
	if err := sess.SetView(req.View); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *SessionHandler) NewStory(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(h.sessions, r)
	sess.NewStory()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}
