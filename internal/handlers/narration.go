package handlers

import (
	"net/http"

	"storyloom-backend/internal/session"
)

// NarrationHandler exposes the play/pause/stop surface of the narration
// machine.
type NarrationHandler struct {
	sessions *session.Manager
}

func NewNarrationHandler(sessions *session.Manager) *NarrationHandler {
	return &NarrationHandler{sessions: sessions}
}

func (h *NarrationHandler) Speak(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(h.sessions, r)
	if _, err := sess.Speak(); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *NarrationHandler) Stop(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(h.sessions, r)
	if err := sess.StopNarration(); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}
