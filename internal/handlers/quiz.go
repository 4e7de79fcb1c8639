package handlers

import (
	"encoding/json"
	"net/http"

	"storyloom-backend/internal/models"
	"storyloom-backend/internal/session"
)

// QuizHandler drives the quiz attempt on the caller's session.
type QuizHandler struct {
	sessions *session.Manager
}

func NewQuizHandler(sessions *session.Manager) *QuizHandler {
	return &QuizHandler{sessions: sessions}
}

func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.op(w, r, (*session.Session).StartQuiz)
}

func (h *QuizHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req models.SelectAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sess := currentSession(h.sessions, r)
	if err := sess.SelectAnswer(req.Index); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.op(w, r, (*session.Session).SubmitAnswer)
}

func (h *QuizHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.op(w, r, (*session.Session).NextQuestion)
}

func (h *QuizHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.op(w, r, (*session.Session).RetryQuiz)
}

func (h *QuizHandler) op(w http.ResponseWriter, r *http.Request, op func(*session.Session) error) {
	sess := currentSession(h.sessions, r)
	if err := op(sess); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}
