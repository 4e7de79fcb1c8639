package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/redis/go-redis/v9"

	"storyloom-backend/internal/models"
	"storyloom-backend/internal/repository"
	"storyloom-backend/internal/session"
	"storyloom-backend/internal/worker"
)

// StoryHandler drives story generation, flashcards and translation on the
// caller's session. Generation and flashcards go through the job queue;
// translation answers synchronously.
type StoryHandler struct {
	sessions       *session.Manager
	generation     session.GenerationClient
	meta           *MetaHandler
	jobRepo        *repository.JobRepo
	redis          *redis.Client
	translateLimit int
}

func NewStoryHandler(
	sessions *session.Manager,
	generation session.GenerationClient,
	meta *MetaHandler,
	jobRepo *repository.JobRepo,
	redisClient *redis.Client,
	translateLimit int,
) *StoryHandler {
	return &StoryHandler{
		sessions:       sessions,
		generation:     generation,
		meta:           meta,
		jobRepo:        jobRepo,
		redis:          redisClient,
		translateLimit: translateLimit,
	}
}

func (h *StoryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	// The age group must come from the server's own enumeration.
	if groups, err := h.meta.ageGroups(r.Context()); err == nil {
		if _, ok := groups[req.AgeGroup]; !ok {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields(
				"VALIDATION_ERROR", "Validation failed",
				map[string]string{"ageGroup": "unknown age group"}, r))
			return
		}
	}

	sess := currentSession(h.sessions, r)
	epoch, err := sess.BeginGeneration(req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	configBytes, _ := json.Marshal(models.StoryJobConfig{
		Epoch:    epoch,
		Theme:    req.Theme,
		AgeGroup: req.AgeGroup,
		Prompt:   req.Prompt,
	})
	job := &models.Job{
		SessionID:  sess.ID,
		Type:       "story-generation",
		ConfigJSON: configBytes,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		sess.AbortGeneration(epoch, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}
	if err := worker.Enqueue(r.Context(), h.redis, job); err != nil {
		sess.AbortGeneration(epoch, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": job.ID})
}

func (h *StoryHandler) Flashcards(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(h.sessions, r)
	epoch, err := sess.BeginFlashcards()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	snap := sess.Snapshot()
	if snap.Story == nil {
		sess.AbortFlashcards(epoch)
		handleServiceError(w, r, session.ErrNoStory)
		return
	}
	configBytes, _ := json.Marshal(models.FlashcardJobConfig{
		Epoch:    epoch,
		Content:  snap.Story.Content,
		AgeGroup: snap.AgeGroup,
	})
	job := &models.Job{
		SessionID:  sess.ID,
		Type:       "flashcard-generation",
		ConfigJSON: configBytes,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		sess.AbortFlashcards(epoch)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}
	if err := worker.Enqueue(r.Context(), h.redis, job); err != nil {
		sess.AbortFlashcards(epoch)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": job.ID})
}

func (h *StoryHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req models.TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sess := currentSession(h.sessions, r)
	if err := sess.Translate(r.Context(), h.generation, req.TargetLanguage, h.translateLimit); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *StoryHandler) FlipCard(w http.ResponseWriter, r *http.Request) {
	h.cardOp(w, r, (*session.Session).FlipCard)
}

func (h *StoryHandler) NextCard(w http.ResponseWriter, r *http.Request) {
	h.cardOp(w, r, (*session.Session).NextCard)
}

func (h *StoryHandler) PrevCard(w http.ResponseWriter, r *http.Request) {
	h.cardOp(w, r, (*session.Session).PrevCard)
}

func (h *StoryHandler) cardOp(w http.ResponseWriter, r *http.Request, op func(*session.Session) error) {
	sess := currentSession(h.sessions, r)
	if err := op(sess); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}
