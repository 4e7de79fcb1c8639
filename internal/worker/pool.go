// Package worker drains the generation job queues. Jobs are enqueued by
// the HTTP layer, claimed with a Redis lock so exactly one worker runs
// each, and their outcomes reach the browser over the session's pub/sub
// channel. A failed job is terminal: the user re-invokes, nothing retries
// on its own.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"storyloom-backend/internal/models"
	"storyloom-backend/internal/repository"
	"storyloom-backend/internal/session"
)

const (
	QueueStoryGeneration     = "queue:story-generation"
	QueueFlashcardGeneration = "queue:flashcard-generation"
)

// QueueName maps a job type onto its Redis list.
func QueueName(jobType string) string {
	switch jobType {
	case "story-generation":
		return QueueStoryGeneration
	case "flashcard-generation":
		return QueueFlashcardGeneration
	default:
		return "queue:" + jobType
	}
}

// Enqueue pushes a job onto its queue.
func Enqueue(ctx context.Context, rdb *redis.Client, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := rdb.LPush(ctx, QueueName(job.Type), string(data)).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

type Pool struct {
	redis       *redis.Client
	sessions    *session.Manager
	generation  session.GenerationClient
	library     session.LibraryClient
	jobRepo     *repository.JobRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	sessions *session.Manager,
	generation session.GenerationClient,
	library session.LibraryClient,
	jobRepo *repository.JobRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		sessions:    sessions,
		generation:  generation,
		library:     library,
		jobRepo:     jobRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		QueueStoryGeneration,
		QueueFlashcardGeneration,
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		var processErr error
		switch job.Type {
		case "story-generation":
			processErr = p.processStory(ctx, &job)
		case "flashcard-generation":
			processErr = p.processFlashcards(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		switch {
		case errors.Is(processErr, session.ErrSuperseded):
			// The session moved on to a newer story; the result was
			// discarded and the client must hear nothing about it.
			p.jobRepo.UpdateStatus(ctx, job.ID, "superseded")
			log.Printf("Worker %d: job %s superseded, result discarded", id, job.ID)
		case processErr != nil:
			p.handleFailure(ctx, &job, processErr)
		default:
			p.handleSuccess(ctx, &job)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) processStory(ctx context.Context, job *models.Job) error {
	var config models.StoryJobConfig
	if err := json.Unmarshal(job.ConfigJSON, &config); err != nil {
		return fmt.Errorf("parse job config: %w", err)
	}

	sess, ok := p.sessions.Get(job.SessionID)
	if !ok {
		return fmt.Errorf("session %s expired before the job ran", job.SessionID)
	}

	progress := func(step int, name string) {
		p.PublishUpdate(ctx, job.SessionID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:    job.ID,
				Step:     step,
				StepName: name,
			},
		})
	}

	req := models.GenerateStoryRequest{
		Theme:    config.Theme,
		AgeGroup: config.AgeGroup,
		Prompt:   config.Prompt,
	}
	return sess.RunGeneration(ctx, p.generation, p.library, config.Epoch, req, progress)
}

func (p *Pool) processFlashcards(ctx context.Context, job *models.Job) error {
	var config models.FlashcardJobConfig
	if err := json.Unmarshal(job.ConfigJSON, &config); err != nil {
		return fmt.Errorf("parse job config: %w", err)
	}

	sess, ok := p.sessions.Get(job.SessionID)
	if !ok {
		return fmt.Errorf("session %s expired before the job ran", job.SessionID)
	}

	p.PublishUpdate(ctx, job.SessionID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Step:     1,
			StepName: "generating_flashcards",
		},
	})

	req := models.GenerateFlashcardsRequest{
		Content:  config.Content,
		AgeGroup: config.AgeGroup,
	}
	return sess.RunFlashcards(ctx, p.generation, config.Epoch, req)
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	p.PublishUpdate(ctx, job.SessionID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultType: resultType(job.Type),
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	errMsg := err.Error()
	log.Printf("Job %s failed: %s", job.ID, errMsg)

	p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
	p.jobRepo.UpdateError(ctx, job.ID, errMsg)

	p.PublishUpdate(ctx, job.SessionID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "GENERATION_FAILED",
			ErrorMessage: errMsg,
		},
	})
}

// PublishUpdate fans a message out to whichever instance holds the
// session's sockets.
func (p *Pool) PublishUpdate(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	channel := "session_updates:" + sessionID.String()
	if err := p.redis.Publish(ctx, channel, string(data)).Err(); err != nil {
		log.Printf("Failed to publish update for session %s: %v", sessionID, err)
	}
}

func resultType(jobType string) string {
	switch jobType {
	case "story-generation":
		return "story"
	case "flashcard-generation":
		return "flashcards"
	default:
		return jobType
	}
}
