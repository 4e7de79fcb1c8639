package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Job struct {
	ID           uuid.UUID       `json:"id"`
	SessionID    uuid.UUID       `json:"session_id"`
	Type         string          `json:"type"` // "story-generation" | "flashcard-generation"
	ConfigJSON   json.RawMessage `json:"config"`
	Status       string          `json:"status"` // "pending" | "processing" | "completed" | "failed" | "superseded"
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// StoryJobConfig is the payload a story-generation job carries through the
// queue. Epoch pins the job to the session generation that enqueued it so a
// superseded job's result is discarded instead of committed.
type StoryJobConfig struct {
	Epoch    uint64 `json:"epoch"`
	Theme    string `json:"theme"`
	AgeGroup string `json:"ageGroup"`
	Prompt   string `json:"prompt,omitempty"`
}

type FlashcardJobConfig struct {
	Epoch    uint64 `json:"epoch"`
	Content  string `json:"content"`
	AgeGroup string `json:"ageGroup"`
}

// WebSocket message types

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID    uuid.UUID `json:"job_id"`
	Step     int       `json:"step"`
	StepName string    `json:"step_name"`
}

type CompletedEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	ResultType string    `json:"result_type"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// NarrationCommand is pushed to the client, whose platform speech engine is
// the actual playback device.
type NarrationCommand struct {
	Action  string  `json:"action"` // "speak" | "pause" | "resume" | "cancel"
	Text    string  `json:"text,omitempty"`
	VoiceID string  `json:"voice_id,omitempty"`
	Rate    float64 `json:"rate,omitempty"`
}

// NarrationEvent comes back from the client's speech engine.
type NarrationEvent struct {
	Event string `json:"event"` // "started" | "ended" | "error"
}

// VoiceInfo describes one voice reported by the client's speech engine.
// Inventories arrive asynchronously and may refresh at any time.
type VoiceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// API error response

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
