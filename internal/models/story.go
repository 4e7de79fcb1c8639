package models

import "time"

// Story is the text the Generation Service produced for one request.
// Immutable once created, except through an explicit library edit.
type Story struct {
	Title            string `json:"title"`
	Genre            string `json:"genre"`
	Content          string `json:"content"`
	ReadTime         string `json:"readTime"`
	ImageDescription string `json:"imageDescription,omitempty"`
}

// StoryWithQuiz is the composed session artifact: story text plus the quiz
// generated in lockstep with it.
type StoryWithQuiz struct {
	Story
	Questions []QuizQuestion `json:"questions"`
}

// SavedStory is a persisted library record owned by the Library Service.
type SavedStory struct {
	ID         int64          `json:"id"`
	Title      string         `json:"title"`
	Genre      string         `json:"genre"`
	Content    string         `json:"content"`
	AgeGroup   string         `json:"ageGroup"`
	ReadTime   string         `json:"readTime"`
	CoverImage *string        `json:"coverImage,omitempty"`
	Questions  []QuizQuestion `json:"questions"`
	Flashcards []Flashcard    `json:"flashcards"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// AgeGroupInfo describes one server-enumerated audience tier.
type AgeGroupInfo struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	WordCount   string `json:"word_count"`
}

type GenerateStoryRequest struct {
	Theme    string `json:"theme"`
	AgeGroup string `json:"ageGroup"`
	Prompt   string `json:"prompt,omitempty"`
}

type CoverImageRequest struct {
	Title   string `json:"title"`
	Genre   string `json:"genre"`
	Summary string `json:"summary"`
}

// CoverImageResult carries either a data-URI payload or the degraded
// fallback marker. The image call is the only generation request allowed to
// fail without failing the session.
type CoverImageResult struct {
	ImageData *string `json:"imageData"`
	Error     string  `json:"error,omitempty"`
	Fallback  bool    `json:"fallback,omitempty"`
}

type SaveStoryRequest struct {
	Title      string         `json:"title"`
	Genre      string         `json:"genre"`
	Content    string         `json:"content"`
	ReadTime   string         `json:"readTime"`
	AgeGroup   string         `json:"ageGroup"`
	CoverImage *string        `json:"coverImage,omitempty"`
	Questions  []QuizQuestion `json:"questions"`
	Flashcards []Flashcard    `json:"flashcards"`
}

type UpdateStoryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
