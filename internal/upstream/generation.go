package upstream

import (
	"context"
	"net/http"
	"strings"
	"time"

	"storyloom-backend/internal/models"
)

// GenerationClient talks to the stateless Generation Service endpoints:
// story text, quiz, flashcards, cover image and per-string translation.
type GenerationClient struct {
	*baseClient
}

func NewGenerationClient(baseURL string, timeout time.Duration) (*GenerationClient, error) {
	base, err := newBaseClient("generation", baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &GenerationClient{baseClient: base}, nil
}

func (c *GenerationClient) Themes(ctx context.Context) ([]string, error) {
	var resp struct {
		Themes []string `json:"themes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/themes", "", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Themes) == 0 {
		return nil, c.shapeErr("/api/themes", "empty theme list")
	}
	return resp.Themes, nil
}

func (c *GenerationClient) AgeGroups(ctx context.Context) (map[string]models.AgeGroupInfo, error) {
	var resp struct {
		AgeGroups map[string]models.AgeGroupInfo `json:"ageGroups"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/age-groups", "", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.AgeGroups) == 0 {
		return nil, c.shapeErr("/api/age-groups", "empty age group map")
	}
	return resp.AgeGroups, nil
}

func (c *GenerationClient) Languages(ctx context.Context) (map[string]string, error) {
	var resp struct {
		Languages map[string]string `json:"languages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/languages", "", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Languages) == 0 {
		return nil, c.shapeErr("/api/languages", "empty language map")
	}
	return resp.Languages, nil
}

func (c *GenerationClient) GenerateStory(ctx context.Context, req models.GenerateStoryRequest) (*models.Story, error) {
	var story models.Story
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate-story", "", req, &story); err != nil {
		return nil, err
	}
	if story.Title == "" || story.Content == "" {
		return nil, c.shapeErr("/api/generate-story", "missing title or content")
	}
	return &story, nil
}

func (c *GenerationClient) GenerateQuiz(ctx context.Context, req models.GenerateQuizRequest) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate-quiz", "", req, &quiz); err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, c.shapeErr("/api/generate-quiz", "no questions")
	}
	for _, q := range quiz.Questions {
		if q.Question == "" || len(q.Options) == 0 || q.Correct < 0 || q.Correct >= len(q.Options) {
			return nil, c.shapeErr("/api/generate-quiz", "question with out-of-range correct index")
		}
	}
	return &quiz, nil
}

func (c *GenerationClient) GenerateFlashcards(ctx context.Context, req models.GenerateFlashcardsRequest) (*models.FlashcardSet, error) {
	var set models.FlashcardSet
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate-flashcards", "", req, &set); err != nil {
		return nil, err
	}
	if len(set.Flashcards) == 0 {
		return nil, c.shapeErr("/api/generate-flashcards", "no flashcards")
	}
	return &set, nil
}

// GenerateCoverImage returns the raw result without a fallback branch; the
// session layer owns the degrade-to-nil policy, since only there is it known
// that the image is decorative.
func (c *GenerationClient) GenerateCoverImage(ctx context.Context, req models.CoverImageRequest) (*models.CoverImageResult, error) {
	var result models.CoverImageResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate-cover-image", "", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *GenerationClient) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	req := struct {
		Text           string `json:"text"`
		TargetLanguage string `json:"targetLanguage"`
	}{Text: text, TargetLanguage: targetLanguage}

	var resp struct {
		TranslatedText string `json:"translatedText"`
		TargetLanguage string `json:"targetLanguage"`
		LanguageName   string `json:"languageName"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/translate", "", req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.TranslatedText) == "" {
		return "", c.shapeErr("/api/translate", "empty translation")
	}
	return resp.TranslatedText, nil
}
