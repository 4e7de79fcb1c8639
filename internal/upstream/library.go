package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storyloom-backend/internal/models"
)

// LibraryClient talks to the Library Service, which owns saved-story
// persistence and usage stats. Every call carries the user's session token.
type LibraryClient struct {
	*baseClient
}

func NewLibraryClient(baseURL string, timeout time.Duration) (*LibraryClient, error) {
	base, err := newBaseClient("library", baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &LibraryClient{baseClient: base}, nil
}

func (c *LibraryClient) List(ctx context.Context, token string) ([]models.SavedStory, error) {
	var resp struct {
		Stories []models.SavedStory `json:"stories"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/stories", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stories, nil
}

func (c *LibraryClient) Get(ctx context.Context, token string, id int64) (*models.SavedStory, error) {
	var resp struct {
		Story *models.SavedStory `json:"story"`
	}
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/stories/%d", id), token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Story == nil {
		return nil, c.shapeErr("/api/stories/{id}", "missing story")
	}
	return resp.Story, nil
}

func (c *LibraryClient) Save(ctx context.Context, token string, req models.SaveStoryRequest) (*models.SavedStory, error) {
	var resp struct {
		Story *models.SavedStory `json:"story"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/stories", token, req, &resp); err != nil {
		return nil, err
	}
	if resp.Story == nil || resp.Story.ID == 0 {
		return nil, c.shapeErr("/api/stories", "missing saved story record")
	}
	return resp.Story, nil
}

func (c *LibraryClient) Update(ctx context.Context, token string, id int64, req models.UpdateStoryRequest) error {
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/stories/%d", id), token, req, nil)
}

func (c *LibraryClient) Delete(ctx context.Context, token string, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/stories/%d", id), token, nil, nil)
}

func (c *LibraryClient) Stats(ctx context.Context, token string) (*models.UserStats, error) {
	var stats models.UserStats
	if err := c.doJSON(ctx, http.MethodGet, "/api/user/stats", token, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// RecordActivity bumps the user's generation count and streak. Callers
// treat failures as best-effort.
func (c *LibraryClient) RecordActivity(ctx context.Context, token string) (*models.UserStats, error) {
	var stats models.UserStats
	if err := c.doJSON(ctx, http.MethodPost, "/api/user/activity", token, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
