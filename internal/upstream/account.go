package upstream

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storyloom-backend/internal/models"
)

// AccountClient talks to the Account Service. Login and registration return
// both the user record and the signed session token; the token is set as a
// cookie for the browser and verified locally on later requests.
type AccountClient struct {
	*baseClient
}

func NewAccountClient(baseURL string, timeout time.Duration) (*AccountClient, error) {
	base, err := newBaseClient("account", baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &AccountClient{baseClient: base}, nil
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (c *AccountClient) Register(ctx context.Context, req models.RegisterRequest) (*models.User, string, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", "", req, &resp); err != nil {
		return nil, "", err
	}
	if resp.User == nil || resp.Token == "" {
		return nil, "", c.shapeErr("/api/auth/register", "missing user or token")
	}
	return resp.User, resp.Token, nil
}

func (c *AccountClient) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "", req, &resp); err != nil {
		return nil, "", err
	}
	if resp.User == nil || resp.Token == "" {
		return nil, "", c.shapeErr("/api/auth/login", "missing user or token")
	}
	return resp.User, resp.Token, nil
}

func (c *AccountClient) Logout(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

// CurrentUser returns nil without an error when the token no longer maps to
// a user; absence means unauthenticated, not failure.
func (c *AccountClient) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", token, nil, &resp)
	if err != nil {
		var upErr *Error
		if errors.As(err, &upErr) && upErr.Status == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, err
	}
	return resp.User, nil
}
