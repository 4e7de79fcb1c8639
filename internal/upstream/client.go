// Package upstream holds typed HTTP clients for the three external
// collaborators: the Generation Service, the Account Service and the Library
// Service. Every response is shape-checked here so the rest of the code
// never sees a half-formed upstream payload.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// SessionCookieName is the Account Service's token cookie, forwarded on
// every authenticated upstream call.
const SessionCookieName = "storyloom_token"

// Error is a failure reported by (or while reaching) an upstream service.
type Error struct {
	Service string
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: upstream returned %d: %s", e.Service, e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Service, e.Op, e.Message)
}

type baseClient struct {
	service    string
	baseURL    string
	httpClient *http.Client
}

func newBaseClient(service, baseURL string, timeout time.Duration) (*baseClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL for %s service: %w", service, err)
	}

	return &baseClient{
		service: service,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// doJSON issues one JSON request. token, when non-empty, is attached as the
// shared session cookie. out, when non-nil, receives the decoded body.
func (c *baseClient) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Service: c.service, Op: path, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return &Error{Service: c.service, Op: path, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Service: c.service, Op: path, Status: resp.StatusCode, Message: extractErrorMessage(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{Service: c.service, Op: path, Message: fmt.Sprintf("malformed response body: %v", err)}
		}
	}

	return nil
}

// extractErrorMessage pulls the {"error": "..."} field upstream services use
// for failures, falling back to the raw body.
func extractErrorMessage(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if len(data) > 200 {
		data = data[:200]
	}
	return string(data)
}

func (c *baseClient) shapeErr(op, detail string) error {
	return &Error{Service: c.service, Op: op, Message: "unexpected response shape: " + detail}
}
