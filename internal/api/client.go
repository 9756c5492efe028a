// Package api is the typed client over the remote authentication and
// session-management endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"stockdesk/gateway/internal/models"
)

// TokenSource supplies the current access token for authenticated calls.
// It returns the empty string when no session is held.
type TokenSource func() string

type Client struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration, token TokenSource) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Login exchanges credentials for a token pair. Not retried; a failure is
// surfaced to the caller as-is.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, fmt.Errorf("api.Login: %w", err)
	}
	return &resp, nil
}

// Refresh exchanges the refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.post(ctx, "/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, fmt.Errorf("api.Refresh: %w", err)
	}
	return &resp, nil
}

// Logout notifies the server that this session ended. Callers treat it as
// best-effort.
func (c *Client) Logout(ctx context.Context, sessionID string) error {
	if err := c.post(ctx, "/auth/logout", LogoutRequest{SessionID: sessionID}, nil); err != nil {
		return fmt.Errorf("api.Logout: %w", err)
	}
	return nil
}

// ListSessions returns every active session for the current account.
func (c *Client) ListSessions(ctx context.Context) ([]models.RemoteSession, error) {
	var sessions []models.RemoteSession
	if err := c.get(ctx, "/auth/sessions", &sessions); err != nil {
		return nil, fmt.Errorf("api.ListSessions: %w", err)
	}
	return sessions, nil
}

// TerminateSession ends one session by id.
func (c *Client) TerminateSession(ctx context.Context, sessionID string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/auth/sessions/"+url.PathEscape(sessionID), nil, nil); err != nil {
		return fmt.Errorf("api.TerminateSession: %w", err)
	}
	return nil
}

// TerminateOthers ends every session except the caller's.
func (c *Client) TerminateOthers(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/auth/sessions/others", nil, nil); err != nil {
		return fmt.Errorf("api.TerminateOthers: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
