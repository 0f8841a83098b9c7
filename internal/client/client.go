// Package client is a typed HTTP client for the typerpg API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/typerpg/internal/daily"
	"github.com/verte-zerg/typerpg/internal/model"
	"github.com/verte-zerg/typerpg/internal/service"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to a typerpg server on behalf of one player.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for the server at baseURL authenticating with token.
func New(baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type meBody struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	XP       int    `json:"xp"`
}

func (m meBody) progress() model.PlayerProgress {
	return model.PlayerProgress{UserID: m.UserID, Username: m.Username, Level: m.Level, XP: m.XP}
}

// EnsurePlayer creates the player on the server if needed and returns it.
func (c *Client) EnsurePlayer(ctx context.Context) (model.PlayerProgress, error) {
	var body meBody
	if err := c.do(ctx, http.MethodPost, "/api/me", nil, &body); err != nil {
		return model.PlayerProgress{}, err
	}
	return body.progress(), nil
}

// GetProgress returns the authenticated player's progress. The user id is
// taken from the token; the argument only satisfies stats.Source.
func (c *Client) GetProgress(ctx context.Context, _ string) (model.PlayerProgress, error) {
	var body meBody
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &body); err != nil {
		return model.PlayerProgress{}, err
	}
	return body.progress(), nil
}

// ListSessions returns the authenticated player's recent sessions.
func (c *Client) ListSessions(ctx context.Context, _ string, limit int) ([]model.GameSession, error) {
	var body struct {
		Sessions []model.GameSession `json:"sessions"`
	}
	path := "/api/sessions?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	return body.Sessions, nil
}

// DailyStatus reports whether today's daily challenge is done.
func (c *Client) DailyStatus(ctx context.Context) (model.DailyStatus, error) {
	var status model.DailyStatus
	if err := c.do(ctx, http.MethodGet, "/api/daily/status", nil, &status); err != nil {
		return model.DailyStatus{}, err
	}
	return status, nil
}

// Submit records a completed session.
func (c *Client) Submit(ctx context.Context, sub model.SessionSubmission) (model.SessionResult, error) {
	var res model.SessionResult
	if err := c.do(ctx, http.MethodPost, "/api/sessions", sub, &res); err != nil {
		return model.SessionResult{}, err
	}
	return res, nil
}

// LevelLeaderboard fetches a page of the levels leaderboard.
func (c *Client) LevelLeaderboard(ctx context.Context, limit, offset int) ([]model.LevelEntry, error) {
	var body struct {
		Items []model.LevelEntry `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, pagePath("/api/leaderboard/levels", limit, offset), nil, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

// TodayWPMLeaderboard fetches a page of today's daily WPM leaderboard.
func (c *Client) TodayWPMLeaderboard(ctx context.Context, limit, offset int) ([]model.WPMEntry, error) {
	var body struct {
		Items []model.WPMEntry `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, pagePath("/api/leaderboard/today-wpm", limit, offset), nil, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

func pagePath(path string, limit, offset int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return path + "?" + q.Encode()
}

type errorBody struct {
	Error                 string `json:"error"`
	Reason                string `json:"reason"`
	TimeUntilResetSeconds int64  `json:"timeUntilResetSeconds"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	var eb errorBody
	if jerr := json.Unmarshal(raw, &eb); jerr != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(raw))
	}
	switch {
	case resp.StatusCode == http.StatusConflict && eb.Reason == "daily_already_completed":
		return &daily.AlreadyCompletedError{TimeUntilResetSeconds: eb.TimeUntilResetSeconds}
	case resp.StatusCode == http.StatusNotFound && method == http.MethodGet && path == "/api/me":
		return service.ErrNotFound
	default:
		return &APIError{Status: resp.StatusCode, Message: eb.Error}
	}
}
