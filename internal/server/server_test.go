package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typerpg/internal/auth"
	"github.com/verte-zerg/typerpg/internal/service"
	"github.com/verte-zerg/typerpg/internal/store"
)

var noon = time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	srv    *httptest.Server
	tokens *auth.JWTService
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "typerpg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tokens, err := auth.NewJWTService("test-secret")
	require.NoError(t, err)
	svc := service.New(st, func() time.Time { return noon })
	handler, err := New(svc, tokens, opts)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, tokens: tokens}
}

func (e *testEnv) token(t *testing.T, userID, name string) string {
	t.Helper()
	tok, err := e.tokens.GenerateToken(userID, name, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

func TestHealthAndWelcome(t *testing.T) {
	env := newTestEnv(t, Options{})
	resp, _ := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp, body := env.do(t, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, body = env.do(t, http.MethodGet, "/api/me", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid or expired token", body["error"])
}

func TestMeLifecycle(t *testing.T) {
	env := newTestEnv(t, Options{})
	tok := env.token(t, "u1", "ana")

	resp, body := env.do(t, http.MethodGet, "/api/me", tok, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "player not found", body["error"])

	resp, body = env.do(t, http.MethodPost, "/api/me", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ana", body["username"])
	assert.EqualValues(t, 1, body["level"])
	assert.EqualValues(t, 0, body["xp"])
	assert.EqualValues(t, 20, body["xpToNextLevel"])

	resp, body = env.do(t, http.MethodGet, "/api/me", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u1", body["userId"])
}

func TestCreateSessionValidation(t *testing.T) {
	env := newTestEnv(t, Options{})
	tok := env.token(t, "u1", "ana")

	cases := map[string]string{
		"bad json":      `{"mode":`,
		"unknown mode":  `{"mode":"ranked","wpm":1,"totalWords":1,"correctWords":1,"incorrectWords":0}`,
		"negative":      `{"mode":"endless","wpm":-5,"totalWords":1,"correctWords":1,"incorrectWords":0}`,
		"fractional":    `{"mode":"endless","wpm":1.5,"totalWords":1,"correctWords":1,"incorrectWords":0}`,
		"missing field": `{"mode":"endless","wpm":10}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/sessions", tok, payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, body["success"])
		})
	}

	resp, body := env.do(t, http.MethodPost, "/api/sessions", tok, `{"mode":"endless","wpm":-5,"totalWords":1,"correctWords":1,"incorrectWords":0}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	details, ok := body["details"].([]any)
	require.True(t, ok, "details: %v", body["details"])
	assert.Contains(t, details[0], "/wpm")
}

func TestCreateSessionAndDailyConflict(t *testing.T) {
	env := newTestEnv(t, Options{})
	tok := env.token(t, "u1", "ana")
	payload := `{"mode":"daily","wpm":60,"totalWords":10,"correctWords":10,"incorrectWords":0}`

	resp, body := env.do(t, http.MethodPost, "/api/sessions", tok, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	session := body["session"].(map[string]any)
	assert.EqualValues(t, 500, session["xpDelta"])
	assert.Equal(t, "daily", session["mode"])
	progress := body["progress"].(map[string]any)
	assert.EqualValues(t, 10, progress["level"])

	resp, body = env.do(t, http.MethodPost, "/api/sessions", tok, payload)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "daily_already_completed", body["reason"])
	assert.EqualValues(t, 12*3600, body["timeUntilResetSeconds"])
	assert.Equal(t, "43200", resp.Header.Get("Retry-After"))

	resp, body = env.do(t, http.MethodGet, "/api/daily/status", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["completedToday"])

	resp, body = env.do(t, http.MethodGet, "/api/sessions?limit=500", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["sessions"], 1)
}

func TestLeaderboardsArePublic(t *testing.T) {
	env := newTestEnv(t, Options{})
	for _, u := range []struct{ id, name, wpm string }{{"a", "ana", "70"}, {"b", "bob", "90"}} {
		resp, _ := env.do(t, http.MethodPost, "/api/sessions", env.token(t, u.id, u.name),
			`{"mode":"daily","wpm":`+u.wpm+`,"totalWords":10,"correctWords":10,"incorrectWords":0}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodGet, "/api/leaderboard/today-wpm", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "bob", first["username"])
	assert.EqualValues(t, 1, first["rank"])

	resp, body = env.do(t, http.MethodGet, "/api/leaderboard/levels?limit=1&offset=1", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items = body["items"].([]any)
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].(map[string]any)["rank"])
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RateLimit: 2})
	for i := 0; i < 2; i++ {
		resp, _ := env.do(t, http.MethodGet, "/api/leaderboard/levels", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := env.do(t, http.MethodGet, "/api/leaderboard/levels", "", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "too many requests", body["error"])

	// an authenticated player has a separate budget
	resp, _ = env.do(t, http.MethodGet, "/api/daily/status", env.token(t, "u1", "ana"), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
