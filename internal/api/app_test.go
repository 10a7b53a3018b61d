package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/npezzotti/campus-messaging/internal/config"
	"github.com/npezzotti/campus-messaging/internal/database"
	"github.com/npezzotti/campus-messaging/internal/server"
	"github.com/npezzotti/campus-messaging/internal/service"
	"github.com/npezzotti/campus-messaging/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

type testEnv struct {
	app      *App
	repo     *database.MemoryRepository
	registry *server.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testutil.TestLogger(t)
	repo := database.NewMemoryRepository()
	registry := server.NewRegistry(logger, nil)
	broker, err := server.NewBroker(logger, registry, nil)
	require.NoError(t, err)

	msgs, err := service.NewMessageService(logger, repo, repo, broker)
	require.NoError(t, err)
	notes, err := service.NewNotificationService(logger, repo, repo, broker)
	require.NoError(t, err)

	app := NewApp(http.NewServeMux(), logger, registry, msgs, notes, repo, &config.Config{
		ServerAddr: "localhost:8000",
		SigningKey: testSigningKey,
	})

	return &testEnv{app: app, repo: repo, registry: registry}
}

func (e *testEnv) token(t *testing.T, userId string) string {
	t.Helper()
	token, err := e.app.createJwtForSession(userId, time.Hour)
	require.NoError(t, err, "failed to create jwt token")
	return token
}

// do sends a request through the full handler chain as userId. An empty
// userId sends no credentials.
func (e *testEnv) do(t *testing.T, method, target string, body any, userId string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewBuffer(buf)
	}

	req := httptest.NewRequest(method, target, r)
	if userId != "" {
		req.AddCookie(createJwtCookie(e.token(t, userId), time.Hour))
	}

	rr := httptest.NewRecorder()
	e.app.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "failed to decode response")
	return v
}

func TestNewApp(t *testing.T) {
	mux := http.NewServeMux()
	logger := testutil.TestLogger(t)
	repo := database.NewMemoryRepository()
	registry := server.NewRegistry(logger, nil)
	cfg := &config.Config{
		ServerAddr:     "localhost:8080",
		DatabaseDSN:    "dsn",
		SigningKey:     []byte("secret"),
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	app := NewApp(mux, logger, registry, nil, nil, repo, cfg)

	assert.NotNil(t, app, "expected app to be initialized")
	assert.NotNil(t, app.mux, "expected server to be initialized")
	assert.Equal(t, logger, app.log, "expected logger to be set")
	assert.Equal(t, repo, app.db, "expected db to be set")
	assert.Equal(t, registry, app.registry, "expected registry to be set")
	assert.Equal(t, cfg.SigningKey, app.signingKey, "expected signing key to be set")
	assert.Equal(t, cfg.AllowedOrigins, app.allowedOrigins)
	assert.Equal(t, cfg.ServerAddr, app.mux.Addr, "expected server address to match config")
}

func TestRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	routes := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/messages?userId=b"},
		{http.MethodPost, "/api/messages"},
		{http.MethodDelete, "/api/messages/abc"},
		{http.MethodGet, "/api/notifications"},
		{http.MethodPost, "/api/notifications"},
		{http.MethodPut, "/api/notifications"},
		{http.MethodGet, "/ws"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.target, func(t *testing.T) {
			rr := env.do(t, rt.method, rt.target, nil, "")
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, *NewUnauthorizedError(), decodeBody[ApiError](t, rr))
		})
	}
}
