package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/tavern/internal/config"
	"github.com/nfrund/tavern/internal/database/memstore"
	"github.com/nfrund/tavern/internal/dice"
	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/module"
	"github.com/nfrund/tavern/internal/modules/table"
	"github.com/nfrund/tavern/internal/pubsub"
	"github.com/nfrund/tavern/internal/registry"
	"github.com/nfrund/tavern/internal/testutils"
)

func TestHTTPErrorHandler_WithStackTrace(t *testing.T) {
	e := echo.New()

	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuffer, &slog.HandlerOptions{AddSource: true}))
	originalLogger := slog.Default()
	slog.SetDefault(logger)
	defer slog.SetDefault(originalLogger)

	setupErrorHandling(e)
	e.GET("/test-unhandled-error", func(c echo.Context) error {
		return errors.New("a deliberate unhandled error occurred")
	})

	req := httptest.NewRequest(http.MethodGet, "/test-unhandled-error", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":"internal","message":"Internal Server Error"}`, rec.Body.String())

	logOutput := logBuffer.String()
	assert.Contains(t, logOutput, "Internal Server Error (Unhandled)")
	assert.Contains(t, logOutput, "error=\"a deliberate unhandled error occurred\"")
	assert.Contains(t, logOutput, "stack_trace=")
	assert.True(t, strings.Contains(logOutput, "runtime/debug"), "stack trace should include runtime frames")
}

func TestHTTPErrorHandler_HTTPErrorIsNotLogged(t *testing.T) {
	e := echo.New()
	var logBuffer bytes.Buffer
	originalLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuffer, nil)))
	defer slog.SetDefault(originalLogger)

	setupErrorHandling(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
	assert.NotContains(t, logBuffer.String(), "stack_trace")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()

	store := memstore.New()
	for _, c := range testutils.Characters() {
		_, err := store.Upsert(ctx, c)
		require.NoError(t, err)
	}
	bridge := pubsub.NewWatermillBridge()
	t.Cleanup(func() { _ = bridge.Close() })

	cfg := &config.Config{
		SessionSecret: "server-test-secret",
		DMUIDs:        []string{testutils.DM.UID},
		MessageLimit:  100,
	}
	reg := registry.New(cfg)
	registry.Set[pubsub.Publisher](reg, registry.PublisherKey, bridge)
	registry.Set[pubsub.Subscriber](reg, registry.SubscriberKey, bridge)
	registry.Set[domain.MessageLog](reg, registry.MessageLogKey, store)
	registry.Set(reg, registry.DiceKey, dice.NewSeededResolver(1))
	registry.Set[domain.CharacterRepository](reg, registry.CharactersKey, store)

	s := New(reg, []module.Module{table.New()})
	require.NoError(t, s.InitModules(ctx))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func TestServer_HealthAndModules(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	_, ok := registry.Get(s.Registry, registry.EngineKey)
	assert.True(t, ok, "table module should register its engine")

	rec = httptest.NewRecorder()
	s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/table/view", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
}

func TestServer_SessionThenView(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/table/session", strings.NewReader(`{"uid":"abc","displayName":"Player One"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/table/view", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"phase":"DM_TURN"`)
	assert.Contains(t, rec.Body.String(), `"players":["player1","player2"]`)
}
