package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/angelo/ai"
	"github.com/hrygo/angelo/ai/metrics"
	"github.com/hrygo/angelo/internal/profile"
	"github.com/hrygo/angelo/store"
	"github.com/hrygo/angelo/store/db/memory"
)

func newTestServer(t *testing.T) *Server {
	return newTestServerWithMode(t, "dev")
}

func newTestServerWithMode(t *testing.T, mode string) *Server {
	t.Helper()
	prof := &profile.Profile{Mode: mode, LLMProvider: "openai", Addr: "127.0.0.1"}
	assistant, err := ai.NewAssistant(ai.NewConfigFromProfile(prof), store.FixtureDirectory(),
		metrics.NewPrometheusExporter(metrics.DefaultConfig()))
	require.NoError(t, err)

	s, err := NewServer(context.Background(), prof, store.New(memory.NewDB(), prof), assistant)
	require.NoError(t, err)
	return s
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestDebugOnlyInDev(t *testing.T) {
	assert.True(t, newTestServerWithMode(t, "dev").Echo().Debug)
	assert.False(t, newTestServerWithMode(t, "prod").Echo().Debug)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "angelo_assistant_sessions_active 1")
}

func TestShutdown(t *testing.T) {
	s := newTestServer(t)
	s.Assistant.Sessions.Create()
	assert.NotPanics(t, func() { s.Shutdown(context.Background()) })
	assert.Zero(t, s.Assistant.Sessions.Len())
}
