package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everlasthealth/assistant/internal/chat"
	"github.com/everlasthealth/assistant/internal/conversation"
	"github.com/everlasthealth/assistant/internal/log"
)

func TestNewServer_RequiresTurnHandler(t *testing.T) {
	t.Parallel()

	_, err := NewServer(ServerConfig{Logger: log.NewNop()})
	assert.Error(t, err)
}

func TestServer_EndToEnd(t *testing.T) {
	t.Parallel()

	srv, err := NewServer(ServerConfig{
		Turns: &fakeTurnHandler{result: chat.Result{
			Answer:         "breathe in for four counts",
			EffectiveStyle: conversation.StyleDefault,
		}},
		DB:     &fakePinger{},
		Logger: log.NewNop(),
	})
	require.NoError(t, err)

	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "help me relax"}`))
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "breathe in for four counts", resp.Answer)
}

func TestServer_UnknownRoute(t *testing.T) {
	t.Parallel()

	srv, err := NewServer(ServerConfig{Turns: &fakeTurnHandler{}, Logger: log.NewNop()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
