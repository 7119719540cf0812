package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everlasthealth/assistant/internal/chat"
	"github.com/everlasthealth/assistant/internal/conversation"
	"github.com/everlasthealth/assistant/internal/log"
	"github.com/everlasthealth/assistant/internal/rag"
)

type fakeTurnHandler struct {
	result  chat.Result
	err     error
	message string
	history []conversation.Message
	style   conversation.Style
}

func (f *fakeTurnHandler) HandleTurn(_ context.Context, message string, history []conversation.Message, style conversation.Style) (chat.Result, error) {
	f.message = message
	f.history = history
	f.style = style
	if f.err != nil {
		return chat.Result{}, f.err
	}
	return f.result, nil
}

func postChat(t *testing.T, h *Chat, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestChatCompletion(t *testing.T) {
	t.Parallel()

	handler := &fakeTurnHandler{result: chat.Result{
		Answer:         "Try a short walk after lunch.",
		EffectiveStyle: conversation.StyleDefault,
		SearchResults: []conversation.SearchResult{
			{Content: "Walking lowers cortisol.", Score: 0.88, Source: "movement.md"},
		},
		StyleDetection: conversation.StyleDetection{
			RequestingStyle: false,
			Confidence:      0.9,
			Explanation:     "ordinary question",
		},
	}}

	rec := postChat(t, NewChat(handler, log.NewNop()), `{
		"message": "how do I unwind at work?",
		"messageHistory": [
			{"sender": "user", "text": "hi"},
			{"sender": "assistant", "text": "hello"}
		],
		"style": "default"
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Try a short walk after lunch.", resp.Answer)
	assert.Nil(t, resp.NewStyle)
	require.Len(t, resp.SearchResults, 1)
	assert.Equal(t, "movement.md", resp.SearchResults[0].Source)
	assert.Equal(t, 0.9, resp.StyleDetection.Confidence)

	assert.Equal(t, "how do I unwind at work?", handler.message)
	assert.Len(t, handler.history, 2)
	assert.Equal(t, conversation.StyleDefault, handler.style)
}

func TestChatCompletion_StyleSwitchReported(t *testing.T) {
	t.Parallel()

	handler := &fakeTurnHandler{result: chat.Result{
		Answer:         "Here is the mechanism.",
		EffectiveStyle: conversation.StyleAnalytical,
	}}

	rec := postChat(t, NewChat(handler, log.NewNop()), `{"message": "explain the science", "style": "default"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.NewStyle)
	assert.Equal(t, conversation.StyleAnalytical, *resp.NewStyle)

	// Raw body carries the field only when a switch happened.
	assert.Contains(t, rec.Body.String(), `"newStyle"`)
}

func TestChatCompletion_NoSwitchOmitsNewStyle(t *testing.T) {
	t.Parallel()

	handler := &fakeTurnHandler{result: chat.Result{
		Answer:         "ok",
		EffectiveStyle: conversation.StylePractical,
	}}

	rec := postChat(t, NewChat(handler, log.NewNop()), `{"message": "hi", "style": "practical"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"newStyle"`)
}

func TestChatCompletion_MissingStyleDefaults(t *testing.T) {
	t.Parallel()

	handler := &fakeTurnHandler{result: chat.Result{Answer: "ok", EffectiveStyle: conversation.StyleDefault}}

	rec := postChat(t, NewChat(handler, log.NewNop()), `{"message": "hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, conversation.StyleDefault, handler.style)
}

func TestChatCompletion_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message": `},
		{"unknown style", `{"message": "hi", "style": "poetic"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := postChat(t, NewChat(&fakeTurnHandler{}, log.NewNop()), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestChatCompletion_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", chat.ErrInvalidInput, http.StatusBadRequest},
		{"retrieval unavailable", rag.ErrUnavailable, http.StatusServiceUnavailable},
		{"completion failed", chat.ErrCompletionFailed, http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := &fakeTurnHandler{err: tt.err}
			rec := postChat(t, NewChat(handler, log.NewNop()), `{"message": "hi"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
