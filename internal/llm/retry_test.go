package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everlasthealth/assistant/internal/log"
)

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()
	assert.Positive(t, cfg.MaxRetries)
	assert.Positive(t, cfg.InitialInterval)
	assert.GreaterOrEqual(t, cfg.MaxInterval, cfg.InitialInterval)
}

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"quota", errors.New("quota exceeded for project"), true},
		{"429", errors.New("HTTP 429: Too Many Requests"), true},
		{"500", errors.New("HTTP 500 Internal Server Error"), true},
		{"503", errors.New("503 Service Unavailable"), true},
		{"unavailable keyword", errors.New("service UNAVAILABLE"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"timeout", errors.New("context deadline exceeded (timeout)"), true},
		{"invalid request", errors.New("invalid request: empty model"), false},
		{"auth failure", errors.New("401 unauthorized"), false},
		{"safety block", errors.New("response blocked by safety settings"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, retryableError(tt.err))
		})
	}
}

func TestExecuteWithRetry_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := executeWithRetry(t.Context(), DefaultRetryConfig(), nil, log.NewNop(),
		func(context.Context) (string, error) {
			calls++
			return "answer", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "answer", got)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	calls := 0

	got, err := executeWithRetry(t.Context(), cfg, nil, log.NewNop(),
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("503 Service Unavailable")
			}
			return "recovered", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_NonRetryableFailsImmediately(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	calls := 0
	callErr := errors.New("invalid argument")

	_, err := executeWithRetry(t.Context(), cfg, nil, log.NewNop(),
		func(context.Context) (string, error) {
			calls++
			return "", callErr
		})

	assert.ErrorIs(t, err, callErr)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	calls := 0

	_, err := executeWithRetry(t.Context(), cfg, nil, log.NewNop(),
		func(context.Context) (string, error) {
			calls++
			return "", errors.New("429 too many requests")
		})

	assert.Error(t, err)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
}

func TestExecuteWithRetry_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cfg := RetryConfig{MaxRetries: 5, InitialInterval: time.Hour, MaxInterval: time.Hour}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := executeWithRetry(ctx, cfg, nil, log.NewNop(),
		func(context.Context) (string, error) {
			return "", errors.New("503 unavailable")
		})

	assert.ErrorIs(t, err, context.Canceled)
}
