package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/everlasthealth/assistant/internal/log"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func probe(t *testing.T, h *Health, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth_Live(t *testing.T) {
	t.Parallel()

	rec := probe(t, NewHealth(nil, log.NewNop()), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHealth_Ready(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		db   Pinger
		want int
	}{
		{"database reachable", &fakePinger{}, http.StatusOK},
		{"database down", &fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
		{"no database configured", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := probe(t, NewHealth(tt.db, log.NewNop()), "/ready")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
