package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method, route, status string
}

type requestRecorder struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (r *requestRecorder) ObserveRequest(method, route, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedRequest{method, route, status})
}

func TestLogger_LogsStatusAndRoutePattern(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := slog.New(slog.NewTextHandler(buf, nil))
	obs := &requestRecorder{}

	r := chi.NewRouter()
	r.Use(Logger(log, obs))
	r.Post("/events/{id}/book", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/abc/book", nil))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	out := buf.String()
	assert.Contains(t, out, "method=POST")
	assert.Contains(t, out, "path=/events/abc/book")
	assert.Contains(t, out, "status=201")
	assert.Contains(t, out, "status=200", "implicit WriteHeader defaults to 200")

	require.Len(t, obs.seen, 2)
	assert.Equal(t, recordedRequest{"POST", "/events/{id}/book", "201"}, obs.seen[0])
	assert.Equal(t, recordedRequest{"GET", "/health", "200"}, obs.seen[1])
}

func TestHolderFromContext(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := HolderFromContext(req.Context())
	assert.False(t, ok)

	id, ok := HolderFromContext(WithHolder(req.Context(), "alice"))
	assert.True(t, ok)
	assert.Equal(t, "alice", id)

	_, ok = HolderFromContext(WithHolder(req.Context(), ""))
	assert.False(t, ok)
}
