package cleanup_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/e2ekit/cleanup"
	"github.com/wb-go/e2ekit/logger"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestCleanup_ReverseOrderAndDefaultMethod(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Method + " " + r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := cleanup.New(cleanup.WithLogger(logger.NewSlogAdapter("t", "t", logger.WithoutStdout())))
	h.Register(srv.URL+"/orders/1", "")
	h.Register(srv.URL+"/carts/7", http.MethodPost)
	h.Register(srv.URL+"/users/3", "")
	require.Len(t, h.Pending(), 3)
	assert.Equal(t, http.MethodDelete, h.Pending()[0].Method)

	h.Cleanup(context.Background())

	assert.Equal(t, []string{"DELETE /users/3", "POST /carts/7", "DELETE /orders/1"}, rec.list())
	assert.Empty(t, h.Pending())
}

func TestCleanup_RetriesThenContinues(t *testing.T) {
	rec := &recorder{}
	attempts := map[string]int{}
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		mu.Lock()
		attempts[r.URL.Path]++
		n := attempts[r.URL.Path]
		mu.Unlock()
		switch {
		case r.URL.Path == "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case r.URL.Path == "/flaky" && n == 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case r.URL.Path == "/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	var buf bytes.Buffer
	h := cleanup.New(
		cleanup.WithRetry(2, time.Millisecond),
		cleanup.WithLogger(logger.NewSlogAdapter("t", "t", logger.WithWriter(&buf))),
	)
	h.Register(srv.URL+"/gone", "")
	h.Register(srv.URL+"/broken", "")
	h.Register(srv.URL+"/flaky", "")

	h.Cleanup(context.Background())

	assert.Equal(t, []string{"/flaky", "/flaky", "/broken", "/broken", "/broken", "/gone"}, rec.list())
	assert.Contains(t, buf.String(), "failed to clean up resource")
	assert.Contains(t, buf.String(), `"failed":1`)
	assert.Empty(t, h.Pending())
}

func TestCleanup_EmptyIsNoop(t *testing.T) {
	var buf bytes.Buffer
	h := cleanup.New(cleanup.WithLogger(logger.NewSlogAdapter("t", "t", logger.WithWriter(&buf))))
	h.Cleanup(context.Background())
	assert.Empty(t, buf.String())
}
