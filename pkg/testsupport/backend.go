// Package testsupport holds helpers shared by tests that talk to a fake REST
// backend.
package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Request is what the fake backend saw.
type Request struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// Backend answers every request with a fixed status and body and records
// what it received.
type Backend struct {
	mu       sync.Mutex
	status   int
	response string
	requests []Request
	seen     chan Request
}

// NewBackend returns a backend replying with status and a JSON body.
func NewBackend(status int, response string) *Backend {
	return &Backend{status: status, response: response, seen: make(chan Request, 64)}
}

// SetReply changes the status and body for subsequent requests.
func (b *Backend) SetReply(status int, response string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status, b.response = status, response
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	req := Request{
		Method: r.Method,
		Path:   r.URL.EscapedPath(),
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	}

	b.mu.Lock()
	b.requests = append(b.requests, req)
	status, response := b.status, b.response
	b.mu.Unlock()

	select {
	case b.seen <- req:
	default:
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, response)
}

// Requests returns every request received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Wait blocks until the next request arrives or timeout elapses.
func (b *Backend) Wait(timeout time.Duration) (Request, bool) {
	select {
	case req := <-b.seen:
		return req, true
	case <-time.After(timeout):
		return Request{}, false
	}
}

// Serve starts an httptest server for h and closes it when the test ends.
func Serve(t testing.TB, h http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}
