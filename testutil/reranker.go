package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// RecordedRequest is a request captured by FakeReranker.
type RecordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        map[string]any
}

type cannedResponse struct {
	status int
	body   string
}

// FakeReranker is an httptest server standing in for the remote reranking
// service. It serves POST /rerank and GET /health with canned responses and
// records every request.
type FakeReranker struct {
	server *httptest.Server

	mu       sync.Mutex
	rerank   cannedResponse
	health   cannedResponse
	delay    time.Duration
	requests []RecordedRequest
}

// NewFakeReranker starts a fake service that is closed when the test ends.
// By default /rerank returns {"results":[]} and /health returns
// {"status":"ok"}, both with 200.
func NewFakeReranker(t *testing.T) *FakeReranker {
	t.Helper()

	f := &FakeReranker{
		rerank: cannedResponse{status: http.StatusOK, body: `{"results":[]}`},
		health: cannedResponse{status: http.StatusOK, body: `{"status":"ok"}`},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rerank", f.handle(func() cannedResponse { return f.rerank }))
	mux.HandleFunc("/health", f.handle(func() cannedResponse { return f.health }))

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake service.
func (f *FakeReranker) URL() string { return f.server.URL }

// RespondRerank sets the /rerank response.
func (f *FakeReranker) RespondRerank(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rerank = cannedResponse{status: status, body: body}
}

// RespondHealth sets the /health response.
func (f *FakeReranker) RespondHealth(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health = cannedResponse{status: status, body: body}
}

// SetDelay makes every response wait d before being written.
func (f *FakeReranker) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Requests returns a copy of all recorded requests.
func (f *FakeReranker) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// LastRequest returns the most recent request.
func (f *FakeReranker) LastRequest() (RecordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return RecordedRequest{}, false
	}
	return f.requests[len(f.requests)-1], true
}

func (f *FakeReranker) handle(pick func() cannedResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := RecordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
		}
		if data, err := io.ReadAll(r.Body); err == nil && len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}

		f.mu.Lock()
		f.requests = append(f.requests, rec)
		resp := pick()
		delay := f.delay
		f.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_, _ = io.WriteString(w, resp.body)
	}
}
