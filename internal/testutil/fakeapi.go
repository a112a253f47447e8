package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Request is one call received by a FakeAPI.
type Request struct {
	Path string
	Body []byte
}

// JSON decodes the request body into a generic map.
func (r Request) JSON(t testing.TB) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(r.Body, &m); err != nil {
		t.Fatalf("decoding %s body: %v", r.Path, err)
	}
	return m
}

type route struct {
	status int
	body   []byte
	before func()
}

// FakeAPI is an httptest server standing in for the backend. Routes are
// registered by path relative to /api; unregistered routes answer 500.
type FakeAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	routes   map[string]route
	requests []Request
}

// NewFakeAPI starts a fake backend that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{routes: make(map[string]route)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL is the API base URL to hand to a client.
func (f *FakeAPI) URL() string { return f.server.URL + "/api" }

// Close shuts the server down early, e.g. to simulate a network failure.
func (f *FakeAPI) Close() { f.server.Close() }

// Respond makes path answer with status and body. A string body is sent as
// is; anything else is JSON-encoded.
func (f *FakeAPI) Respond(path string, status int, body interface{}) {
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	case []byte:
		raw = b
	default:
		raw, _ = json.Marshal(b)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.routes[path]
	r.status, r.body = status, raw
	f.routes[path] = r
}

// Before runs hook before path answers. Tests use it to hold a request open.
func (f *FakeAPI) Before(path string, hook func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.routes[path]
	r.before = hook
	f.routes[path] = r
}

// Requests returns the calls received on path, oldest first.
func (f *FakeAPI) Requests(path string) []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Request
	for _, r := range f.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Calls counts every request received.
func (f *FakeAPI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, Request{Path: path, Body: body})
	rt, ok := f.routes[path]
	f.mu.Unlock()

	if rt.before != nil {
		rt.before()
	}

	w.Header().Set("Content-Type", "application/json")
	if !ok || rt.status == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"unexpected route"}`))
		return
	}
	w.WriteHeader(rt.status)
	_, _ = w.Write(rt.body)
}
