package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/years", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id %q has no prefix", seen)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Fatalf("header %q != context %q", got, seen)
	}
	metrics := m.GetMetrics()
	if metrics.TotalRequests != 1 || metrics.ServerErrors != 1 {
		t.Fatalf("unexpected metrics %+v", metrics)
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("got %q", seen)
	}

	req.Header.Set(HeaderRequestID, strings.Repeat("x", 100))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == strings.Repeat("x", 100) {
		t.Fatal("oversized id should be replaced")
	}
}

func TestGetRequestIDEmpty(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
		t.Fatalf("got %q", id)
	}
}
