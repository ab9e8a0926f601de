package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expensetracker/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	m := NewMiddleware(log.Discard(), func(*http.Request) string { return "10.0.0.1" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/due", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d, want 1", got)
	}
}

func TestMiddleware_IncomingRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"valid token", "abc-123_DEF", true},
		{"empty", "", false},
		{"injection", "abc\nlevel=ERROR", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMiddleware(log.Discard(), nil)
			var seen string
			h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.header)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.keep && seen != tt.header {
				t.Errorf("request id = %q, want %q", seen, tt.header)
			}
			if !tt.keep && seen == tt.header {
				t.Errorf("request id %q should have been replaced", seen)
			}
		})
	}
}

func TestMiddleware_CountsServerErrors(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := m.GetMetrics().ServerErrors; got != 1 {
		t.Errorf("ServerErrors = %d, want 1", got)
	}
}
