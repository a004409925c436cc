package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fundreport/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	logger := log.New(log.Config{Level: slog.LevelInfo, Format: "text", Component: log.ComponentAPI, Writer: buf})
	return NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" })
}

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		log.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))

	id := rec.Header().Get(RequestIDHeader)
	if id == "" || id != seen {
		t.Fatalf("header id = %q, context id = %q", id, seen)
	}
	if len(id) != 36 {
		t.Errorf("expected a UUID, got %q", id)
	}

	out := buf.String()
	if strings.Count(out, "request_id="+id) != 2 {
		t.Errorf("both log lines should carry the request id: %q", out)
	}
	if !strings.Contains(out, "status_code=418") || !strings.Contains(out, "level=WARN") {
		t.Errorf("completion log should report 418 at WARN: %q", out)
	}

	metrics := m.GetMetrics()
	if metrics.TotalRequests != 1 || metrics.ServerErrors != 0 {
		t.Errorf("metrics = %+v", metrics)
	}
}

func TestMiddleware_ReusesIncomingRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reused   bool
	}{
		{"plain id", "abc-123", true},
		{"blank", "   ", false},
		{"contains space", "abc 123", false},
		{"too long", strings.Repeat("a", 200), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := newTestMiddleware(&buf).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if (got == tt.incoming) != tt.reused {
				t.Errorf("response id = %q, incoming %q, reused = %v", got, tt.incoming, tt.reused)
			}
			if got == "" {
				t.Error("response must carry a request id")
			}
		})
	}
}

func TestMiddleware_CountsServerErrors(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if m.GetMetrics().ServerErrors != 1 {
		t.Errorf("ServerErrors = %d, want 1", m.GetMetrics().ServerErrors)
	}
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("expected ERROR log: %q", buf.String())
	}
}
