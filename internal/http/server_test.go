package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fundreport/internal/core"
	"fundreport/internal/log"
	"fundreport/internal/middleware/ratelimit"
	"fundreport/internal/services"
	"fundreport/internal/sources/memory"
)

var testNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()

	schedules := []core.RecurringSchedule{
		{ID: "rent", Description: "Rent", BaseAmount: decimal.NewFromInt(1200), RecurringStart: date(2024, 1, 5), Active: true},
		{ID: "old", Description: "Old lease", BaseAmount: decimal.NewFromInt(900), RecurringStart: date(2023, 1, 1), RecurringEnd: date(2023, 6, 1)},
	}
	for _, s := range schedules {
		if err := store.AddSchedule(s); err != nil {
			t.Fatalf("AddSchedule(%s): %v", s.ID, err)
		}
	}

	txs := []struct {
		tx       core.Transaction
		schedule string
	}{
		{core.Transaction{ID: "t-rent", Amount: decimal.NewFromInt(-1200), BaseAmount: decimal.NewFromInt(1200), TransactedAt: date(2024, 1, 5)}, "rent"},
		{core.Transaction{ID: "t-old", Amount: decimal.NewFromInt(-900), BaseAmount: decimal.NewFromInt(900), TransactedAt: date(2023, 1, 1)}, "old"},
		{core.Transaction{ID: "t-gift", Amount: decimal.NewFromInt(50), BaseAmount: decimal.NewFromInt(50), TransactedAt: date(2024, 2, 1)}, ""},
		{core.Transaction{ID: "t-next", Amount: decimal.NewFromInt(-1200), BaseAmount: decimal.NewFromInt(1200), TransactedAt: date(2024, 4, 5), Status: core.StatusPending}, "rent"},
	}
	for _, x := range txs {
		if err := store.AddTransaction(x.tx, x.schedule); err != nil {
			t.Fatalf("AddTransaction(%s): %v", x.tx.ID, err)
		}
	}

	store.SetReport(2024, []core.FundReport{{
		Key:  "general",
		Name: "General",
		Categories: []core.CategoryReport{
			{Key: "donations", Name: "Donations", Monthly: []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(50)}},
			{Key: "office", Name: "Office", Monthly: []decimal.Decimal{decimal.NewFromInt(-30)}},
		},
	}})
	return store
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	store := newTestStore(t)
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Config{Level: log.DefaultConfig().Level, Format: "text", Writer: io.Discard})
	}

	srv := NewServer(cfg,
		services.NewTransferService(store, store, core.FixedClock(testNow)),
		services.NewReportService(store, nil))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.10:40000"
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Config{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := get(t, srv, path)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s Content-Type = %q", path, ct)
		}
	}
}

func TestReady_BackendDown(t *testing.T) {
	srv := newTestServer(t, Config{Ready: func(context.Context) error { return errors.New("database is locked") }})

	rr := get(t, srv, "/readyz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
	body := decode[map[string]any](t, rr)
	if body["status"] != "not_ready" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestTransferStatus(t *testing.T) {
	srv := newTestServer(t, Config{})

	tests := []struct {
		id       string
		wantCode int
		want     core.TransferStatus
	}{
		{"t-rent", http.StatusOK, core.StatusOngoing},
		{"t-old", http.StatusOK, core.StatusEnded},
		{"t-gift", http.StatusOK, core.StatusComplete},
		{"t-next", http.StatusOK, core.StatusPending},
		{"missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rr := get(t, srv, "/api/transactions/"+tt.id+"/status")
			if rr.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d (body %s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				body := decode[errorResponse](t, rr)
				if body.Error == "" || body.RequestID == "" {
					t.Errorf("error body = %+v, want message and request id", body)
				}
				return
			}
			body := decode[statusResponse](t, rr)
			if body.ID != tt.id || body.Status != tt.want {
				t.Errorf("body = %+v, want status %s", body, tt.want)
			}
		})
	}
}

func TestScheduleHistory(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := get(t, srv, "/api/schedules/rent/history")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode[historyResponse](t, rr)

	wantStatuses := []core.TransferStatus{core.StatusComplete, core.StatusFailed, core.StatusFailed}
	if len(body.Occurrences) != len(wantStatuses) {
		t.Fatalf("occurrences = %+v", body.Occurrences)
	}
	for i, want := range wantStatuses {
		if body.Occurrences[i].Status != want {
			t.Errorf("occurrence %d status = %s, want %s", i, body.Occurrences[i].Status, want)
		}
	}
	if !body.Occurrences[1].OccurrenceDate.Equal(date(2024, 2, 5)) {
		t.Errorf("first missed date = %v", body.Occurrences[1].OccurrenceDate)
	}

	if body.Summary.Completed != 1 || body.Summary.Failed != 2 {
		t.Errorf("summary counts = %+v", body.Summary)
	}
	if !body.Summary.MissedAmount.Equal(decimal.NewFromInt(2400)) {
		t.Errorf("missed amount = %s, want 2400", body.Summary.MissedAmount)
	}

	if rr := get(t, srv, "/api/schedules/nope/history"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown schedule status = %d, want 404", rr.Code)
	}
}

func TestBifurcatedReport(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := get(t, srv, "/api/reports/2024/bifurcated")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode[reportResponse](t, rr)

	if body.Year != 2024 || len(body.IncomeData) != 1 || len(body.ExpenseData) != 1 {
		t.Fatalf("body = %+v", body)
	}
	if body.IncomeData[0].Description != "Donations" || body.ExpenseData[0].Description != "Office" {
		t.Errorf("descriptions = %q / %q", body.IncomeData[0].Description, body.ExpenseData[0].Description)
	}
	if len(body.Totals.Income) != core.MonthsPerReport {
		t.Fatalf("income totals = %v", body.Totals.Income)
	}
	if !body.Totals.Income[0].Equal(decimal.NewFromInt(100)) || !body.Totals.Expense[0].Equal(decimal.NewFromInt(30)) {
		t.Errorf("january totals = %s / %s", body.Totals.Income[0], body.Totals.Expense[0])
	}
}

func TestBifurcatedReport_Errors(t *testing.T) {
	srv := newTestServer(t, Config{})

	tests := []struct {
		path string
		want int
	}{
		{"/api/reports/abc/bifurcated", http.StatusBadRequest},
		{"/api/reports/0/bifurcated", http.StatusUnprocessableEntity},
		{"/api/reports/2030/bifurcated", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := get(t, srv, tt.path)
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
			if tt.want == http.StatusOK && !strings.Contains(rr.Body.String(), `"incomeData":[]`) {
				t.Errorf("empty year should serialize empty arrays: %s", rr.Body.String())
			}
		})
	}
}

func TestMiddlewareChain(t *testing.T) {
	var logs bytes.Buffer
	srv := newTestServer(t, Config{
		Logger:    log.New(log.Config{Format: "json", Writer: &logs, Component: log.ComponentAPI}),
		RateLimit: ratelimit.Config{RequestsPerMinute: 2},
	})

	rr := get(t, srv, "/healthz")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if !strings.Contains(logs.String(), `"msg":"HTTP request completed"`) {
		t.Errorf("request not logged: %s", logs.String())
	}

	if rr := get(t, srv, "/.env"); rr.Code != http.StatusBadRequest {
		t.Errorf("suspicious path status = %d, want 400", rr.Code)
	}

	get(t, srv, "/healthz")
	if rr := get(t, srv, "/healthz"); rr.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", rr.Code)
	}

	metrics := get(t, srv, "/metrics")
	if metrics.Code != http.StatusTooManyRequests {
		t.Fatalf("metrics should also be rate limited, got %d", metrics.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, Config{})
	get(t, srv, "/healthz")

	rr := get(t, srv, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	for _, want := range []string{"http_requests_total 2", "rate_limit_hits_total 0", "suspicious_requests_total 0"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q:\n%s", want, rr.Body.String())
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrScheduleNotFound, http.StatusNotFound},
		{core.ErrTransactionNotFound, http.StatusNotFound},
		{core.ErrInvalidYear, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
