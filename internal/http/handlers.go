package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fundreport/internal/core"
	"fundreport/internal/log"
	"fundreport/internal/services"
)

const readinessTimeout = 5 * time.Second

type (
	statusResponse struct {
		ID     string              `json:"id"`
		Status core.TransferStatus `json:"status"`
	}

	historyResponse struct {
		ScheduleID  string                      `json:"scheduleId"`
		Occurrences []core.ReconciledOccurrence `json:"occurrences"`
		Summary     services.HistorySummary     `json:"summary"`
	}

	reportResponse struct {
		Year        int                          `json:"year"`
		IncomeData  []core.CategoryMonthlySeries `json:"incomeData"`
		ExpenseData []core.CategoryMonthlySeries `json:"expenseData"`
		Totals      services.ReportTotals        `json:"totals"`
	}
)

// handleHealth is a liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the data backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code, backend := "ready", http.StatusOK, "ok"
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			status, code, backend = "not_ready", http.StatusServiceUnavailable, "failed: "+err.Error()
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    map[string]string{"backend": backend},
	})
}

// handleMetrics exposes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Total number of 5xx responses", traceMetrics.ServerErrors)
	metric("http_last_request_duration_us", "gauge", "Duration of the last request", traceMetrics.LastDurationUs)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("rate_limit_clients", "gauge", "Currently tracked clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Process uptime", int64(time.Since(s.started).Seconds()))
}

func (s *Server) handleTransferStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, err := s.transfers.Status(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpStatus, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{ID: id, Status: status})
}

func (s *Server) handleScheduleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	history, err := s.transfers.History(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpHistory, err)
		return
	}
	if history == nil {
		history = []core.ReconciledOccurrence{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		ScheduleID:  id,
		Occurrences: history,
		Summary:     services.Summarize(history),
	})
}

func (s *Server) handleBifurcatedReport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "year must be an integer",
			RequestID: requestID(r),
		})
		return
	}

	result, err := s.reports.Bifurcated(r.Context(), year)
	if err != nil {
		writeError(w, r, log.OpBifurcate, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		Year:        year,
		IncomeData:  nonNil(result.IncomeData),
		ExpenseData: nonNil(result.ExpenseData),
		Totals:      services.Totals(result),
	})
}

func nonNil(rows []core.CategoryMonthlySeries) []core.CategoryMonthlySeries {
	if rows == nil {
		return []core.CategoryMonthlySeries{}
	}
	return rows
}
