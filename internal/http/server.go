package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fundreport/internal/core"
	"fundreport/internal/log"
	"fundreport/internal/middleware/ratelimit"
	"fundreport/internal/middleware/security"
	"fundreport/internal/middleware/trace"
)

type (
	// TransferQueries answers status and history lookups.
	TransferQueries interface {
		Status(ctx context.Context, transactionID string) (core.TransferStatus, error)
		History(ctx context.Context, scheduleID string) ([]core.ReconciledOccurrence, error)
	}

	// ReportQueries answers bifurcated report lookups.
	ReportQueries interface {
		Bifurcated(ctx context.Context, year int) (core.BifurcationResult, error)
	}

	// ReadinessCheck reports whether a dependency can serve traffic.
	ReadinessCheck func(ctx context.Context) error
)

// Config tunes the server. Zero values fall back to defaults.
type Config struct {
	Addr      string
	Logger    *log.Logger
	RateLimit ratelimit.Config
	// Ready is checked by /readyz; nil means always ready.
	Ready ReadinessCheck
}

type Server struct {
	http.Server
	transfers TransferQueries
	reports   ReportQueries
	ready     ReadinessCheck

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, transfers TransferQueries, reports ReportQueries) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentAPI)
	}

	detector := security.NewDetector()
	s := &Server{
		transfers:        transfers,
		reports:          reports,
		ready:            cfg.Ready,
		rateLimiter:      ratelimit.NewLimiter(cfg.RateLimit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		started:          time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/transactions/{id}/status", s.handleTransferStatus)
	mux.HandleFunc("GET /api/schedules/{id}/history", s.handleScheduleHistory)
	mux.HandleFunc("GET /api/reports/{year}/bifurcated", s.handleBifurcatedReport)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
