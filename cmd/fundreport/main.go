package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"fundreport/internal/cache"
	"fundreport/internal/cli"
	"fundreport/internal/core"
	apphttp "fundreport/internal/http"
	"fundreport/internal/log"
	"fundreport/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	// API clients expect amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	backend := cli.InitBackend(cfg, logger)
	defer backend.Close()

	reportCache := cache.NewLRUCache[core.BifurcationResult](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	clock := core.SystemClock(cfg.Location())

	srv := apphttp.NewServer(apphttp.Config{
		Addr:   ":" + cfg.Port,
		Logger: logger.WithComponent(log.ComponentAPI),
		Ready:  backend.Ping,
	},
		services.NewTransferService(backend, backend, clock),
		services.NewReportService(backend, reportCache))

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	cacheManager := cache.NewManager(reportCache)
	go cacheManager.Run(ctx, cfg.ReportCacheTTL)

	logger.Info("Starting fundreport server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Location().String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-cacheManager.Done()
	logger.Info("Server stopped gracefully")
}
