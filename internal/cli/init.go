// Package cli provides the initialization shared by the fundreport binaries.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fundreport/internal/config"
	"fundreport/internal/log"
	"fundreport/internal/sources"
	"fundreport/internal/sources/memory"
	"fundreport/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Writer:    os.Stdout,
	})
	if err != nil {
		logger.Warn("Unknown log level, using info", log.FieldError, err)
	}
	log.SetDefault(logger)
	return logger
}

// Backend is an opened data source with its lifecycle hooks.
type Backend struct {
	sources.Backend
	Ping  func(ctx context.Context) error
	Close func() error
}

// OpenBackend opens the data backend selected by cfg.DataBackend.
func OpenBackend(cfg *config.Config, logger *log.Logger) (*Backend, error) {
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend at %s: %w", cfg.SQLiteDBPath, err)
		}
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
		return &Backend{Backend: repo, Ping: repo.Ping, Close: repo.Close}, nil

	case "memory":
		store, err := memory.NewFromFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("open memory backend: %w", err)
		}
		logger.Info("Initialized memory backend", "seed_file", cfg.SeedFile)
		return &Backend{
			Backend: store,
			Ping:    func(context.Context) error { return nil },
			Close:   func() error { return nil },
		}, nil

	default:
		return nil, errors.New("unknown data backend: " + cfg.DataBackend)
	}
}

// InitBackend opens the configured backend or exits the process on failure.
func InitBackend(cfg *config.Config, logger *log.Logger) *Backend {
	backend, err := OpenBackend(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return backend
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs before cancellation with at most timeout to finish.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
	}()

	return ctx
}
