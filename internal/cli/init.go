// Package cli holds the bootstrap steps shared by cmd/maasser and
// cmd/maasser-worker.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"maasser/internal/backend"
	"maasser/internal/config"
	applog "maasser/internal/log"
)

// SetupLogger builds the process logger for level and makes it the slog default.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadConfig reads the environment, sets up logging and runs validate.
// The process exits when either step fails.
func LoadConfig(validate func(*config.Config) error) (*config.Config, *applog.Logger) {
	cfg, err := config.Load()
	if err != nil {
		SetupLogger("info").Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}
	logger := SetupLogger(cfg.LogLevel)
	if validate != nil {
		if err := validate(cfg); err != nil {
			logger.Error("Configuration validation failed",
				applog.NewFields().WithError(err).WithErrorType(applog.ErrorTypeConfiguration).ToSlice()...)
			os.Exit(1)
		}
	}
	return cfg, logger
}

// InitBackend opens the configured store or exits the process.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err == nil {
		var res *backend.BackendResult
		res, err = backend.NewFactory(logger).CreateBackend(ctx, bc)
		if err == nil {
			logger.Info("Storage backend ready", applog.FieldBackend, bc.Type.String())
			return res
		}
	}
	logger.Error("Failed to initialize storage backend",
		applog.NewFields().WithError(err).WithErrorType(applog.ErrorTypeDatabase).ToSlice()...)
	os.Exit(1)
	return nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Run runs serve until it returns or ctx ends, then calls shutdown with a
// timeout. A cancelled context is a clean stop, not an error.
func Run(ctx context.Context, logger *applog.Logger, timeout time.Duration,
	serve func(context.Context) error, shutdown func(context.Context) error) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if shutdown == nil {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", applog.NewFields().WithError(err).WithOperation(applog.OpShutdown).ToSlice()...)
			return err
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
