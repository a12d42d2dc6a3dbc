package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"maasser/internal/amqp"
	"maasser/internal/auth"
	"maasser/internal/cache"
	"maasser/internal/cli"
	"maasser/internal/config"
	apphttp "maasser/internal/http"
	applog "maasser/internal/log"
	"maasser/internal/repository"
	"maasser/internal/services"
)

func main() {
	cfg, logger := cli.LoadConfig((*config.Config).Validate)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	store := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	dashboards := cache.NewLRUCache[services.Dashboard](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(dashboards)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	// Change events are optional; the ledger works without a broker.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, change events disabled",
				applog.NewFields().WithError(err).WithErrorType(applog.ErrorTypeNetwork).ToSlice()...)
		} else {
			publisher = client
			defer client.Close()
		}
	} else {
		logger.Info("AMQP_URL not set, change events disabled")
	}

	ledger := services.NewLedgerService(repository.New(store.Store, logger), dashboards, publisher, logger)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Ledger:             ledger,
		Verifier:           auth.NewVerifier([]byte(cfg.JWTSecret), cfg.AllowDemo),
		Ping:               apphttp.PingFunc(store.Ping),
		DashboardCache:     dashboards,
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.MaxHeaderBytes = 1 << 16

	logger.Info("Starting maasser server",
		"port", cfg.Port, applog.FieldBackend, cfg.DataBackend, "allow_demo", cfg.AllowDemo)

	err = cli.Run(ctx, logger, 30*time.Second,
		func(context.Context) error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		srv.Shutdown)
	if err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
