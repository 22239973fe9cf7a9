package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"expenses/internal/backend"
	"expenses/internal/cli"
	httpapi "expenses/internal/http"
	"expenses/internal/log"
	"expenses/internal/prefs"
	"expenses/internal/services"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	opts := []services.Option{services.WithSummaryCache(res.Summaries)}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	ledger := services.NewLedger(res.Store, logger, opts...)
	prefsSvc := prefs.NewService(res.Prefs, logger)

	serverOpts := []httpapi.Option{
		httpapi.WithReadinessCheck("storage", ledger.Ping),
	}
	if p, ok := res.Prefs.(pinger); ok {
		serverOpts = append(serverOpts, httpapi.WithReadinessCheck("preferences", p.Ping))
	}

	srv, err := httpapi.NewServer(httpapi.Config{
		Addr:               cfg.Addr(),
		TrustedProxies:     cfg.TrustedProxies,
		RateLimitPerMinute: cfg.RateLimitRPM,
		SessionCookie:      cfg.SessionCookie,
		SessionTTL:         cfg.PrefsTTL,
	}, ledger, prefsSvc, logger, serverOpts...)
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err.Error())
		_ = res.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting expenses server",
		"addr", srv.Addr,
		log.FieldBackend, cfg.DataBackend,
		"amqp_enabled", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "addr", srv.Addr)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
