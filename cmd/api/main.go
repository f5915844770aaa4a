// Package main is the entry point for the AgencyDesk billing API server.
//
// It loads configuration, opens the PostgreSQL pool, wires the webhook
// reconciliation pipeline (signature verification, invoice reconciliation,
// internal event bus, notifications), and serves HTTP until a shutdown
// signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agencydesk/internal/api/handlers"
	"agencydesk/internal/billing"
	"agencydesk/internal/config"
	"agencydesk/internal/core"
	"agencydesk/internal/db"
	"agencydesk/internal/events"
	"agencydesk/internal/external"
	"agencydesk/internal/notify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("agencydesk billing API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database pool: %w", err)
	}
	defer pool.Close()

	// Repositories.
	clientRepo := db.NewClientRepo(pool, logger)
	invoiceRepo := db.NewInvoiceRepo(pool, logger)
	eventRepo := db.NewEventRepo(pool, logger)
	billingRepo := db.NewBillingRepo(pool, logger)
	integrationRepo := db.NewIntegrationRepo(pool, logger)
	notificationRepo := db.NewNotificationRepo(pool, logger)
	workflowRepo := db.NewWorkflowRepo(pool, logger)
	kanbanRepo := db.NewKanbanRepo(pool, logger)

	// Services.
	secrets := config.NewSecretResolver(integrationRepo, cfg, logger)
	notifier := notify.NewNotifier(notificationRepo, logger)
	reconciler := billing.NewReconciler(clientRepo, invoiceRepo, logger)
	processor := events.NewProcessor(workflowRepo, workflowRepo, workflowRepo, notifier, kanbanRepo, logger)
	emitter := events.NewEmitter(eventRepo, processor, logger)

	emailClient := external.NewSendGridClient(
		&http.Client{Timeout: 10 * time.Second},
		external.SendGridClientConfig{Logger: logger},
	)

	webhookHandler := handlers.NewStripeWebhookHandler(handlers.StripeWebhookDeps{
		Secrets:            secrets,
		Verifier:           &external.StripeVerifier{},
		Reconciler:         reconciler,
		Emitter:            emitter,
		Mirror:             billingRepo,
		Clients:            clientRepo,
		Audit:              integrationRepo,
		Notifier:           notifier,
		Email:              emailClient,
		FinanceAlertEmails: cfg.Email.FinanceAlertEmails,
	}, logger)

	health := core.NewHealthHandler(
		[]core.HealthProbe{core.PingProbe{ProbeName: "database", Ping: pool.Ping}},
		eventRepo,
		cfg.Build.Version,
	)

	router := newRouter(logger, webhookHandler, health)

	return serve(ctx, cfg, router, logger)
}

// newRouter assembles the middleware chain and mounts the routes. The webhook
// endpoint is public; security comes from provider signature verification, so
// the Stripe-Signature header is redacted from request logs.
func newRouter(logger *slog.Logger, webhook *handlers.StripeWebhookHandler, health *core.HealthHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(core.Recoverer(logger))
	r.Use(core.RequestIDMiddleware)
	r.Use(core.RequestLogger(logger, []string{"Authorization", "Stripe-Signature", "Cookie"}))

	r.Get("/health", health.Handle)
	webhook.RegisterRoutes(r)

	return r
}

// newPool opens a pgx connection pool with the configured tuning parameters
// and verifies connectivity before returning.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully with a 10-second deadline.
func serve(ctx context.Context, cfg *config.Config, handler http.Handler, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
