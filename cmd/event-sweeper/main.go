// Package main is the entry point for the event sweeper worker.
//
// The sweeper retries internal events whose synchronous processing attempt
// failed (or never ran) at webhook delivery time. On each tick it loads a
// batch of pending/error events older than the configured minimum age and
// re-runs them through the same event processor the API uses, with bounded
// concurrency. Event handlers are idempotent, so re-running a half-processed
// event converges.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"agencydesk/internal/config"
	"agencydesk/internal/db"
	"agencydesk/internal/events"
	"agencydesk/internal/notify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("agencydesk event sweeper starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"interval", cfg.Sweeper.Interval,
		"batch_size", cfg.Sweeper.BatchSize,
		"concurrency", cfg.Sweeper.Concurrency,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database pool: %w", err)
	}
	defer pool.Close()

	eventRepo := db.NewEventRepo(pool, logger)
	workflowRepo := db.NewWorkflowRepo(pool, logger)
	notificationRepo := db.NewNotificationRepo(pool, logger)
	kanbanRepo := db.NewKanbanRepo(pool, logger)

	notifier := notify.NewNotifier(notificationRepo, logger)
	processor := events.NewProcessor(workflowRepo, workflowRepo, workflowRepo, notifier, kanbanRepo, logger)
	emitter := events.NewEmitter(eventRepo, processor, logger)

	sweeper := &sweeper{
		events:  eventRepo,
		emitter: emitter,
		cfg:     cfg.Sweeper,
		logger:  logger,
	}
	sweeper.runLoop(ctx)

	logger.Info("event sweeper stopped cleanly")
	return nil
}

// sweeper drives the periodic retry loop.
type sweeper struct {
	events  *db.EventRepo
	emitter *events.Emitter
	cfg     config.SweeperConfig
	logger  *slog.Logger
}

// runLoop sweeps once immediately, then on every tick until ctx is canceled.
func (s *sweeper) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep processes one batch of unprocessed events with bounded concurrency.
// Per-event failures are recorded on the event row and never abort the batch.
func (s *sweeper) sweep(ctx context.Context) {
	batch, err := s.events.ListUnprocessed(ctx, s.cfg.MinAge, s.cfg.BatchSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list unprocessed events", "error", err)
		return
	}
	if len(batch) == 0 {
		s.logger.DebugContext(ctx, "no events to sweep")
		return
	}

	s.logger.InfoContext(ctx, "sweeping unprocessed events", "count", len(batch))

	var processed, failed atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, ev := range batch {
		ev := ev
		g.Go(func() error {
			if err := s.emitter.TryProcessNow(gCtx, ev); err != nil {
				s.logger.WarnContext(gCtx, "event processing failed; will retry next sweep",
					"event_id", ev.ID,
					"event_type", ev.EventType,
					"error", err,
				)
				failed.Add(1)
				return nil
			}
			processed.Add(1)
			return nil
		})
	}

	// Workers never return errors; Wait is for completion only.
	_ = g.Wait()

	s.logger.InfoContext(ctx, "sweep completed",
		"processed", processed.Load(),
		"failed", failed.Load(),
	)
}

// newPool opens a pgx connection pool with the configured tuning parameters.
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

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
