// Package main - точка входа фонового процесса (Worker) Synthia.
//
// Worker пересобирает снимок рейтинга в Redis из хранилища записей.
// Бот обновляет снимок инкрементально; Worker нужен, когда бот запущен
// без планировщика или снимок был потерян.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/synthia-live/synthia-bot/config"

	// Infrastructure layer
	"github.com/synthia-live/synthia-bot/internal/infrastructure/metrics"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/persistence"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/persistence/redis"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/scheduler"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/scheduler/jobs"

	// Interface layer
	httpserver "github.com/synthia-live/synthia-bot/internal/interface/http"
	"github.com/synthia-live/synthia-bot/internal/interface/http/handlers"

	// Packages
	"github.com/synthia-live/synthia-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.LoadWorker()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	opts := logger.ForEnvironment(string(cfg.App.Environment), cfg.App.Debug)
	opts.Attrs = []slog.Attr{slog.String("service", cfg.App.Name+"-worker")}
	log := logger.New(opts)
	slog.SetDefault(log)

	log.Info("starting Synthia worker",
		"env", cfg.App.Environment,
		"interval", cfg.Scheduler.RebuildLeaderboardInterval.String(),
	)

	// Без Redis снимка нет, и пересобирать нечего
	if cfg.Redis.Disabled {
		return errors.New("worker requires Redis: REDIS_DISABLED is set")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ И REDIS
	// ─────────────────────────────────────────────────────────────────────────
	store, err := persistence.Open(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	cache, err := redis.NewCache(persistence.RedisConfig(cfg.Redis))
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer func() { _ = cache.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. МЕТРИКИ
	// ─────────────────────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	ledgerMetrics := metrics.NewLedgerMetrics(registry, metrics.Config{
		ServiceName: cfg.App.Name + "-worker",
		Environment: string(cfg.App.Environment),
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	schedConfig := scheduler.DefaultSchedulerConfig()
	schedConfig.Logger = log
	sched, err := scheduler.NewScheduler(schedConfig)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	rebuild := jobs.NewRebuildLeaderboardJob(
		store.Records,
		redis.NewLeaderboardCache(cache),
		ledgerMetrics,
		log,
		jobs.RebuildLeaderboardConfig{
			Limit:   cfg.Scheduler.RebuildLimit,
			Timeout: cfg.Scheduler.JobTimeout,
		},
	)
	if err := sched.Register(rebuild, cfg.Scheduler.RebuildLeaderboardInterval); err != nil {
		return fmt.Errorf("failed to register %s: %w", rebuild.Name(), err)
	}

	sched.OnJobComplete(func(result scheduler.JobResult) {
		if !result.Success {
			log.Warn("job failed", "job", result.JobName, "error", result.Error)
		}
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP (пробы и метрики)
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("store", handlers.NewPingCheck(store))
	health.AddCheck("redis", handlers.NewPingCheck(cache))

	var httpServer *httpserver.Server
	var errCh <-chan error
	if cfg.HTTP.Enabled {
		httpConfig := httpserver.DefaultConfig()
		httpConfig.Addr = cfg.HTTP.Addr
		httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled
		httpServer = httpserver.NewServer(httpConfig, httpserver.Dependencies{
			HealthChecker: health,
			Gatherer:      registry,
			Version:       cfg.App.Version,
			Logger:        log,
		})
		errCh = httpServer.StartAsync()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("worker is running", "jobs", len(sched.ListJobs()))

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case runErr = <-errCh:
		log.Error("http server error", logger.Err(runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler", logger.Err(err))
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		}
	}

	log.Info("worker stopped")
	return runErr
}
