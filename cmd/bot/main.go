// Package main - точка входа Discord-бота Synthia.
//
// Бот ведёт учёт активности участников сервера: начисляет XP за сообщения,
// выдаёт ежедневную награду, обменивает кредиты на роли и значки.
//
// Слои:
// - Domain: записи участников, прогрессия уровней, каталог наград
// - Application: команды, запросы и обработчики событий
// - Infrastructure: хранилище, Redis, Discord REST, планировщик
// - Interface: Discord gateway и slash-команды, HTTP-пробы
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

	// Application layer
	"github.com/synthia-live/synthia-bot/internal/application/command"
	"github.com/synthia-live/synthia-bot/internal/application/eventhandler"
	"github.com/synthia-live/synthia-bot/internal/application/query"

	// Domain layer
	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/notification"
	"github.com/synthia-live/synthia-bot/internal/domain/reward"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"

	// Infrastructure layer
	discordclient "github.com/synthia-live/synthia-bot/internal/infrastructure/external/discord"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/messaging"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/metrics"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/persistence"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/persistence/redis"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/scheduler"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/scheduler/jobs"

	// Interface layer
	"github.com/synthia-live/synthia-bot/internal/interface/discord"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/handler"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/middleware"
	"github.com/synthia-live/synthia-bot/internal/interface/discord/presenter"
	httpserver "github.com/synthia-live/synthia-bot/internal/interface/http"
	"github.com/synthia-live/synthia-bot/internal/interface/http/handlers"

	// Packages
	"github.com/synthia-live/synthia-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Корневой контекст отменяется по SIGINT/SIGTERM
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
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Synthia bot",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"store", cfg.Store.Driver,
	)
	for _, name := range cfg.Features.Names() {
		log.Debug("feature flag", "name", name, "enabled", cfg.Features.IsEnabled(name, nil))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ ЗАПИСЕЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("opening record store...")
	store, err := persistence.Open(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		log.Info("closing record store...")
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", logger.Err(err))
		}
	}()

	var records member.Repository = store.Records

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var leaderboard member.Leaderboard

	if cfg.Features.IsEnabled(config.FeatureCacheRedis, nil) && !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCache, err = redis.NewCache(persistence.RedisConfig(cfg.Redis))
		if err != nil {
			// Кэш необязателен: бот работает и без него
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			records = redis.NewCachedRepository(records, redis.NewRecordCache(redisCache, cfg.Redis.RecordTTL), log)
			leaderboard = redis.NewLeaderboardCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. МЕТРИКИ
	// ─────────────────────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.NewLedgerMetrics(registry, metrics.Config{
		ServiceName: cfg.App.Name,
		Environment: string(cfg.App.Environment),
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBusConfig.Metrics = messaging.NewEventBusMetrics(registry)
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")
	if err := eventBus.SubscribeAll(eventhandler.NewOnLedgerEventMetrics(ledgerMetrics).Handle); err != nil {
		return fmt.Errorf("failed to subscribe metrics handler: %w", err)
	}
	if leaderboard != nil {
		onXP := eventhandler.NewOnXPChangedHandler(leaderboard, log)
		for _, eventType := range []shared.EventType{shared.EventActivityRecorded, shared.EventDailyClaimed} {
			if err := eventBus.Subscribe(eventType, onXP.Handle); err != nil {
				return fmt.Errorf("failed to subscribe %s: %w", eventType, err)
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	mutatorConfig := command.DefaultMutatorConfig()
	if cfg.Leveling.MaxConflictRetries > 0 {
		mutatorConfig.MaxConflictRetries = uint64(cfg.Leveling.MaxConflictRetries)
	}
	mutatorConfig.OnConflict = ledgerMetrics.StoreConflict
	mutator := command.NewRecordMutator(records, nil, log, mutatorConfig)

	ledgerConfig := ledgerConfigFrom(cfg)
	catalog := reward.DefaultCatalog()

	ingestCmd := command.NewIngestActivityHandler(mutator, eventBus, nil, log, ledgerConfig)
	claimDailyCmd := command.NewClaimDailyHandler(mutator, eventBus, log, ledgerConfig)
	redeemCmd := command.NewRedeemRewardHandler(mutator, catalog, eventBus, log)
	updatePrefsCmd := command.NewUpdatePreferencesHandler(mutator, eventBus, log)

	rankQuery := query.NewGetRankHandler(records, leaderboard, log)
	leaderboardQuery := query.NewGetLeaderboardHandler(records, leaderboard, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. DISCORD
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Discord session...")
	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}

	clientConfig := discordclient.DefaultClientConfig()
	if cfg.Discord.BreakerMaxFailures > 0 {
		clientConfig.MaxFailures = cfg.Discord.BreakerMaxFailures
	}
	if cfg.Discord.BreakerTimeout > 0 {
		clientConfig.OpenTimeout = cfg.Discord.BreakerTimeout
	}
	clientConfig.Logger = log
	restClient := discordclient.NewClient(session, clientConfig)

	effects := eventhandler.NewEffectDispatcher(
		restClient,
		presenter.NewNoticeRenderer(),
		ledgerMetrics,
		log,
		eventhandler.DefaultEffectDispatcherConfig(),
	)

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.Logger = log
	recoveryConfig.EnableStackTrace = cfg.App.Debug
	recovery := middleware.NewRecoveryMiddleware(recoveryConfig)
	commandMetrics := middleware.NewMetricsMiddleware(ledgerMetrics)

	router := discord.NewRouter(discord.RouterConfig{
		Timeout: cfg.Discord.RequestTimeout,
		Logger:  log,
	}, recovery, commandMetrics)
	router.RegisterHandlers(discord.Handlers{
		Rank:          handler.NewRankHandler(rankQuery),
		Leaderboard:   handler.NewLeaderboardHandler(leaderboardQuery),
		Daily:         handler.NewDailyHandler(claimDailyCmd, ledgerMetrics),
		Redeem:        handler.NewRedeemHandler(redeemCmd, ledgerMetrics),
		Notifications: handler.NewNotificationsHandler(updatePrefsCmd),
	})

	bot := discord.NewBot(session, discord.BotConfig{
		GuildID:                  cfg.Discord.GuildID,
		RemoveCommandsOnShutdown: cfg.Discord.RemoveCommandsOnShutdown,
		EventTimeout:             cfg.Discord.RequestTimeout,
		Logger:                   log,
	}, discord.BotDependencies{
		Ingest:   ingestCmd,
		Router:   router,
		Effects:  effects,
		Flags:    cfg.Features,
		Catalog:  catalog,
		Recovery: recovery,
		Metrics:  commandMetrics,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("store", handlers.NewPingCheck(store))
	if redisCache != nil {
		health.AddCheck("redis", handlers.NewPingCheck(redisCache))
	}
	health.AddCheck("discord", handlers.NewBreakerCheck(restClient.State))

	var httpServer *httpserver.Server
	if cfg.HTTP.Enabled {
		httpConfig := httpserver.DefaultConfig()
		httpConfig.Addr = cfg.HTTP.Addr
		httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
		httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
		httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled

		httpServer = httpserver.NewServer(httpConfig, httpserver.Dependencies{
			HealthChecker: health,
			Gatherer:      registry,
			Version:       cfg.App.Version,
			Logger:        log,
		})
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled && leaderboard != nil {
		sched, err = newRebuildScheduler(cfg, store.Records, leaderboard, ledgerMetrics, log)
		if err != nil {
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ЗАПУСК СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting services...")

	var errCh <-chan error
	if httpServer != nil {
		errCh = httpServer.StartAsync()
	}

	if err := bot.Start(ctx); err != nil {
		return fmt.Errorf("failed to start discord bot: %w", err)
	}

	if sched != nil {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Synthia bot is running",
		"http", cfg.HTTP.Enabled,
		"redis", redisCache != nil,
		"scheduler", sched != nil,
	)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case runErr = <-errCh:
		runErr = fmt.Errorf("http server error: %w", runErr)
		log.Error("service error", logger.Err(runErr))
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	// 1. Перестаём принимать события gateway
	log.Info("stopping Discord bot...")
	if err := bot.Stop(); err != nil {
		log.Error("failed to stop bot gracefully", logger.Err(err))
		shutdownErr = errors.Join(shutdownErr, err)
	}

	// 2. Останавливаем фоновые задачи
	if sched != nil {
		log.Info("stopping scheduler...")
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", logger.Err(err))
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}

	// 3. HTTP сервер
	if httpServer != nil {
		log.Info("stopping HTTP server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop HTTP server gracefully", logger.Err(err))
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}

	// 4. Event bus, Redis и хранилище закроются через defer

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors", logger.Err(shutdownErr))
	} else {
		log.Info("shutdown completed successfully")
	}

	return runErr
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := logger.ForEnvironment(string(cfg.App.Environment), cfg.App.Debug)
	if cfg.Observability.LogLevel != "" && !cfg.App.Debug {
		opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	}
	if cfg.Observability.LogFormat != "" {
		opts.Format = logger.Format(cfg.Observability.LogFormat)
	}
	opts.Attrs = []slog.Attr{slog.String("service", cfg.App.Name)}

	log := logger.New(opts)
	slog.SetDefault(log)
	return log
}

// ledgerConfigFrom собирает настройки начислений и доставку уведомлений.
func ledgerConfigFrom(cfg *config.Config) command.LedgerConfig {
	lc := command.DefaultLedgerConfig()
	l := cfg.Leveling
	if l.MessageXPMin > 0 {
		lc.MessageXPMin = l.MessageXPMin
	}
	if l.MessageXPMax >= lc.MessageXPMin {
		lc.MessageXPMax = l.MessageXPMax
	}
	if l.DailyXP > 0 {
		lc.DailyXP = shared.XP(l.DailyXP)
	}
	if l.DailyCredits > 0 {
		lc.DailyCredits = shared.Credits(l.DailyCredits)
	}
	if l.DailyCooldown > 0 {
		lc.DailyCooldown = l.DailyCooldown
	}
	lc.GrantLevelRoles = l.GrantLevelRoles
	lc.LevelUpDelivery = notification.Delivery{
		Public: cfg.Features.IsEnabled(config.FeatureNotifyLevelUpChannel, nil),
		Direct: cfg.Features.IsEnabled(config.FeatureNotifyLevelUpDM, nil),
	}
	return lc
}

// newRebuildScheduler создаёт планировщик с задачей пересборки рейтинга.
func newRebuildScheduler(
	cfg *config.Config,
	records member.Repository,
	leaderboard member.Leaderboard,
	observer jobs.RebuildObserver,
	log *slog.Logger,
) (*scheduler.Scheduler, error) {
	schedConfig := scheduler.DefaultSchedulerConfig()
	schedConfig.Logger = log

	sched, err := scheduler.NewScheduler(schedConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	job := jobs.NewRebuildLeaderboardJob(records, leaderboard, observer, log, jobs.RebuildLeaderboardConfig{
		Limit:   cfg.Scheduler.RebuildLimit,
		Timeout: cfg.Scheduler.JobTimeout,
	})
	if err := sched.Register(job, cfg.Scheduler.RebuildLeaderboardInterval); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", job.Name(), err)
	}
	return sched, nil
}
