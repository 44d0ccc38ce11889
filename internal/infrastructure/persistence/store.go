// Package persistence selects and opens the record store backend.
package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/synthia-live/synthia-bot/config"
	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/persistence/postgres"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/persistence/redis"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/persistence/sqlite"
)

// Store is an opened record store together with its lifecycle hooks.
type Store struct {
	Records member.Repository
	Driver  string

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks the backend connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend connection.
func (s *Store) Close() error {
	return s.close()
}

// Open opens the backend named by cfg.Driver and applies its schema.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.DriverSQLite, "":
		return openSQLite(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Store, error) {
	pgCfg := postgres.DefaultConfig(cfg.DatabaseURL)
	if cfg.MaxConns > 0 {
		pgCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pgCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pgCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pgCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	migrator := postgres.NewMigrator(conn)
	if err := migrator.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	status, err := migrator.Status(ctx)
	if err != nil {
		logger.Warn("failed to get migration status", "error", err)
	} else {
		applied := 0
		for _, m := range status {
			if m.IsApplied {
				applied++
			}
		}
		logger.Info("postgres store ready", "applied", applied, "total", len(status))
	}

	return &Store{
		Records: postgres.NewRecordRepository(conn),
		Driver:  config.DriverPostgres,
		ping:    conn.Ping,
		close: func() error {
			conn.Close()
			return nil
		},
	}, nil
}

func openSQLite(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Store, error) {
	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := sqlite.Ping(ctx, db); err != nil {
		_ = sqlite.Close(db)
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	logger.Info("sqlite store ready", "path", cfg.SQLitePath)

	return &Store{
		Records: sqlite.NewRecordStore(db),
		Driver:  config.DriverSQLite,
		ping: func(ctx context.Context) error {
			return sqlite.Ping(ctx, db)
		},
		close: func() error {
			return sqlite.Close(db)
		},
	}, nil
}

// RedisConfig maps environment settings onto the Redis client
// configuration. Zero values keep the client defaults.
func RedisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	rc.URL = c.URL
	rc.Password = c.Password
	rc.DB = c.DB
	if c.Host != "" {
		rc.Host = c.Host
	}
	if c.Port > 0 {
		rc.Port = c.Port
	}
	if c.PoolSize > 0 {
		rc.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		rc.MinIdleConns = c.MinIdleConns
	}
	if c.DialTimeout > 0 {
		rc.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		rc.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		rc.WriteTimeout = c.WriteTimeout
	}
	return rc
}
