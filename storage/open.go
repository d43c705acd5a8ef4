package storage

import (
	"context"
	"fmt"
	"log/slog"
	"trendingreads/internal/config"
	"trendingreads/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open создает хранилище по драйверу из конфигурации.
// Для postgres подключается к базе и применяет миграции.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory, "":
		return NewMemoryStore(), nil
	case config.DriverFile:
		dir := cfg.Storage.Path
		if dir == "" {
			dir = config.DefaultCacheDir()
		}
		return NewFileStore(dir)
	case config.DriverSQLite:
		path := cfg.Storage.Path
		if path == "" {
			path = config.DefaultCachePath()
		}
		return NewSQLiteStore(ctx, path, log)
	case config.DriverRedis:
		r := cfg.Storage.Redis
		return NewRedisStore(r.Address, r.Password, r.DB)
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
		if err := migrations.Apply(ctx, log, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
		return NewPostgresStore(pool, log), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
