package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore хранит записи кэша в таблице cache_entries.
// Схема создается миграциями из internal/migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, log *slog.Logger) *PostgresStore {
	log.Info("Initializing Postgres cache storage", slog.String("component", "storage"))
	return &PostgresStore{
		pool: pool,
		log:  log,
	}
}

func (db *PostgresStore) Close() error {
	db.log.Info("Closing database connection pool")
	db.pool.Close()
	return nil
}

func (db *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.postgres.Get"
	var value []byte
	err := db.pool.QueryRow(ctx, `SELECT value FROM cache_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		db.log.Error("Database query failed", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return value, nil
}

func (db *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	const op = "storage.postgres.Set"
	query := `
	INSERT INTO cache_entries (key, value, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at;
	`
	if _, err := db.pool.Exec(ctx, query, key, value); err != nil {
		db.log.Error("Failed to upsert cache entry", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete удаляет ключи одной транзакцией через pgx.Batch.
func (db *PostgresStore) Delete(ctx context.Context, keys ...string) (err error) {
	const op = "storage.postgres.Delete"
	if len(keys) == 0 {
		return nil
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(context.Background()); rollbackErr != nil {
				db.log.Error("Failed to rollback transaction", slog.Any("error", rollbackErr))
			}
		}
	}()
	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(`DELETE FROM cache_entries WHERE key = $1`, k)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		db.log.Error("Failed to execute batch", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: failed to execute batch: %w", op, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	return nil
}

func (db *PostgresStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	const op = "storage.postgres.Keys"
	rows, err := db.pool.Query(ctx,
		`SELECT key FROM cache_entries WHERE left(key, length($1)) = $1 ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
	}
	return keys, nil
}
