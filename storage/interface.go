package storage

import (
	"context"
	"errors"
)

// ErrNotFound возвращается, если ключ отсутствует в хранилище.
var ErrNotFound = errors.New("storage: key not found")

// Store определяет общий интерфейс байтового key-value хранилища для кэша категорий.
// Хранилище не интерпретирует значения: сериализацией занимается вызывающий.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	// Keys возвращает все ключи с указанным префиксом.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
