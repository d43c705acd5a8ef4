// Package cache реализует версионированный кэш с временем свежести поверх байтового хранилища.
//
// Ключ записи имеет вид <namespace>:v<version>:<key>. Смена версии схемы делает старые записи
// невидимыми, а Purge удаляет их физически.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"trendingreads/storage"
)

// Entry - значение кэша и время последнего успешного полного обновления.
type Entry[T any] struct {
	Data      T         `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Store - байтовое хранилище записей.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Options настраивает кэш.
type Options struct {
	Namespace string
	Version   int
	TTL       time.Duration
	Now       func() time.Time
}

// Cache хранит значения типа T, сериализованные в JSON.
type Cache[T any] struct {
	store     Store
	namespace string
	version   int
	ttl       time.Duration
	now       func() time.Time
}

// New создает кэш. Нулевые параметры заменяются значениями по умолчанию.
func New[T any](store Store, opts Options) *Cache[T] {
	if opts.Namespace == "" {
		opts.Namespace = "trending-reads"
	}
	if opts.Version <= 0 {
		opts.Version = 1
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache[T]{
		store:     store,
		namespace: opts.Namespace,
		version:   opts.Version,
		ttl:       opts.TTL,
		now:       opts.Now,
	}
}

// Key возвращает полный ключ хранилища для ключа кэша.
func (c *Cache[T]) Key(key string) string {
	return c.prefix() + key
}

func (c *Cache[T]) prefix() string {
	return c.namespace + ":v" + strconv.Itoa(c.version) + ":"
}

// TTL возвращает время свежести записей.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// GetStale возвращает запись независимо от возраста.
// Отсутствие записи или нечитаемое значение дают ok=false.
func (c *Cache[T]) GetStale(ctx context.Context, key string) (Entry[T], bool, error) {
	var entry Entry[T]
	raw, err := c.store.Get(ctx, c.Key(key))
	if errors.Is(err, storage.ErrNotFound) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, false, nil
	}
	return entry, true, nil
}

// GetCached возвращает данные, только если запись моложе TTL.
func (c *Cache[T]) GetCached(ctx context.Context, key string) (T, bool, error) {
	entry, ok, err := c.GetStale(ctx, key)
	if err != nil || !ok || !c.IsFresh(entry) {
		var zero T
		return zero, false, err
	}
	return entry.Data, true, nil
}

// IsFresh сообщает, что запись моложе TTL.
func (c *Cache[T]) IsFresh(entry Entry[T]) bool {
	return c.now().Sub(entry.Timestamp) < c.ttl
}

// Set сохраняет данные с текущим временем.
func (c *Cache[T]) Set(ctx context.Context, key string, data T) error {
	raw, err := json.Marshal(Entry[T]{Data: data, Timestamp: c.now()})
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.store.Set(ctx, c.Key(key), raw); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete удаляет запись текущей версии.
func (c *Cache[T]) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.Key(key))
}

// Purge удаляет записи пространства имен, созданные другими версиями схемы.
// Возвращает число удаленных ключей.
func (c *Cache[T]) Purge(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, c.namespace+":")
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	current := c.prefix()
	var stale []string
	for _, k := range keys {
		if !strings.HasPrefix(k, current) {
			stale = append(stale, k)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := c.store.Delete(ctx, stale...); err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	return len(stale), nil
}
