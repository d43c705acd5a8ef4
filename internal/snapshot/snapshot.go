// Package snapshot описывает документ снимка: все категории с отсортированными статьями
// на один момент генерации. Документ пишется атомарно и читается потребителями как статический файл.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"trendingreads/internal/domain"
)

// ErrUnavailable возвращается, если документ снимка недоступен или поврежден.
var ErrUnavailable = errors.New("snapshot unavailable")

// Document - JSON-документ снимка.
type Document struct {
	GeneratedAt time.Time                            `json:"generatedAt"`
	Categories  map[domain.Category][]domain.Article `json:"categories"`
}

// Write атомарно записывает документ: временный файл в том же каталоге, затем переименование.
func Write(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to publish snapshot %s: %w", path, err)
	}
	return nil
}

// Decode разбирает документ снимка.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	if doc.GeneratedAt.IsZero() || doc.Categories == nil {
		return Document{}, errors.New("document has no generatedAt or categories")
	}
	return doc, nil
}

// BytesFetcher загружает документ по HTTP.
type BytesFetcher interface {
	FetchBytes(ctx context.Context, url, accept string) ([]byte, error)
}

// Loader - потребитель снимка с копией документа в памяти.
// Сам конвейер он никогда не запускает: Refresh лишь перечитывает тот же документ.
type Loader struct {
	location string
	fetcher  BytesFetcher

	mu  sync.Mutex
	doc *Document
}

// NewLoader создает загрузчик. location - путь к файлу или HTTP(S) URL;
// для URL нужен fetcher.
func NewLoader(location string, fetcher BytesFetcher) *Loader {
	return &Loader{location: location, fetcher: fetcher}
}

// Load возвращает копию из памяти или читает документ, если копии нет.
func (l *Loader) Load(ctx context.Context) (Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.doc != nil {
		return *l.doc, nil
	}
	doc, err := l.read(ctx)
	if err != nil {
		return Document{}, err
	}
	l.doc = &doc
	return doc, nil
}

// Refresh сбрасывает копию в памяти и заново читает документ.
func (l *Loader) Refresh(ctx context.Context) (Document, error) {
	l.mu.Lock()
	l.doc = nil
	l.mu.Unlock()
	return l.Load(ctx)
}

func (l *Loader) read(ctx context.Context) (Document, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(l.location, "http://") || strings.HasPrefix(l.location, "https://") {
		if l.fetcher == nil {
			return Document{}, fmt.Errorf("%w: no fetcher for %s", ErrUnavailable, l.location)
		}
		data, err = l.fetcher.FetchBytes(ctx, l.location, "application/json")
	} else {
		data, err = os.ReadFile(l.location)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return doc, nil
}
