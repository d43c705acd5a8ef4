package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"trendingreads/internal/domain"
	"trendingreads/internal/metrics"
	"trendingreads/internal/snapshot"

	"golang.org/x/sync/errgroup"
)

// SnapshotGenerator строит документ снимка по всем категориям.
type SnapshotGenerator struct {
	fetcher CategoryFetcher
	path    string
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewSnapshotGenerator создает генератор. Пустой path отключает запись файла.
func NewSnapshotGenerator(fetcher CategoryFetcher, path string, m *metrics.Metrics, log *slog.Logger) *SnapshotGenerator {
	return &SnapshotGenerator{
		fetcher: fetcher,
		path:    path,
		metrics: m,
		log:     log.With(slog.String("component", "snapshot")),
		now:     time.Now,
	}
}

// Generate обновляет все категории параллельно и атомарно записывает документ.
// Категория, у которой упали все источники, получает пустой список.
// Ошибка возвращается, только если не удалось обновить ни одну категорию или записать файл.
func (g *SnapshotGenerator) Generate(ctx context.Context) (snapshot.Document, error) {
	const op = "usecase.SnapshotGenerator.Generate"
	log := g.log.With(slog.String("op", op))
	categories := g.fetcher.Categories()
	doc := snapshot.Document{
		Categories: make(map[domain.Category][]domain.Article, len(categories)),
	}

	var (
		mu     sync.Mutex
		failed []error
	)
	eg, egctx := errgroup.WithContext(ctx)
	for _, category := range categories {
		eg.Go(func() error {
			res, err := g.fetcher.FetchCategory(egctx, category)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error("Category failed", slog.String("category", string(category)), slog.Any("error", err))
				failed = append(failed, err)
				doc.Categories[category] = []domain.Article{}
				return nil
			}
			articles := res.Articles
			if articles == nil {
				articles = []domain.Article{}
			}
			doc.Categories[category] = articles
			log.Info("Category done", slog.String("category", string(category)), slog.Int("count", len(articles)))
			return nil
		})
	}
	_ = eg.Wait()

	if len(categories) > 0 && len(failed) == len(categories) {
		return snapshot.Document{}, fmt.Errorf("%s: %w", op, errors.Join(failed...))
	}
	doc.GeneratedAt = g.now().UTC()

	if g.path != "" {
		if err := snapshot.Write(g.path, doc); err != nil {
			return snapshot.Document{}, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("Snapshot written", slog.String("path", g.path), slog.Int("categories", len(doc.Categories)))
	}
	g.metrics.SnapshotWritten(doc.GeneratedAt)
	return doc, nil
}
