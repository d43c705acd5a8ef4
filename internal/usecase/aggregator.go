package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"trendingreads/internal/domain"
	"trendingreads/internal/metrics"
	"trendingreads/internal/pipeline"

	"golang.org/x/sync/errgroup"
)

// AggregatorOptions настраивает Aggregator.
type AggregatorOptions struct {
	// Timeout ограничивает загрузку одного источника.
	Timeout        time.Duration
	// Concurrency ограничивает число одновременных загрузок; 0 означает все источники сразу.
	Concurrency    int
	MinTitleLength int
	Metrics        *metrics.Metrics
	Now            func() time.Time
}

// Aggregator реализует бизнес-логику обновления категории.
// Загружает все источники параллельно, дожидается каждого и сводит статьи через конвейер.
// Падение источника изолировано: он вносит ноль статей и отражается в SourceResult.
type Aggregator struct {
	categories []domain.Category
	sources    map[domain.Category][]SourceFetcher
	opts       AggregatorOptions
	log        *slog.Logger
}

// NewAggregator создает Aggregator для заданных категорий и их источников.
func NewAggregator(
	categories []domain.Category,
	sources map[domain.Category][]SourceFetcher,
	opts AggregatorOptions,
	log *slog.Logger,
) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		categories: categories,
		sources:    sources,
		opts:       opts,
		log:        log.With(slog.String("component", "aggregator")),
	}
}

// Categories возвращает настроенные категории.
func (a *Aggregator) Categories() []domain.Category {
	return a.categories
}

func (a *Aggregator) known(category domain.Category) bool {
	for _, c := range a.categories {
		if c == category {
			return true
		}
	}
	return false
}

// FetchCategory выполняет полный цикл обновления категории: параллельная загрузка, валидация,
// дедупликация, нормализация и сортировка. Ошибка ErrAllSourcesFailed возвращается вместе
// с результатом, чтобы вызывающий видел исходы всех источников.
func (a *Aggregator) FetchCategory(ctx context.Context, category domain.Category) (domain.CategoryResult, error) {
	const op = "usecase.Aggregator.FetchCategory"
	if !a.known(category) {
		return domain.CategoryResult{}, fmt.Errorf("%s: %w: %s", op, ErrUnknownCategory, category)
	}
	start := time.Now()
	log := a.log.With(slog.String("op", op), slog.String("category", string(category)))
	sources := a.sources[category]
	log.Debug("Category refresh started", slog.Int("sources", len(sources)))

	results := make([]domain.SourceResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	if a.opts.Concurrency > 0 {
		g.SetLimit(a.opts.Concurrency)
	}
	for i, src := range sources {
		g.Go(func() error {
			results[i] = a.fetchSource(gctx, src, log)
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.Article
	for _, r := range results {
		all = append(all, r.Articles...)
	}
	result := domain.CategoryResult{
		Category:  category,
		Articles:  pipeline.Merge(all, pipeline.Options{MinTitleLength: a.opts.MinTitleLength}),
		Sources:   results,
		FetchedAt: a.opts.Now(),
	}
	duration := time.Since(start)
	a.opts.Metrics.ObservePipeline(category, duration)

	if result.AllFailed() {
		log.Error("All sources failed", slog.Int("sources", len(sources)), slog.Any("error", result.SourceErrors()))
		return result, fmt.Errorf("%s: %w: %s", op, ErrAllSourcesFailed, category)
	}
	log.Info("Category refresh completed",
		slog.Int("count", len(result.Articles)),
		slog.Int("failed_sources", result.Failed()),
		slog.Duration("duration", duration),
	)
	return result, nil
}

// fetchSource загружает один источник с собственным таймаутом.
// Таймаут соблюдается, даже если загрузчик игнорирует отмену контекста.
func (a *Aggregator) fetchSource(ctx context.Context, f SourceFetcher, log *slog.Logger) domain.SourceResult {
	src := f.Source()
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	type outcome struct {
		articles []domain.Article
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		articles, err := f.Fetch(ctx)
		done <- outcome{articles, err}
	}()

	var res domain.SourceResult
	select {
	case o := <-done:
		res = domain.SourceResult{Source: src, Articles: o.articles, Err: o.err}
	case <-ctx.Done():
		res = domain.SourceResult{Source: src, Err: ctx.Err()}
	}
	if res.Err != nil {
		res.Articles = nil
		res.Err = fmt.Errorf("source %s: %w", src.Name, res.Err)
	}
	res.Duration = time.Since(start)
	a.opts.Metrics.ObserveSource(res)

	if res.Err != nil {
		log.Warn("Source fetch failed",
			slog.String("source", src.Name),
			slog.String("stage", "fetch"),
			slog.Any("error", res.Err),
		)
	} else {
		log.Debug("Source fetched",
			slog.String("source", src.Name),
			slog.Int("items_found", len(res.Articles)),
			slog.Duration("duration", res.Duration),
		)
	}
	return res
}
