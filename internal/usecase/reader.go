package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"trendingreads/internal/cache"
	"trendingreads/internal/domain"
	"trendingreads/internal/metrics"
	"trendingreads/internal/pipeline"

	"golang.org/x/sync/singleflight"
)

// Listing - список статей категории, отданный читателю.
type Listing struct {
	Category  domain.Category  `json:"category"`
	Articles  []domain.Article `json:"articles"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Stale     bool             `json:"stale"`
}

// ReaderOptions настраивает Reader.
type ReaderOptions struct {
	// RefreshTimeout ограничивает одно обновление категории.
	RefreshTimeout time.Duration
	Metrics        *metrics.Metrics
}

// Reader реализует бизнес-логику выдачи категории через кэш.
// Свежая запись отдается сразу, устаревшая отдается и обновляется в фоне,
// при промахе обновление выполняется синхронно. Параллельные обновления одной категории
// объединяются, а результат, обогнанный более новым обновлением, в кэш не пишется.
type Reader struct {
	fetcher CategoryFetcher
	cache   *cache.Cache[[]domain.Article]
	opts    ReaderOptions
	log     *slog.Logger

	group singleflight.Group
	mu    sync.Mutex
	seq   map[domain.Category]uint64
	wg    sync.WaitGroup
}

type refreshed struct {
	articles []domain.Article
	at       time.Time
}

// NewReader создает Reader поверх загрузчика категорий и кэша.
func NewReader(fetcher CategoryFetcher, c *cache.Cache[[]domain.Article], opts ReaderOptions, log *slog.Logger) *Reader {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = time.Minute
	}
	return &Reader{
		fetcher: fetcher,
		cache:   c,
		opts:    opts,
		log:     log.With(slog.String("component", "reader")),
		seq:     make(map[domain.Category]uint64),
	}
}

// Categories возвращает категории, доступные для чтения.
func (r *Reader) Categories() []domain.Category {
	return r.fetcher.Categories()
}

func (r *Reader) known(category domain.Category) bool {
	for _, c := range r.fetcher.Categories() {
		if c == category {
			return true
		}
	}
	return false
}

// Articles возвращает статьи категории, отфильтрованные поисковым запросом.
// Пустой запрос возвращает весь список.
func (r *Reader) Articles(ctx context.Context, category domain.Category, query string) (Listing, error) {
	const op = "usecase.Reader.Articles"
	if !r.known(category) {
		return Listing{}, fmt.Errorf("%s: %w: %s", op, ErrUnknownCategory, category)
	}
	log := r.log.With(slog.String("op", op), slog.String("category", string(category)))

	entry, ok, err := r.cache.GetStale(ctx, string(category))
	if err != nil {
		log.Warn("Cache read failed", slog.Any("error", err))
		ok = false
	}
	if ok {
		fresh := r.cache.IsFresh(entry)
		listing := Listing{
			Category:  category,
			Articles:  pipeline.FilterBySearch(entry.Data, query),
			UpdatedAt: entry.Timestamp,
			Stale:     !fresh,
		}
		if fresh {
			r.opts.Metrics.CacheLookup(metrics.CacheFresh)
			return listing, nil
		}
		r.opts.Metrics.CacheLookup(metrics.CacheStale)
		log.Debug("Serving stale entry", slog.Time("updated_at", entry.Timestamp))
		r.refreshInBackground(ctx, category)
		return listing, nil
	}

	r.opts.Metrics.CacheLookup(metrics.CacheMiss)
	res, err := r.load(ctx, category)
	if err != nil {
		return Listing{}, fmt.Errorf("%s: %w", op, err)
	}
	return Listing{
		Category:  category,
		Articles:  pipeline.FilterBySearch(res.articles, query),
		UpdatedAt: res.at,
	}, nil
}

// Refresh принудительно обновляет категорию, не присоединяясь к уже идущему обновлению.
// Результат более старого обновления после этого в кэш не попадет.
func (r *Reader) Refresh(ctx context.Context, category domain.Category) (Listing, error) {
	const op = "usecase.Reader.Refresh"
	if !r.known(category) {
		return Listing{}, fmt.Errorf("%s: %w: %s", op, ErrUnknownCategory, category)
	}
	r.group.Forget(string(category))
	res, err := r.load(ctx, category)
	if err != nil {
		return Listing{}, fmt.Errorf("%s: %w", op, err)
	}
	return Listing{Category: category, Articles: res.articles, UpdatedAt: res.at}, nil
}

// Purge удаляет записи кэша от прежних версий схемы.
func (r *Reader) Purge(ctx context.Context) (int, error) {
	n, err := r.cache.Purge(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Info("Purged outdated cache entries", slog.Int("count", n))
	}
	return n, nil
}

// Wait дожидается завершения фоновых обновлений.
func (r *Reader) Wait() {
	r.wg.Wait()
}

// load присоединяется к идущему обновлению категории или запускает новое.
// Общее обновление не зависит от отмены ctx конкретного вызывающего: ушедший клиент
// получает ctx.Err(), а остальные дожидаются результата.
func (r *Reader) load(ctx context.Context, category domain.Category) (refreshed, error) {
	ch := r.group.DoChan(string(category), func() (any, error) {
		r.wg.Add(1)
		defer r.wg.Done()
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.RefreshTimeout)
		defer cancel()
		return r.refresh(shared, category)
	})
	select {
	case <-ctx.Done():
		return refreshed{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return refreshed{}, res.Err
		}
		return res.Val.(refreshed), nil
	}
}

func (r *Reader) refreshInBackground(ctx context.Context, category domain.Category) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.load(context.WithoutCancel(ctx), category); err != nil {
			r.log.Warn("Background refresh failed",
				slog.String("category", string(category)),
				slog.Any("error", err),
			)
		}
	}()
}

func (r *Reader) nextToken(category domain.Category) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[category]++
	return r.seq[category]
}

// refresh выполняет обновление и пишет результат в кэш, только если хотя бы один источник
// отработал и за время обновления не было начато более новое.
func (r *Reader) refresh(ctx context.Context, category domain.Category) (refreshed, error) {
	token := r.nextToken(category)
	res, err := r.fetcher.FetchCategory(ctx, category)
	if err != nil {
		return refreshed{}, err
	}
	out := refreshed{articles: res.Articles, at: res.FetchedAt}
	if res.Failed() == len(res.Sources) {
		return out, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seq[category] != token {
		r.log.Debug("Superseded refresh result discarded", slog.String("category", string(category)))
		return out, nil
	}
	if err := r.cache.Set(ctx, string(category), res.Articles); err != nil {
		r.log.Warn("Cache write failed", slog.String("category", string(category)), slog.Any("error", err))
	}
	return out, nil
}
