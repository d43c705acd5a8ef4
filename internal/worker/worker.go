package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"trendingreads/internal/domain"
	"trendingreads/internal/usecase"
)

// Refresher определяет интерфейс принудительного обновления категорий.
type Refresher interface {
	Categories() []domain.Category
	Refresh(ctx context.Context, category domain.Category) (usecase.Listing, error)
}

// CycleStats описывает итог одного цикла обновления.
type CycleStats struct {
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	FinishedAt time.Time     `json:"finishedAt"`
	Duration   time.Duration `json:"duration"`
}

// Worker реализует фоновое периодическое обновление всех категорий,
// чтобы кэш оставался теплым и читатели почти не попадали на синхронное обновление.
type Worker struct {
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	last   atomic.Pointer[CycleStats]
}

// New создает воркер. timeout ограничивает обновление одной категории.
func New(refresher Refresher, interval, timeout time.Duration, log *slog.Logger) *Worker {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Worker{
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
		log:       log.With(slog.String("component", "worker")),
	}
}

// Start запускает воркер в отдельной горутине. Первый цикл выполняется сразу.
func (w *Worker) Start() {
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.done = make(chan struct{})
	go w.run()
}

// Stop останавливает воркер и дожидается завершения текущего цикла.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

// LastCycle возвращает итог последнего завершенного цикла.
func (w *Worker) LastCycle() (CycleStats, bool) {
	s := w.last.Load()
	if s == nil {
		return CycleStats{}, false
	}
	return *s, true
}

// Interval возвращает интервал обновления.
func (w *Worker) Interval() time.Duration { return w.interval }

func (w *Worker) run() {
	defer close(w.done)
	w.log.Info("Refresh worker started",
		slog.Duration("interval", w.interval),
		slog.Int("categories", len(w.refresher.Categories())),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.RunOnce(w.ctx)
	for {
		select {
		case <-ticker.C:
			w.RunOnce(w.ctx)
		case <-w.ctx.Done():
			w.log.Info("Worker stopping")
			return
		}
	}
}

// RunOnce обновляет все категории параллельно и возвращает итог цикла.
func (w *Worker) RunOnce(ctx context.Context) CycleStats {
	start := time.Now()
	categories := w.refresher.Categories()
	w.log.Debug("Refresh cycle started", slog.Int("categories", len(categories)))

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	for _, category := range categories {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			opCtx, cancel := context.WithTimeout(ctx, w.timeout)
			defer cancel()
			listing, err := w.refresher.Refresh(opCtx, category)
			if err != nil {
				errorCount.Add(1)
				w.log.Error("Category refresh failed",
					slog.String("category", string(category)),
					slog.Any("error", err),
				)
				return
			}
			successCount.Add(1)
			w.log.Debug("Category refreshed",
				slog.String("category", string(category)),
				slog.Int("count", len(listing.Articles)),
			)
		}()
	}
	wg.Wait()

	stats := CycleStats{
		Successful: int(successCount.Load()),
		Failed:     int(errorCount.Load()),
		FinishedAt: time.Now(),
		Duration:   time.Since(start),
	}
	w.last.Store(&stats)
	w.log.Info("Refresh cycle completed",
		slog.Int("successful", stats.Successful),
		slog.Int("errors", stats.Failed),
		slog.Int("total", len(categories)),
		slog.Duration("duration", stats.Duration),
	)
	return stats
}
