package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	"trendingreads/internal/adapter/fetcher"
	"trendingreads/internal/cache"
	"trendingreads/internal/config"
	"trendingreads/internal/domain"
	"trendingreads/internal/logger"
	"trendingreads/internal/metrics"
	"trendingreads/internal/snapshot"
	"trendingreads/internal/source"
	server "trendingreads/internal/transport/http"
	"trendingreads/internal/usecase"
	"trendingreads/internal/worker"
	"trendingreads/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App представляет основное приложение Trending Reads.
// Связывает источники, конвейер, кэш, снимок, воркер и HTTP API.
// Одноразовые команды CLI используют те же компоненты без запуска сервера.
type App struct {
	config     *config.Config
	logger     *slog.Logger
	logCloser  io.Closer
	store      storage.Store
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	aggregator *usecase.Aggregator
	reader     *usecase.Reader
	snapshots  *usecase.SnapshotGenerator
	worker     *worker.Worker
	server     *http.Server
	stopChan   chan os.Signal
	wg         sync.WaitGroup
}

// New создает и инициализирует приложение: логгер, хранилище кэша, загрузчики источников
// и все use case. Возвращает ошибку в случае сбоя любой из инициализационных процедур.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	appLogger, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	slog.SetDefault(appLogger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var fetcherOpts []fetcher.Option
	if cfg.App.UserAgent != "" {
		fetcherOpts = append(fetcherOpts, fetcher.WithUserAgent(cfg.App.UserAgent))
	}
	httpFetcher := fetcher.NewHTTPFetcher(appLogger, fetcherOpts...)

	sources, err := source.NewRegistry(cfg.App, httpFetcher, appLogger)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to build sources: %w", err)
	}
	byCategory := make(map[domain.Category][]usecase.SourceFetcher, len(sources.Categories()))
	for _, category := range sources.Categories() {
		for _, f := range sources.Fetchers(category) {
			byCategory[category] = append(byCategory[category], f)
		}
	}
	aggregator := usecase.NewAggregator(sources.Categories(), byCategory, usecase.AggregatorOptions{
		Timeout:        cfg.App.FetchTimeoutDuration(),
		Concurrency:    cfg.App.FetchConcurrency,
		MinTitleLength: cfg.App.MinTitleLength,
		Metrics:        m,
	}, appLogger)

	store, err := storage.Open(ctx, cfg, appLogger)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	articleCache := cache.New[[]domain.Article](store, cache.Options{
		Namespace: cfg.Storage.Namespace,
		Version:   cfg.Storage.Version,
		TTL:       cfg.App.CacheTTLDuration(),
	})
	reader := usecase.NewReader(aggregator, articleCache, usecase.ReaderOptions{
		RefreshTimeout: 2 * cfg.App.FetchTimeoutDuration(),
		Metrics:        m,
	}, appLogger)
	snapshots := usecase.NewSnapshotGenerator(aggregator, cfg.App.SnapshotPath, m, appLogger)

	refreshWorker := worker.New(reader, cfg.App.RefreshIntervalDuration(), 2*cfg.App.FetchTimeoutDuration(), appLogger)

	var loader *snapshot.Loader
	if cfg.App.SnapshotPath != "" {
		loader = snapshot.NewLoader(cfg.App.SnapshotPath, httpFetcher)
	}
	handler := server.NewHandler(appLogger, reader, snapshotSource(loader), refreshWorker)
	router := server.NewServer(appLogger, handler, reg)

	return &App{
		config:     cfg,
		logger:     appLogger,
		logCloser:  logCloser,
		store:      store,
		registry:   reg,
		metrics:    m,
		aggregator: aggregator,
		reader:     reader,
		snapshots:  snapshots,
		worker:     refreshWorker,
		server: &http.Server{
			Addr:              cfg.Server.Address,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		stopChan: make(chan os.Signal, 1),
	}, nil
}

// snapshotSource не дает nil-указателю превратиться в непустой интерфейс.
func snapshotSource(l *snapshot.Loader) interface {
	Load(ctx context.Context) (snapshot.Document, error)
	Refresh(ctx context.Context) (snapshot.Document, error)
} {
	if l == nil {
		return nil
	}
	return l
}

// Logger возвращает логгер приложения.
func (a *App) Logger() *slog.Logger { return a.logger }

// Aggregator возвращает use case обновления категории.
func (a *App) Aggregator() *usecase.Aggregator { return a.aggregator }

// Reader возвращает use case чтения через кэш.
func (a *App) Reader() *usecase.Reader { return a.reader }

// Snapshots возвращает генератор снимка.
func (a *App) Snapshots() *usecase.SnapshotGenerator { return a.snapshots }

// Run запускает сервер в режиме клиентского кэша: чистит записи старых версий,
// стартует воркер и HTTP API и блокируется до сигнала завершения.
func (a *App) Run() error {
	a.logger.Info("Starting Trending Reads",
		slog.String("component", "app"),
		slog.Int("categories", len(a.aggregator.Categories())),
		slog.String("storage", a.config.Storage.Driver),
		slog.Duration("refresh_interval", a.worker.Interval()),
	)
	if _, err := a.reader.Purge(context.Background()); err != nil {
		a.logger.Warn("Cache purge failed", slog.String("component", "app"), slog.Any("error", err))
	}

	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		a.Close()
		return fmt.Errorf("failed to create listener: %w", err)
	}
	a.worker.Start()
	a.logger.Info("HTTP server ready",
		slog.String("component", "server"),
		slog.String("address", listener.Addr().String()),
	)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
			select {
			case a.stopChan <- syscall.SIGTERM:
			default:
			}
		}
	}()
	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-a.stopChan
	a.logger.Info("Shutdown signal received",
		slog.String("component", "app"),
		slog.String("signal", sig.String()),
	)
	return a.Shutdown()
}

// Shutdown выполняет graceful shutdown: останавливает воркер, HTTP-сервер,
// дожидается фоновых обновлений и закрывает хранилище.
func (a *App) Shutdown() error {
	a.logger.Info("Starting graceful shutdown")
	a.worker.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}
	a.wg.Wait()
	a.reader.Wait()
	a.logger.Info("Application stopped gracefully")
	return a.Close()
}

// Close освобождает хранилище и файлы логов.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}
