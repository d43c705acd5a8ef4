// Package metrics содержит Prometheus-метрики конвейера.
// Все методы безопасны для nil-получателя, поэтому компоненты работают и без метрик.
package metrics

import (
	"time"
	"trendingreads/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trendingreads"

// Результаты обращения к кэшу.
const (
	CacheFresh = "fresh"
	CacheStale = "stale"
	CacheMiss  = "miss"
)

// Metrics хранит метрики загрузки источников, конвейера, кэша и снимка.
type Metrics struct {
	SourceFetchTotal    *prometheus.CounterVec
	SourceArticlesTotal *prometheus.CounterVec
	PipelineDuration    *prometheus.HistogramVec
	CacheLookupsTotal   *prometheus.CounterVec
	SnapshotGenerated   prometheus.Gauge
}

// New создает и регистрирует метрики в reg. При nil используется DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SourceFetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fetch_total",
				Help:      "Source fetch attempts by outcome",
			},
			[]string{"source", "type", "status"},
		),
		SourceArticlesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_articles_total",
				Help:      "Articles produced per source before merging",
			},
			[]string{"source"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Duration of a full category refresh",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"category"},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Category cache lookups by result",
			},
			[]string{"result"},
		),
		SnapshotGenerated: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_generated_timestamp_seconds",
				Help:      "Unix time of the last generated snapshot",
			},
		),
	}
}

// ObserveSource учитывает исход загрузки одного источника.
func (m *Metrics) ObserveSource(r domain.SourceResult) {
	if m == nil {
		return
	}
	m.SourceFetchTotal.WithLabelValues(r.Source.Name, string(r.Source.Type), string(r.Status())).Inc()
	m.SourceArticlesTotal.WithLabelValues(r.Source.Name).Add(float64(len(r.Articles)))
}

// ObservePipeline учитывает длительность обновления категории.
func (m *Metrics) ObservePipeline(category domain.Category, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(string(category)).Observe(d.Seconds())
}

// CacheLookup учитывает обращение к кэшу.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// SnapshotWritten фиксирует время генерации снимка.
func (m *Metrics) SnapshotWritten(at time.Time) {
	if m == nil {
		return
	}
	m.SnapshotGenerated.Set(float64(at.Unix()))
}
