package metrics

import (
	"errors"
	"testing"
	"time"
	"trendingreads/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveSource(t *testing.T) {
	m := New(prometheus.NewRegistry())
	src := domain.FeedSource{Name: "Aeon", Type: domain.SourceTypeRSS}

	m.ObserveSource(domain.SourceResult{Source: src, Articles: make([]domain.Article, 3)})
	m.ObserveSource(domain.SourceResult{Source: src, Err: errors.New("timeout")})
	m.ObserveSource(domain.SourceResult{Source: src})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceFetchTotal.WithLabelValues("Aeon", "rss", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceFetchTotal.WithLabelValues("Aeon", "rss", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceFetchTotal.WithLabelValues("Aeon", "rss", "empty")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SourceArticlesTotal.WithLabelValues("Aeon")))
}

func TestMetrics_CacheAndSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CacheLookup(CacheFresh)
	m.CacheLookup(CacheFresh)
	m.CacheLookup(CacheMiss)
	m.SnapshotWritten(time.Unix(1717236000, 0))
	m.ObservePipeline(domain.CategoryScience, 250*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues(CacheFresh)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues(CacheMiss)))
	assert.Equal(t, 1717236000.0, testutil.ToFloat64(m.SnapshotGenerated))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PipelineDuration))
	count, err := testutil.GatherAndCount(reg, "trendingreads_cache_lookups_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup(CacheStale)
		m.ObserveSource(domain.SourceResult{})
		m.ObservePipeline(domain.CategoryScience, time.Second)
		m.SnapshotWritten(time.Now())
	})
}
