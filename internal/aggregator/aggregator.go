package aggregator

import (
	"context"
	"time"

	"feed_aggregator/internal/logger"
	"feed_aggregator/internal/merger"
	"feed_aggregator/internal/models"
	"feed_aggregator/internal/normalizer"
	"feed_aggregator/internal/registry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	timelineItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_items",
		Help: "Items in the most recently built timeline",
	})
	timelineFailedSources = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_failed_sources",
		Help: "Sources that failed in the most recently built timeline",
	})
	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "timeline_build_duration_seconds",
		Help:    "Duration of a full aggregation run",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

// SourceFetcher загружает все источники и ждёт завершения каждого.
type SourceFetcher interface {
	FetchAll(ctx context.Context, sources []models.FeedSource) []models.RawFeedResult
}

// Builder строит Timeline за один прогон.
type Builder interface {
	Build(ctx context.Context) models.Timeline
}

type Option func(*Aggregator)

// WithDedupe включает схлопывание одинаковых историй из разных лент.
func WithDedupe(enabled bool) Option {
	return func(a *Aggregator) { a.dedupe = enabled }
}

// Aggregator не хранит состояние между прогонами и безопасен для параллельных вызовов Build.
type Aggregator struct {
	registry *registry.Registry
	fetcher  SourceFetcher
	dedupe   bool
}

func New(reg *registry.Registry, fetcher SourceFetcher, opts ...Option) *Aggregator {
	a := &Aggregator{registry: reg, fetcher: fetcher}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build загружает все источники, нормализует успешные и сливает их в одну ленту.
// Ошибки источников не возвращаются: они попадают в Timeline.Sources,
// а если упали все источники, лента просто пуста.
func (a *Aggregator) Build(ctx context.Context) models.Timeline {
	start := time.Now()
	log := logger.Log.WithField("service", "aggregator")

	results := a.fetcher.FetchAll(ctx, a.registry.Sources())

	sets := make([][]models.CanonicalItem, len(results))
	reports := make([]models.SourceReport, len(results))
	for i, res := range results {
		reports[i] = models.SourceReport{
			URL:   res.Source.URL,
			Title: normalizer.SourceTitle(res.Source, res.FeedTitle),
		}
		if res.Failed() {
			reports[i].Error = res.Err.Error()
			continue
		}

		items, dropped := normalizer.Normalize(res)
		sets[i] = items
		reports[i].Items = len(items)
		reports[i].Dropped = len(dropped)
	}

	items := merger.Merge(sets)
	if a.dedupe {
		items = merger.Dedupe(items)
	}

	timeline := models.Timeline{
		GeneratedAt: time.Now().UTC(),
		Items:       items,
		Sources:     reports,
	}

	duration := time.Since(start)
	buildDuration.Observe(duration.Seconds())
	timelineItems.Set(float64(timeline.Len()))
	timelineFailedSources.Set(float64(timeline.FailedSources()))

	log.WithFields(logger.Fields{
		"sources":        len(reports),
		"failed_sources": timeline.FailedSources(),
		"items_count":    timeline.Len(),
		"duration":       duration.String(),
	}).Info("Timeline built")

	return timeline
}
