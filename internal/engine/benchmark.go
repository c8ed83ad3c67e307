package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/sirupsen/logrus"
)

// BenchmarkStore is the slice of the repository the benchmarker needs.
type BenchmarkStore interface {
	PeriodAggregates(ctx context.Context, brand string, start, end time.Time) (models.PeriodAggregates, error)
	UpsertCompetitiveMetric(ctx context.Context, metric *models.CompetitiveMetric) error
}

// CompetitiveBenchmarker computes relative sentiment, volume and engagement
// metrics between a brand and a named competitor over a period. Recomputation
// for the same (brand, competitor, period) overwrites the previous record.
type CompetitiveBenchmarker struct {
	store BenchmarkStore
}

// NewCompetitiveBenchmarker creates a benchmarker backed by the given store.
func NewCompetitiveBenchmarker(store BenchmarkStore) *CompetitiveBenchmarker {
	return &CompetitiveBenchmarker{store: store}
}

// Benchmark computes and upserts the metric for one pair over [start, end).
// The sentiment ratio is left undefined (nil) when the competitor has no
// mentions in the period or its mean sentiment has zero magnitude, never
// approximated numerically.
func (b *CompetitiveBenchmarker) Benchmark(ctx context.Context, brand, competitor string, start, end time.Time) (*models.CompetitiveMetric, error) {
	brandAgg, err := b.store.PeriodAggregates(ctx, brand, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading period aggregates for %s: %w", brand, err)
	}

	compAgg, err := b.store.PeriodAggregates(ctx, competitor, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading period aggregates for %s: %w", competitor, err)
	}

	metric := &models.CompetitiveMetric{
		Brand:        brand,
		Competitor:   competitor,
		MentionCount: brandAgg.MentionCount,
		PeriodStart:  start,
		PeriodEnd:    end,
	}

	if brandAgg.MentionCount > 0 {
		metric.EngagementRate = float64(brandAgg.TotalEngagement) / float64(brandAgg.MentionCount)
	}

	if compAgg.MentionCount > 0 && math.Abs(compAgg.MeanSentiment) > epsilon {
		ratio := brandAgg.MeanSentiment / compAgg.MeanSentiment
		metric.SentimentRatio = &ratio
	} else {
		logrus.Debugf("Sentiment ratio %s vs %s undefined for [%s, %s): competitor has no usable activity",
			brand, competitor, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	if err := b.store.UpsertCompetitiveMetric(ctx, metric); err != nil {
		return nil, fmt.Errorf("upserting competitive metric %s vs %s: %w", brand, competitor, err)
	}

	return metric, nil
}
