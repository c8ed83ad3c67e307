package engine

import (
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/sirupsen/logrus"
)

// Aggregator reduces a brand's mentions inside one half-open time window
// [start, end) into a WindowStats tuple.
type Aggregator struct {
	negativityCutoff float64
}

// NewAggregator creates an aggregator that classifies a mention as negative
// when its compound score falls below cutoff.
func NewAggregator(cutoff float64) *Aggregator {
	return &Aggregator{negativityCutoff: cutoff}
}

// Aggregate computes the window statistics for one brand. Mentions outside
// [start, end) or belonging to another brand are ignored. Mentions without a
// sentiment score are excluded from every statistic and only counted in
// UnscoredCount; they are never treated as neutral. A window with zero scored
// mentions comes back with HasData=false so that silence is not mistaken for
// calm sentiment.
func (a *Aggregator) Aggregate(brand string, start, end time.Time, batch []models.ScoredMention) models.WindowStats {
	stats := models.WindowStats{
		Brand: brand,
		Start: start,
		End:   end,
	}

	var compoundSum float64
	var negative int

	for _, sm := range batch {
		m := sm.Mention
		if m.Brand != brand {
			continue
		}
		if m.CreatedAt.Before(start) || !m.CreatedAt.Before(end) {
			continue
		}

		if sm.Sentiment == nil {
			stats.UnscoredCount++
			continue
		}

		stats.MentionCount++
		stats.TotalEngagement += m.Engagement
		compoundSum += sm.Sentiment.Compound
		if sm.Sentiment.Compound < a.negativityCutoff {
			negative++
		}
	}

	if stats.MentionCount > 0 {
		stats.HasData = true
		stats.MeanCompound = compoundSum / float64(stats.MentionCount)
		stats.NegativeFraction = float64(negative) / float64(stats.MentionCount)
	}

	if stats.UnscoredCount > 0 {
		logrus.Debugf("Window [%s, %s) for %s: skipped %d unscored mentions",
			start.Format(time.RFC3339), end.Format(time.RFC3339), brand, stats.UnscoredCount)
	}

	return stats
}
