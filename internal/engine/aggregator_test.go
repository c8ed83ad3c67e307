package engine

import (
	"testing"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/stretchr/testify/assert"
)

var (
	windowStart = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	windowEnd   = windowStart.Add(time.Hour)
)

func scoredMention(brand string, at time.Time, engagement int, compound float64) models.ScoredMention {
	return models.ScoredMention{
		Mention: models.Mention{
			Brand:      brand,
			CreatedAt:  at,
			Engagement: engagement,
		},
		Sentiment: &models.SentimentScore{Compound: compound},
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	agg := NewAggregator(-0.3)

	batch := []models.ScoredMention{
		scoredMention("Apple", windowStart.Add(5*time.Minute), 10, 0.5),
		scoredMention("Apple", windowStart.Add(15*time.Minute), 20, -0.5),
		scoredMention("Apple", windowStart.Add(25*time.Minute), 5, -0.6),
		scoredMention("Apple", windowStart.Add(35*time.Minute), 5, -0.2), // above cutoff, not negative
	}

	stats := agg.Aggregate("Apple", windowStart, windowEnd, batch)

	assert.True(t, stats.HasData)
	assert.Equal(t, 4, stats.MentionCount)
	assert.Equal(t, 40, stats.TotalEngagement)
	assert.InDelta(t, -0.2, stats.MeanCompound, 1e-9)
	assert.InDelta(t, 0.5, stats.NegativeFraction, 1e-9)
	assert.Equal(t, 0, stats.UnscoredCount)
}

func TestAggregator_HalfOpenWindow(t *testing.T) {
	agg := NewAggregator(-0.3)

	batch := []models.ScoredMention{
		scoredMention("Apple", windowStart, 1, 0.1),                    // inclusive start
		scoredMention("Apple", windowEnd, 1, 0.1),                      // exclusive end
		scoredMention("Apple", windowStart.Add(-time.Second), 1, 0.1),  // before window
		scoredMention("Apple", windowEnd.Add(-time.Second), 1, 0.1),    // last instant inside
		scoredMention("Samsung", windowStart.Add(time.Minute), 1, 0.1), // other brand
	}

	stats := agg.Aggregate("Apple", windowStart, windowEnd, batch)

	assert.Equal(t, 2, stats.MentionCount)
}

func TestAggregator_UnscoredMentionsExcluded(t *testing.T) {
	agg := NewAggregator(-0.3)

	batch := []models.ScoredMention{
		scoredMention("Apple", windowStart.Add(time.Minute), 10, -0.8),
		{
			Mention: models.Mention{
				Brand:      "Apple",
				CreatedAt:  windowStart.Add(2 * time.Minute),
				Engagement: 500,
			},
		},
	}

	stats := agg.Aggregate("Apple", windowStart, windowEnd, batch)

	assert.Equal(t, 1, stats.MentionCount)
	assert.Equal(t, 1, stats.UnscoredCount)
	// The unscored mention contributes nothing, not a neutral score.
	assert.InDelta(t, -0.8, stats.MeanCompound, 1e-9)
	assert.InDelta(t, 1.0, stats.NegativeFraction, 1e-9)
	assert.Equal(t, 10, stats.TotalEngagement)
}

func TestAggregator_EmptyWindowIsNoData(t *testing.T) {
	agg := NewAggregator(-0.3)

	stats := agg.Aggregate("Apple", windowStart, windowEnd, nil)

	assert.False(t, stats.HasData)
	assert.Equal(t, 0, stats.MentionCount)
	assert.Zero(t, stats.MeanCompound)
	assert.Zero(t, stats.NegativeFraction)
}
