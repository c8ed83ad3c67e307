package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
)

// InfluencerStore is the slice of the repository the influencer scorer needs.
type InfluencerStore interface {
	Influencer(ctx context.Context, username, platform string) (*models.Influencer, error)
	UpsertInfluencer(ctx context.Context, influencer *models.Influencer) error
	AuthorStats(ctx context.Context, username, platform string) (models.AuthorStats, error)
}

// Sighting is one account's mentions observed in a single cycle, possibly
// across several brands. Followers is the count reported by the source at
// ingestion time (0 when the source does not expose it).
type Sighting struct {
	Username  string
	Platform  string
	Followers int
	Mentions  []models.ScoredMention
}

// Impact score combination weights. Reach dominates, engagement second,
// affinity alignment third.
const (
	followerWeightShare   = 0.5
	engagementWeightShare = 0.3
	alignmentWeightShare  = 0.2
)

// InfluencerScorer computes a [0,1] impact score per tracked account and
// upserts the account record on every sighting. Identity is the
// (username, platform) pair.
type InfluencerScorer struct {
	store             InfluencerStore
	followerReference int
	now               func() time.Time
}

// NewInfluencerScorer creates a scorer whose follower weight saturates at the
// given reference follower count.
func NewInfluencerScorer(store InfluencerStore, followerReference int) *InfluencerScorer {
	return &InfluencerScorer{
		store:             store,
		followerReference: followerReference,
		now:               time.Now,
	}
}

// SetClock overrides the time source, for tests and offline simulation.
func (s *InfluencerScorer) SetClock(now func() time.Time) {
	s.now = now
}

// ScoreSighting computes the impact score for one account's cycle batch and
// writes the updated record, creating it on first sighting.
func (s *InfluencerScorer) ScoreSighting(ctx context.Context, sighting Sighting) (*models.Influencer, error) {
	if len(sighting.Mentions) == 0 {
		return nil, nil
	}

	existing, err := s.store.Influencer(ctx, sighting.Username, sighting.Platform)
	if err != nil {
		return nil, fmt.Errorf("loading influencer %s@%s: %w", sighting.Username, sighting.Platform, err)
	}

	history, err := s.store.AuthorStats(ctx, sighting.Username, sighting.Platform)
	if err != nil {
		return nil, fmt.Errorf("loading author stats for %s@%s: %w", sighting.Username, sighting.Platform, err)
	}

	followers := sighting.Followers
	if followers == 0 && existing != nil {
		followers = existing.Followers
	}

	affinity := history.TopBrand
	if affinity == "" {
		affinity = topBrand(sighting.Mentions)
	}

	follower := s.followerWeight(followers)
	engagement := engagementWeight(sighting.Mentions, history.AvgEngagement)
	alignment := alignmentFactor(sighting.Mentions, affinity)

	impact := clamp(followerWeightShare*follower+engagementWeightShare*engagement+alignmentWeightShare*alignment, 0, 1)

	record := existing
	if record == nil {
		record = &models.Influencer{
			Username: sighting.Username,
			Platform: sighting.Platform,
		}
	}
	record.Followers = followers
	record.ImpactScore = impact
	record.BrandAffinity = affinity
	record.UpdatedAt = s.now()

	if err := s.store.UpsertInfluencer(ctx, record); err != nil {
		return nil, fmt.Errorf("upserting influencer %s@%s: %w", sighting.Username, sighting.Platform, err)
	}

	return record, nil
}

// followerWeight is log-scaled against the reference count so mega-accounts
// do not dominate unboundedly.
func (s *InfluencerScorer) followerWeight(followers int) float64 {
	if followers <= 0 {
		return 0
	}
	return clamp(math.Log1p(float64(followers))/math.Log1p(float64(s.followerReference)), 0, 1)
}

// engagementWeight compares the batch's average engagement against the
// account's historical average: 0.5 at the historical norm, saturating at
// double it. With no history the account sits at the norm.
func engagementWeight(mentions []models.ScoredMention, historicalAvg float64) float64 {
	var total int
	for _, sm := range mentions {
		total += sm.Mention.Engagement
	}
	batchAvg := float64(total) / float64(len(mentions))

	if historicalAvg <= 0 {
		return 0.5
	}
	return clamp(batchAvg/(2*historicalAvg), 0, 1)
}

// alignmentFactor measures agreement between the account's overall tone this
// batch and the polarity of its mentions of the affinity brand. 0.5 when the
// batch has no scored affinity-brand mentions.
func alignmentFactor(mentions []models.ScoredMention, affinity string) float64 {
	var compoundSum float64
	var scored int
	for _, sm := range mentions {
		if sm.Sentiment != nil {
			compoundSum += sm.Sentiment.Compound
			scored++
		}
	}
	if scored == 0 {
		return 0.5
	}
	batchMean := compoundSum / float64(scored)

	var sum float64
	var n int
	for _, sm := range mentions {
		if sm.Sentiment == nil || sm.Mention.Brand != affinity {
			continue
		}
		sum += 1 - math.Abs(batchMean-sm.Sentiment.Polarity)/2
		n++
	}
	if n == 0 {
		return 0.5
	}
	return clamp(sum/float64(n), 0, 1)
}

func topBrand(mentions []models.ScoredMention) string {
	counts := make(map[string]int)
	best := ""
	for _, sm := range mentions {
		b := sm.Mention.Brand
		counts[b]++
		if best == "" || counts[b] > counts[best] {
			best = b
		}
	}
	return best
}
