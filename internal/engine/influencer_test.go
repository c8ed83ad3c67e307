package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unscoredBatch(brand string, engagements ...int) []models.ScoredMention {
	out := make([]models.ScoredMention, 0, len(engagements))
	for _, e := range engagements {
		out = append(out, models.ScoredMention{
			Mention: models.Mention{Brand: brand, Engagement: e},
		})
	}
	return out
}

func TestInfluencerScorer_FirstSighting(t *testing.T) {
	repo := repository.NewMemoryRepository()
	scorer := NewInfluencerScorer(repo, 100000)
	updatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer.SetClock(func() time.Time { return updatedAt })
	ctx := context.Background()

	record, err := scorer.ScoreSighting(ctx, Sighting{
		Username:  "tech_reviewer_01",
		Platform:  "reddit",
		Followers: 100000, // exactly the reference count
		Mentions:  unscoredBatch("Apple", 10, 20),
	})
	require.NoError(t, err)
	require.NotNil(t, record)

	// follower weight saturates at the reference; engagement and alignment
	// default to the 0.5 midpoint with no history and no scored mentions.
	assert.InDelta(t, 0.5*1.0+0.3*0.5+0.2*0.5, record.ImpactScore, 1e-9)
	assert.Equal(t, "Apple", record.BrandAffinity)
	assert.Equal(t, 100000, record.Followers)
	assert.Equal(t, updatedAt, record.UpdatedAt)

	stored, err := repo.Influencer(ctx, "tech_reviewer_01", "reddit")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, record.ImpactScore, stored.ImpactScore)
}

func TestInfluencerScorer_ResightingUpdatesInPlace(t *testing.T) {
	repo := repository.NewMemoryRepository()
	scorer := NewInfluencerScorer(repo, 100000)
	ctx := context.Background()

	_, err := scorer.ScoreSighting(ctx, Sighting{
		Username: "tech_reviewer_01", Platform: "reddit",
		Followers: 5000, Mentions: unscoredBatch("Apple", 10),
	})
	require.NoError(t, err)

	_, err = scorer.ScoreSighting(ctx, Sighting{
		Username: "tech_reviewer_01", Platform: "reddit",
		Followers: 80000, Mentions: unscoredBatch("Apple", 10),
	})
	require.NoError(t, err)

	all, err := repo.Influencers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1, "same username and platform must update the existing record")
	assert.Equal(t, 80000, all[0].Followers)

	// Same username on a different platform is a distinct account.
	_, err = scorer.ScoreSighting(ctx, Sighting{
		Username: "tech_reviewer_01", Platform: "twitter",
		Followers: 300, Mentions: unscoredBatch("Apple", 10),
	})
	require.NoError(t, err)

	all, err = repo.Influencers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestInfluencerScorer_EmptySightingIsNoOp(t *testing.T) {
	repo := repository.NewMemoryRepository()
	scorer := NewInfluencerScorer(repo, 100000)

	record, err := scorer.ScoreSighting(context.Background(), Sighting{
		Username: "ghost", Platform: "reddit",
	})
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestInfluencerScorer_UnknownFollowersFallBackToLastKnown(t *testing.T) {
	repo := repository.NewMemoryRepository()
	scorer := NewInfluencerScorer(repo, 100000)
	ctx := context.Background()

	_, err := scorer.ScoreSighting(ctx, Sighting{
		Username: "tech_reviewer_01", Platform: "twitter",
		Followers: 50000, Mentions: unscoredBatch("Apple", 10),
	})
	require.NoError(t, err)

	// Source did not report followers this cycle.
	record, err := scorer.ScoreSighting(ctx, Sighting{
		Username: "tech_reviewer_01", Platform: "twitter",
		Followers: 0, Mentions: unscoredBatch("Apple", 10),
	})
	require.NoError(t, err)
	assert.Equal(t, 50000, record.Followers)
}

func TestInfluencerScorer_FollowerWeightBounds(t *testing.T) {
	scorer := NewInfluencerScorer(repository.NewMemoryRepository(), 100000)

	assert.Zero(t, scorer.followerWeight(0))
	assert.Zero(t, scorer.followerWeight(-5))
	assert.InDelta(t, 1.0, scorer.followerWeight(100000), 1e-9)
	assert.Equal(t, 1.0, scorer.followerWeight(50000000), "above the reference it clamps, never exceeds 1")
	assert.Greater(t, scorer.followerWeight(1000), 0.0)
	assert.Less(t, scorer.followerWeight(1000), scorer.followerWeight(10000))
}

func TestInfluencerScorer_AlignedSentimentRaisesImpact(t *testing.T) {
	repo := repository.NewMemoryRepository()
	scorer := NewInfluencerScorer(repo, 100000)
	ctx := context.Background()

	consistent := &models.SentimentScore{Compound: 0.5, Polarity: 0.5}
	batch := []models.ScoredMention{
		{Mention: models.Mention{Brand: "Apple", Engagement: 10}, Sentiment: consistent},
		{Mention: models.Mention{Brand: "Apple", Engagement: 10}, Sentiment: consistent},
	}

	record, err := scorer.ScoreSighting(ctx, Sighting{
		Username: "tech_reviewer_01", Platform: "reddit",
		Followers: 100000, Mentions: batch,
	})
	require.NoError(t, err)

	// Batch mean equals every affinity-brand polarity, so alignment is 1.
	assert.InDelta(t, 0.5*1.0+0.3*0.5+0.2*1.0, record.ImpactScore, 1e-9)
}

func TestInfluencerScorer_EngagementAndAffinityComeFromHistory(t *testing.T) {
	repo := repository.NewMemoryRepository()
	scorer := NewInfluencerScorer(repo, 100000)
	ctx := context.Background()

	// Seed stored history: four Samsung mentions averaging 10 engagement.
	var history []models.Mention
	for i := 0; i < 4; i++ {
		history = append(history, models.Mention{
			Kind:       models.SourceSocialPost,
			Brand:      "Samsung",
			Author:     "critic",
			URL:        fmt.Sprintf("https://reddit.com/p/%d", i),
			Engagement: 10,
			Extras:     &models.MentionExtras{SourceName: "reddit"},
		})
	}
	_, _, err := repo.StoreMentions(ctx, history)
	require.NoError(t, err)

	// This cycle the account averages double its historical engagement, and
	// mostly talks about Apple; affinity still follows the stored history.
	record, err := scorer.ScoreSighting(ctx, Sighting{
		Username: "critic", Platform: "reddit",
		Mentions: unscoredBatch("Apple", 20, 20),
	})
	require.NoError(t, err)

	assert.Equal(t, "Samsung", record.BrandAffinity)
	// follower 0, engagement saturated at 1.0, alignment default 0.5.
	assert.InDelta(t, 0.3*1.0+0.2*0.5, record.ImpactScore, 1e-9)
}
