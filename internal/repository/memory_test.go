package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_StoreMentionsDeduplicates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := models.Mention{
		ID:    "m-1",
		Kind:  models.SourceSocialPost,
		Brand: "Apple",
		URL:   "https://reddit.com/p/abc",
	}
	stored, ids, err := repo.StoreMentions(ctx, []models.Mention{first})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	assert.Equal(t, []string{"m-1"}, ids)

	// Same URL from the same source kind is the same mention, even re-fetched
	// under a different id. The surviving ID is the original's.
	dup := first
	dup.ID = "m-2"
	stored, ids, err = repo.StoreMentions(ctx, []models.Mention{dup})
	require.NoError(t, err)
	assert.Zero(t, stored)
	assert.Equal(t, []string{"m-1"}, ids)

	// Same URL from a different source kind is distinct.
	news := first
	news.ID = "m-3"
	news.Kind = models.SourceNewsArticle
	stored, ids, err = repo.StoreMentions(ctx, []models.Mention{news})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	assert.Equal(t, []string{"m-3"}, ids)
}

func TestMemoryRepository_SequenceAndWatermark(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	batch := []models.Mention{
		{ID: "a", Kind: models.SourceSocialPost, Brand: "Apple", URL: "https://x.com/1"},
		{ID: "b", Kind: models.SourceSocialPost, Brand: "Apple", URL: "https://x.com/2"},
		{ID: "c", Kind: models.SourceSocialPost, Brand: "Samsung", URL: "https://x.com/3"},
	}
	_, _, err := repo.StoreMentions(ctx, batch)
	require.NoError(t, err)

	wm, err := repo.Watermark(ctx, "Apple")
	require.NoError(t, err)
	assert.Zero(t, wm, "fresh brand starts at watermark 0")

	fresh, highest, err := repo.FetchNew(ctx, "Apple", wm)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, int64(2), highest)

	require.NoError(t, repo.SetWatermark(ctx, "Apple", highest))

	// Nothing new until further mentions arrive past the watermark.
	fresh, highest, err = repo.FetchNew(ctx, "Apple", highest)
	require.NoError(t, err)
	assert.Empty(t, fresh)
	assert.Equal(t, int64(2), highest)

	_, _, err = repo.StoreMentions(ctx, []models.Mention{
		{ID: "d", Kind: models.SourceSocialPost, Brand: "Apple", URL: "https://x.com/4"},
	})
	require.NoError(t, err)

	fresh, highest, err = repo.FetchNew(ctx, "Apple", int64(2))
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "d", fresh[0].Mention.ID)
	assert.Equal(t, int64(4), highest)
}

func TestMemoryRepository_SentimentPairsAndUnscored(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, _, err := repo.StoreMentions(ctx, []models.Mention{
		{ID: "a", Kind: models.SourceSocialPost, Brand: "Apple", URL: "https://x.com/1"},
		{ID: "b", Kind: models.SourceSocialPost, Brand: "Apple", URL: "https://x.com/2"},
	})
	require.NoError(t, err)

	require.NoError(t, repo.StoreSentiment(ctx, models.SentimentScore{MentionID: "a", Compound: -0.7}))

	// Double-scoring and scoring an unknown mention are both rejected.
	assert.Error(t, repo.StoreSentiment(ctx, models.SentimentScore{MentionID: "a"}))
	assert.Error(t, repo.StoreSentiment(ctx, models.SentimentScore{MentionID: "nope"}))

	unscored, err := repo.UnscoredMentions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, unscored, 1)
	assert.Equal(t, "b", unscored[0].ID)

	fresh, _, err := repo.FetchNew(ctx, "Apple", 0)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	for _, sm := range fresh {
		if sm.Mention.ID == "a" {
			require.NotNil(t, sm.Sentiment)
			assert.Equal(t, -0.7, sm.Sentiment.Compound)
		} else {
			assert.Nil(t, sm.Sentiment)
		}
	}
}

func TestMemoryRepository_FetchWindowIsHalfOpen(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(15 * time.Minute)

	_, _, err := repo.StoreMentions(ctx, []models.Mention{
		{ID: "before", Kind: models.SourceSocialPost, Brand: "Apple", URL: "https://x.com/1", CreatedAt: start.Add(-time.Second)},
		{ID: "at-start", Kind: models.SourceSocialPost, Brand: "Apple", URL: "https://x.com/2", CreatedAt: start},
		{ID: "inside", Kind: models.SourceSocialPost, Brand: "Apple", URL: "https://x.com/3", CreatedAt: start.Add(7 * time.Minute)},
		{ID: "at-end", Kind: models.SourceSocialPost, Brand: "Apple", URL: "https://x.com/4", CreatedAt: end},
	})
	require.NoError(t, err)

	got, err := repo.FetchWindow(ctx, "Apple", start, end)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, sm := range got {
		ids = append(ids, sm.Mention.ID)
	}
	assert.ElementsMatch(t, []string{"at-start", "inside"}, ids)
}

func TestMemoryRepository_WindowHistoryOverwritesSameStart(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.SaveWindowStats(ctx, models.WindowStats{
			Brand:        "Apple",
			Start:        base.Add(time.Duration(i) * 15 * time.Minute),
			MentionCount: i,
			HasData:      true,
		}))
	}

	// Re-running a cycle rewrites that window rather than appending.
	require.NoError(t, repo.SaveWindowStats(ctx, models.WindowStats{
		Brand:        "Apple",
		Start:        base.Add(2 * 15 * time.Minute),
		MentionCount: 99,
		HasData:      true,
	}))

	history, err := repo.WindowHistory(ctx, "Apple", 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, 99, history[2].MentionCount)

	// Limit keeps the most recent windows, oldest first.
	recent, err := repo.WindowHistory(ctx, "Apple", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, base.Add(3*15*time.Minute), recent[0].Start)
	assert.Equal(t, base.Add(4*15*time.Minute), recent[1].Start)
}

func TestMemoryRepository_AuthorStats(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, _, err := repo.StoreMentions(ctx, []models.Mention{
		{ID: "1", Kind: models.SourceSocialPost, Brand: "Apple", Author: "critic", URL: "https://r.com/1", Engagement: 10, Extras: &models.MentionExtras{SourceName: "reddit"}},
		{ID: "2", Kind: models.SourceSocialPost, Brand: "Apple", Author: "critic", URL: "https://r.com/2", Engagement: 30, Extras: &models.MentionExtras{SourceName: "reddit"}},
		{ID: "3", Kind: models.SourceSocialPost, Brand: "Samsung", Author: "critic", URL: "https://r.com/3", Engagement: 20, Extras: &models.MentionExtras{SourceName: "reddit"}},
		// Same username on another platform does not count.
		{ID: "4", Kind: models.SourceSocialPost, Brand: "Apple", Author: "critic", URL: "https://t.com/4", Engagement: 500, Extras: &models.MentionExtras{SourceName: "twitter"}},
	})
	require.NoError(t, err)

	stats, err := repo.AuthorStats(ctx, "critic", "reddit")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.MentionCount)
	assert.InDelta(t, 20.0, stats.AvgEngagement, 1e-9)
	assert.Equal(t, "Apple", stats.TopBrand)

	empty, err := repo.AuthorStats(ctx, "nobody", "reddit")
	require.NoError(t, err)
	assert.Zero(t, empty.MentionCount)
	assert.Zero(t, empty.AvgEngagement)
}

func TestMemoryRepository_AlertCopiesAreIsolated(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	alert := &models.CrisisAlert{
		ID:       "a-1",
		Brand:    "Apple",
		Severity: 0.8,
		Status:   models.AlertStatusNew,
	}
	require.NoError(t, repo.CreateAlert(ctx, alert))

	// Mutating the caller's copy must not leak into the store.
	alert.Severity = 0.1

	stored, err := repo.Alert(ctx, "a-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 0.8, stored.Severity)

	// And mutating a fetched copy must not either.
	stored.Status = models.AlertStatusResolved
	active, err := repo.ActiveAlerts(ctx, "Apple")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
