package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
)

// ErrUnavailable wraps storage transport and query failures. A brand whose
// cycle hits it keeps its watermark and is retried on the next interval.
var ErrUnavailable = errors.New("repository unavailable")

// Repository is the durable store for mentions, sentiment, alerts,
// influencers, competitive metrics, cached window stats and per-brand
// watermarks. Implementations provide no cross-call concurrency control of
// their own; callers serialize read-modify-write sequences per brand.
type Repository interface {
	// StoreMentions persists new mentions, assigning IDs and ingestion
	// sequence numbers. Mentions already present (same kind and URL) are
	// skipped. Returns the number actually stored and, aligned with the
	// input, the ID each mention survives under: for a duplicate that is the
	// previously stored copy's ID, so follow-up writes land on the record
	// that exists.
	StoreMentions(ctx context.Context, mentions []models.Mention) (int, []string, error)
	// StoreSentiment attaches a score to a mention. A second score for the
	// same mention is rejected.
	StoreSentiment(ctx context.Context, score models.SentimentScore) error
	// UnscoredMentions returns up to limit mentions still missing a score.
	UnscoredMentions(ctx context.Context, limit int) ([]models.Mention, error)

	// FetchNew returns a brand's mentions with sequence numbers above the
	// watermark, paired with their scores where present, plus the highest
	// sequence number seen.
	FetchNew(ctx context.Context, brand string, watermark int64) ([]models.ScoredMention, int64, error)
	// FetchWindow returns a brand's mentions created inside [start, end),
	// paired with their scores where present.
	FetchWindow(ctx context.Context, brand string, start, end time.Time) ([]models.ScoredMention, error)

	Watermark(ctx context.Context, brand string) (int64, error)
	SetWatermark(ctx context.Context, brand string, watermark int64) error

	// SaveWindowStats caches one window's stats, overwriting any previous
	// record for the same (brand, start).
	SaveWindowStats(ctx context.Context, stats models.WindowStats) error
	// WindowHistory returns up to limit cached windows for a brand, oldest
	// first.
	WindowHistory(ctx context.Context, brand string, limit int) ([]models.WindowStats, error)

	// ActiveAlerts returns all non-resolved alerts for a brand. A correct
	// system never has more than one; the engine treats surplus as an
	// invariant violation.
	ActiveAlerts(ctx context.Context, brand string) ([]*models.CrisisAlert, error)
	CreateAlert(ctx context.Context, alert *models.CrisisAlert) error
	UpdateAlert(ctx context.Context, alert *models.CrisisAlert) error
	Alert(ctx context.Context, id string) (*models.CrisisAlert, error)
	// AlertsByBrand returns a brand's alerts, newest first.
	AlertsByBrand(ctx context.Context, brand string, limit int) ([]*models.CrisisAlert, error)

	// Influencer returns nil without error when the account is unknown.
	Influencer(ctx context.Context, username, platform string) (*models.Influencer, error)
	UpsertInfluencer(ctx context.Context, influencer *models.Influencer) error
	Influencers(ctx context.Context, limit int) ([]*models.Influencer, error)
	// AuthorStats aggregates an account's stored mentions.
	AuthorStats(ctx context.Context, username, platform string) (models.AuthorStats, error)

	PeriodAggregates(ctx context.Context, brand string, start, end time.Time) (models.PeriodAggregates, error)
	UpsertCompetitiveMetric(ctx context.Context, metric *models.CompetitiveMetric) error
	CompetitiveMetrics(ctx context.Context, brand string) ([]*models.CompetitiveMetric, error)
}
