package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// Ensure PostgresRepository implements Repository
var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository connects to the given database URL and verifies the
// connection.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresRepository{db: pool}, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.db.Close()
}

// wrapUnavailable tags storage failures so callers can branch on
// ErrUnavailable and retry the brand next cycle.
func wrapUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func (r *PostgresRepository) StoreMentions(ctx context.Context, mentions []models.Mention) (int, []string, error) {
	query := `
		INSERT INTO mentions (
			id, kind, brand, content, author, url, created_at, engagement,
			title, community, source_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (kind, url) DO NOTHING
		RETURNING id
	`

	stored := 0
	ids := make([]string, len(mentions))
	for i, m := range mentions {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}

		var title, community, sourceName string
		if m.Extras != nil {
			title, community, sourceName = m.Extras.Title, m.Extras.Community, m.Extras.SourceName
		}

		var id string
		err := r.db.QueryRow(ctx, query,
			m.ID, string(m.Kind), m.Brand, m.Content, m.Author, m.URL,
			m.CreatedAt, m.Engagement, title, community, sourceName,
		).Scan(&id)
		switch {
		case err == nil:
			stored++
		case errors.Is(err, pgx.ErrNoRows):
			// Duplicate: hand back the ID of the copy already stored.
			err = r.db.QueryRow(ctx,
				`SELECT id FROM mentions WHERE kind = $1 AND url = $2`,
				string(m.Kind), m.URL,
			).Scan(&id)
			if err != nil {
				return stored, nil, wrapUnavailable("resolving duplicate mention", err)
			}
		default:
			return stored, nil, wrapUnavailable("storing mention", err)
		}
		ids[i] = id
	}

	return stored, ids, nil
}

func (r *PostgresRepository) StoreSentiment(ctx context.Context, score models.SentimentScore) error {
	query := `
		INSERT INTO sentiment_scores (
			mention_id, polarity, subjectivity, compound, positive, negative, neutral
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		score.MentionID, score.Polarity, score.Subjectivity,
		score.Compound, score.Positive, score.Negative, score.Neutral,
	)
	if err != nil {
		return wrapUnavailable("storing sentiment", err)
	}
	return nil
}

const mentionColumns = `
	m.id, m.kind, m.brand, m.content, m.author, m.url, m.created_at,
	m.engagement, m.title, m.community, m.source_name, m.seq
`

func (r *PostgresRepository) UnscoredMentions(ctx context.Context, limit int) ([]models.Mention, error) {
	query := `
		SELECT ` + mentionColumns + `
		FROM mentions m
		LEFT JOIN sentiment_scores s ON s.mention_id = m.id
		WHERE s.mention_id IS NULL
		ORDER BY m.seq
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, wrapUnavailable("querying unscored mentions", err)
	}
	defer rows.Close()

	var out []models.Mention
	for rows.Next() {
		m, err := scanMention(rows)
		if err != nil {
			return nil, wrapUnavailable("scanning mention", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const scoredMentionColumns = mentionColumns + `,
	s.mention_id, s.polarity, s.subjectivity, s.compound, s.positive, s.negative, s.neutral
`

func (r *PostgresRepository) FetchNew(ctx context.Context, brand string, watermark int64) ([]models.ScoredMention, int64, error) {
	query := `
		SELECT ` + scoredMentionColumns + `
		FROM mentions m
		LEFT JOIN sentiment_scores s ON s.mention_id = m.id
		WHERE m.brand = $1 AND m.seq > $2
		ORDER BY m.seq
	`

	rows, err := r.db.Query(ctx, query, brand, watermark)
	if err != nil {
		return nil, watermark, wrapUnavailable("querying new mentions", err)
	}
	defer rows.Close()

	highest := watermark
	var out []models.ScoredMention
	for rows.Next() {
		sm, err := scanScoredMention(rows)
		if err != nil {
			return nil, watermark, wrapUnavailable("scanning mention", err)
		}
		out = append(out, sm)
		if sm.Mention.Seq > highest {
			highest = sm.Mention.Seq
		}
	}
	return out, highest, rows.Err()
}

func (r *PostgresRepository) FetchWindow(ctx context.Context, brand string, start, end time.Time) ([]models.ScoredMention, error) {
	query := `
		SELECT ` + scoredMentionColumns + `
		FROM mentions m
		LEFT JOIN sentiment_scores s ON s.mention_id = m.id
		WHERE m.brand = $1 AND m.created_at >= $2 AND m.created_at < $3
		ORDER BY m.created_at
	`

	rows, err := r.db.Query(ctx, query, brand, start, end)
	if err != nil {
		return nil, wrapUnavailable("querying window mentions", err)
	}
	defer rows.Close()

	var out []models.ScoredMention
	for rows.Next() {
		sm, err := scanScoredMention(rows)
		if err != nil {
			return nil, wrapUnavailable("scanning mention", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func scanMention(row pgx.Row) (models.Mention, error) {
	var m models.Mention
	var kind, title, community, sourceName string

	err := row.Scan(&m.ID, &kind, &m.Brand, &m.Content, &m.Author, &m.URL,
		&m.CreatedAt, &m.Engagement, &title, &community, &sourceName, &m.Seq)
	if err != nil {
		return m, err
	}

	m.Kind = models.SourceKind(kind)
	if title != "" || community != "" || sourceName != "" {
		m.Extras = &models.MentionExtras{Title: title, Community: community, SourceName: sourceName}
	}
	return m, nil
}

func scanScoredMention(row pgx.Row) (models.ScoredMention, error) {
	var sm models.ScoredMention
	var kind, title, community, sourceName string
	var mentionID *string
	var polarity, subjectivity, compound, positive, negative, neutral *float64

	m := &sm.Mention
	err := row.Scan(&m.ID, &kind, &m.Brand, &m.Content, &m.Author, &m.URL,
		&m.CreatedAt, &m.Engagement, &title, &community, &sourceName, &m.Seq,
		&mentionID, &polarity, &subjectivity, &compound, &positive, &negative, &neutral)
	if err != nil {
		return sm, err
	}

	m.Kind = models.SourceKind(kind)
	if title != "" || community != "" || sourceName != "" {
		m.Extras = &models.MentionExtras{Title: title, Community: community, SourceName: sourceName}
	}

	if mentionID != nil {
		sm.Sentiment = &models.SentimentScore{
			MentionID:    *mentionID,
			Polarity:     *polarity,
			Subjectivity: *subjectivity,
			Compound:     *compound,
			Positive:     *positive,
			Negative:     *negative,
			Neutral:      *neutral,
		}
	}
	return sm, nil
}

func (r *PostgresRepository) Watermark(ctx context.Context, brand string) (int64, error) {
	var wm int64
	err := r.db.QueryRow(ctx, `SELECT seq FROM watermarks WHERE brand = $1`, brand).Scan(&wm)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapUnavailable("querying watermark", err)
	}
	return wm, nil
}

func (r *PostgresRepository) SetWatermark(ctx context.Context, brand string, watermark int64) error {
	query := `
		INSERT INTO watermarks (brand, seq) VALUES ($1, $2)
		ON CONFLICT (brand) DO UPDATE SET seq = EXCLUDED.seq
	`
	if _, err := r.db.Exec(ctx, query, brand, watermark); err != nil {
		return wrapUnavailable("setting watermark", err)
	}
	return nil
}

func (r *PostgresRepository) SaveWindowStats(ctx context.Context, stats models.WindowStats) error {
	query := `
		INSERT INTO window_stats (
			brand, window_start, window_end, mention_count, mean_compound,
			negative_fraction, total_engagement, has_data, unscored_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (brand, window_start) DO UPDATE SET
			window_end = EXCLUDED.window_end,
			mention_count = EXCLUDED.mention_count,
			mean_compound = EXCLUDED.mean_compound,
			negative_fraction = EXCLUDED.negative_fraction,
			total_engagement = EXCLUDED.total_engagement,
			has_data = EXCLUDED.has_data,
			unscored_count = EXCLUDED.unscored_count
	`

	_, err := r.db.Exec(ctx, query,
		stats.Brand, stats.Start, stats.End, stats.MentionCount, stats.MeanCompound,
		stats.NegativeFraction, stats.TotalEngagement, stats.HasData, stats.UnscoredCount,
	)
	if err != nil {
		return wrapUnavailable("saving window stats", err)
	}
	return nil
}

func (r *PostgresRepository) WindowHistory(ctx context.Context, brand string, limit int) ([]models.WindowStats, error) {
	query := `
		SELECT brand, window_start, window_end, mention_count, mean_compound,
			negative_fraction, total_engagement, has_data, unscored_count
		FROM (
			SELECT * FROM window_stats
			WHERE brand = $1
			ORDER BY window_start DESC
			LIMIT $2
		) recent
		ORDER BY window_start
	`

	rows, err := r.db.Query(ctx, query, brand, limit)
	if err != nil {
		return nil, wrapUnavailable("querying window history", err)
	}
	defer rows.Close()

	var out []models.WindowStats
	for rows.Next() {
		var w models.WindowStats
		if err := rows.Scan(&w.Brand, &w.Start, &w.End, &w.MentionCount, &w.MeanCompound,
			&w.NegativeFraction, &w.TotalEngagement, &w.HasData, &w.UnscoredCount); err != nil {
			return nil, wrapUnavailable("scanning window stats", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

const alertColumns = `id, brand, description, severity, detected_at, status, resolved_at, resolution_notes`

func (r *PostgresRepository) ActiveAlerts(ctx context.Context, brand string) ([]*models.CrisisAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM crisis_alerts
		WHERE brand = $1 AND status <> 'resolved'
		ORDER BY detected_at
	`

	rows, err := r.db.Query(ctx, query, brand)
	if err != nil {
		return nil, wrapUnavailable("querying active alerts", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func (r *PostgresRepository) CreateAlert(ctx context.Context, alert *models.CrisisAlert) error {
	query := `
		INSERT INTO crisis_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		alert.ID, alert.Brand, alert.Description, alert.Severity,
		alert.DetectedAt, string(alert.Status), alert.ResolvedAt, alert.ResolutionNotes,
	)
	if err != nil {
		return wrapUnavailable("creating alert", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateAlert(ctx context.Context, alert *models.CrisisAlert) error {
	query := `
		UPDATE crisis_alerts SET
			description = $2, severity = $3, status = $4,
			resolved_at = $5, resolution_notes = $6
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		alert.ID, alert.Description, alert.Severity, string(alert.Status),
		alert.ResolvedAt, alert.ResolutionNotes,
	)
	if err != nil {
		return wrapUnavailable("updating alert", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating alert: unknown id %s", alert.ID)
	}
	return nil
}

func (r *PostgresRepository) Alert(ctx context.Context, id string) (*models.CrisisAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM crisis_alerts WHERE id = $1`

	alert, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapUnavailable("querying alert", err)
	}
	return alert, nil
}

func (r *PostgresRepository) AlertsByBrand(ctx context.Context, brand string, limit int) ([]*models.CrisisAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM crisis_alerts
		WHERE brand = $1
		ORDER BY detected_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, brand, limit)
	if err != nil {
		return nil, wrapUnavailable("querying alerts", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlert(row pgx.Row) (*models.CrisisAlert, error) {
	var a models.CrisisAlert
	var status string
	if err := row.Scan(&a.ID, &a.Brand, &a.Description, &a.Severity,
		&a.DetectedAt, &status, &a.ResolvedAt, &a.ResolutionNotes); err != nil {
		return nil, err
	}
	a.Status = models.AlertStatus(status)
	return &a, nil
}

func scanAlerts(rows pgx.Rows) ([]*models.CrisisAlert, error) {
	var out []*models.CrisisAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, wrapUnavailable("scanning alert", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Influencer(ctx context.Context, username, platform string) (*models.Influencer, error) {
	query := `
		SELECT username, platform, followers, impact_score, brand_affinity, updated_at
		FROM influencers
		WHERE username = $1 AND platform = $2
	`

	var inf models.Influencer
	err := r.db.QueryRow(ctx, query, username, platform).Scan(
		&inf.Username, &inf.Platform, &inf.Followers, &inf.ImpactScore,
		&inf.BrandAffinity, &inf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapUnavailable("querying influencer", err)
	}
	return &inf, nil
}

func (r *PostgresRepository) UpsertInfluencer(ctx context.Context, influencer *models.Influencer) error {
	query := `
		INSERT INTO influencers (username, platform, followers, impact_score, brand_affinity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username, platform) DO UPDATE SET
			followers = EXCLUDED.followers,
			impact_score = EXCLUDED.impact_score,
			brand_affinity = EXCLUDED.brand_affinity,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		influencer.Username, influencer.Platform, influencer.Followers,
		influencer.ImpactScore, influencer.BrandAffinity, influencer.UpdatedAt,
	)
	if err != nil {
		return wrapUnavailable("upserting influencer", err)
	}
	return nil
}

func (r *PostgresRepository) Influencers(ctx context.Context, limit int) ([]*models.Influencer, error) {
	query := `
		SELECT username, platform, followers, impact_score, brand_affinity, updated_at
		FROM influencers
		ORDER BY impact_score DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, wrapUnavailable("querying influencers", err)
	}
	defer rows.Close()

	var out []*models.Influencer
	for rows.Next() {
		var inf models.Influencer
		if err := rows.Scan(&inf.Username, &inf.Platform, &inf.Followers,
			&inf.ImpactScore, &inf.BrandAffinity, &inf.UpdatedAt); err != nil {
			return nil, wrapUnavailable("scanning influencer", err)
		}
		out = append(out, &inf)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AuthorStats(ctx context.Context, username, platform string) (models.AuthorStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(engagement), 0)
		FROM mentions
		WHERE author = $1 AND COALESCE(NULLIF(source_name, ''), kind) = $2
	`

	var stats models.AuthorStats
	err := r.db.QueryRow(ctx, query, username, platform).Scan(&stats.MentionCount, &stats.AvgEngagement)
	if err != nil {
		return stats, wrapUnavailable("querying author stats", err)
	}

	topQuery := `
		SELECT brand
		FROM mentions
		WHERE author = $1 AND COALESCE(NULLIF(source_name, ''), kind) = $2
		GROUP BY brand
		ORDER BY COUNT(*) DESC, brand
		LIMIT 1
	`

	err = r.db.QueryRow(ctx, topQuery, username, platform).Scan(&stats.TopBrand)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return stats, wrapUnavailable("querying author top brand", err)
	}
	return stats, nil
}

func (r *PostgresRepository) PeriodAggregates(ctx context.Context, brand string, start, end time.Time) (models.PeriodAggregates, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(s.compound), 0), COALESCE(SUM(m.engagement), 0)
		FROM mentions m
		JOIN sentiment_scores s ON s.mention_id = m.id
		WHERE m.brand = $1 AND m.created_at >= $2 AND m.created_at < $3
	`

	var agg models.PeriodAggregates
	err := r.db.QueryRow(ctx, query, brand, start, end).Scan(
		&agg.MentionCount, &agg.MeanSentiment, &agg.TotalEngagement,
	)
	if err != nil {
		return agg, wrapUnavailable("querying period aggregates", err)
	}
	return agg, nil
}

func (r *PostgresRepository) UpsertCompetitiveMetric(ctx context.Context, metric *models.CompetitiveMetric) error {
	query := `
		INSERT INTO competitive_metrics (
			brand, competitor, sentiment_ratio, mention_count, engagement_rate,
			period_start, period_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (brand, competitor, period_start) DO UPDATE SET
			sentiment_ratio = EXCLUDED.sentiment_ratio,
			mention_count = EXCLUDED.mention_count,
			engagement_rate = EXCLUDED.engagement_rate,
			period_end = EXCLUDED.period_end
	`

	_, err := r.db.Exec(ctx, query,
		metric.Brand, metric.Competitor, metric.SentimentRatio, metric.MentionCount,
		metric.EngagementRate, metric.PeriodStart, metric.PeriodEnd,
	)
	if err != nil {
		return wrapUnavailable("upserting competitive metric", err)
	}
	return nil
}

func (r *PostgresRepository) CompetitiveMetrics(ctx context.Context, brand string) ([]*models.CompetitiveMetric, error) {
	query := `
		SELECT brand, competitor, sentiment_ratio, mention_count, engagement_rate,
			period_start, period_end
		FROM competitive_metrics
		WHERE brand = $1
		ORDER BY period_start DESC
	`

	rows, err := r.db.Query(ctx, query, brand)
	if err != nil {
		return nil, wrapUnavailable("querying competitive metrics", err)
	}
	defer rows.Close()

	var out []*models.CompetitiveMetric
	for rows.Next() {
		var m models.CompetitiveMetric
		if err := rows.Scan(&m.Brand, &m.Competitor, &m.SentimentRatio, &m.MentionCount,
			&m.EngagementRate, &m.PeriodStart, &m.PeriodEnd); err != nil {
			return nil, wrapUnavailable("scanning competitive metric", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
