package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/google/uuid"
)

// MemoryRepository is the in-process Repository used when no DATABASE_URL is
// configured, and as the fake for engine and service tests. A single RWMutex
// guards all maps; per-brand read-modify-write serialization stays the
// caller's job, as with every Repository.
type MemoryRepository struct {
	mu sync.RWMutex

	seq        int64
	mentions   []models.Mention
	mentionIdx map[string]int    // id -> index into mentions
	dedup      map[string]string // kind|url -> mention id
	sentiments map[string]models.SentimentScore
	watermarks map[string]int64
	windows    map[string][]models.WindowStats
	alerts     map[string]*models.CrisisAlert
	influencer map[string]*models.Influencer
	metrics    map[string]*models.CompetitiveMetric
}

// Ensure MemoryRepository implements Repository
var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		mentionIdx: make(map[string]int),
		dedup:      make(map[string]string),
		sentiments: make(map[string]models.SentimentScore),
		watermarks: make(map[string]int64),
		windows:    make(map[string][]models.WindowStats),
		alerts:     make(map[string]*models.CrisisAlert),
		influencer: make(map[string]*models.Influencer),
		metrics:    make(map[string]*models.CompetitiveMetric),
	}
}

func dedupKey(kind models.SourceKind, url string) string {
	return string(kind) + "|" + url
}

func influencerKey(username, platform string) string {
	return username + "@" + platform
}

func metricKey(brand, competitor string, start time.Time) string {
	return brand + "|" + competitor + "|" + start.UTC().Format(time.RFC3339)
}

func (r *MemoryRepository) StoreMentions(ctx context.Context, mentions []models.Mention) (int, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := 0
	ids := make([]string, len(mentions))
	for i, m := range mentions {
		if existing, ok := r.dedup[dedupKey(m.Kind, m.URL)]; ok {
			ids[i] = existing
			continue
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		r.seq++
		m.Seq = r.seq
		r.mentionIdx[m.ID] = len(r.mentions)
		r.mentions = append(r.mentions, m)
		r.dedup[dedupKey(m.Kind, m.URL)] = m.ID
		ids[i] = m.ID
		stored++
	}

	return stored, ids, nil
}

func (r *MemoryRepository) StoreSentiment(ctx context.Context, score models.SentimentScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mentionIdx[score.MentionID]; !ok {
		return fmt.Errorf("storing sentiment: unknown mention %s", score.MentionID)
	}
	if _, ok := r.sentiments[score.MentionID]; ok {
		return fmt.Errorf("storing sentiment: mention %s already scored", score.MentionID)
	}

	r.sentiments[score.MentionID] = score
	return nil
}

func (r *MemoryRepository) UnscoredMentions(ctx context.Context, limit int) ([]models.Mention, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Mention
	for _, m := range r.mentions {
		if _, ok := r.sentiments[m.ID]; ok {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepository) FetchNew(ctx context.Context, brand string, watermark int64) ([]models.ScoredMention, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	highest := watermark
	var out []models.ScoredMention
	for _, m := range r.mentions {
		if m.Brand != brand || m.Seq <= watermark {
			continue
		}
		out = append(out, r.pair(m))
		if m.Seq > highest {
			highest = m.Seq
		}
	}
	return out, highest, nil
}

func (r *MemoryRepository) FetchWindow(ctx context.Context, brand string, start, end time.Time) ([]models.ScoredMention, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.ScoredMention
	for _, m := range r.mentions {
		if m.Brand != brand || m.CreatedAt.Before(start) || !m.CreatedAt.Before(end) {
			continue
		}
		out = append(out, r.pair(m))
	}
	return out, nil
}

func (r *MemoryRepository) pair(m models.Mention) models.ScoredMention {
	sm := models.ScoredMention{Mention: m}
	if score, ok := r.sentiments[m.ID]; ok {
		sm.Sentiment = &score
	}
	return sm
}

func (r *MemoryRepository) Watermark(ctx context.Context, brand string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.watermarks[brand], nil
}

func (r *MemoryRepository) SetWatermark(ctx context.Context, brand string, watermark int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watermarks[brand] = watermark
	return nil
}

func (r *MemoryRepository) SaveWindowStats(ctx context.Context, stats models.WindowStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	windows := r.windows[stats.Brand]
	for i, w := range windows {
		if w.Start.Equal(stats.Start) {
			windows[i] = stats
			return nil
		}
	}

	windows = append(windows, stats)
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start.Before(windows[j].Start) })
	r.windows[stats.Brand] = windows
	return nil
}

func (r *MemoryRepository) WindowHistory(ctx context.Context, brand string, limit int) ([]models.WindowStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	windows := r.windows[brand]
	if limit > 0 && len(windows) > limit {
		windows = windows[len(windows)-limit:]
	}

	out := make([]models.WindowStats, len(windows))
	copy(out, windows)
	return out, nil
}

func (r *MemoryRepository) ActiveAlerts(ctx context.Context, brand string) ([]*models.CrisisAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.CrisisAlert
	for _, a := range r.alerts {
		if a.Brand == brand && a.Active() {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *MemoryRepository) CreateAlert(ctx context.Context, alert *models.CrisisAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; ok {
		return fmt.Errorf("creating alert: duplicate id %s", alert.ID)
	}
	copied := *alert
	r.alerts[alert.ID] = &copied
	return nil
}

func (r *MemoryRepository) UpdateAlert(ctx context.Context, alert *models.CrisisAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; !ok {
		return fmt.Errorf("updating alert: unknown id %s", alert.ID)
	}
	copied := *alert
	r.alerts[alert.ID] = &copied
	return nil
}

func (r *MemoryRepository) Alert(ctx context.Context, id string) (*models.CrisisAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *MemoryRepository) AlertsByBrand(ctx context.Context, brand string, limit int) ([]*models.CrisisAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.CrisisAlert
	for _, a := range r.alerts {
		if a.Brand == brand {
			copied := *a
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Influencer(ctx context.Context, username, platform string) (*models.Influencer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inf, ok := r.influencer[influencerKey(username, platform)]
	if !ok {
		return nil, nil
	}
	copied := *inf
	return &copied, nil
}

func (r *MemoryRepository) UpsertInfluencer(ctx context.Context, influencer *models.Influencer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *influencer
	r.influencer[influencerKey(influencer.Username, influencer.Platform)] = &copied
	return nil
}

func (r *MemoryRepository) Influencers(ctx context.Context, limit int) ([]*models.Influencer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Influencer
	for _, inf := range r.influencer {
		copied := *inf
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ImpactScore > out[j].ImpactScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) AuthorStats(ctx context.Context, username, platform string) (models.AuthorStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats models.AuthorStats
	var engagement int
	brandCounts := make(map[string]int)

	for _, m := range r.mentions {
		if m.Author != username || m.Platform() != platform {
			continue
		}
		stats.MentionCount++
		engagement += m.Engagement
		brandCounts[m.Brand]++
		if stats.TopBrand == "" || brandCounts[m.Brand] > brandCounts[stats.TopBrand] {
			stats.TopBrand = m.Brand
		}
	}

	if stats.MentionCount > 0 {
		stats.AvgEngagement = float64(engagement) / float64(stats.MentionCount)
	}
	return stats, nil
}

func (r *MemoryRepository) PeriodAggregates(ctx context.Context, brand string, start, end time.Time) (models.PeriodAggregates, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agg models.PeriodAggregates
	var compoundSum float64

	for _, m := range r.mentions {
		if m.Brand != brand || m.CreatedAt.Before(start) || !m.CreatedAt.Before(end) {
			continue
		}
		score, ok := r.sentiments[m.ID]
		if !ok {
			continue
		}
		agg.MentionCount++
		agg.TotalEngagement += m.Engagement
		compoundSum += score.Compound
	}

	if agg.MentionCount > 0 {
		agg.MeanSentiment = compoundSum / float64(agg.MentionCount)
	}
	return agg, nil
}

func (r *MemoryRepository) UpsertCompetitiveMetric(ctx context.Context, metric *models.CompetitiveMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *metric
	r.metrics[metricKey(metric.Brand, metric.Competitor, metric.PeriodStart)] = &copied
	return nil
}

func (r *MemoryRepository) CompetitiveMetrics(ctx context.Context, brand string) ([]*models.CompetitiveMetric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.CompetitiveMetric
	for _, m := range r.metrics {
		if m.Brand == brand {
			copied := *m
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	return out, nil
}
