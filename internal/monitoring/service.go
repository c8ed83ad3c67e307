package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/archive"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/config"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/engine"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/notifications"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/repository"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/sentiment"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/sources"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service runs the evaluation cycle: collect mentions, score sentiment,
// evaluate each brand's window against its baseline, drive the alert
// lifecycle, update influencer scores and competitive metrics.
type Service struct {
	config   *config.Config
	repo     repository.Repository
	sources  []sources.Source
	scorer   sentiment.Scorer
	notifier notifications.Notifier
	archive  archive.Store

	aggregator  *engine.Aggregator
	baseline    *engine.BaselineEstimator
	anomaly     *engine.AnomalyScorer
	alerts      *engine.AlertLifecycleManager
	influencers *engine.InfluencerScorer
	benchmarker *engine.CompetitiveBenchmarker

	now func() time.Time

	// brandLocks serializes a brand's whole evaluation across overlapping
	// cycles, on top of the finer-grained locks inside the engine.
	lockMu     sync.Mutex
	brandLocks map[string]*sync.Mutex

	mu      sync.RWMutex
	metrics *Metrics
}

// Metrics holds the last cycle's counters, exposed as JSON on /status.
type Metrics struct {
	LastRun         time.Time      `json:"last_run"`
	LastRunDuration string         `json:"last_run_duration"`
	WindowStart     time.Time      `json:"window_start"`
	WindowEnd       time.Time      `json:"window_end"`
	MentionsFound   int            `json:"mentions_found"`
	MentionsStored  int            `json:"mentions_stored"`
	MentionsScored  int            `json:"mentions_scored"`
	BrandsEvaluated int            `json:"brands_evaluated"`
	BrandErrors     int            `json:"brand_errors"`
	AlertsOpened    int            `json:"alerts_opened"`
	AlertsEscalated int            `json:"alerts_escalated"`
	AlertsResolved  int            `json:"alerts_resolved"`
	SourceMetrics   map[string]int `json:"source_metrics"`
	InfluencersSeen int            `json:"influencers_seen"`
	MetricsComputed int            `json:"metrics_computed"`
}

// CycleResult is the immutable record of one evaluation cycle, archived as
// one JSON object per cycle.
type CycleResult struct {
	WindowStart time.Time                   `json:"window_start"`
	WindowEnd   time.Time                   `json:"window_end"`
	Brands      []BrandResult               `json:"brands"`
	Influencers []*models.Influencer        `json:"influencers,omitempty"`
	Benchmarks  []*models.CompetitiveMetric `json:"benchmarks,omitempty"`
}

// BrandResult is one brand's slice of a cycle result.
type BrandResult struct {
	Brand    string             `json:"brand"`
	Stats    models.WindowStats `json:"stats"`
	Verdict  *engine.Verdict    `json:"verdict,omitempty"`
	Opened   bool               `json:"opened,omitempty"`
	Resolved bool               `json:"resolved,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// NewService creates a new monitoring service. The scorer and store may be
// nil when no sentiment API or storage account is configured.
func NewService(cfg *config.Config, repo repository.Repository, srcs []sources.Source,
	scorer sentiment.Scorer, notifier notifications.Notifier, store archive.Store) *Service {
	return &Service{
		config:     cfg,
		repo:       repo,
		sources:    srcs,
		scorer:     scorer,
		notifier:   notifier,
		archive:    store,
		aggregator: engine.NewAggregator(cfg.NegativityCutoff),
		baseline:   engine.NewBaselineEstimator(cfg.BaselineHistory, cfg.MinHistory),
		anomaly: engine.NewAnomalyScorer(cfg.VolumeWeight, cfg.NegativityWeight,
			cfg.VolumeTriggerZ, cfg.NegativityTriggerZ, cfg.AlertThreshold),
		alerts:      engine.NewAlertLifecycleManager(repo, cfg.AlertThreshold, cfg.QuietCyclesToResolve),
		influencers: engine.NewInfluencerScorer(repo, cfg.FollowerReference),
		benchmarker: engine.NewCompetitiveBenchmarker(repo),
		now:         time.Now,
		brandLocks:  make(map[string]*sync.Mutex),
		metrics:     &Metrics{SourceMetrics: make(map[string]int)},
	}
}

// SetClock overrides the time source for the service and its engine
// components, for tests and offline simulation.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.alerts.SetClock(now)
	s.influencers.SetClock(now)
}

// RunCycle performs one evaluation cycle: it evaluates the most recently
// completed window bucket for every configured brand. Per-brand failures are
// isolated; a failed brand keeps its watermark and is retried next cycle.
func (s *Service) RunCycle(ctx context.Context) error {
	start := s.now()
	windowEnd := start.UTC().Truncate(s.config.EvalInterval)
	windowStart := windowEnd.Add(-s.config.EvalInterval)

	logrus.Infof("Starting evaluation cycle for window [%s, %s)",
		windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339))

	collected, followers, sourceCounts := s.collect(ctx)
	stored, scoredFromSource := s.ingest(ctx, collected)
	scored := scoredFromSource + s.scoreUnscored(ctx)

	result := CycleResult{WindowStart: windowStart, WindowEnd: windowEnd}
	var opened, escalated, resolved, brandErrors int
	batches := make(map[string][]models.ScoredMention)

	resultsChan := make(chan brandOutcome, len(s.config.Brands))
	sem := make(chan struct{}, s.config.EvalWorkers)
	var wg sync.WaitGroup

	for _, brand := range s.config.Brands {
		wg.Add(1)
		go func(brand string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			resultsChan <- s.evaluateBrand(ctx, brand, windowStart, windowEnd)
		}(brand)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for outcome := range resultsChan {
		br := BrandResult{Brand: outcome.brand, Stats: outcome.stats, Verdict: outcome.verdict}

		if outcome.err != nil {
			brandErrors++
			br.Error = outcome.err.Error()
			if errors.Is(outcome.err, engine.ErrInvariantViolation) {
				logrus.Errorf("INVARIANT VIOLATION for brand %s: %v", outcome.brand, outcome.err)
			} else {
				logrus.Errorf("Brand %s evaluation failed, will retry next cycle: %v", outcome.brand, outcome.err)
			}
			result.Brands = append(result.Brands, br)
			continue
		}

		batches[outcome.brand] = outcome.batch

		if change := outcome.change; change != nil {
			switch {
			case change.Opened:
				opened++
				br.Opened = true
				s.notifyOpened(change.Alert)
			case change.Escalated:
				escalated++
			case change.Resolved:
				resolved++
				br.Resolved = true
				s.notifyResolved(change.Alert)
			}
		}

		result.Brands = append(result.Brands, br)
	}

	result.Influencers = s.scoreInfluencers(ctx, batches, followers)
	result.Benchmarks = s.runBenchmarks(ctx, windowEnd)

	s.archiveCycle(ctx, &result)

	s.updateMetrics(Metrics{
		LastRun:         s.now(),
		LastRunDuration: time.Since(start).String(),
		WindowStart:     windowStart,
		WindowEnd:       windowEnd,
		MentionsFound:   len(collected),
		MentionsStored:  stored,
		MentionsScored:  scored,
		BrandsEvaluated: len(s.config.Brands) - brandErrors,
		BrandErrors:     brandErrors,
		AlertsOpened:    opened,
		AlertsEscalated: escalated,
		AlertsResolved:  resolved,
		SourceMetrics:   sourceCounts,
		InfluencersSeen: len(result.Influencers),
		MetricsComputed: len(result.Benchmarks),
	})

	logrus.Infof("Cycle completed in %v: %d brands evaluated, %d failed, %d alerts opened, %d resolved",
		time.Since(start), len(s.config.Brands)-brandErrors, brandErrors, opened, resolved)

	if brandErrors == len(s.config.Brands) && len(s.config.Brands) > 0 {
		return fmt.Errorf("evaluation cycle failed for all %d brands", brandErrors)
	}
	return nil
}

// collect fans out to every enabled source and gathers the raw mentions,
// the follower counts observed per author, and per-source counts.
func (s *Service) collect(ctx context.Context) ([]sources.SourcedMention, map[string]int, map[string]int) {
	// Reach back two buckets so the completed window is fully covered even
	// when a source was down last cycle.
	searchWindow := 2 * s.config.EvalInterval

	mentionsChan := make(chan []sources.SourcedMention, len(s.sources))
	var wg sync.WaitGroup

	for _, source := range s.sources {
		if !source.Enabled() {
			logrus.Debugf("Source %s disabled, skipping", source.Name())
			continue
		}

		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()

			logrus.Infof("Fetching mentions from %s (window: %v)", src.Name(), searchWindow)
			mentions, err := src.FetchMentions(ctx, s.config.Brands, searchWindow)
			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.Name(), err)
				return
			}

			logrus.Infof("Found %d mentions from %s", len(mentions), src.Name())
			mentionsChan <- mentions
		}(source)
	}

	go func() {
		wg.Wait()
		close(mentionsChan)
	}()

	var collected []sources.SourcedMention
	followers := make(map[string]int)
	sourceCounts := make(map[string]int)

	for mentions := range mentionsChan {
		for _, sm := range mentions {
			if !s.isRelevant(sm.Mention) {
				continue
			}
			collected = append(collected, sm)
			sourceCounts[sm.Mention.Platform()]++
			if sm.AuthorFollowers > 0 && sm.Mention.Author != "" {
				followers[authorKey(sm.Mention)] = sm.AuthorFollowers
			}
		}
	}

	return collected, followers, sourceCounts
}

// isRelevant requires the brand or a configured keyword to appear in the
// mention's text before ingestion.
func (s *Service) isRelevant(m models.Mention) bool {
	text := strings.ToLower(m.Content)
	if m.Extras != nil {
		text += " " + strings.ToLower(m.Extras.Title)
	}

	if strings.Contains(text, strings.ToLower(m.Brand)) {
		return true
	}

	for _, keyword := range s.config.Keywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}

	return false
}

// ingest stores collected mentions (the repository dedups by kind and URL)
// and attaches any scores the sources supplied themselves.
func (s *Service) ingest(ctx context.Context, collected []sources.SourcedMention) (stored, scored int) {
	if len(collected) == 0 {
		return 0, 0
	}

	mentions := make([]models.Mention, len(collected))
	for i, sm := range collected {
		m := sm.Mention
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		mentions[i] = m
		collected[i].Mention = m
	}

	stored, ids, err := s.repo.StoreMentions(ctx, mentions)
	if err != nil {
		logrus.Errorf("Failed to store mentions: %v", err)
		return 0, 0
	}
	logrus.Infof("Stored %d new mentions (%d duplicates skipped)", stored, len(mentions)-stored)

	for i, sm := range collected {
		if sm.Sentiment == nil {
			continue
		}
		// Attach the score to the surviving record: a duplicate of an earlier
		// cycle's mention may still be waiting for one.
		score := *sm.Sentiment
		score.MentionID = ids[i]
		if err := s.repo.StoreSentiment(ctx, score); err != nil {
			logrus.Debugf("Skipping source-supplied score for %s: %v", ids[i], err)
			continue
		}
		scored++
	}

	return stored, scored
}

// scoreUnscored sends text still missing a score to the upstream analyzer.
// Failures leave the mention unscored; it is excluded from aggregation until
// a later cycle scores it.
func (s *Service) scoreUnscored(ctx context.Context) int {
	if s.scorer == nil {
		return 0
	}

	unscored, err := s.repo.UnscoredMentions(ctx, 500)
	if err != nil {
		logrus.Errorf("Failed to list unscored mentions: %v", err)
		return 0
	}

	scored := 0
	for _, m := range unscored {
		text := m.Content
		if m.Extras != nil && m.Extras.Title != "" {
			text = m.Extras.Title + ". " + text
		}

		score, err := s.scorer.Score(ctx, text)
		if err != nil {
			logrus.Debugf("Sentiment scoring failed for mention %s, leaving unscored: %v", m.ID, err)
			continue
		}

		score.MentionID = m.ID
		if err := s.repo.StoreSentiment(ctx, score); err != nil {
			logrus.Errorf("Failed to store sentiment for mention %s: %v", m.ID, err)
			continue
		}
		scored++
	}

	if len(unscored) > 0 {
		logrus.Infof("Scored %d of %d unscored mentions", scored, len(unscored))
	}
	return scored
}

type brandOutcome struct {
	brand   string
	stats   models.WindowStats
	verdict *engine.Verdict
	change  *engine.AlertChange
	batch   []models.ScoredMention
	err     error
}

func (s *Service) brandLock(brand string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l := s.brandLocks[brand]
	if l == nil {
		l = &sync.Mutex{}
		s.brandLocks[brand] = l
	}
	return l
}

// evaluateBrand runs one brand's aggregation, baseline update, anomaly
// scoring and alert lifecycle under the brand's lock. The watermark advances
// only after everything committed, so a failed brand replays the same batch
// next cycle.
func (s *Service) evaluateBrand(ctx context.Context, brand string, windowStart, windowEnd time.Time) brandOutcome {
	lock := s.brandLock(brand)
	lock.Lock()
	defer lock.Unlock()

	out := brandOutcome{brand: brand}

	if !s.baseline.Seeded(brand) {
		history, err := s.repo.WindowHistory(ctx, brand, s.config.BaselineHistory+1)
		if err != nil {
			out.err = fmt.Errorf("restoring baseline history: %w", err)
			return out
		}
		s.baseline.Restore(brand, history)
		logrus.Debugf("Restored %d historical windows for %s", len(history), brand)
	}

	watermark, err := s.repo.Watermark(ctx, brand)
	if err != nil {
		out.err = fmt.Errorf("loading watermark: %w", err)
		return out
	}

	batch, newWatermark, err := s.repo.FetchNew(ctx, brand, watermark)
	if err != nil {
		out.err = fmt.Errorf("fetching new mentions: %w", err)
		return out
	}
	out.batch = batch

	windowMentions, err := s.repo.FetchWindow(ctx, brand, windowStart, windowEnd)
	if err != nil {
		out.err = fmt.Errorf("fetching window mentions: %w", err)
		return out
	}

	stats := s.aggregator.Aggregate(brand, windowStart, windowEnd, windowMentions)
	out.stats = stats

	s.baseline.Observe(stats)
	baseline, haveBaseline := s.baseline.Estimate(brand)
	if !haveBaseline {
		logrus.Debugf("Insufficient history for %s, skipping anomaly scoring", brand)
	}

	verdict, haveVerdict := s.anomaly.Score(stats, baseline, haveBaseline)
	if haveVerdict {
		out.verdict = &verdict
	}

	change, err := s.alerts.Evaluate(ctx, brand, verdict, haveVerdict)
	if err != nil {
		out.err = fmt.Errorf("alert lifecycle: %w", err)
		return out
	}
	out.change = change

	if err := s.repo.SaveWindowStats(ctx, stats); err != nil {
		out.err = fmt.Errorf("saving window stats: %w", err)
		return out
	}

	if err := s.repo.SetWatermark(ctx, brand, newWatermark); err != nil {
		out.err = fmt.Errorf("advancing watermark: %w", err)
		return out
	}

	return out
}

func authorKey(m models.Mention) string {
	return m.Author + "@" + m.Platform()
}

// scoreInfluencers groups the cycle's new mentions by (author, platform) and
// updates each account's impact score.
func (s *Service) scoreInfluencers(ctx context.Context, batches map[string][]models.ScoredMention, followers map[string]int) []*models.Influencer {
	type sightingKey struct {
		username string
		platform string
	}

	sightings := make(map[sightingKey][]models.ScoredMention)
	for _, batch := range batches {
		for _, sm := range batch {
			if sm.Mention.Author == "" {
				continue
			}
			key := sightingKey{username: sm.Mention.Author, platform: sm.Mention.Platform()}
			sightings[key] = append(sightings[key], sm)
		}
	}

	var updated []*models.Influencer
	for key, mentions := range sightings {
		record, err := s.influencers.ScoreSighting(ctx, engine.Sighting{
			Username:  key.username,
			Platform:  key.platform,
			Followers: followers[key.username+"@"+key.platform],
			Mentions:  mentions,
		})
		if err != nil {
			logrus.Errorf("Influencer scoring failed for %s@%s: %v", key.username, key.platform, err)
			continue
		}
		if record != nil {
			updated = append(updated, record)
		}
	}

	return updated
}

// runBenchmarks recomputes the competitive metric for every configured pair
// over the benchmark period ending at the evaluated window's end. Re-running
// inside the same period overwrites, never duplicates.
func (s *Service) runBenchmarks(ctx context.Context, windowEnd time.Time) []*models.CompetitiveMetric {
	var out []*models.CompetitiveMetric

	periodStart := windowEnd.Add(-s.config.BenchmarkPeriod)
	for _, pair := range s.config.CompetitorPairs {
		metric, err := s.benchmarker.Benchmark(ctx, pair.Brand, pair.Competitor, periodStart, windowEnd)
		if err != nil {
			logrus.Errorf("Benchmark %s vs %s failed: %v", pair.Brand, pair.Competitor, err)
			continue
		}
		out = append(out, metric)
	}

	return out
}

func (s *Service) notifyOpened(alert *models.CrisisAlert) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.AlertOpened(alert); err != nil {
		logrus.Errorf("Failed to notify alert open for %s: %v", alert.Brand, err)
	}
}

func (s *Service) notifyResolved(alert *models.CrisisAlert) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.AlertResolved(alert); err != nil {
		logrus.Errorf("Failed to notify alert resolve for %s: %v", alert.Brand, err)
	}
}

func (s *Service) archiveCycle(ctx context.Context, result *CycleResult) {
	if s.archive == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		logrus.Errorf("Failed to marshal cycle result: %v", err)
		return
	}

	name := fmt.Sprintf("cycles/%s.json", result.WindowEnd.Format(time.RFC3339))
	if err := s.archive.Save(ctx, name, data); err != nil {
		logrus.Errorf("Failed to archive cycle result: %v", err)
	}
}

func (s *Service) updateMetrics(m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = &m
}

// GetMetrics returns current cycle metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
