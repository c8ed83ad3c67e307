// Command simulate runs the crisis detection engine end to end against the
// in-memory repository with synthetic data: calm warm-up windows, a burst of
// negative mentions, then quiet windows until the alert auto-resolves.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/config"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/monitoring"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/repository"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/sources"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const brand = "Apple"

// scriptedSource replays one staged batch per fetch.
type scriptedSource struct {
	batches [][]sources.SourcedMention
	next    int
}

func (s *scriptedSource) Name() string  { return "scripted" }
func (s *scriptedSource) Enabled() bool { return true }

func (s *scriptedSource) FetchMentions(ctx context.Context, brands []string, since time.Duration) ([]sources.SourcedMention, error) {
	if s.next >= len(s.batches) {
		return nil, nil
	}
	batch := s.batches[s.next]
	s.next++
	return batch, nil
}

func (s *scriptedSource) stage(batch []sources.SourcedMention) {
	s.batches = append(s.batches, batch)
}

func main() {
	logrus.SetLevel(logrus.WarnLevel)

	cfg := &config.Config{
		Brands:               []string{brand, "Samsung"},
		CompetitorPairs:      []config.BrandPair{{Brand: brand, Competitor: "Samsung"}},
		EvalInterval:         time.Hour,
		EvalWorkers:          2,
		AlertThreshold:       0.75,
		VolumeTriggerZ:       2.5,
		NegativityTriggerZ:   2.0,
		VolumeWeight:         0.1,
		NegativityWeight:     0.2,
		NegativityCutoff:     -0.3,
		BaselineHistory:      48,
		MinHistory:           8,
		QuietCyclesToResolve: 3,
		FollowerReference:    100000,
		BenchmarkPeriod:      24 * time.Hour,
	}

	repo := repository.NewMemoryRepository()
	source := &scriptedSource{}
	service := monitoring.NewService(cfg, repo, []sources.Source{source}, nil, nil, nil)

	rng := rand.New(rand.NewSource(42))
	origin := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// 12 calm windows, 3 crisis windows, then quiet until auto-resolve.
	type phase struct {
		windows  int
		count    int
		compound float64
		label    string
	}
	script := []phase{
		{windows: 12, count: 5, compound: 0.2, label: "calm"},
		{windows: 3, count: 15, compound: -0.7, label: "crisis"},
		{windows: 5, count: 5, compound: 0.2, label: "recovery"},
	}

	cycle := 0
	for _, ph := range script {
		for w := 0; w < ph.windows; w++ {
			windowStart := origin.Add(time.Duration(cycle) * cfg.EvalInterval)
			source.stage(makeWindow(rng, windowStart, cfg.EvalInterval, ph.count, ph.compound))

			clock := windowStart.Add(cfg.EvalInterval + time.Minute)
			service.SetClock(func() time.Time { return clock })

			if err := service.RunCycle(context.Background()); err != nil {
				fmt.Printf("cycle %d failed: %v\n", cycle, err)
			}

			report(repo, cycle, ph.label, windowStart)
			cycle++
		}
	}
}

func makeWindow(rng *rand.Rand, start time.Time, length time.Duration, count int, compound float64) []sources.SourcedMention {
	var batch []sources.SourcedMention
	for i := 0; i < count; i++ {
		c := compound + (rng.Float64()-0.5)*0.2
		id := uuid.NewString()
		negative, positive := 0.0, 0.0
		if c < 0 {
			negative = -c
		} else {
			positive = c
		}

		batch = append(batch, sources.SourcedMention{
			Mention: models.Mention{
				ID:         id,
				Kind:       models.SourceSocialPost,
				Brand:      brand,
				Content:    fmt.Sprintf("synthetic mention of %s", brand),
				Author:     fmt.Sprintf("user_%02d", rng.Intn(20)),
				URL:        fmt.Sprintf("https://example.com/%s", id),
				CreatedAt:  start.Add(time.Duration(rng.Int63n(int64(length)))),
				Engagement: rng.Intn(100),
				Extras:     &models.MentionExtras{SourceName: "scripted"},
			},
			Sentiment: &models.SentimentScore{
				Polarity: c,
				Compound: c,
				Positive: positive,
				Negative: negative,
				Neutral:  1 - positive - negative,
			},
		})
	}
	return batch
}

func report(repo repository.Repository, cycle int, label string, windowStart time.Time) {
	ctx := context.Background()

	history, _ := repo.WindowHistory(ctx, brand, 1)
	var stats models.WindowStats
	for _, w := range history {
		if w.Start.Equal(windowStart) {
			stats = w
		}
	}

	line := fmt.Sprintf("cycle %2d [%s] window %s: count=%2d", cycle, label,
		windowStart.Format("Jan 02 15:04"), stats.MentionCount)
	if stats.HasData {
		line += fmt.Sprintf(" mean=%+.2f neg=%.2f", stats.MeanCompound, stats.NegativeFraction)
	}

	active, _ := repo.ActiveAlerts(ctx, brand)
	if len(active) > 0 {
		line += fmt.Sprintf("  ALERT %s severity=%.2f", active[0].Status, active[0].Severity)
	}

	fmt.Println(line)
}
