package monitoring

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/config"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/repository"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testInterval = 15 * time.Minute

func testConfig() *config.Config {
	return &config.Config{
		EvalInterval:         testInterval,
		EvalWorkers:          2,
		Brands:               []string{"Apple"},
		CompetitorPairs:      []config.BrandPair{{Brand: "Apple", Competitor: "Samsung"}},
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
}

// scriptedSource replays one pre-built batch per FetchMentions call.
type scriptedSource struct {
	batches [][]sources.SourcedMention
	calls   int
}

func (s *scriptedSource) Name() string  { return "scripted" }
func (s *scriptedSource) Enabled() bool { return true }

func (s *scriptedSource) FetchMentions(ctx context.Context, brands []string, since time.Duration) ([]sources.SourcedMention, error) {
	if s.calls >= len(s.batches) {
		return nil, nil
	}
	batch := s.batches[s.calls]
	s.calls++
	return batch, nil
}

func (s *scriptedSource) push(batch []sources.SourcedMention) {
	s.batches = append(s.batches, batch)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) AlertOpened(alert *models.CrisisAlert) error {
	args := m.Called(alert)
	return args.Error(0)
}

func (m *mockNotifier) AlertResolved(alert *models.CrisisAlert) error {
	args := m.Called(alert)
	return args.Error(0)
}

var mentionSerial int

// sourcedBatch builds scored mentions created inside the window starting at
// windowStart, one per compound score.
func sourcedBatch(brand string, windowStart time.Time, compounds ...float64) []sources.SourcedMention {
	out := make([]sources.SourcedMention, 0, len(compounds))
	for _, c := range compounds {
		mentionSerial++
		out = append(out, sources.SourcedMention{
			Mention: models.Mention{
				Kind:       models.SourceSocialPost,
				Brand:      brand,
				Content:    fmt.Sprintf("Talking about %s again", brand),
				Author:     fmt.Sprintf("user_%d", mentionSerial%7),
				URL:        fmt.Sprintf("https://scripted.example/post/%d", mentionSerial),
				CreatedAt:  windowStart.Add(5 * time.Minute),
				Engagement: 10,
				Extras:     &models.MentionExtras{SourceName: "scripted"},
			},
			Sentiment:       &models.SentimentScore{Compound: c},
			AuthorFollowers: 2000,
		})
	}
	return out
}

// calmCompounds is one baseline-shaped window: five mentions, one of them
// negative, negative fraction 0.2.
func calmCompounds() []float64 {
	return []float64{0.2, 0.2, 0.2, 0.2, -0.5}
}

// runCycles drives the service through n consecutive windows starting at
// base, feeding it the scripted batches in order.
func runCycles(t *testing.T, svc *Service, base time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		cycleTime := base.Add(time.Duration(i+1)*testInterval + time.Minute)
		svc.SetClock(func() time.Time { return cycleTime })
		require.NoError(t, svc.RunCycle(context.Background()))
	}
}

func TestService_ColdStartRaisesNoAlerts(t *testing.T) {
	repo := repository.NewMemoryRepository()
	src := &scriptedSource{}
	notifier := &mockNotifier{}
	svc := NewService(testConfig(), repo, []sources.Source{src}, nil, notifier, nil)

	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Alarming-looking windows, but far fewer than MinHistory of them: no
	// baseline, no verdict, no alert.
	for i := 0; i < 4; i++ {
		src.push(sourcedBatch("Apple", base.Add(time.Duration(i)*testInterval),
			-0.9, -0.9, -0.9, -0.9, -0.9, -0.9, -0.9, -0.9, -0.9, -0.9))
	}
	runCycles(t, svc, base, 4)

	active, err := repo.ActiveAlerts(context.Background(), "Apple")
	require.NoError(t, err)
	assert.Empty(t, active)
	notifier.AssertNotCalled(t, "AlertOpened", mock.Anything)
}

func TestService_CrisisOpensAndAutoResolves(t *testing.T) {
	repo := repository.NewMemoryRepository()
	src := &scriptedSource{}
	notifier := &mockNotifier{}
	notifier.On("AlertOpened", mock.Anything).Return(nil).Once()
	notifier.On("AlertResolved", mock.Anything).Return(nil).Once()

	svc := NewService(testConfig(), repo, []sources.Source{src}, nil, notifier, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// 12 calm windows build the baseline.
	for i := 0; i < 12; i++ {
		src.push(sourcedBatch("Apple", base.Add(time.Duration(i)*testInterval), calmCompounds()...))
	}
	// One crisis window: eight times the normal volume, everything negative.
	crisis := make([]float64, 40)
	for i := range crisis {
		crisis[i] = -0.8
	}
	src.push(sourcedBatch("Apple", base.Add(12*testInterval), crisis...))
	// Three quiet windows resolve it.
	for i := 13; i < 16; i++ {
		src.push(sourcedBatch("Apple", base.Add(time.Duration(i)*testInterval), calmCompounds()...))
	}

	runCycles(t, svc, base, 13)

	active, err := repo.ActiveAlerts(ctx, "Apple")
	require.NoError(t, err)
	require.Len(t, active, 1, "crisis window must open an alert")
	assert.Equal(t, models.AlertStatusNew, active[0].Status)
	assert.GreaterOrEqual(t, active[0].Severity, 0.75)
	alertID := active[0].ID

	runCycles(t, svc, base.Add(13*testInterval), 3)

	active, err = repo.ActiveAlerts(ctx, "Apple")
	require.NoError(t, err)
	assert.Empty(t, active, "three quiet windows auto-resolve the alert")

	resolved, err := repo.Alert(ctx, alertID)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, models.AlertStatusResolved, resolved.Status)
	assert.Contains(t, resolved.ResolutionNotes, "quiet windows")

	// Open and resolve notified exactly once each; quiet holds and severity
	// updates never notify.
	notifier.AssertExpectations(t)
}

func TestService_CycleIsIdempotentForTheSameWindow(t *testing.T) {
	repo := repository.NewMemoryRepository()
	src := &scriptedSource{}
	svc := NewService(testConfig(), repo, []sources.Source{src}, nil, nil, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	src.push(sourcedBatch("Apple", base, calmCompounds()...))
	runCycles(t, svc, base, 1)

	// Re-running at the same instant re-fetches nothing new and rewrites the
	// same window stats instead of appending a duplicate.
	cycleTime := base.Add(testInterval + time.Minute)
	svc.SetClock(func() time.Time { return cycleTime })
	require.NoError(t, svc.RunCycle(ctx))

	history, err := repo.WindowHistory(ctx, "Apple", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, base, history[0].Start)
	assert.Equal(t, 5, history[0].MentionCount)
}

func TestService_IngestDeduplicatesAcrossCycles(t *testing.T) {
	repo := repository.NewMemoryRepository()
	src := &scriptedSource{}
	svc := NewService(testConfig(), repo, []sources.Source{src}, nil, nil, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	batch := sourcedBatch("Apple", base, 0.2, 0.2, -0.5)
	src.push(batch)
	// The search window reaches back past the previous cycle, so sources
	// routinely return posts already seen.
	src.push(batch)

	runCycles(t, svc, base, 2)

	fresh, _, err := repo.FetchNew(ctx, "Apple", 0)
	require.NoError(t, err)
	assert.Len(t, fresh, 3, "re-fetched posts must not be stored twice")
}

func TestService_DuplicateDeliveryScoresTheSurvivingCopy(t *testing.T) {
	repo := repository.NewMemoryRepository()
	src := &scriptedSource{}
	svc := NewService(testConfig(), repo, []sources.Source{src}, nil, nil, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mention := models.Mention{
		Kind:       models.SourceSocialPost,
		Brand:      "Apple",
		Content:    "Talking about Apple again",
		Author:     "critic",
		URL:        "https://scripted.example/post/replayed",
		CreatedAt:  base.Add(5 * time.Minute),
		Engagement: 10,
		Extras:     &models.MentionExtras{SourceName: "scripted"},
	}

	// First delivery arrives without a score.
	src.push([]sources.SourcedMention{{Mention: mention, AuthorFollowers: 2000}})
	// The re-fetch next cycle carries one; it must land on the copy stored
	// the first time around, not on the discarded duplicate's fresh ID.
	src.push([]sources.SourcedMention{{
		Mention:         mention,
		Sentiment:       &models.SentimentScore{Compound: -0.7},
		AuthorFollowers: 2000,
	}})

	runCycles(t, svc, base, 2)

	fresh, _, err := repo.FetchNew(ctx, "Apple", 0)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	require.NotNil(t, fresh[0].Sentiment, "late-arriving score attaches to the stored mention")
	assert.Equal(t, -0.7, fresh[0].Sentiment.Compound)
}

func TestService_IrrelevantMentionsAreDropped(t *testing.T) {
	repo := repository.NewMemoryRepository()
	src := &scriptedSource{}
	svc := NewService(testConfig(), repo, []sources.Source{src}, nil, nil, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	batch := sourcedBatch("Apple", base, 0.2)
	batch[0].Mention.Content = "nothing to do with the brand at all"
	src.push(batch)
	runCycles(t, svc, base, 1)

	fresh, _, err := repo.FetchNew(ctx, "Apple", 0)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestService_InfluencersAndBenchmarksUpdatePerCycle(t *testing.T) {
	repo := repository.NewMemoryRepository()
	src := &scriptedSource{}
	svc := NewService(testConfig(), repo, []sources.Source{src}, nil, nil, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	src.push(sourcedBatch("Apple", base, calmCompounds()...))
	runCycles(t, svc, base, 1)

	influencers, err := repo.Influencers(ctx, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, influencers)
	for _, inf := range influencers {
		assert.Equal(t, "scripted", inf.Platform)
		assert.GreaterOrEqual(t, inf.ImpactScore, 0.0)
		assert.LessOrEqual(t, inf.ImpactScore, 1.0)
	}

	metrics, err := repo.CompetitiveMetrics(ctx, "Apple")
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "Samsung", metrics[0].Competitor)
	assert.Nil(t, metrics[0].SentimentRatio, "competitor has no mentions, ratio stays undefined")
	assert.Equal(t, 5, metrics[0].MentionCount)
}
