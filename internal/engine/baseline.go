package engine

import (
	"math"
	"sync"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
)

// Baseline is the derived "normal" reference for one brand: mean and standard
// deviation of window volume and negative fraction across the retained
// history.
type Baseline struct {
	MeanVolume      float64
	StdVolume       float64
	MeanNegFraction float64
	StdNegFraction  float64
	Samples         int
}

// brandHistory keeps the retained windows plus the one window currently under
// evaluation. The pending window joins the history only once a newer window
// arrives, so the event under test never contaminates its own baseline and a
// re-run of the same window never double-pushes.
type brandHistory struct {
	windows []models.WindowStats
	pending *models.WindowStats
}

// BaselineEstimator maintains, per brand, a rolling fixed-length history of
// past WindowStats. All access goes through the estimator's lock; callers
// additionally serialize whole-cycle evaluation per brand.
type BaselineEstimator struct {
	capacity   int
	minHistory int

	mu     sync.Mutex
	brands map[string]*brandHistory
	seeded map[string]bool
}

// NewBaselineEstimator creates an estimator that retains up to capacity
// windows per brand and refuses to estimate until minHistory windows exist.
func NewBaselineEstimator(capacity, minHistory int) *BaselineEstimator {
	return &BaselineEstimator{
		capacity:   capacity,
		minHistory: minHistory,
		brands:     make(map[string]*brandHistory),
		seeded:     make(map[string]bool),
	}
}

// Seeded reports whether a brand's history was already restored or observed.
func (e *BaselineEstimator) Seeded(brand string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seeded[brand]
}

// Restore loads previously persisted window history for a brand, oldest
// first. The most recent entry becomes the pending window, matching the state
// the estimator would have had if it had observed them live.
func (e *BaselineEstimator) Restore(brand string, history []models.WindowStats) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := &brandHistory{}
	if n := len(history); n > 0 {
		last := history[n-1]
		h.pending = &last
		retained := history[:n-1]
		if len(retained) > e.capacity {
			retained = retained[len(retained)-e.capacity:]
		}
		h.windows = append(h.windows, retained...)
	}

	e.brands[brand] = h
	e.seeded[brand] = true
}

// Observe records the window currently being evaluated. When the window start
// advances past the pending one, the pending window is pushed into the
// rolling history (evicting the oldest beyond capacity); observing the same
// window again simply replaces the pending copy.
func (e *BaselineEstimator) Observe(stats models.WindowStats) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.brands[stats.Brand]
	if h == nil {
		h = &brandHistory{}
		e.brands[stats.Brand] = h
	}
	e.seeded[stats.Brand] = true

	if h.pending != nil && stats.Start.After(h.pending.Start) {
		h.windows = append(h.windows, *h.pending)
		if len(h.windows) > e.capacity {
			h.windows = h.windows[len(h.windows)-e.capacity:]
		}
		h.pending = nil
	}

	copied := stats
	h.pending = &copied
}

// Estimate returns the baseline for a brand, excluding the pending window.
// The second return value is false while fewer than the configured minimum
// number of historical windows exist (the cold-start condition) or while no
// retained window carries sentiment data.
func (e *BaselineEstimator) Estimate(brand string) (Baseline, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.brands[brand]
	if h == nil || len(h.windows) < e.minHistory {
		return Baseline{}, false
	}

	// Every retained window is volume evidence: a silent window counts as
	// zero volume. Only windows with scored mentions contribute negativity
	// samples.
	volumes := make([]float64, 0, len(h.windows))
	var negFractions []float64
	for _, w := range h.windows {
		volumes = append(volumes, float64(w.MentionCount))
		if w.HasData {
			negFractions = append(negFractions, w.NegativeFraction)
		}
	}

	if len(negFractions) == 0 {
		return Baseline{}, false
	}

	b := Baseline{Samples: len(h.windows)}
	b.MeanVolume, b.StdVolume = meanStd(volumes)
	b.MeanNegFraction, b.StdNegFraction = meanStd(negFractions)
	return b, true
}

// History returns a copy of the retained windows plus the pending one, oldest
// first, for persistence and charting.
func (e *BaselineEstimator) History(brand string) []models.WindowStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.brands[brand]
	if h == nil {
		return nil
	}

	out := make([]models.WindowStats, 0, len(h.windows)+1)
	out = append(out, h.windows...)
	if h.pending != nil {
		out = append(out, *h.pending)
	}
	return out
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / n

	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	std = math.Sqrt(sqDiff / n)
	return mean, std
}
