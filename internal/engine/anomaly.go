package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
)

// epsilon guards the z-score division against near-zero variance.
const epsilon = 1e-6

// Cause labels for the factors that can push a window over its trigger.
const (
	CauseVolumeSpike     = "volume spike"
	CauseNegativitySpike = "negativity spike"
)

// Verdict is the anomaly scorer's judgment of one window against its
// baseline. Crisis is true only when Severity clears the alert threshold,
// which is the single admission gate into alerting.
type Verdict struct {
	Brand       string
	WindowStart time.Time
	WindowEnd   time.Time
	Severity    float64
	VolumeZ     float64
	NegativityZ float64
	Causes      []string
	Description string
	Crisis      bool
}

// AnomalyScorer turns standardized deviations from baseline into a bounded
// [0,1] severity. Only deviations above normal contribute: a drop in volume
// or negativity is not a crisis signal.
type AnomalyScorer struct {
	volumeWeight       float64
	negativityWeight   float64
	volumeTriggerZ     float64
	negativityTriggerZ float64
	alertThreshold     float64
}

// NewAnomalyScorer creates a scorer with the configured weights, per-factor
// trigger thresholds and severity admission gate.
func NewAnomalyScorer(volumeWeight, negativityWeight, volumeTriggerZ, negativityTriggerZ, alertThreshold float64) *AnomalyScorer {
	return &AnomalyScorer{
		volumeWeight:       volumeWeight,
		negativityWeight:   negativityWeight,
		volumeTriggerZ:     volumeTriggerZ,
		negativityTriggerZ: negativityTriggerZ,
		alertThreshold:     alertThreshold,
	}
}

// Score compares a window against its baseline. The second return value is
// false when no verdict can be produced: the baseline reported insufficient
// history, or the window itself carries no scored mentions.
func (s *AnomalyScorer) Score(stats models.WindowStats, baseline Baseline, haveBaseline bool) (Verdict, bool) {
	if !haveBaseline || !stats.HasData {
		return Verdict{}, false
	}

	v := Verdict{
		Brand:       stats.Brand,
		WindowStart: stats.Start,
		WindowEnd:   stats.End,
	}

	v.VolumeZ = (float64(stats.MentionCount) - baseline.MeanVolume) / max(baseline.StdVolume, epsilon)
	v.NegativityZ = (stats.NegativeFraction - baseline.MeanNegFraction) / max(baseline.StdNegFraction, epsilon)

	severity := s.volumeWeight*max(v.VolumeZ, 0) + s.negativityWeight*max(v.NegativityZ, 0)
	v.Severity = clamp(severity, 0, 1)

	var details []string
	if v.VolumeZ >= s.volumeTriggerZ {
		v.Causes = append(v.Causes, CauseVolumeSpike)
		details = append(details, fmt.Sprintf("%s: %d mentions vs baseline %.1f (z=%.1f)",
			CauseVolumeSpike, stats.MentionCount, baseline.MeanVolume, v.VolumeZ))
	}
	if v.NegativityZ >= s.negativityTriggerZ {
		v.Causes = append(v.Causes, CauseNegativitySpike)
		details = append(details, fmt.Sprintf("%s: negative fraction %.2f vs baseline %.2f (z=%.1f)",
			CauseNegativitySpike, stats.NegativeFraction, baseline.MeanNegFraction, v.NegativityZ))
	}
	v.Description = strings.Join(details, "; ")

	v.Crisis = v.Severity >= s.alertThreshold
	return v, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
