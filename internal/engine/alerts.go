package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AlertStore is the slice of the repository the lifecycle manager needs.
type AlertStore interface {
	ActiveAlerts(ctx context.Context, brand string) ([]*models.CrisisAlert, error)
	CreateAlert(ctx context.Context, alert *models.CrisisAlert) error
	UpdateAlert(ctx context.Context, alert *models.CrisisAlert) error
}

// AlertChange describes what the lifecycle manager did for one brand in one
// cycle. At most one of Opened, Escalated and Resolved is set.
type AlertChange struct {
	Alert     *models.CrisisAlert
	Opened    bool
	Escalated bool
	Resolved  bool
}

// AlertLifecycleManager owns the per-brand alert state machine: at most one
// non-resolved alert exists per brand at any instant. Its read-modify-write
// against the store is serialized per brand so overlapping evaluation cycles
// cannot race the "check active alert, then create/update" sequence.
type AlertLifecycleManager struct {
	store                AlertStore
	alertThreshold       float64
	quietCyclesToResolve int
	now                  func() time.Time

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	quiet     map[string]int
	quietSeen map[string]time.Time
}

// NewAlertLifecycleManager creates a manager that opens alerts at the given
// severity threshold and auto-resolves after quietCycles consecutive
// below-threshold windows.
func NewAlertLifecycleManager(store AlertStore, alertThreshold float64, quietCycles int) *AlertLifecycleManager {
	return &AlertLifecycleManager{
		store:                store,
		alertThreshold:       alertThreshold,
		quietCyclesToResolve: quietCycles,
		now:                  time.Now,
		locks:                make(map[string]*sync.Mutex),
		quiet:                make(map[string]int),
		quietSeen:            make(map[string]time.Time),
	}
}

// SetClock overrides the time source, for tests and offline simulation.
func (m *AlertLifecycleManager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *AlertLifecycleManager) brandLock(brand string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.locks[brand]
	if l == nil {
		l = &sync.Mutex{}
		m.locks[brand] = l
	}
	return l
}

// Evaluate applies one cycle's verdict to a brand's alert state and returns
// the resulting change, or nil when nothing happened. haveVerdict=false
// (insufficient history or a silent window) holds the state as-is: it is
// neither evidence of crisis nor evidence of calm, so the quiet counter does
// not advance.
func (m *AlertLifecycleManager) Evaluate(ctx context.Context, brand string, verdict Verdict, haveVerdict bool) (*AlertChange, error) {
	lock := m.brandLock(brand)
	lock.Lock()
	defer lock.Unlock()

	active, err := m.loadActive(ctx, brand)
	if err != nil {
		return nil, err
	}

	if !haveVerdict {
		return nil, nil
	}

	if verdict.Crisis {
		m.setQuiet(brand, 0)
		if active == nil {
			return m.open(ctx, brand, verdict)
		}
		return m.escalate(ctx, active, verdict)
	}

	if active == nil {
		m.setQuiet(brand, 0)
		return nil, nil
	}

	quiet := m.incQuiet(brand, verdict.WindowStart)
	if quiet < m.quietCyclesToResolve {
		logrus.Debugf("Alert %s for %s holding: %d/%d quiet windows",
			active.ID, brand, quiet, m.quietCyclesToResolve)
		return nil, nil
	}

	return m.resolve(ctx, active, quiet)
}

// loadActive fetches the brand's active alert and surfaces duplicates loudly:
// more than one non-resolved alert means the serialization upstream failed.
func (m *AlertLifecycleManager) loadActive(ctx context.Context, brand string) (*models.CrisisAlert, error) {
	alerts, err := m.store.ActiveAlerts(ctx, brand)
	if err != nil {
		return nil, fmt.Errorf("loading active alert for %s: %w", brand, err)
	}

	switch len(alerts) {
	case 0:
		return nil, nil
	case 1:
		return alerts[0], nil
	default:
		return nil, fmt.Errorf("%w: %d active alerts for brand %s", ErrInvariantViolation, len(alerts), brand)
	}
}

func (m *AlertLifecycleManager) open(ctx context.Context, brand string, verdict Verdict) (*AlertChange, error) {
	alert := &models.CrisisAlert{
		ID:          uuid.NewString(),
		Brand:       brand,
		Description: verdict.Description,
		Severity:    verdict.Severity,
		DetectedAt:  m.now(),
		Status:      models.AlertStatusNew,
	}

	if err := m.store.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("creating alert for %s: %w", brand, err)
	}

	logrus.Warnf("Crisis alert opened for %s (severity %.2f): %s", brand, alert.Severity, alert.Description)
	return &AlertChange{Alert: alert, Opened: true}, nil
}

// escalate keeps severity at the maximum observed since creation and appends
// newly seen causes to the description. Status is untouched: promotion to
// investigating is an operator action.
func (m *AlertLifecycleManager) escalate(ctx context.Context, alert *models.CrisisAlert, verdict Verdict) (*AlertChange, error) {
	changed := verdict.Severity > alert.Severity
	alert.RaiseSeverity(verdict.Severity)

	if verdict.Description != "" && !strings.Contains(alert.Description, verdict.Description) {
		if alert.Description != "" {
			alert.Description += "; " + verdict.Description
		} else {
			alert.Description = verdict.Description
		}
		changed = true
	}

	if !changed {
		return nil, nil
	}

	if err := m.store.UpdateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("updating alert %s: %w", alert.ID, err)
	}

	logrus.Infof("Crisis alert %s for %s escalated to severity %.2f", alert.ID, alert.Brand, alert.Severity)
	return &AlertChange{Alert: alert, Escalated: true}, nil
}

func (m *AlertLifecycleManager) resolve(ctx context.Context, alert *models.CrisisAlert, quiet int) (*AlertChange, error) {
	notes := fmt.Sprintf("auto-resolved after %d consecutive quiet windows", quiet)
	if !alert.Resolve(m.now(), notes) {
		return nil, fmt.Errorf("%w: alert %s for %s cannot transition from %s to resolved",
			ErrInvariantViolation, alert.ID, alert.Brand, alert.Status)
	}

	if err := m.store.UpdateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("resolving alert %s: %w", alert.ID, err)
	}

	m.setQuiet(alert.Brand, 0)
	logrus.Infof("Crisis alert %s for %s resolved: %s", alert.ID, alert.Brand, notes)
	return &AlertChange{Alert: alert, Resolved: true}, nil
}

func (m *AlertLifecycleManager) setQuiet(brand string, v int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quiet[brand] = v
}

// incQuiet counts distinct quiet windows: re-evaluating a window that was
// already counted (a manual trigger or an overlapping cycle replaying the
// same bucket) leaves the counter where it is.
func (m *AlertLifecycleManager) incQuiet(brand string, windowStart time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !windowStart.After(m.quietSeen[brand]) {
		return m.quiet[brand]
	}
	m.quietSeen[brand] = windowStart
	m.quiet[brand]++
	return m.quiet[brand]
}
