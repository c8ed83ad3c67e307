package notifications

import "github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"

// Notifier is invoked by the monitoring service on alert open and resolve
// transitions only; severity-only updates are never notified, to avoid
// notification storms.
type Notifier interface {
	AlertOpened(alert *models.CrisisAlert) error
	AlertResolved(alert *models.CrisisAlert) error
}
