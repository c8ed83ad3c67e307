package scheduler

import (
	"context"
	"fmt"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/config"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/monitoring"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service triggers one evaluation cycle per configured interval.
type Service struct {
	config            *config.Config
	monitoringService *monitoring.Service
	cron              *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, monitoringService *monitoring.Service) *Service {
	return &Service{
		config:            cfg,
		monitoringService: monitoringService,
		cron:              cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled evaluation cycles
func (s *Service) Start() error {
	spec := fmt.Sprintf("@every %s", s.config.EvalInterval)

	_, err := s.cron.AddFunc(spec, func() {
		logrus.Info("Starting scheduled evaluation cycle")
		if err := s.monitoringService.RunCycle(context.Background()); err != nil {
			logrus.Errorf("Scheduled evaluation cycle failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %v evaluation interval", s.config.EvalInterval)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
