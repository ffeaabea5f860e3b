package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/repwatch/repwatch/internal/config"
)

// Runner is the subset of the aggregation service the scheduler drives.
type Runner interface {
	Run() error
	RunNegativeSweep() error
}

// Service schedules the periodic monitoring run plus a higher-frequency
// negative sentiment sweep between runs.
type Service struct {
	config *config.Config
	runner Runner
	cron   *cron.Cron
}

// NewService creates a scheduler in the configured time zone, falling back
// to UTC when the zone cannot be loaded.
func NewService(cfg *config.Config, runner Runner) *Service {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		logrus.Warnf("unknown time zone %q, falling back to UTC", cfg.TimeZone)
		location = time.UTC
	}

	return &Service{
		config: cfg,
		runner: runner,
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(location)),
	}
}

// Start registers the schedules and begins running them.
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.ReportSchedule {
	case "daily":
		// Run daily at 9 AM
		cronExpression = "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM
		cronExpression = "0 0 9 * * MON"
	default:
		cronExpression = "0 0 9 * * *"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled monitoring run")
		if err := s.runner.Run(); err != nil {
			logrus.Errorf("Scheduled monitoring run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	// Negative sentiment sweep every 4 hours so reputation problems do not
	// wait for the next report.
	_, err = s.cron.AddFunc("0 0 */4 * * *", func() {
		logrus.Info("Starting negative sentiment sweep (4-hour frequency)")
		if err := s.runner.RunNegativeSweep(); err != nil {
			logrus.Errorf("Negative sentiment sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s schedule (plus negative sweeps every 4 hours)", s.config.ReportSchedule)
	return nil
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
