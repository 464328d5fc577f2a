/**
 * @description
 * Cron scheduler setup for the periodic settlement jobs.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/shadea75/coachingmatch-sub000/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.OfferExpirySchedule, s.jobs.ProcessOfferExpiry); err != nil {
		s.logger.Error("failed to schedule offer expiry job", "error", err)
	} else {
		s.logger.Info("scheduled offer expiry job", "schedule", s.config.OfferExpirySchedule)
	}

	if _, err := s.cron.AddFunc(s.config.OfferReminderSchedule, s.jobs.ProcessExpiryReminders); err != nil {
		s.logger.Error("failed to schedule offer reminder job", "error", err)
	} else {
		s.logger.Info("scheduled offer reminder job", "schedule", s.config.OfferReminderSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.PayoutBatchSchedule, s.jobs.ProcessWeeklyPayouts); err != nil {
		s.logger.Error("failed to schedule weekly payout job", "error", err)
	} else {
		s.logger.Info("scheduled weekly payout job", "schedule", s.config.PayoutBatchSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
