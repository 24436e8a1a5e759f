// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	reminderservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/reminder/service"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	reminders *reminderservice.Service
	logger    *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(reminders *reminderservice.Service, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		reminders: reminders,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Reminder sweep: runs daily at 8:00 AM
	_, err := s.cron.AddFunc("0 8 * * *", s.sweepReminders)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the reminder sweep (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.sweepReminders()
}

// sweepReminders mails every reminder whose due date has arrived.
func (s *Scheduler) sweepReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.logger.Info("starting daily reminder sweep")

	if err := s.reminders.Sweep(ctx); err != nil {
		s.logger.Error("reminder sweep failed", slog.Any("error", err))
	}
}
