// Package scheduler runs the periodic verification jobs
package scheduler

import (
	"context"
	"log/slog"
	"time"

	businessflow "github.com/amirphl/vetverify/business_flow"
	"github.com/amirphl/vetverify/config"
	"github.com/robfig/cron/v3"
)

// Reconciler repairs accounts whose stored status disagrees with the decision log
type Reconciler interface {
	ReconcileStatuses(ctx context.Context) (*businessflow.ReconcileReport, error)
}

// ReminderSender notifies professionals about documents that expire soon
type ReminderSender interface {
	SendExpiryReminders(ctx context.Context) (int, error)
}

// VerificationScheduler runs reconciliation and document reminders on cron specs
type VerificationScheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	reminders  ReminderSender
	cfg        config.SchedulerConfig
	logger     *slog.Logger
	jobTimeout time.Duration
}

func NewVerificationScheduler(reconciler Reconciler, reminders ReminderSender, cfg config.SchedulerConfig, logger *slog.Logger) *VerificationScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &VerificationScheduler{
		cron:       c,
		reconciler: reconciler,
		reminders:  reminders,
		cfg:        cfg,
		logger:     logger.With("component", "scheduler"),
		jobTimeout: 10 * time.Minute,
	}
}

// Start registers the jobs and starts the cron scheduler. The returned function stops it
// and waits for running jobs.
func (s *VerificationScheduler) Start(parent context.Context) (func(), error) {
	ctx, cancel := context.WithCancel(parent)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"reconcile statuses", s.cfg.ReconcileSpec, s.RunReconcile},
		{"document expiry reminders", s.cfg.DocumentReminderSpec, s.RunReminders},
	}
	for _, job := range jobs {
		if job.spec == "" {
			s.logger.Info("job disabled", "job", job.name)
			continue
		}
		run := job.run
		if _, err := s.cron.AddFunc(job.spec, func() { run(ctx) }); err != nil {
			cancel()
			return nil, err
		}
		s.logger.Info("scheduled job", "job", job.name, "schedule", job.spec)
	}

	s.cron.Start()

	return func() {
		cancel()
		<-s.cron.Stop().Done()
	}, nil
}

// RunReconcile runs one reconciliation pass
func (s *VerificationScheduler) RunReconcile(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
	defer cancel()

	start := time.Now()
	report, err := s.reconciler.ReconcileStatuses(ctx)
	if err != nil {
		s.logger.Error("reconcile statuses failed", "error", err)
		return
	}
	s.logger.Info("reconcile statuses finished",
		"checked", report.Checked,
		"repaired", len(report.Repaired),
		"duration", time.Since(start),
	)
}

// RunReminders sends one round of document expiry reminders
func (s *VerificationScheduler) RunReminders(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
	defer cancel()

	sent, err := s.reminders.SendExpiryReminders(ctx)
	if err != nil {
		s.logger.Error("document expiry reminders failed", "error", err, "sent", sent)
		return
	}
	s.logger.Info("document expiry reminders sent", "sent", sent)
}
