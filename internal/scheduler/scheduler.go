// Package scheduler wires up the cron job that periodically re-runs the
// full sync for the configured employers.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"jobmate/hh-collector/internal/logging"
	"jobmate/hh-collector/internal/model"
)

// Runner performs one sync cycle.
type Runner interface {
	Run(ctx context.Context, employers []model.Employer) (model.SyncSummary, error)
}

// Scheduler wraps robfig/cron and manages the sync loop.
type Scheduler struct {
	cron      *cron.Cron
	runner    Runner
	employers []model.Employer
	log       *logging.Logger
	spec      string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours. A tick that
// arrives while the previous sync is still running is skipped.
func New(runner Runner, employers []model.Employer, intervalHours int, log *logging.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:    runner,
		employers: employers,
		log:       log.With("component", "scheduler"),
		spec:      fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Spec returns the cron expression the scheduler registers.
func (s *Scheduler) Spec() string { return s.spec }

// Start registers the job and starts the scheduler. It also runs one sync
// immediately, in the caller's goroutine, so the data is fresh before the
// first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.RunOnce(ctx)

	s.cron.Start()
	s.log.Info("Cron started", "spec", s.spec)
	return nil
}

// Stop halts the scheduler and waits for a running sync to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Cron stopped")
}

// RunOnce runs a single sync and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.log.Info("Sync cycle started", "employers", len(s.employers))

	summary, err := s.runner.Run(ctx, s.employers)
	if err != nil {
		s.log.Error("Sync cycle failed", "error", err)
		return
	}
	s.log.Info("Sync cycle complete", "inserted", summary.Inserted, "failed_employers", len(summary.FailedEmployers))
}
