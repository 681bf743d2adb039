package scheduler

import (
	"context"
	"sync"
	"time"

	"expensed/internal/core"
	"expensed/internal/log"
	"expensed/internal/services"
)

// Sweeper runs a materialization pass over all active recurring rules.
type Sweeper interface {
	RunSweep(ctx context.Context, asOf core.Date) services.SweepReport
}

// Scheduler drives the sweeper on a fixed interval. A tick that arrives
// while a sweep is still running is skipped, not queued.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time

	running sync.Mutex // held for the duration of a sweep
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func New(sweeper Sweeper, interval time.Duration, logger *log.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start launches the ticker loop and runs one sweep immediately so a
// worker that was down over a due date catches up without waiting a
// full interval.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("Sweep scheduler started", "interval", s.interval.String())
	s.runOnce(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

// Stop cancels the ticker loop and blocks until any in-flight sweep
// finishes. The sweep itself is never cancelled.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.running.Lock()
	s.running.Unlock()
	s.logger.Info("Sweep scheduler stopped")
}

// TriggerNow runs a sweep outside the ticker cadence, subject to the
// same single-flight rule.
func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.runOnce(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn("Sweep still in progress, skipping this tick")
		return
	}
	defer s.running.Unlock()

	asOf := core.DateOf(s.now().UTC())
	start := s.now()
	// The sweep must not be aborted mid-rule: Stop cancels the ticker
	// loop and then waits on the running lock, so a sweep already in
	// flight runs to completion under its own context.
	report := s.sweeper.RunSweep(context.WithoutCancel(ctx), asOf)

	attrs := []any{
		log.FieldSweepAsOf, asOf.String(),
		"created", report.Created,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
		"duration", s.now().Sub(start).String(),
	}
	if len(report.Errors) > 0 {
		s.logger.Error("Sweep finished with failures", attrs...)
		for _, re := range report.Errors {
			s.logger.Error("Rule sweep failed", log.FieldRuleID, re.RuleID, "error", re.Err)
		}
		return
	}
	s.logger.Info("Sweep complete", attrs...)
}
