package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"expensed/internal/core"
	"expensed/internal/log"
	"expensed/internal/services"
)

type blockingSweeper struct {
	calls   atomic.Int32
	release chan struct{}
	entered chan struct{}
}

func (s *blockingSweeper) RunSweep(context.Context, core.Date) services.SweepReport {
	n := s.calls.Add(1)
	if s.entered != nil && n == 1 {
		close(s.entered)
	}
	if s.release != nil {
		<-s.release
	}
	return services.SweepReport{}
}

func testLogger() *log.Logger {
	return log.New(slog.LevelError, log.ComponentScheduler)
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	sweeper := &blockingSweeper{
		release: make(chan struct{}),
		entered: make(chan struct{}),
	}
	s := New(sweeper, time.Hour, testLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.TriggerNow(context.Background())
	}()
	<-sweeper.entered

	// A second trigger while the first sweep holds the lock must be a
	// no-op rather than queueing behind it.
	s.TriggerNow(context.Background())
	if got := sweeper.calls.Load(); got != 1 {
		t.Fatalf("sweep calls = %d, want 1 while first sweep in flight", got)
	}

	close(sweeper.release)
	wg.Wait()

	s.TriggerNow(context.Background())
	if got := sweeper.calls.Load(); got != 2 {
		t.Fatalf("sweep calls = %d, want 2 after first sweep finished", got)
	}
}

func TestStartRunsInitialSweep(t *testing.T) {
	sweeper := &blockingSweeper{}
	s := New(sweeper, time.Hour, testLogger())

	s.Start(context.Background())
	defer s.Stop()

	if got := sweeper.calls.Load(); got != 1 {
		t.Fatalf("sweep calls = %d, want 1 immediately after Start", got)
	}
}

func TestStopWaitsForInFlightSweep(t *testing.T) {
	sweeper := &blockingSweeper{
		release: make(chan struct{}),
		entered: make(chan struct{}),
	}
	s := New(sweeper, time.Hour, testLogger())

	go s.TriggerNow(context.Background())
	<-sweeper.entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a sweep was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(sweeper.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}
}

type ctxWatchingSweeper struct {
	entered chan struct{}
	release chan struct{}
	ctxErr  error
}

func (s *ctxWatchingSweeper) RunSweep(ctx context.Context, _ core.Date) services.SweepReport {
	close(s.entered)
	<-s.release
	s.ctxErr = ctx.Err()
	return services.SweepReport{}
}

func TestStopDoesNotCancelInFlightSweep(t *testing.T) {
	sweeper := &ctxWatchingSweeper{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(sweeper, time.Hour, testLogger())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()
	<-sweeper.entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	// Give Stop time to fire its cancel, then let the sweep observe its
	// context. A sweep mid-rule must see a live context so the current
	// store transaction commits instead of rolling back.
	time.Sleep(50 * time.Millisecond)
	close(sweeper.release)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}
	<-done

	if sweeper.ctxErr != nil {
		t.Fatalf("in-flight sweep context error = %v, want nil after Stop", sweeper.ctxErr)
	}
}

func TestSweepUsesInjectedClock(t *testing.T) {
	sweeper := &recordingSweeper{}
	s := New(sweeper, time.Hour, testLogger())
	s.now = func() time.Time {
		return time.Date(2024, 3, 15, 23, 30, 0, 0, time.FixedZone("CET", 3600))
	}

	s.TriggerNow(context.Background())

	// 23:30 CET is 22:30 UTC, still March 15 in UTC terms.
	want := core.NewDate(2024, 3, 15)
	if !sweeper.asOf.Equal(want.Time) {
		t.Fatalf("asOf = %s, want %s", sweeper.asOf, want)
	}
}

type recordingSweeper struct {
	asOf core.Date
}

func (s *recordingSweeper) RunSweep(_ context.Context, asOf core.Date) services.SweepReport {
	s.asOf = asOf
	return services.SweepReport{}
}
