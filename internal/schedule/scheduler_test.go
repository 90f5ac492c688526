package schedule

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// newTestScheduler injects a fake clock. All tests here read and advance
// the clock from the goroutine that drives Tick, so no locking is needed.
func newTestScheduler(base time.Time) (*Scheduler, *time.Time) {
	s := New(Config{}, zerolog.Nop())
	now := base
	s.now = func() time.Time { return now }
	return s, &now
}

func advance(now *time.Time, d time.Duration) { *now = now.Add(d) }

func TestRegisterUpsertByName(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	s, now := newTestScheduler(base)

	var first, second atomic.Int32
	s.Register("email-queue", EveryMinutes(5), func() error { first.Add(1); return nil })
	s.Register("email-queue", EveryMinutes(1), func() error { second.Add(1); return nil })

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 registration after upsert, got %d", len(snap))
	}
	if snap[0].Cadence != EveryMinutes(1).String() {
		t.Fatalf("expected the latest cadence to win, got %q", snap[0].Cadence)
	}

	advance(now, 2*time.Minute)
	s.Tick()
	if first.Load() != 0 {
		t.Fatalf("replaced handler ran %d times", first.Load())
	}
	if second.Load() != 1 {
		t.Fatalf("active handler ran %d times, want 1", second.Load())
	}
}

func TestUnnamedJobsAccumulate(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(time.Now())
	s.Register("", EveryMinutes(1), func() error { return nil })
	s.Register("", EveryMinutes(1), func() error { return nil })
	if got := len(s.Snapshot()); got != 2 {
		t.Fatalf("expected 2 unnamed registrations, got %d", got)
	}
}

func TestTickSingleFlight(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	s, now := newTestScheduler(base)

	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32
	s.Register("slow", EveryMinutes(1), func() error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	})

	advance(now, 2*time.Minute)
	done := make(chan struct{})
	go func() {
		s.Tick()
		close(done)
	}()
	<-started

	// Overlapping pass: must perform zero executions, not queue one.
	s.Tick()
	if got := runs.Load(); got != 1 {
		t.Fatalf("overlapping tick executed jobs: runs = %d, want 1", got)
	}

	close(release)
	<-done
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d after first pass, want 1", got)
	}
}

func TestTickRunsDueJobsEarliestFirst(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	s, now := newTestScheduler(base)

	var order []string
	var mu sync.Mutex
	record := func(name string) Handler {
		return func() error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	// "late" registers first but is due later than "early".
	s.Register("late", EveryMinutes(2), record("late"))
	s.Register("early", EveryMinutes(1), record("early"))
	s.Register("future", EveryMinutes(30), record("future"))

	advance(now, 3*time.Minute)
	s.Tick()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Fatalf("execution order = %v, want [early late]", order)
	}
}

func TestTickIsolatesFailures(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	s, now := newTestScheduler(base)

	var ran atomic.Int32
	s.Register("boom", EveryMinutes(1), func() error { panic("boom") })
	s.Register("err", EveryMinutes(1), func() error { return errors.New("nope") })
	s.Register("ok", EveryMinutes(1), func() error { ran.Add(1); return nil })

	advance(now, 2*time.Minute)
	s.Tick()

	if ran.Load() != 1 {
		t.Fatal("job after a failing one did not run")
	}
	// Every executed job, failed or not, gets a fresh nextRunAt strictly
	// ahead of the current instant.
	for _, info := range s.Snapshot() {
		if !info.NextRun.After(*now) {
			t.Fatalf("job %s nextRun %v not after now %v", info.Name, info.NextRun, *now)
		}
	}
}

func TestTickRecomputesFromCurrentInstant(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	s, now := newTestScheduler(base)

	s.Register("job", EveryMinutes(5), func() error {
		// Simulate a long run: the clock moves while the handler executes.
		advance(now, 10*time.Minute)
		return nil
	})

	advance(now, 6*time.Minute)
	s.Tick()

	snap := s.Snapshot()
	want := now.Add(5 * time.Minute)
	if !snap[0].NextRun.Equal(want) {
		t.Fatalf("nextRun = %v, want %v (current instant + cadence)", snap[0].NextRun, want)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	s := New(Config{TickEvery: time.Hour}, zerolog.Nop())
	fired := make(chan struct{}, 1)
	s.Register("boot", EveryMinutes(1), func() error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	})
	// Job is not due yet, but Start must run an immediate pass without
	// executing it and must be idempotent.
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	s.Stop()
	s.Stop()
	select {
	case <-fired:
		t.Fatal("job fired before its due instant")
	default:
	}
}
