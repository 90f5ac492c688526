package schedule

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Handler is a job body. It is invoked to completion by the tick loop;
// there is no timeout or cancellation once a run begins.
type Handler func() error

const defaultTickEvery = time.Minute

type Config struct {
	// TickEvery is the scheduling resolution floor. A job whose cadence is
	// finer than this still fires at most once per tick. Default 60s.
	TickEvery time.Duration
}

type job struct {
	name      string
	cadence   Cadence
	handler   Handler
	nextRunAt time.Time
}

func (j *job) displayName() string {
	if j.name == "" {
		return "unnamed"
	}
	return j.name
}

// Scheduler owns the job registry and the tick loop. Construct one at
// bootstrap and pass it by reference to anything that registers jobs.
type Scheduler struct {
	mu   sync.Mutex
	jobs []*job

	// ticking guards against overlapping passes: a tick that finds the
	// previous one still running skips entirely, no backlog accumulates.
	ticking atomic.Bool

	cfg Config
	log zerolog.Logger
	now func() time.Time

	runner *cron.Cron
}

func New(cfg Config, log zerolog.Logger) *Scheduler {
	if cfg.TickEvery <= 0 {
		cfg.TickEvery = defaultTickEvery
	}
	return &Scheduler{cfg: cfg, log: log, now: time.Now}
}

// Register adds a job. A non-empty name is an upsert key: an existing job
// with the same name is silently replaced (the new cadence and handler
// win) and the replacement moves to the end of registration order.
// Unnamed jobs always append and are never deduplicated.
//
// The first run instant is computed immediately from the current time.
func (s *Scheduler) Register(name string, c Cadence, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name != "" {
		for i, j := range s.jobs {
			if j.name == name {
				s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
				break
			}
		}
	}
	next := c.Next(s.now())
	s.jobs = append(s.jobs, &job{name: name, cadence: c, handler: h, nextRunAt: next})
	s.log.Debug().Str("job", name).Stringer("cadence", c).Time("next_run", next).Msg("job registered")
}

// Start launches the tick driver: a cron runner with a single @every entry
// at the configured tick interval, plus one immediate pass so overdue work
// is picked up right after boot. Start is idempotent.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner != nil {
		return nil
	}
	runner := cron.New()
	if _, err := runner.AddFunc(fmt.Sprintf("@every %s", s.cfg.TickEvery), s.Tick); err != nil {
		return fmt.Errorf("schedule: tick entry: %w", err)
	}
	s.runner = runner
	runner.Start()
	go s.Tick()
	s.log.Info().Dur("tick_every", s.cfg.TickEvery).Msg("scheduler started")
	return nil
}

// Stop halts the tick driver and waits for an in-flight tick it started
// to return. Registrations are kept in memory but the driver is meant to
// live for the whole process: started once at bootstrap, stopped once at
// shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	runner := s.runner
	s.runner = nil
	s.mu.Unlock()
	if runner == nil {
		return
	}
	<-runner.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Tick runs one scheduling pass: select jobs due at the current instant,
// order them earliest-due first (ties keep registration order), and run
// them sequentially. If the previous pass is still running the call
// returns immediately without executing anything.
func (s *Scheduler) Tick() {
	if !s.ticking.CompareAndSwap(false, true) {
		s.log.Debug().Msg("tick skipped, previous pass still running")
		return
	}
	defer s.ticking.Store(false)

	now := s.now()
	s.mu.Lock()
	due := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if !j.nextRunAt.After(now) {
			due = append(due, j)
		}
	}
	s.mu.Unlock()
	if len(due) == 0 {
		return
	}
	sort.SliceStable(due, func(i, k int) bool { return due[i].nextRunAt.Before(due[k].nextRunAt) })

	for _, j := range due {
		start := s.now()
		err := runHandler(j.handler)
		if err != nil {
			s.log.Warn().Err(err).Str("job", j.displayName()).Dur("dur", s.now().Sub(start)).Msg("scheduled job failed")
		} else {
			s.log.Debug().Str("job", j.displayName()).Dur("dur", s.now().Sub(start)).Msg("scheduled job ok")
		}

		// Recompute from the current instant, not the due instant: a job
		// that ran long or failed must not land in a tight retry loop.
		next := j.cadence.Next(s.now())
		s.mu.Lock()
		j.nextRunAt = next
		s.mu.Unlock()
	}
}

// runHandler confines a panicking job the same way an erroring one is:
// logged, never allowed to abort the rest of the tick.
func runHandler(h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h()
}
