// Package app wires the taskdeck async core: config, logging, the queue
// store, the delivery transport, and the scheduler.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"taskdeck/internal/config"
	"taskdeck/internal/logging"
	"taskdeck/internal/mailer"
	"taskdeck/internal/mailqueue"
	"taskdeck/internal/notify"
	"taskdeck/internal/schedule"
)

// emailQueueJob names the recurring job draining the mail queue. The name
// is the upsert key, so re-applying config replaces rather than stacks it.
const emailQueueJob = "email-queue"

type App struct {
	cfgm     *config.Manager
	log      zerolog.Logger
	store    mailqueue.Store
	proc     *mailqueue.Processor
	sched    *schedule.Scheduler
	notifier *notify.Notifier

	watchCancel context.CancelFunc
	watchDone   chan struct{}
	sub         chan *config.Config
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Console: cfg.Logging.Console})
	cfgm.SetLogger(log.With().Str("comp", "config").Logger())
	// The store is opened once at bootstrap; a reload that moves
	// storage.path cannot take effect, so reject it up front.
	bootPath := cfg.Storage.Path
	cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		if c.Storage.Path != bootPath {
			return fmt.Errorf("storage.path cannot change at runtime (%q -> %q)", bootPath, c.Storage.Path)
		}
		return nil
	})

	busyTimeout, err := cfg.Storage.BusyTimeoutDuration()
	if err != nil {
		return nil, err
	}
	store, err := mailqueue.Open(mailqueue.StoreConfig{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With().Str("comp", "store").Logger())
	if err != nil {
		return nil, err
	}

	proc := mailqueue.NewProcessor(store, log.With().Str("comp", "queue").Logger())

	tickEvery, err := cfg.Scheduler.TickEveryDuration()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	sched := schedule.New(schedule.Config{TickEvery: tickEvery}, log.With().Str("comp", "scheduler").Logger())

	a := &App{
		cfgm:     cfgm,
		log:      log.With().Str("comp", "app").Logger(),
		store:    store,
		proc:     proc,
		sched:    sched,
		notifier: notify.NewNotifier(store, cfg.SiteURL, log.With().Str("comp", "notify").Logger()),
	}
	a.applyConfig(cfg)
	return a, nil
}

// Notifier is the producer surface handed to domain handlers.
func (a *App) Notifier() *notify.Notifier { return a.notifier }

// Store exposes the queue for producer-side inspection (Get, Counts).
func (a *App) Store() mailqueue.Store { return a.store }

// Scheduler exposes the registry so bootstrap code can register further
// recurring jobs.
func (a *App) Scheduler() *schedule.Scheduler { return a.sched }

func (a *App) Start(ctx context.Context) error {
	if err := a.sched.Start(); err != nil {
		return err
	}

	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.watchDone = make(chan struct{})
	a.sub = a.cfgm.Subscribe(1)
	go func() { _ = a.cfgm.Watch(wctx) }()
	go func() {
		defer close(a.watchDone)
		for {
			select {
			case <-wctx.Done():
				return
			case cfg, ok := <-a.sub:
				if !ok || cfg == nil {
					return
				}
				a.applyConfig(cfg)
			}
		}
	}()

	a.log.Info().Msg("taskdeck core started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
		<-a.watchDone
		a.cfgm.Unsubscribe(a.sub)
		a.watchCancel = nil
	}
	a.sched.Stop()
	err := a.store.Close()
	a.log.Info().Msg("taskdeck core stopped")
	return err
}

// applyConfig maps config onto the processor and (re-)registers the queue
// drain job. Called at bootstrap and again on every config reload; the
// job registration relies on upsert-by-name.
func (a *App) applyConfig(cfg *config.Config) {
	a.proc.Apply(buildTransport(cfg, a.log), mailqueue.ProcessorConfig{
		BatchSize:   cfg.Queue.BatchSizeOrDefault(),
		MaxAttempts: cfg.Queue.MaxAttemptsOrDefault(),
	})
	a.sched.Register(emailQueueJob, schedule.EveryMinutes(cfg.Queue.ProcessEveryMinutesOrDefault()), a.drainQueue)
}

func (a *App) drainQueue() error {
	return a.proc.ProcessBatch(context.Background())
}

// buildTransport returns nil when the mailer section is incomplete: the
// queue keeps accepting items and processing becomes a no-op, never an
// error.
func buildTransport(cfg *config.Config, log zerolog.Logger) mailqueue.Transport {
	if !cfg.Mailer.Enabled() {
		log.Info().Msg("mailer not configured; queue processing disabled")
		return nil
	}
	m, err := mailer.New(mailer.Config{
		Host:       cfg.Mailer.Host,
		Port:       cfg.Mailer.Port,
		Secure:     cfg.Mailer.Secure,
		Username:   cfg.Mailer.Username,
		Password:   cfg.Mailer.Password,
		From:       cfg.Mailer.From,
		RatePerSec: cfg.Mailer.RatePerSec,
	}, log.With().Str("comp", "mailer").Logger())
	if err != nil {
		log.Warn().Err(err).Msg("mailer setup failed; queue processing disabled")
		return nil
	}
	return m
}
