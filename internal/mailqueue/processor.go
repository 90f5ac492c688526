package mailqueue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Transport delivers one email. Implementations live outside this
// package; the processor only needs the contract.
type Transport interface {
	Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error
}

type ProcessorConfig struct {
	BatchSize   int
	MaxAttempts int
}

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 5
)

func (c ProcessorConfig) withDefaults() ProcessorConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	return c
}

// Processor drains eligible queue items through the transport. Multiple
// processors may run against the same store; the store's conditional
// claim keeps each item single-owner per attempt.
type Processor struct {
	store Store
	log   zerolog.Logger

	// mu guards transport/cfg, which are swappable at runtime via Apply
	// (config hot reload).
	mu        sync.Mutex
	transport Transport
	cfg       ProcessorConfig
}

func NewProcessor(store Store, log zerolog.Logger) *Processor {
	return &Processor{store: store, log: log, cfg: ProcessorConfig{}.withDefaults()}
}

// Apply swaps the transport and knobs. A nil transport turns processing
// into a no-op without erroring; intentionally asymmetric with cadence
// validation, which fails fast at registration.
func (p *Processor) Apply(t Transport, cfg ProcessorConfig) {
	p.mu.Lock()
	p.transport = t
	p.cfg = cfg.withDefaults()
	p.mu.Unlock()
}

// ProcessBatch claims and resolves up to one batch of eligible items.
// Delivery failures are recorded on the item and never propagate to the
// caller; the returned error reflects store access problems only.
func (p *Processor) ProcessBatch(ctx context.Context) error {
	p.mu.Lock()
	transport := p.transport
	cfg := p.cfg
	p.mu.Unlock()

	if transport == nil {
		return nil
	}

	items, err := p.store.SelectBatch(ctx, cfg.BatchSize, cfg.MaxAttempts)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	var sent, failed, lost int
	for _, item := range items {
		claimed, err := p.store.Claim(ctx, item.ID)
		if err != nil {
			return err
		}
		if !claimed {
			// Another processor won the race; not ours to touch.
			lost++
			continue
		}

		if sendErr := transport.Send(ctx, item.Recipient, item.Subject, item.HTMLBody, item.TextBody); sendErr != nil {
			failed++
			p.log.Warn().Err(sendErr).Str("item", item.ID).Str("recipient", item.Recipient).
				Int("attempt", item.Attempts+1).Msg("delivery failed")
			if err := p.store.MarkFailed(ctx, item.ID, sendErr.Error()); err != nil {
				return err
			}
			continue
		}

		sent++
		if err := p.store.MarkSent(ctx, item.ID); err != nil {
			return err
		}
	}

	p.log.Info().Int("sent", sent).Int("failed", failed).Int("lost_race", lost).Msg("queue batch processed")
	return nil
}
