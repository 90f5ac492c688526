package mailqueue

import (
	"context"
	"time"
)

// Store is the persistence contract for the queue. Claim must be an
// atomic conditional transition: the write succeeds only if the item's
// status is still eligible at the moment of the write. Implementations
// must never translate it into a read-then-write.
type Store interface {
	// Enqueue creates a PENDING item with attempts=0 and returns it.
	Enqueue(ctx context.Context, in EnqueueInput) (Item, error)

	// SelectBatch returns up to limit items with status in
	// {PENDING, FAILED} and attempts < maxAttempts, oldest first.
	SelectBatch(ctx context.Context, limit, maxAttempts int) ([]Item, error)

	// Claim moves the item to SENDING, increments attempts and clears
	// last_error, conditioned on status still being PENDING or FAILED.
	// Returns false when another processor won the race.
	Claim(ctx context.Context, id string) (bool, error)

	// MarkSent resolves a claimed item as delivered.
	MarkSent(ctx context.Context, id string) error

	// MarkFailed resolves a claimed item as failed, recording the error.
	MarkFailed(ctx context.Context, id, sendErr string) error

	// Get fetches a single item for inspection.
	Get(ctx context.Context, id string) (Item, bool, error)

	// Counts returns per-status totals.
	Counts(ctx context.Context) (map[Status]int, error)

	Close() error
}

// StoreConfig configures the sqlite backing file.
type StoreConfig struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}
