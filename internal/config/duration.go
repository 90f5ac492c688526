package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration settings arrive as free-form strings ("2s", "1m30s") so
// operators are not tied to a single unit. Exactly two fields carry
// them; each gets a typed accessor instead of a generic parse helper.

// DefaultTickEvery is the scheduling resolution when scheduler.tick_every
// is unset.
const DefaultTickEvery = time.Minute

// BusyTimeoutDuration parses storage.busy_timeout. Empty means zero,
// which leaves the sqlite busy_timeout pragma alone.
func (c StorageConfig) BusyTimeoutDuration() (time.Duration, error) {
	return parseDuration("storage.busy_timeout", c.BusyTimeout)
}

// TickEveryDuration parses scheduler.tick_every, falling back to
// DefaultTickEvery when the field is unset. The result is always
// strictly positive: a zero tick interval would spin the scheduler.
func (c SchedulerConfig) TickEveryDuration() (time.Duration, error) {
	d, err := parseDuration("scheduler.tick_every", c.TickEvery)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return DefaultTickEvery, nil
	}
	return d, nil
}

func parseDuration(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
