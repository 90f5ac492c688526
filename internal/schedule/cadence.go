package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the cadence variants.
type Kind int

const (
	KindInterval Kind = iota
	KindHourly
	KindDaily
	KindWeekly
)

func (k Kind) String() string {
	switch k {
	case KindInterval:
		return "interval"
	case KindHourly:
		return "hourly"
	case KindDaily:
		return "daily"
	case KindWeekly:
		return "weekly"
	default:
		return "unknown"
	}
}

// weeklyDay is the weekday all weekly cadences fire on. Weekly schedules
// are not parameterized by weekday; see the note on Weekly().
const weeklyDay = time.Monday

// Cadence describes when a recurring job should next run. Values are
// immutable and validated at construction; a zero Cadence is a one-minute
// interval.
type Cadence struct {
	kind   Kind
	every  time.Duration
	hour   int
	minute int
}

func (c Cadence) Kind() Kind { return c.kind }

func (c Cadence) String() string {
	switch c.kind {
	case KindInterval:
		return fmt.Sprintf("every %s", c.every)
	case KindHourly:
		return fmt.Sprintf("hourly at :%02d", c.minute)
	case KindDaily:
		return fmt.Sprintf("daily at %02d:%02d", c.hour, c.minute)
	case KindWeekly:
		return fmt.Sprintf("weekly %s %02d:%02d", weeklyDay, c.hour, c.minute)
	default:
		return "unknown"
	}
}

// EveryMinutes returns an interval cadence. Minutes below one are clamped
// to one; an interval finer than the tick period still fires at most once
// per tick.
func EveryMinutes(minutes int) Cadence {
	if minutes < 1 {
		minutes = 1
	}
	return Cadence{kind: KindInterval, every: time.Duration(minutes) * time.Minute}
}

// Hourly fires at the given minute of every hour.
func Hourly(minute int) (Cadence, error) {
	if err := checkTime(0, minute); err != nil {
		return Cadence{}, err
	}
	return Cadence{kind: KindHourly, minute: minute}, nil
}

// Daily fires at hour:minute every day. It fires same-day when that
// instant is still strictly in the future.
func Daily(hour, minute int) (Cadence, error) {
	if err := checkTime(hour, minute); err != nil {
		return Cadence{}, err
	}
	return Cadence{kind: KindDaily, hour: hour, minute: minute}, nil
}

// Weekly fires at hour:minute on Monday. Unlike Daily it always rolls
// forward to the next week's occurrence, even when invoked on a Monday
// before the fire time. The asymmetry is deliberate observed behavior;
// do not "fix" it without product confirmation.
func Weekly(hour, minute int) (Cadence, error) {
	if err := checkTime(hour, minute); err != nil {
		return Cadence{}, err
	}
	return Cadence{kind: KindWeekly, hour: hour, minute: minute}, nil
}

// DailyAt is Daily with an "HH:MM" time string.
func DailyAt(at string) (Cadence, error) {
	h, m, err := ParseAt(at)
	if err != nil {
		return Cadence{}, err
	}
	return Daily(h, m)
}

// WeeklyAt is Weekly with an "HH:MM" time string.
func WeeklyAt(at string) (Cadence, error) {
	h, m, err := ParseAt(at)
	if err != nil {
		return Cadence{}, err
	}
	return Weekly(h, m)
}

// HourlyAt is Hourly with an ":MM" or "HH:MM" time string (the hour part
// is ignored for hourly cadences).
func HourlyAt(at string) (Cadence, error) {
	_, m, err := ParseAt(at)
	if err != nil {
		return Cadence{}, err
	}
	return Hourly(m)
}

// ParseAt parses an "HH:MM" wall-clock time. Malformed input fails here,
// at configuration time, never at tick time.
func ParseAt(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	if err := checkTime(h, m); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: %w", value, err)
	}
	return h, m, nil
}

func checkTime(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("hour %d out of range [0,23]", hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("minute %d out of range [0,59]", minute)
	}
	return nil
}

// Next computes the next run instant after now. It is pure and total for
// valid cadences, and the result is always strictly after now.
func (c Cadence) Next(now time.Time) time.Time {
	switch c.kind {
	case KindHourly:
		next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), c.minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(time.Hour)
		}
		return next
	case KindDaily:
		next := time.Date(now.Year(), now.Month(), now.Day(), c.hour, c.minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	case KindWeekly:
		// 7 when today already is the weekday, forcing roll-forward to
		// next week rather than a same-day fire.
		days := (8 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		d := now.AddDate(0, 0, days)
		return time.Date(d.Year(), d.Month(), d.Day(), c.hour, c.minute, 0, 0, now.Location())
	default:
		every := c.every
		if every <= 0 {
			every = time.Minute
		}
		return now.Add(every)
	}
}
