package schedule

import (
	"testing"
	"time"
)

// 2026-03-04 is a Wednesday, 2026-03-09 a Monday.
var (
	wednesday = time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	monday    = time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)
)

func mustDaily(t *testing.T, hour, minute int) Cadence {
	t.Helper()
	c, err := Daily(hour, minute)
	if err != nil {
		t.Fatalf("Daily(%d,%d): %v", hour, minute, err)
	}
	return c
}

func TestNextAlwaysAfterNow(t *testing.T) {
	t.Parallel()
	hourly, err := Hourly(0)
	if err != nil {
		t.Fatalf("Hourly: %v", err)
	}
	weekly, err := Weekly(0, 0)
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}
	cadences := []Cadence{
		EveryMinutes(1),
		EveryMinutes(0), // clamped to 1
		hourly,
		mustDaily(t, 0, 0),
		weekly,
	}
	nows := []time.Time{
		wednesday,
		monday,
		time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2026, time.February, 28, 23, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC), // exactly midnight
	}
	for _, c := range cadences {
		for _, now := range nows {
			if next := c.Next(now); !next.After(now) {
				t.Fatalf("%s: Next(%v) = %v, not strictly after now", c, now, next)
			}
		}
	}
}

func TestNextInterval(t *testing.T) {
	t.Parallel()
	if got := EveryMinutes(5).Next(wednesday); !got.Equal(wednesday.Add(5 * time.Minute)) {
		t.Fatalf("Next = %v, want now+5m", got)
	}
	// sub-minute input clamps to one minute
	if got := EveryMinutes(-3).Next(wednesday); !got.Equal(wednesday.Add(time.Minute)) {
		t.Fatalf("Next = %v, want now+1m", got)
	}
}

func TestNextHourly(t *testing.T) {
	t.Parallel()
	c, err := Hourly(30)
	if err != nil {
		t.Fatalf("Hourly: %v", err)
	}

	// minute still ahead in the current hour
	now := time.Date(2026, time.March, 4, 10, 15, 0, 0, time.UTC)
	want := time.Date(2026, time.March, 4, 10, 30, 0, 0, time.UTC)
	if got := c.Next(now); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}

	// minute already passed: next hour
	now = time.Date(2026, time.March, 4, 10, 45, 0, 0, time.UTC)
	want = time.Date(2026, time.March, 4, 11, 30, 0, 0, time.UTC)
	if got := c.Next(now); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}

	// exactly on the minute counts as passed
	now = time.Date(2026, time.March, 4, 10, 30, 0, 0, time.UTC)
	if got := c.Next(now); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestNextDailySameDayVsNextDay(t *testing.T) {
	t.Parallel()
	c := mustDaily(t, 9, 0)

	// 08:00, fire time still ahead: same day
	now := time.Date(2026, time.March, 4, 8, 0, 0, 0, time.UTC)
	want := time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC)
	if got := c.Next(now); !got.Equal(want) {
		t.Fatalf("Next = %v, want same-day %v", got, want)
	}

	// 10:00, fire time passed: next calendar day
	now = time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	want = time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
	if got := c.Next(now); !got.Equal(want) {
		t.Fatalf("Next = %v, want next-day %v", got, want)
	}
}

func TestNextWeeklyRollsToMonday(t *testing.T) {
	t.Parallel()
	c, err := Weekly(9, 0)
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}

	// Wednesday: following Monday
	want := time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC)
	if got := c.Next(wednesday); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}

	// Monday 08:00, before the fire time: still rolls a full week forward.
	// This is deliberately not the Daily same-day rule.
	want = time.Date(2026, time.March, 16, 9, 0, 0, 0, time.UTC)
	if got := c.Next(monday); !got.Equal(want) {
		t.Fatalf("Next = %v, want next-week %v", got, want)
	}

	// Sunday: the very next day
	sunday := time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC)
	want = time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC)
	if got := c.Next(sunday); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestConstructorValidation(t *testing.T) {
	t.Parallel()
	if _, err := Daily(24, 0); err == nil {
		t.Fatal("expected error for hour 24")
	}
	if _, err := Daily(-1, 0); err == nil {
		t.Fatal("expected error for hour -1")
	}
	if _, err := Hourly(60); err == nil {
		t.Fatal("expected error for minute 60")
	}
	if _, err := Weekly(12, -5); err == nil {
		t.Fatal("expected error for minute -5")
	}
}

func TestParseAt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		hour    int
		minute  int
		wantErr bool
	}{
		{raw: "09:00", hour: 9, minute: 0},
		{raw: "23:59", hour: 23, minute: 59},
		{raw: " 7:30 ", hour: 7, minute: 30},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "12", wantErr: true},
		{raw: "ab:cd", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		h, m, err := ParseAt(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseAt(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAt(%q): %v", tt.raw, err)
		}
		if h != tt.hour || m != tt.minute {
			t.Fatalf("ParseAt(%q) = %d:%d, want %d:%d", tt.raw, h, m, tt.hour, tt.minute)
		}
	}
}

func TestDailyAtMalformedFailsFast(t *testing.T) {
	t.Parallel()
	if _, err := DailyAt("25:00"); err == nil {
		t.Fatal("expected error for 25:00")
	}
	if _, err := WeeklyAt("not-a-time"); err == nil {
		t.Fatal("expected error for junk input")
	}
	if _, err := HourlyAt("00:15"); err != nil {
		t.Fatalf("HourlyAt: %v", err)
	}
}
