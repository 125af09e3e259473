// Package weekly implements ISO-week scoped counters that reset lazily.
package weekly

import (
	"time"

	"github.com/vytor/chesscycles/internal/streak"
)

// WeekStart returns Monday 00:00 UTC of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	day := streak.Day(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// SameWeek reports whether a and b fall in the same ISO week.
func SameWeek(a, b time.Time) bool {
	return WeekStart(a).Equal(WeekStart(b))
}

// Current returns the logical value of a counter: a value stamped in an
// earlier week reads as zero.
func Current(value int, start *time.Time, now time.Time) int {
	if start == nil || !SameWeek(*start, now) {
		return 0
	}
	return value
}

// Roll adds delta to a weekly counter, resetting it first when its start
// date is missing or stale. The start date only moves on reset.
func Roll(value int, start *time.Time, delta int, now time.Time) (int, time.Time) {
	if start == nil || !SameWeek(*start, now) {
		return delta, WeekStart(now)
	}
	return value + delta, *start
}
