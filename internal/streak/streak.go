package streak

import "time"

// Result is the outcome of applying one training day to a streak.
type Result struct {
	NewStreak        int  `json:"current"`
	NewLongestStreak int  `json:"longest"`
	Incremented      bool `json:"incremented"`
	Broken           bool `json:"broken"`
	IsNewRecord      bool `json:"is_new_record"`
}

// Update computes streak continuity using whole UTC calendar days.
// Calling it again on the same day is a no-op, so callers persist the result
// only when Incremented is true.
func Update(lastTrained *time.Time, current, longest int, now time.Time) Result {
	if lastTrained == nil {
		return Result{
			NewStreak:        1,
			NewLongestStreak: max(longest, 1),
			Incremented:      true,
			IsNewRecord:      longest == 0,
		}
	}

	switch gap := DaysBetween(*lastTrained, now); {
	case gap <= 0:
		return Result{NewStreak: current, NewLongestStreak: max(longest, current)}
	case gap == 1:
		next := current + 1
		return Result{
			NewStreak:        next,
			NewLongestStreak: max(next, longest),
			Incremented:      true,
			IsNewRecord:      next > longest,
		}
	default:
		return Result{
			NewStreak:        1,
			NewLongestStreak: max(longest, 1),
			Incremented:      true,
			Broken:           current > 0,
		}
	}
}

// DaysBetween returns the number of UTC calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
