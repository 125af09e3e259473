package models

import "time"

// UserAchievement is a write-once unlock record.
type UserAchievement struct {
	UserID        string    `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

type UnlockedAchievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// AchievementStatus is a catalog entry annotated with the user's unlock state.
type AchievementStatus struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Icon        string     `json:"icon"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Tally is a correct/total pair.
type Tally struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// Accuracy returns the percentage of correct attempts, 0 when empty.
func (t Tally) Accuracy() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Total) * 100
}

// SetPace compares the first completed cycle of a set with its fastest later one.
type SetPace struct {
	PuzzleSetID    int64 `json:"puzzle_set_id"`
	FirstCycleMs   int64 `json:"first_cycle_ms"`
	FastestLaterMs int64 `json:"fastest_later_ms"`
}

// HistoryRequest names the parameterised aggregates a history query must produce.
type HistoryRequest struct {
	RecentWindows    []int
	RatingThresholds []int
}

// HistoricalStats is the result of the single aggregated history query.
type HistoricalStats struct {
	Lifetime                Tally
	Themes                  map[string]Tally
	Recent                  map[int]Tally
	HighRatedCorrect        map[int]int
	CompletedCycles         int
	MaxCompletedCyclesInSet int
	Paces                   []SetPace
}
