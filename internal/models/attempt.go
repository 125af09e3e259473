package models

import (
	"time"

	"github.com/vytor/chesscycles/internal/streak"
	"github.com/vytor/chesscycles/internal/xp"
)

// Attempt is an immutable record of one puzzle attempt within a cycle.
type Attempt struct {
	ID            int64     `json:"id"`
	PuzzleInSetID int64     `json:"puzzle_in_set_id"`
	CycleID       int64     `json:"cycle_id"`
	IsCorrect     bool      `json:"is_correct"`
	TimeSpentMs   int       `json:"time_spent"`
	WasSkipped    bool      `json:"was_skipped"`
	MovesPlayed   []string  `json:"moves_played"`
	CreatedAt     time.Time `json:"created_at"`
}

// RecordAttemptInput is the caller-supplied part of an attempt submission.
type RecordAttemptInput struct {
	UserID        string
	PuzzleSetID   int64
	CycleID       int64
	PuzzleInSetID int64
	TimeSpentMs   int
	IsCorrect     bool
	WasSkipped    bool
	MovesPlayed   []string
}

// ProgressFunc derives the user's new counters from the user row and the
// already-updated cycle. It runs inside the attempt transaction.
type ProgressFunc func(user User, cycle Cycle) (User, error)

// AttemptCommit is the durable state after the attempt transaction.
type AttemptCommit struct {
	Attempt Attempt
	Cycle   Cycle
	User    User
}

// XPSummary reports the experience change caused by an attempt.
type XPSummary struct {
	Gained        int        `json:"gained"`
	Breakdown     []xp.Entry `json:"breakdown"`
	NewTotal      int        `json:"new_total"`
	PreviousLevel int        `json:"previous_level"`
	NewLevel      int        `json:"new_level"`
	LeveledUp     bool       `json:"leveled_up"`
}

// AttemptOutcome is everything reported back for a recorded attempt.
type AttemptOutcome struct {
	Attempt              Attempt               `json:"attempt"`
	Cycle                Cycle                 `json:"cycle"`
	IsLastPuzzle         bool                  `json:"is_last_puzzle"`
	Streak               streak.Result         `json:"streak"`
	XP                   XPSummary             `json:"xp"`
	User                 User                  `json:"user"`
	UnlockedAchievements []UnlockedAchievement `json:"unlocked_achievements"`
}
