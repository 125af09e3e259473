package models

import (
	"time"

	"github.com/vytor/chesscycles/internal/xp"
)

// User is the aggregate root for training counters. Counters are only
// changed inside the attempt transaction.
type User struct {
	ID                     string     `json:"id"`
	Username               string     `json:"username"`
	TotalCorrectAttempts   int        `json:"total_correct_attempts"`
	WeeklyCorrectAttempts  int        `json:"weekly_correct_attempts"`
	WeeklyCorrectStartDate *time.Time `json:"weekly_correct_start_date"`
	TotalXP                int        `json:"total_xp"`
	CurrentLevel           int        `json:"current_level"`
	WeeklyXP               int        `json:"weekly_xp"`
	WeeklyXPStartDate      *time.Time `json:"weekly_xp_start_date"`
	CurrentStreak          int        `json:"current_streak"`
	LongestStreak          int        `json:"longest_streak"`
	LastTrainedDate        *time.Time `json:"last_trained_date"`
	CreatedAt              time.Time  `json:"created_at"`
}

// Progress is the read-side view of a user's counters. Stale weekly counters
// and lapsed streaks read as zero.
type Progress struct {
	UserID                string           `json:"user_id"`
	Username              string           `json:"username"`
	TotalCorrectAttempts  int              `json:"total_correct_attempts"`
	WeeklyCorrectAttempts int              `json:"weekly_correct_attempts"`
	TotalXP               int              `json:"total_xp"`
	WeeklyXP              int              `json:"weekly_xp"`
	CurrentStreak         int              `json:"current_streak"`
	LongestStreak         int              `json:"longest_streak"`
	LastTrainedDate       *time.Time       `json:"last_trained_date"`
	Level                 xp.LevelProgress `json:"level"`
}
