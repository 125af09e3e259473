package models

import "time"

type Puzzle struct {
	ID     string   `json:"id"`
	FEN    string   `json:"fen"`
	Moves  string   `json:"moves"`
	Rating int      `json:"rating"`
	Themes []string `json:"themes"`
}

type PuzzleSet struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	TargetCycles int       `json:"target_cycles"`
	MinRating    int       `json:"min_rating"`
	MaxRating    int       `json:"max_rating"`
	CreatedAt    time.Time `json:"created_at"`
}

// PuzzleInSet is a puzzle pinned at a position in a set, with rolling aggregates.
type PuzzleInSet struct {
	ID              int64    `json:"id"`
	PuzzleSetID     int64    `json:"puzzle_set_id"`
	PuzzleID        string   `json:"puzzle_id"`
	Position        int      `json:"position"`
	TotalAttempts   int      `json:"total_attempts"`
	CorrectAttempts int      `json:"correct_attempts"`
	AverageTime     *float64 `json:"average_time"`
	PuzzleRating    int      `json:"puzzle_rating"`
}
