package models

import "time"

// Cycle is one full pass over a puzzle set.
type Cycle struct {
	ID              int64      `json:"id"`
	PuzzleSetID     int64      `json:"puzzle_set_id"`
	CycleNumber     int        `json:"cycle_number"`
	TotalPuzzles    int        `json:"total_puzzles"`
	SolvedCorrect   int        `json:"solved_correct"`
	SolvedIncorrect int        `json:"solved_incorrect"`
	Skipped         int        `json:"skipped"`
	TotalTime       int64      `json:"total_time"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

// Answered is the number of puzzles resolved in the cycle so far.
func (c Cycle) Answered() int {
	return c.SolvedCorrect + c.SolvedIncorrect + c.Skipped
}

func (c Cycle) IsCompleted() bool {
	return c.CompletedAt != nil
}
