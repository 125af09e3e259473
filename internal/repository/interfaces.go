package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/models"
)

var (
	// ErrDuplicateAttempt is returned when (cycle, puzzle-in-set) already has an attempt.
	ErrDuplicateAttempt = errors.New("attempt already recorded for this puzzle in this cycle")
	// ErrCycleClosed is returned when the cycle is completed or has no room left.
	ErrCycleClosed = errors.New("cycle is already completed")
	// ErrUserNotFound is returned when the user row disappears mid-transaction.
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository handles user data access
type UserRepository interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user models.User) error
}

// PuzzleSetRepository handles the read side of sets, puzzles and cycles
type PuzzleSetRepository interface {
	GetSet(ctx context.Context, id int64) (*models.PuzzleSet, error)
	GetPuzzleInSet(ctx context.Context, id int64) (*models.PuzzleInSet, error)
	GetCycle(ctx context.Context, id int64) (*models.Cycle, error)
}

// AttemptRepository owns the attempt transaction
type AttemptRepository interface {
	Exists(ctx context.Context, cycleID, puzzleInSetID int64) (bool, error)
	Latest(ctx context.Context, puzzleInSetID int64) (*models.Attempt, error)
	// Record inserts the attempt and updates puzzle, cycle and user aggregates
	// in one transaction. progress computes the new user counters.
	Record(ctx context.Context, attempt models.Attempt, progress models.ProgressFunc) (*models.AttemptCommit, error)
}

// AchievementRepository handles unlock records and the history aggregate
type AchievementRepository interface {
	SyncCatalog(ctx context.Context, defs []achievements.Definition) error
	UnlockedIDs(ctx context.Context, userID string) (map[string]bool, error)
	ListUnlocked(ctx context.Context, userID string) ([]models.UserAchievement, error)
	History(ctx context.Context, userID string, req models.HistoryRequest) (*models.HistoricalStats, error)
	// Unlock inserts unlock rows, ignoring ones that already exist, and
	// returns the ids that were newly inserted.
	Unlock(ctx context.Context, userID string, ids []string, at time.Time) ([]string, error)
}
