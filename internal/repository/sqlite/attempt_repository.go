package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vytor/chesscycles/internal/db"
	"github.com/vytor/chesscycles/internal/logger"
	"github.com/vytor/chesscycles/internal/models"
	"github.com/vytor/chesscycles/internal/repository"
)

type attemptRepository struct {
	db *db.DB
}

// NewAttemptRepository creates a new AttemptRepository implementation
func NewAttemptRepository(db *db.DB) repository.AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Exists(ctx context.Context, cycleID, puzzleInSetID int64) (bool, error) {
	log := logger.FromContext(ctx).WithPrefix("attempt_repo")
	log.Debug("checking attempt: cycle_id=%d, puzzle_in_set_id=%d", cycleID, puzzleInSetID)

	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM attempts WHERE cycle_id = ? AND puzzle_in_set_id = ?)
`, cycleID, puzzleInSetID).Scan(&exists)
	if err != nil {
		log.Error("failed to check attempt: %v", err)
		return false, err
	}
	return exists, nil
}

func (r *attemptRepository) Latest(ctx context.Context, puzzleInSetID int64) (*models.Attempt, error) {
	log := logger.FromContext(ctx).WithPrefix("attempt_repo")
	log.Debug("getting latest attempt: puzzle_in_set_id=%d", puzzleInSetID)

	a, err := scanAttempt(r.db.QueryRowContext(ctx, `
SELECT id, puzzle_in_set_id, cycle_id, is_correct, time_spent, was_skipped, moves_played, created_at
FROM attempts
WHERE puzzle_in_set_id = ?
ORDER BY id DESC
LIMIT 1
`, puzzleInSetID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get latest attempt: %v", err)
		return nil, err
	}
	return a, nil
}

func scanAttempt(row rowScanner) (*models.Attempt, error) {
	var a models.Attempt
	var moves string
	if err := row.Scan(&a.ID, &a.PuzzleInSetID, &a.CycleID, &a.IsCorrect, &a.TimeSpentMs, &a.WasSkipped, &moves, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(moves), &a.MovesPlayed); err != nil {
		return nil, fmt.Errorf("decode moves_played: %w", err)
	}
	return &a, nil
}

func (r *attemptRepository) Record(ctx context.Context, a models.Attempt, progress models.ProgressFunc) (*models.AttemptCommit, error) {
	log := logger.FromContext(ctx).WithPrefix("attempt_repo")
	log.Debug("recording attempt: cycle_id=%d, puzzle_in_set_id=%d, correct=%t, skipped=%t",
		a.CycleID, a.PuzzleInSetID, a.IsCorrect, a.WasSkipped)

	if a.MovesPlayed == nil {
		a.MovesPlayed = []string{}
	}
	moves, err := json.Marshal(a.MovesPlayed)
	if err != nil {
		return nil, err
	}

	var commit models.AttemptCommit
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO attempts (puzzle_in_set_id, cycle_id, is_correct, time_spent, was_skipped, moves_played, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, a.PuzzleInSetID, a.CycleID, a.IsCorrect, a.TimeSpentMs, a.WasSkipped, string(moves), a.CreatedAt.UTC())
		if err != nil {
			if db.IsUniqueViolation(err) {
				return repository.ErrDuplicateAttempt
			}
			return fmt.Errorf("insert attempt: %w", err)
		}
		if a.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		if err := updatePuzzleAggregates(ctx, tx, a); err != nil {
			return err
		}

		cycle, err := updateCycleAggregates(ctx, tx, a)
		if err != nil {
			return err
		}

		user, err := scanUser(tx.QueryRowContext(ctx, `
SELECT `+userColumns+` FROM users
WHERE id = (SELECT ps.user_id FROM cycles c JOIN puzzle_sets ps ON ps.id = c.puzzle_set_id WHERE c.id = ?)
`, a.CycleID))
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		updated, err := progress(*user, *cycle)
		if err != nil {
			return err
		}
		if err := updateUserCounters(ctx, tx, updated); err != nil {
			return fmt.Errorf("update user: %w", err)
		}

		commit = models.AttemptCommit{Attempt: a, Cycle: *cycle, User: updated}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateAttempt) || errors.Is(err, repository.ErrCycleClosed) {
			log.Debug("attempt rejected: %v", err)
		} else {
			log.Error("failed to record attempt: %v", err)
		}
		return nil, err
	}

	log.Debug("attempt recorded: id=%d", commit.Attempt.ID)
	return &commit, nil
}

// updatePuzzleAggregates advances the running mean with the pre-update counts.
func updatePuzzleAggregates(ctx context.Context, tx *sql.Tx, a models.Attempt) error {
	res, err := tx.ExecContext(ctx, `
UPDATE puzzle_in_set
SET average_time = (COALESCE(average_time, 0.0) * total_attempts + ?) / (total_attempts + 1),
    total_attempts = total_attempts + 1,
    correct_attempts = correct_attempts + ?
WHERE id = ?
`, a.TimeSpentMs, boolToInt(a.IsCorrect), a.PuzzleInSetID)
	if err != nil {
		return fmt.Errorf("update puzzle aggregates: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("puzzle in set %d vanished", a.PuzzleInSetID)
	}
	return nil
}

// updateCycleAggregates increments exactly one outcome counter and stamps
// completion when the answered count reaches total_puzzles.
func updateCycleAggregates(ctx context.Context, tx *sql.Tx, a models.Attempt) (*models.Cycle, error) {
	var correct, incorrect, skipped int
	switch {
	case a.WasSkipped:
		skipped = 1
	case a.IsCorrect:
		correct = 1
	default:
		incorrect = 1
	}

	res, err := tx.ExecContext(ctx, `
UPDATE cycles
SET solved_correct = solved_correct + ?,
    solved_incorrect = solved_incorrect + ?,
    skipped = skipped + ?,
    total_time = total_time + ?
WHERE id = ?
  AND completed_at IS NULL
  AND solved_correct + solved_incorrect + skipped < total_puzzles
`, correct, incorrect, skipped, a.TimeSpentMs, a.CycleID)
	if err != nil {
		return nil, fmt.Errorf("update cycle aggregates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrCycleClosed
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE cycles
SET completed_at = ?
WHERE id = ?
  AND completed_at IS NULL
  AND solved_correct + solved_incorrect + skipped = total_puzzles
`, a.CreatedAt.UTC(), a.CycleID); err != nil {
		return nil, fmt.Errorf("complete cycle: %w", err)
	}

	return scanCycle(tx.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE id = ?`, a.CycleID))
}
