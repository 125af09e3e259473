package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vytor/chesscycles/internal/db"
	"github.com/vytor/chesscycles/internal/logger"
	"github.com/vytor/chesscycles/internal/models"
	"github.com/vytor/chesscycles/internal/repository"
)

type puzzleSetRepository struct {
	db *db.DB
}

// NewPuzzleSetRepository creates a new PuzzleSetRepository implementation
func NewPuzzleSetRepository(db *db.DB) repository.PuzzleSetRepository {
	return &puzzleSetRepository{db: db}
}

func (r *puzzleSetRepository) GetSet(ctx context.Context, id int64) (*models.PuzzleSet, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_set_repo")
	log.Debug("getting puzzle set: id=%d", id)

	var s models.PuzzleSet
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, name, target_cycles, min_rating, max_rating, created_at
FROM puzzle_sets
WHERE id = ?
`, id).Scan(&s.ID, &s.UserID, &s.Name, &s.TargetCycles, &s.MinRating, &s.MaxRating, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("puzzle set not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get puzzle set: %v", err)
		return nil, err
	}
	return &s, nil
}

func (r *puzzleSetRepository) GetPuzzleInSet(ctx context.Context, id int64) (*models.PuzzleInSet, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_set_repo")
	log.Debug("getting puzzle in set: id=%d", id)

	var p models.PuzzleInSet
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
SELECT pis.id, pis.puzzle_set_id, pis.puzzle_id, pis.position,
       pis.total_attempts, pis.correct_attempts, pis.average_time, p.rating
FROM puzzle_in_set pis
JOIN puzzles p ON p.id = pis.puzzle_id
WHERE pis.id = ?
`, id).Scan(&p.ID, &p.PuzzleSetID, &p.PuzzleID, &p.Position, &p.TotalAttempts, &p.CorrectAttempts, &avg, &p.PuzzleRating)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("puzzle in set not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get puzzle in set: %v", err)
		return nil, err
	}
	if avg.Valid {
		p.AverageTime = &avg.Float64
	}
	return &p, nil
}

func (r *puzzleSetRepository) GetCycle(ctx context.Context, id int64) (*models.Cycle, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_set_repo")
	log.Debug("getting cycle: id=%d", id)

	c, err := scanCycle(r.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("cycle not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get cycle: %v", err)
		return nil, err
	}
	return c, nil
}

const cycleColumns = `id, puzzle_set_id, cycle_number, total_puzzles, solved_correct, solved_incorrect,
       skipped, total_time, started_at, completed_at`

func scanCycle(row rowScanner) (*models.Cycle, error) {
	var c models.Cycle
	var completedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.PuzzleSetID, &c.CycleNumber, &c.TotalPuzzles, &c.SolvedCorrect, &c.SolvedIncorrect,
		&c.Skipped, &c.TotalTime, &c.StartedAt, &completedAt); err != nil {
		return nil, err
	}
	c.CompletedAt = timePtr(completedAt)
	return &c, nil
}
