package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/db"
	"github.com/vytor/chesscycles/internal/models"
	"github.com/vytor/chesscycles/internal/repository/sqlite"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied
// and the default achievement catalog seeded.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	repo := sqlite.NewAchievementRepository(database)
	require.NoError(t, repo.SyncCatalog(context.Background(), achievements.Default().All()))
	return database
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// CreateUser inserts a user with the given counters. Zero CurrentLevel becomes 1.
func CreateUser(t *testing.T, database *db.DB, u models.User) models.User {
	t.Helper()
	if u.Username == "" {
		u.Username = u.ID
	}
	if u.CurrentLevel == 0 {
		u.CurrentLevel = 1
	}
	_, err := database.Exec(`
INSERT INTO users (id, username, total_correct_attempts, weekly_correct_attempts, weekly_correct_start_date,
                   total_xp, current_level, weekly_xp, weekly_xp_start_date,
                   current_streak, longest_streak, last_trained_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, u.ID, u.Username, u.TotalCorrectAttempts, u.WeeklyCorrectAttempts, utcOrNil(u.WeeklyCorrectStartDate),
		u.TotalXP, u.CurrentLevel, u.WeeklyXP, utcOrNil(u.WeeklyXPStartDate),
		u.CurrentStreak, u.LongestStreak, utcOrNil(u.LastTrainedDate))
	require.NoError(t, err)
	return u
}

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// CreatePuzzle inserts a puzzle with a fixed position and solution.
func CreatePuzzle(t *testing.T, database *db.DB, id string, rating int, themes ...string) models.Puzzle {
	t.Helper()
	if themes == nil {
		themes = []string{}
	}
	raw, err := json.Marshal(themes)
	require.NoError(t, err)

	p := models.Puzzle{
		ID:     id,
		FEN:    "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5Q2/PPPP1PPP/RNB1K1NR w KQkq - 2 3",
		Moves:  "f3f7",
		Rating: rating,
		Themes: themes,
	}
	_, err = database.Exec(`INSERT INTO puzzles (id, fen, moves, rating, themes) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.FEN, p.Moves, p.Rating, string(raw))
	require.NoError(t, err)
	return p
}

// CreateSet inserts a set owned by userID holding the given puzzles in order.
func CreateSet(t *testing.T, database *db.DB, userID string, puzzles ...models.Puzzle) (models.PuzzleSet, []models.PuzzleInSet) {
	t.Helper()
	res, err := database.Exec(`INSERT INTO puzzle_sets (user_id, name, target_cycles) VALUES (?, ?, 7)`,
		userID, "set for "+userID)
	require.NoError(t, err)
	setID, err := res.LastInsertId()
	require.NoError(t, err)

	set := models.PuzzleSet{ID: setID, UserID: userID, Name: "set for " + userID, TargetCycles: 7, MaxRating: 3500}
	members := make([]models.PuzzleInSet, 0, len(puzzles))
	for i, p := range puzzles {
		res, err := database.Exec(`INSERT INTO puzzle_in_set (puzzle_set_id, puzzle_id, position) VALUES (?, ?, ?)`,
			setID, p.ID, i+1)
		require.NoError(t, err)
		id, err := res.LastInsertId()
		require.NoError(t, err)
		members = append(members, models.PuzzleInSet{
			ID:           id,
			PuzzleSetID:  setID,
			PuzzleID:     p.ID,
			Position:     i + 1,
			PuzzleRating: p.Rating,
		})
	}
	return set, members
}

// StartCycle opens cycle number n covering total puzzles.
func StartCycle(t *testing.T, database *db.DB, setID int64, n, total int) models.Cycle {
	t.Helper()
	res, err := database.Exec(`INSERT INTO cycles (puzzle_set_id, cycle_number, total_puzzles) VALUES (?, ?, ?)`,
		setID, n, total)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return models.Cycle{ID: id, PuzzleSetID: setID, CycleNumber: n, TotalPuzzles: total}
}

// CompletedCycle inserts an already finished cycle with the given totals.
func CompletedCycle(t *testing.T, database *db.DB, setID int64, n, total, correct int, totalTime int64, at time.Time) models.Cycle {
	t.Helper()
	res, err := database.Exec(`
INSERT INTO cycles (puzzle_set_id, cycle_number, total_puzzles, solved_correct, solved_incorrect, total_time, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, setID, n, total, correct, total-correct, totalTime, at.UTC())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	completed := at.UTC()
	return models.Cycle{
		ID: id, PuzzleSetID: setID, CycleNumber: n, TotalPuzzles: total,
		SolvedCorrect: correct, SolvedIncorrect: total - correct, TotalTime: totalTime, CompletedAt: &completed,
	}
}

// InsertAttempt writes a raw attempt row without touching aggregates.
func InsertAttempt(t *testing.T, database *db.DB, cycleID, puzzleInSetID int64, correct bool, timeMs int, at time.Time) {
	t.Helper()
	_, err := database.Exec(`
INSERT INTO attempts (puzzle_in_set_id, cycle_id, is_correct, time_spent, was_skipped, moves_played, created_at)
VALUES (?, ?, ?, ?, 0, '[]', ?)
`, puzzleInSetID, cycleID, correct, timeMs, at.UTC())
	require.NoError(t, err)
}
