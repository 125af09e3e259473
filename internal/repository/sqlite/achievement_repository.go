package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/db"
	"github.com/vytor/chesscycles/internal/logger"
	"github.com/vytor/chesscycles/internal/models"
	"github.com/vytor/chesscycles/internal/repository"
)

type achievementRepository struct {
	db *db.DB
}

// NewAchievementRepository creates a new AchievementRepository implementation
func NewAchievementRepository(db *db.DB) repository.AchievementRepository {
	return &achievementRepository{db: db}
}

func (r *achievementRepository) SyncCatalog(ctx context.Context, defs []achievements.Definition) error {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	log.Debug("syncing achievement catalog: %d definitions", len(defs))

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO achievements (id, name, description, category, icon, kind, tier)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    description = excluded.description,
    category = excluded.category,
    icon = excluded.icon,
    kind = excluded.kind,
    tier = excluded.tier
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, d := range defs {
			if _, err := stmt.ExecContext(ctx, d.ID, d.Name, d.Description, d.Category, d.Icon,
				string(d.Criterion.Kind), string(d.Tier())); err != nil {
				log.Error("failed to sync achievement %s: %v", d.ID, err)
				return err
			}
		}
		return nil
	})
}

func (r *achievementRepository) UnlockedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	log.Debug("loading unlocked achievements: user_id=%s", userID)

	rows, err := r.db.QueryContext(ctx, `SELECT achievement_id FROM user_achievements WHERE user_id = ?`, userID)
	if err != nil {
		log.Error("failed to query unlocked achievements: %v", err)
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *achievementRepository) ListUnlocked(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	log.Debug("listing unlocked achievements: user_id=%s", userID)

	rows, err := r.db.QueryContext(ctx, `
SELECT user_id, achievement_id, unlocked_at
FROM user_achievements
WHERE user_id = ?
ORDER BY unlocked_at, achievement_id
`, userID)
	if err != nil {
		log.Error("failed to list unlocked achievements: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []models.UserAchievement
	for rows.Next() {
		var ua models.UserAchievement
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &ua.UnlockedAt); err != nil {
			return nil, err
		}
		ua.UnlockedAt = ua.UnlockedAt.UTC()
		out = append(out, ua)
	}
	return out, rows.Err()
}

func (r *achievementRepository) Unlock(ctx context.Context, userID string, ids []string, at time.Time) ([]string, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	if len(ids) == 0 {
		return nil, nil
	}
	log.Debug("unlocking achievements: user_id=%s, ids=%v", userID, ids)

	q := sqlBuilder.Insert("user_achievements").
		Options("OR IGNORE").
		Columns("user_id", "achievement_id", "unlocked_at").
		Suffix("RETURNING achievement_id")
	for _, id := range ids {
		q = q.Values(userID, id, at.UTC())
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to unlock achievements: %v", err)
		return nil, err
	}
	defer rows.Close()

	var inserted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		inserted = append(inserted, id)
	}
	if err := rows.Err(); err != nil {
		log.Error("failed to read unlocked ids: %v", err)
		return nil, err
	}
	return inserted, nil
}

// historyCTE scopes attempts and completed cycles to one user.
const historyCTE = `WITH ua AS (
    SELECT a.id, a.is_correct, p.rating, p.themes
    FROM attempts a
    JOIN puzzle_in_set pis ON pis.id = a.puzzle_in_set_id
    JOIN puzzle_sets ps ON ps.id = pis.puzzle_set_id
    JOIN puzzles p ON p.id = pis.puzzle_id
    WHERE ps.user_id = ?
),
ranked AS (
    SELECT is_correct, ROW_NUMBER() OVER (ORDER BY id DESC) AS rn FROM ua
),
uc AS (
    SELECT c.puzzle_set_id, c.cycle_number, c.total_time
    FROM cycles c
    JOIN puzzle_sets ps ON ps.id = c.puzzle_set_id
    WHERE ps.user_id = ? AND c.completed_at IS NOT NULL
)
`

const (
	rowLifetime  = "lifetime"
	rowTheme     = "theme"
	rowRecent    = "recent"
	rowRated     = "rated"
	rowCycles    = "cycles"
	rowSetCycles = "set_cycles"
	rowPace      = "pace"
)

// buildHistoryQuery assembles every aggregate into one UNION ALL statement of
// (kind, key, a, b) rows.
func buildHistoryQuery(userID string, req models.HistoryRequest) (string, []any, error) {
	kind := func(k string) string { return "'" + k + "'" }

	branches := []squirrel.SelectBuilder{
		squirrel.Select(kind(rowLifetime)+" AS kind", "'' AS k", "COUNT(*) AS a", "COALESCE(SUM(is_correct), 0) AS b").
			From("ua"),
		squirrel.Select(kind(rowTheme), "j.value", "COUNT(*)", "COALESCE(SUM(ua.is_correct), 0)").
			From("ua, json_each(ua.themes) AS j").
			GroupBy("j.value"),
		squirrel.Select(kind(rowCycles), "''", "COUNT(*)", "0").
			From("uc"),
		squirrel.Select(kind(rowSetCycles), "''", "COALESCE(MAX(n), 0)", "0").
			FromSelect(squirrel.Select("COUNT(*) AS n").From("uc").GroupBy("puzzle_set_id"), "per_set"),
		squirrel.Select(kind(rowPace), "CAST(f.puzzle_set_id AS TEXT)", "f.total_time", "MIN(l.total_time)").
			From("uc f").
			Join("uc l ON l.puzzle_set_id = f.puzzle_set_id AND l.cycle_number > f.cycle_number").
			Where(squirrel.Eq{"f.cycle_number": 1}).
			GroupBy("f.puzzle_set_id", "f.total_time"),
	}
	for _, w := range req.RecentWindows {
		branches = append(branches,
			squirrel.Select(kind(rowRecent), "'"+strconv.Itoa(w)+"'", "COUNT(*)", "COALESCE(SUM(is_correct), 0)").
				From("ranked").
				Where(squirrel.LtOrEq{"rn": w}))
	}
	for _, rating := range req.RatingThresholds {
		branches = append(branches,
			squirrel.Select(kind(rowRated), "'"+strconv.Itoa(rating)+"'", "COUNT(*)", "0").
				From("ua").
				Where(squirrel.And{squirrel.Eq{"is_correct": 1}, squirrel.GtOrEq{"rating": rating}}))
	}

	parts := make([]string, 0, len(branches))
	args := []any{userID, userID}
	for _, b := range branches {
		part, partArgs, err := b.ToSql()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, part)
		args = append(args, partArgs...)
	}
	return historyCTE + strings.Join(parts, "\nUNION ALL\n"), args, nil
}

func (r *achievementRepository) History(ctx context.Context, userID string, req models.HistoryRequest) (*models.HistoricalStats, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	log.Debug("aggregating history: user_id=%s, windows=%v, ratings=%v", userID, req.RecentWindows, req.RatingThresholds)

	query, args, err := buildHistoryQuery(userID, req)
	if err != nil {
		log.Error("failed to build history query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to aggregate history: %v", err)
		return nil, err
	}
	defer rows.Close()

	stats := &models.HistoricalStats{
		Themes:           map[string]models.Tally{},
		Recent:           map[int]models.Tally{},
		HighRatedCorrect: map[int]int{},
	}
	for rows.Next() {
		var kind, key string
		var a, b int64
		if err := rows.Scan(&kind, &key, &a, &b); err != nil {
			log.Error("failed to scan history row: %v", err)
			return nil, err
		}
		if err := applyHistoryRow(stats, kind, key, a, b); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func applyHistoryRow(stats *models.HistoricalStats, kind, key string, a, b int64) error {
	switch kind {
	case rowLifetime:
		stats.Lifetime = models.Tally{Total: int(a), Correct: int(b)}
	case rowTheme:
		stats.Themes[key] = models.Tally{Total: int(a), Correct: int(b)}
	case rowCycles:
		stats.CompletedCycles = int(a)
	case rowSetCycles:
		stats.MaxCompletedCyclesInSet = int(a)
	case rowRecent, rowRated, rowPace:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("history row %s: bad key %q", kind, key)
		}
		switch kind {
		case rowRecent:
			stats.Recent[int(n)] = models.Tally{Total: int(a), Correct: int(b)}
		case rowRated:
			stats.HighRatedCorrect[int(n)] = int(a)
		default:
			stats.Paces = append(stats.Paces, models.SetPace{PuzzleSetID: n, FirstCycleMs: a, FastestLaterMs: b})
		}
	default:
		return fmt.Errorf("unknown history row kind %q", kind)
	}
	return nil
}
