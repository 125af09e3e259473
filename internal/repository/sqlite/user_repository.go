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

const userColumns = `id, username, total_correct_attempts, weekly_correct_attempts, weekly_correct_start_date,
       total_xp, current_level, weekly_xp, weekly_xp_start_date,
       current_streak, longest_streak, last_trained_date, created_at`

type userRepository struct {
	db *db.DB
}

// NewUserRepository creates a new UserRepository implementation
func NewUserRepository(db *db.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var weeklyCorrectStart, weeklyXPStart, lastTrained sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.TotalCorrectAttempts, &u.WeeklyCorrectAttempts, &weeklyCorrectStart,
		&u.TotalXP, &u.CurrentLevel, &u.WeeklyXP, &weeklyXPStart,
		&u.CurrentStreak, &u.LongestStreak, &lastTrained, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.WeeklyCorrectStartDate = timePtr(weeklyCorrectStart)
	u.WeeklyXPStartDate = timePtr(weeklyXPStart)
	u.LastTrainedDate = timePtr(lastTrained)
	return &u, nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("getting user: id=%s", id)

	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("user not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get user: %v", err)
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u models.User) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("creating user: id=%s", u.ID)

	if u.CurrentLevel == 0 {
		u.CurrentLevel = 1
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, username, total_correct_attempts, weekly_correct_attempts, weekly_correct_start_date,
                   total_xp, current_level, weekly_xp, weekly_xp_start_date,
                   current_streak, longest_streak, last_trained_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, u.ID, u.Username, u.TotalCorrectAttempts, u.WeeklyCorrectAttempts, nullTime(u.WeeklyCorrectStartDate),
		u.TotalXP, u.CurrentLevel, u.WeeklyXP, nullTime(u.WeeklyXPStartDate),
		u.CurrentStreak, u.LongestStreak, nullTime(u.LastTrainedDate))
	if err != nil {
		log.Error("failed to create user: %v", err)
	}
	return err
}

// updateUserCounters persists the counters owned by the attempt transaction.
func updateUserCounters(ctx context.Context, tx *sql.Tx, u models.User) error {
	query, args, err := sqlBuilder.Update("users").SetMap(map[string]any{
		"total_correct_attempts":    u.TotalCorrectAttempts,
		"weekly_correct_attempts":   u.WeeklyCorrectAttempts,
		"weekly_correct_start_date": nullTime(u.WeeklyCorrectStartDate),
		"total_xp":                  u.TotalXP,
		"current_level":             u.CurrentLevel,
		"weekly_xp":                 u.WeeklyXP,
		"weekly_xp_start_date":      nullTime(u.WeeklyXPStartDate),
		"current_streak":            u.CurrentStreak,
		"longest_streak":            u.LongestStreak,
		"last_trained_date":         nullTime(u.LastTrainedDate),
	}).Where("id = ?", u.ID).ToSql()
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}
