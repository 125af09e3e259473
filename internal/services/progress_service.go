package services

import (
	"context"
	"time"

	"github.com/vytor/chesscycles/internal/errors"
	"github.com/vytor/chesscycles/internal/logger"
	"github.com/vytor/chesscycles/internal/models"
	"github.com/vytor/chesscycles/internal/repository"
	"github.com/vytor/chesscycles/internal/streak"
	"github.com/vytor/chesscycles/internal/weekly"
	"github.com/vytor/chesscycles/internal/xp"
)

// ProgressService serves the read side of user counters
type ProgressService interface {
	GetProgress(ctx context.Context, userID string) (*models.Progress, error)
}

type progressService struct {
	users repository.UserRepository
	xp    xp.Config
	now   func() time.Time
}

// NewProgressService creates a new ProgressService
func NewProgressService(users repository.UserRepository, cfg xp.Config, opts ...Option) ProgressService {
	o := applyOptions(opts)
	return &progressService{users: users, xp: cfg, now: o.now}
}

func (s *progressService) GetProgress(ctx context.Context, userID string) (*models.Progress, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting progress: user_id=%s", userID)

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		log.Error("failed to get user: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if u == nil {
		return nil, errors.NewNotFoundError("user", userID)
	}

	now := s.now()
	current := u.CurrentStreak
	if u.LastTrainedDate == nil || streak.DaysBetween(*u.LastTrainedDate, now) > 1 {
		current = 0
	}

	return &models.Progress{
		UserID:                u.ID,
		Username:              u.Username,
		TotalCorrectAttempts:  u.TotalCorrectAttempts,
		WeeklyCorrectAttempts: weekly.Current(u.WeeklyCorrectAttempts, u.WeeklyCorrectStartDate, now),
		TotalXP:               u.TotalXP,
		WeeklyXP:              weekly.Current(u.WeeklyXP, u.WeeklyXPStartDate, now),
		CurrentStreak:         current,
		LongestStreak:         u.LongestStreak,
		LastTrainedDate:       u.LastTrainedDate,
		Level:                 s.xp.Progress(u.TotalXP),
	}, nil
}
