package services

import (
	"context"
	"time"

	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/errors"
	"github.com/vytor/chesscycles/internal/logger"
	"github.com/vytor/chesscycles/internal/models"
	"github.com/vytor/chesscycles/internal/repository"
)

// AchievementService evaluates and persists achievement unlocks
type AchievementService interface {
	// Evaluate decides which locked achievements the event satisfies and
	// persists them. Only ids that were newly inserted are returned.
	Evaluate(ctx context.Context, userID string, evt achievements.Context) ([]models.UnlockedAchievement, error)
	List(ctx context.Context, userID string) ([]models.AchievementStatus, error)
	RecordLeaderboardRank(ctx context.Context, userID string, rank int) ([]models.UnlockedAchievement, error)
}

type achievementService struct {
	catalog *achievements.Catalog
	repo    repository.AchievementRepository
	now     func() time.Time
}

// NewAchievementService creates a new AchievementService
func NewAchievementService(catalog *achievements.Catalog, repo repository.AchievementRepository, opts ...Option) AchievementService {
	o := applyOptions(opts)
	return &achievementService{catalog: catalog, repo: repo, now: o.now}
}

func (s *achievementService) Evaluate(ctx context.Context, userID string, evt achievements.Context) ([]models.UnlockedAchievement, error) {
	log := logger.FromContext(ctx).WithField("user_id", userID)

	unlocked, err := s.repo.UnlockedIDs(ctx, userID)
	if err != nil {
		log.Error("failed to load unlocked achievements: %v", err)
		return nil, err
	}
	if s.catalog.Complete(unlocked) {
		log.Debug("all %d achievements unlocked, skipping evaluation", s.catalog.Size())
		return nil, nil
	}

	ids := s.catalog.EvaluateContext(evt, unlocked)

	if req, ok := s.catalog.HistoryRequest(unlocked); ok {
		stats, err := s.repo.History(ctx, userID, req)
		if err != nil {
			log.Error("failed to aggregate attempt history: %v", err)
			return nil, err
		}
		ids = append(ids, s.catalog.EvaluateHistory(stats, unlocked)...)
	}

	at := evt.At
	if at.IsZero() {
		at = s.now()
	}
	return s.unlock(ctx, log, userID, ids, at)
}

func (s *achievementService) unlock(ctx context.Context, log *logger.Logger, userID string, ids []string, at time.Time) ([]models.UnlockedAchievement, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	inserted, err := s.repo.Unlock(ctx, userID, ids, at)
	if err != nil {
		log.Error("failed to persist unlocks %v: %v", ids, err)
		return nil, err
	}

	out := make([]models.UnlockedAchievement, 0, len(inserted))
	for _, id := range inserted {
		def, ok := s.catalog.Get(id)
		if !ok {
			continue
		}
		out = append(out, models.UnlockedAchievement{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			UnlockedAt:  at.UTC(),
		})
	}
	if len(out) > 0 {
		log.Info("unlocked achievements: %v", inserted)
	}
	return out, nil
}

func (s *achievementService) List(ctx context.Context, userID string) ([]models.AchievementStatus, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing achievements: user_id=%s", userID)

	rows, err := s.repo.ListUnlocked(ctx, userID)
	if err != nil {
		log.Error("failed to list unlocked achievements: %v", err)
		return nil, errors.NewInternalError(err)
	}
	unlockedAt := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		unlockedAt[r.AchievementID] = r.UnlockedAt
	}

	defs := s.catalog.All()
	out := make([]models.AchievementStatus, 0, len(defs))
	for _, d := range defs {
		st := models.AchievementStatus{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Category:    d.Category,
			Icon:        d.Icon,
		}
		if at, ok := unlockedAt[d.ID]; ok {
			st.Unlocked = true
			st.UnlockedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *achievementService) RecordLeaderboardRank(ctx context.Context, userID string, rank int) ([]models.UnlockedAchievement, error) {
	log := logger.FromContext(ctx).WithField("user_id", userID)
	log.Debug("evaluating leaderboard rank %d", rank)

	if rank <= 0 {
		return nil, errors.NewValidationError("rank", "must be a positive integer")
	}

	unlocked, err := s.repo.UnlockedIDs(ctx, userID)
	if err != nil {
		log.Error("failed to load unlocked achievements: %v", err)
		return nil, errors.NewInternalError(err)
	}

	out, err := s.unlock(ctx, log, userID, s.catalog.EvaluateLeaderboardRank(rank, unlocked), s.now())
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if out == nil {
		out = []models.UnlockedAchievement{}
	}
	return out, nil
}
