package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/models"
)

// MockAchievementService is a mock implementation of services.AchievementService
type MockAchievementService struct {
	mock.Mock
}

func (m *MockAchievementService) Evaluate(ctx context.Context, userID string, evt achievements.Context) ([]models.UnlockedAchievement, error) {
	args := m.Called(ctx, userID, evt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UnlockedAchievement), args.Error(1)
}

func (m *MockAchievementService) List(ctx context.Context, userID string) ([]models.AchievementStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AchievementStatus), args.Error(1)
}

func (m *MockAchievementService) RecordLeaderboardRank(ctx context.Context, userID string, rank int) ([]models.UnlockedAchievement, error) {
	args := m.Called(ctx, userID, rank)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UnlockedAchievement), args.Error(1)
}
