package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/models"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockPuzzleSetRepository is a mock implementation of repository.PuzzleSetRepository
type MockPuzzleSetRepository struct {
	mock.Mock
}

func (m *MockPuzzleSetRepository) GetSet(ctx context.Context, id int64) (*models.PuzzleSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PuzzleSet), args.Error(1)
}

func (m *MockPuzzleSetRepository) GetPuzzleInSet(ctx context.Context, id int64) (*models.PuzzleInSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PuzzleInSet), args.Error(1)
}

func (m *MockPuzzleSetRepository) GetCycle(ctx context.Context, id int64) (*models.Cycle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cycle), args.Error(1)
}

// MockAttemptRepository is a mock implementation of repository.AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Exists(ctx context.Context, cycleID, puzzleInSetID int64) (bool, error) {
	args := m.Called(ctx, cycleID, puzzleInSetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttemptRepository) Latest(ctx context.Context, puzzleInSetID int64) (*models.Attempt, error) {
	args := m.Called(ctx, puzzleInSetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) Record(ctx context.Context, attempt models.Attempt, progress models.ProgressFunc) (*models.AttemptCommit, error) {
	args := m.Called(ctx, attempt, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttemptCommit), args.Error(1)
}

// MockAchievementRepository is a mock implementation of repository.AchievementRepository
type MockAchievementRepository struct {
	mock.Mock
}

func (m *MockAchievementRepository) SyncCatalog(ctx context.Context, defs []achievements.Definition) error {
	args := m.Called(ctx, defs)
	return args.Error(0)
}

func (m *MockAchievementRepository) UnlockedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockAchievementRepository) ListUnlocked(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserAchievement), args.Error(1)
}

func (m *MockAchievementRepository) History(ctx context.Context, userID string, req models.HistoryRequest) (*models.HistoricalStats, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HistoricalStats), args.Error(1)
}

func (m *MockAchievementRepository) Unlock(ctx context.Context, userID string, ids []string, at time.Time) ([]string, error) {
	args := m.Called(ctx, userID, ids, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
