package mocks

import (
	"github.com/stretchr/testify/mock"
	"github.com/vytor/chesscycles/internal/achievements"
)

// MockJobQueue is a mock implementation of jobs.JobQueue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueueAchievementEvaluation(userID string, evt achievements.Context) error {
	args := m.Called(userID, evt)
	return args.Error(0)
}
