package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/chesscycles/internal/models"
)

// MockAttemptService is a mock implementation of services.AttemptService
type MockAttemptService struct {
	mock.Mock
}

func (m *MockAttemptService) RecordAttempt(ctx context.Context, in models.RecordAttemptInput) (*models.AttemptOutcome, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttemptOutcome), args.Error(1)
}

// MockProgressService is a mock implementation of services.ProgressService
type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) GetProgress(ctx context.Context, userID string) (*models.Progress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Progress), args.Error(1)
}
