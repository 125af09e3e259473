package api

import (
	"context"

	"github.com/vytor/chesscycles/internal/auth"
	"github.com/vytor/chesscycles/internal/services"
)

// Pinger reports datastore reachability for the readiness check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	Attempts     services.AttemptService
	Progress     services.ProgressService
	Achievements services.AchievementService
	DB           Pinger
	Identity     auth.Resolver
}
