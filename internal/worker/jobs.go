package worker

import (
	"context"
	"time"

	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/logger"
	"github.com/vytor/chesscycles/internal/models"
)

// AchievementEvaluator is satisfied by services.AchievementService. Declared
// here so the worker package does not import services.
type AchievementEvaluator interface {
	Evaluate(ctx context.Context, userID string, evt achievements.Context) ([]models.UnlockedAchievement, error)
}

// EvaluateAchievementsJob re-runs achievement evaluation for an attempt whose
// synchronous evaluation failed. Unlocks are idempotent, so repeating is safe.
type EvaluateAchievementsJob struct {
	Evaluator  AchievementEvaluator
	UserID     string
	Event      achievements.Context
	Try        int
	MaxRetries int
	Backoff    time.Duration
	// Resubmit schedules the next try; nil disables retrying.
	Resubmit func(Job) error
}

func (j *EvaluateAchievementsJob) Name() string { return "evaluate_achievements" }

func (j *EvaluateAchievementsJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"user_id": j.UserID,
		"try":     j.Try,
	})

	if j.Backoff > 0 && j.Try > 1 {
		timer := time.NewTimer(time.Duration(j.Try-1) * j.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	unlocked, err := j.Evaluator.Evaluate(ctx, j.UserID, j.Event)
	if err == nil {
		log.Info("deferred evaluation unlocked %d achievements", len(unlocked))
		return nil
	}

	if j.Resubmit == nil || j.Try >= j.MaxRetries {
		log.Error("giving up on achievement evaluation: %v", err)
		return err
	}

	next := *j
	next.Try++
	if subErr := j.Resubmit(&next); subErr != nil {
		log.Error("failed to resubmit achievement evaluation: %v", subErr)
		return err
	}
	log.Warn("achievement evaluation failed, retry %d scheduled: %v", next.Try, err)
	return nil
}
