package jobs

import "github.com/vytor/chesscycles/internal/achievements"

// JobQueue provides an abstraction for enqueueing background jobs
type JobQueue interface {
	EnqueueAchievementEvaluation(userID string, evt achievements.Context) error
}
