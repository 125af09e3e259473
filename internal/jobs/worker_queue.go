package jobs

import (
	"time"

	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/worker"
)

// WorkerQueue implements JobQueue using a worker pool
type WorkerQueue struct {
	pool       *worker.Pool
	evaluator  worker.AchievementEvaluator
	maxRetries int
	backoff    time.Duration
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(pool *worker.Pool, evaluator worker.AchievementEvaluator, maxRetries int, backoff time.Duration) JobQueue {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &WorkerQueue{
		pool:       pool,
		evaluator:  evaluator,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

func (q *WorkerQueue) EnqueueAchievementEvaluation(userID string, evt achievements.Context) error {
	return q.pool.Submit(&worker.EvaluateAchievementsJob{
		Evaluator:  q.evaluator,
		UserID:     userID,
		Event:      evt,
		Try:        1,
		MaxRetries: q.maxRetries,
		Backoff:    q.backoff,
		Resubmit:   q.pool.Submit,
	})
}
