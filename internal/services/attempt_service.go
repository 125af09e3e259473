package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/chessmove"
	"github.com/vytor/chesscycles/internal/errors"
	"github.com/vytor/chesscycles/internal/jobs"
	"github.com/vytor/chesscycles/internal/logger"
	"github.com/vytor/chesscycles/internal/models"
	"github.com/vytor/chesscycles/internal/repository"
	"github.com/vytor/chesscycles/internal/streak"
	"github.com/vytor/chesscycles/internal/weekly"
	"github.com/vytor/chesscycles/internal/xp"
)

// MaxTimeSpentMs is the longest accepted solve time, one hour.
const MaxTimeSpentMs = 3_600_000

// AttemptService records puzzle attempts and the progress they cause
type AttemptService interface {
	RecordAttempt(ctx context.Context, in models.RecordAttemptInput) (*models.AttemptOutcome, error)
}

// Repositories groups the data access the attempt path needs.
type Repositories struct {
	Sets     repository.PuzzleSetRepository
	Attempts repository.AttemptRepository
}

type attemptService struct {
	repos        Repositories
	achievements AchievementService
	queue        jobs.JobQueue
	xp           xp.Config
	now          func() time.Time
}

// NewAttemptService creates a new AttemptService. queue may be nil, in which
// case failed achievement evaluations are only logged.
func NewAttemptService(repos Repositories, achievementSvc AchievementService, queue jobs.JobQueue, cfg xp.Config, opts ...Option) AttemptService {
	o := applyOptions(opts)
	return &attemptService{
		repos:        repos,
		achievements: achievementSvc,
		queue:        queue,
		xp:           cfg,
		now:          o.now,
	}
}

// validateAttempt checks the submission and returns its moves in canonical
// lowercase UCI form.
func validateAttempt(in models.RecordAttemptInput) ([]string, error) {
	if in.UserID == "" {
		return nil, errors.NewUnauthorizedError("caller identity is required")
	}

	details := map[string]string{}
	if in.PuzzleSetID <= 0 {
		details["setId"] = "must be a positive integer"
	}
	if in.CycleID <= 0 {
		details["cycleId"] = "must be a positive integer"
	}
	if in.PuzzleInSetID <= 0 {
		details["puzzleInSetId"] = "must be a positive integer"
	}
	if in.TimeSpentMs < 1 || in.TimeSpentMs > MaxTimeSpentMs {
		details["timeSpent"] = fmt.Sprintf("must be between 1 and %d", MaxTimeSpentMs)
	}
	moves, idx, err := chessmove.Canonicalize(in.MovesPlayed)
	if err != nil {
		details[fmt.Sprintf("movesPlayed[%d]", idx)] = err.Error()
	}
	if len(details) > 0 {
		return nil, errors.NewFieldValidationError(details)
	}
	return moves, nil
}

type preconditions struct {
	set       *models.PuzzleSet
	cycle     *models.Cycle
	puzzle    *models.PuzzleInSet
	duplicate bool
	previous  *models.Attempt
}

// loadPreconditions issues the independent reads concurrently.
func (s *attemptService) loadPreconditions(ctx context.Context, in models.RecordAttemptInput) (*preconditions, error) {
	var p preconditions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p.set, err = s.repos.Sets.GetSet(gctx, in.PuzzleSetID)
		return err
	})
	g.Go(func() (err error) {
		p.cycle, err = s.repos.Sets.GetCycle(gctx, in.CycleID)
		return err
	})
	g.Go(func() (err error) {
		p.puzzle, err = s.repos.Sets.GetPuzzleInSet(gctx, in.PuzzleInSetID)
		return err
	})
	g.Go(func() (err error) {
		p.duplicate, err = s.repos.Attempts.Exists(gctx, in.CycleID, in.PuzzleInSetID)
		return err
	})
	g.Go(func() (err error) {
		p.previous, err = s.repos.Attempts.Latest(gctx, in.PuzzleInSetID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *preconditions) check(in models.RecordAttemptInput) error {
	switch {
	case p.set == nil:
		return errors.NewNotFoundError("puzzle set", in.PuzzleSetID)
	case p.set.UserID != in.UserID:
		return errors.NewForbiddenError("puzzle set", in.PuzzleSetID)
	case p.cycle == nil || p.cycle.PuzzleSetID != in.PuzzleSetID:
		return errors.NewNotFoundError("cycle", in.CycleID)
	case p.puzzle == nil || p.puzzle.PuzzleSetID != in.PuzzleSetID:
		return errors.NewNotFoundError("puzzle in set", in.PuzzleInSetID)
	case p.duplicate:
		return errors.NewDuplicateAttemptError(in.CycleID, in.PuzzleInSetID)
	case p.cycle.IsCompleted():
		return errors.NewValidationError("cycleId", "cycle already completed")
	}
	return nil
}

// progressResult carries what the in-transaction callback decided.
type progressResult struct {
	streak        streak.Result
	gain          xp.Gain
	previousTotal int
	previousLevel int
	cycleDone     bool
}

func (s *attemptService) progressFunc(in models.RecordAttemptInput, p *preconditions, now time.Time, out *progressResult) models.ProgressFunc {
	solved := in.IsCorrect && !in.WasSkipped
	return func(u models.User, c models.Cycle) (models.User, error) {
		st := streak.Update(u.LastTrainedDate, u.CurrentStreak, u.LongestStreak, now)
		if st.Incremented {
			u.CurrentStreak = st.NewStreak
			u.LongestStreak = st.NewLongestStreak
			day := now
			u.LastTrainedDate = &day
		}

		if solved {
			u.TotalCorrectAttempts++
			var start time.Time
			u.WeeklyCorrectAttempts, start = weekly.Roll(u.WeeklyCorrectAttempts, u.WeeklyCorrectStartDate, 1, now)
			u.WeeklyCorrectStartDate = &start
		}

		input := xp.AttemptInput{
			IsCorrect:     in.IsCorrect,
			WasSkipped:    in.WasSkipped,
			TimeSpentMs:   in.TimeSpentMs,
			PuzzleRating:  p.puzzle.PuzzleRating,
			CurrentStreak: u.CurrentStreak,
			FirstAttempt:  p.previous == nil,
		}
		if p.previous != nil {
			input.Previous = &xp.PreviousAttempt{
				IsCorrect:   p.previous.IsCorrect,
				WasSkipped:  p.previous.WasSkipped,
				TimeSpentMs: p.previous.TimeSpentMs,
			}
		}
		gain := s.xp.ForAttempt(input, u.TotalXP)

		// The cycle update only succeeds on open cycles, so a stamped
		// completion here was caused by this attempt.
		cycleDone := c.IsCompleted()
		if cycleDone {
			gain = xp.Combine(gain, s.xp.ForCycle(c.SolvedCorrect, c.TotalPuzzles, gain.NewTotal))
		}

		previousTotal := u.TotalXP
		u.TotalXP = gain.NewTotal
		u.CurrentLevel = s.xp.Level(u.TotalXP)
		var xpStart time.Time
		u.WeeklyXP, xpStart = weekly.Roll(u.WeeklyXP, u.WeeklyXPStartDate, gain.Amount, now)
		u.WeeklyXPStartDate = &xpStart

		*out = progressResult{
			streak:        st,
			gain:          gain,
			previousTotal: previousTotal,
			previousLevel: s.xp.Level(previousTotal),
			cycleDone:     cycleDone,
		}
		return u, nil
	}
}

func (s *attemptService) RecordAttempt(ctx context.Context, in models.RecordAttemptInput) (*models.AttemptOutcome, error) {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"user_id":          in.UserID,
		"cycle_id":         in.CycleID,
		"puzzle_in_set_id": in.PuzzleInSetID,
	})
	log.Debug("recording attempt: correct=%t, skipped=%t, time=%dms", in.IsCorrect, in.WasSkipped, in.TimeSpentMs)

	moves, err := validateAttempt(in)
	if err != nil {
		log.Debug("attempt rejected: %v", err)
		return nil, err
	}

	pre, err := s.loadPreconditions(ctx, in)
	if err != nil {
		log.Error("failed to load attempt preconditions: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if err := pre.check(in); err != nil {
		log.Debug("attempt rejected: %v", err)
		return nil, err
	}

	now := s.now().UTC()
	attempt := models.Attempt{
		PuzzleInSetID: in.PuzzleInSetID,
		CycleID:       in.CycleID,
		// A skipped attempt never counts as correct.
		IsCorrect:   in.IsCorrect && !in.WasSkipped,
		TimeSpentMs: in.TimeSpentMs,
		WasSkipped:  in.WasSkipped,
		MovesPlayed: moves,
		CreatedAt:   now,
	}

	var prog progressResult
	commit, err := s.repos.Attempts.Record(ctx, attempt, s.progressFunc(in, pre, now, &prog))
	if err != nil {
		return nil, s.mapRecordError(log, in, err)
	}

	outcome := &models.AttemptOutcome{
		Attempt:      commit.Attempt,
		Cycle:        commit.Cycle,
		IsLastPuzzle: commit.Cycle.IsCompleted(),
		Streak:       prog.streak,
		XP: models.XPSummary{
			Gained:        prog.gain.Amount,
			Breakdown:     prog.gain.Breakdown,
			NewTotal:      commit.User.TotalXP,
			PreviousLevel: prog.previousLevel,
			NewLevel:      commit.User.CurrentLevel,
			LeveledUp:     s.xp.LeveledUp(prog.previousTotal, commit.User.TotalXP),
		},
		User:                 commit.User,
		UnlockedAchievements: []models.UnlockedAchievement{},
	}
	log.Info("attempt recorded: id=%d, xp=+%d, streak=%d", commit.Attempt.ID, prog.gain.Amount, commit.User.CurrentStreak)
	if prog.cycleDone {
		log.Info("cycle %d completed: %d/%d correct", commit.Cycle.CycleNumber, commit.Cycle.SolvedCorrect, commit.Cycle.TotalPuzzles)
	}
	if outcome.XP.LeveledUp {
		log.Info("level up: %d -> %d", prog.previousLevel, commit.User.CurrentLevel)
	}

	evt := achievementContext(attempt, commit, pre.puzzle.PuzzleRating, prog)
	unlocked, err := s.achievements.Evaluate(ctx, in.UserID, evt)
	if err != nil {
		log.Warn("achievement evaluation failed, deferring: %v", err)
		s.deferEvaluation(log, in.UserID, evt)
		return outcome, nil
	}
	if len(unlocked) > 0 {
		outcome.UnlockedAchievements = unlocked
	}
	return outcome, nil
}

func (s *attemptService) deferEvaluation(log *logger.Logger, userID string, evt achievements.Context) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueAchievementEvaluation(userID, evt); err != nil {
		log.Error("failed to enqueue achievement evaluation: %v", err)
	}
}

func (s *attemptService) mapRecordError(log *logger.Logger, in models.RecordAttemptInput, err error) error {
	switch {
	case stderrors.Is(err, repository.ErrDuplicateAttempt):
		log.Debug("duplicate attempt caught by constraint")
		return errors.NewDuplicateAttemptError(in.CycleID, in.PuzzleInSetID)
	case stderrors.Is(err, repository.ErrCycleClosed):
		return errors.NewValidationError("cycleId", "cycle already completed")
	case stderrors.Is(err, repository.ErrUserNotFound):
		return errors.NewNotFoundError("user", in.UserID)
	}
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	log.Error("failed to record attempt: %v", err)
	return errors.NewInternalError(err)
}

func achievementContext(a models.Attempt, commit *models.AttemptCommit, rating int, prog progressResult) achievements.Context {
	evt := achievements.Context{
		At:            a.CreatedAt,
		IsCorrect:     a.IsCorrect,
		WasSkipped:    a.WasSkipped,
		TimeSpentMs:   a.TimeSpentMs,
		PuzzleRating:  rating,
		TotalCorrect:  commit.User.TotalCorrectAttempts,
		WeeklyCorrect: weekly.Current(commit.User.WeeklyCorrectAttempts, commit.User.WeeklyCorrectStartDate, a.CreatedAt),
		Level:         commit.User.CurrentLevel,
		CurrentStreak: commit.User.CurrentStreak,
		Streak:        &achievements.StreakFacts{Incremented: prog.streak.Incremented, Broken: prog.streak.Broken},
	}
	if prog.cycleDone {
		evt.Cycle = &achievements.CycleFacts{Correct: commit.Cycle.SolvedCorrect, Total: commit.Cycle.TotalPuzzles}
	}
	return evt
}
