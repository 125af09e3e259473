package services_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/db"
	"github.com/vytor/chesscycles/internal/errors"
	"github.com/vytor/chesscycles/internal/models"
	"github.com/vytor/chesscycles/internal/repository"
	"github.com/vytor/chesscycles/internal/repository/sqlite"
	"github.com/vytor/chesscycles/internal/services"
	"github.com/vytor/chesscycles/internal/testutil"
	"github.com/vytor/chesscycles/internal/testutil/mocks"
	"github.com/vytor/chesscycles/internal/weekly"
	"github.com/vytor/chesscycles/internal/xp"
)

// Wednesday noon, clear of the early/late practice hours.
var now = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func ptr(t time.Time) *time.Time { return &t }

type AttemptServiceTestSuite struct {
	suite.Suite
	db       *db.DB
	sets     repository.PuzzleSetRepository
	attempts repository.AttemptRepository
	users    repository.UserRepository
	service  services.AttemptService
	ctx      context.Context
}

func (s *AttemptServiceTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.sets = sqlite.NewPuzzleSetRepository(s.db)
	s.attempts = sqlite.NewAttemptRepository(s.db)
	s.users = sqlite.NewUserRepository(s.db)
	achievementSvc := services.NewAchievementService(achievements.Default(), sqlite.NewAchievementRepository(s.db), services.WithClock(clock))
	s.service = services.NewAttemptService(
		services.Repositories{Sets: s.sets, Attempts: s.attempts},
		achievementSvc, nil, xp.DefaultConfig(), services.WithClock(clock))
	s.ctx = context.Background()
}

func TestAttemptServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AttemptServiceTestSuite))
}

// fixture creates a user owning a set of n puzzles with an open first cycle.
func (s *AttemptServiceTestSuite) fixture(u models.User, n int) (models.PuzzleSet, []models.PuzzleInSet, models.Cycle) {
	testutil.CreateUser(s.T(), s.db, u)
	puzzles := make([]models.Puzzle, 0, n)
	for i := 0; i < n; i++ {
		puzzles = append(puzzles, testutil.CreatePuzzle(s.T(), s.db, u.ID+"-p"+string(rune('a'+i)), 1200, "fork"))
	}
	set, members := testutil.CreateSet(s.T(), s.db, u.ID, puzzles...)
	cycle := testutil.StartCycle(s.T(), s.db, set.ID, 1, n)
	return set, members, cycle
}

func input(userID string, set models.PuzzleSet, cycle models.Cycle, pis models.PuzzleInSet) models.RecordAttemptInput {
	return models.RecordAttemptInput{
		UserID:        userID,
		PuzzleSetID:   set.ID,
		CycleID:       cycle.ID,
		PuzzleInSetID: pis.ID,
		TimeSpentMs:   2000,
		IsCorrect:     true,
		MovesPlayed:   []string{"f3f7"},
	}
}

func unlockedIDs(out *models.AttemptOutcome) []string {
	ids := make([]string, 0, len(out.UnlockedAchievements))
	for _, a := range out.UnlockedAchievements {
		ids = append(ids, a.ID)
	}
	return ids
}

func (s *AttemptServiceTestSuite) TestFirstAttemptCompletesSinglePuzzleCycle() {
	set, members, cycle := s.fixture(models.User{ID: "u1"}, 1)

	out, err := s.service.RecordAttempt(s.ctx, input("u1", set, cycle, members[0]))
	s.Require().NoError(err)

	s.True(out.IsLastPuzzle)
	s.NotNil(out.Cycle.CompletedAt)
	s.Equal(1, out.Cycle.SolvedCorrect)
	s.Equal(int64(2000), out.Cycle.TotalTime)
	s.Equal(1, out.User.CurrentStreak)
	s.Equal(1, out.User.TotalCorrectAttempts)
	s.True(out.Streak.Incremented)
	s.True(out.Streak.IsNewRecord)

	// 21 for the puzzle, 125 for a perfect one-puzzle cycle.
	s.Equal(146, out.XP.Gained)
	s.Equal(146, out.XP.NewTotal)
	s.Equal(1, out.XP.PreviousLevel)
	s.Equal(2, out.XP.NewLevel)
	s.True(out.XP.LeveledUp)

	s.ElementsMatch([]string{
		"first-blood", "quick-thinker", "speed-demon",
		"cycle-complete", "sharpshooter", "perfectionist",
	}, unlockedIDs(out))
	for _, a := range out.UnlockedAchievements {
		s.True(now.Equal(a.UnlockedAt))
		s.NotEmpty(a.Name)
	}

	stored, err := s.users.Get(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(146, stored.TotalXP)
	s.Equal(2, stored.CurrentLevel)
	s.Equal(146, stored.WeeklyXP)
	s.True(weekly.WeekStart(now).Equal(*stored.WeeklyXPStartDate))

	pis, err := s.sets.GetPuzzleInSet(s.ctx, members[0].ID)
	s.Require().NoError(err)
	s.Equal(1, pis.TotalAttempts)
	s.Equal(1, pis.CorrectAttempts)
	s.Require().NotNil(pis.AverageTime)
	s.InDelta(2000.0, *pis.AverageTime, 0.001)
}

func (s *AttemptServiceTestSuite) TestGainWithinLevelDoesNotLevelUp() {
	set, members, cycle := s.fixture(models.User{ID: "u1", TotalXP: 120, CurrentLevel: 2}, 1)

	out, err := s.service.RecordAttempt(s.ctx, input("u1", set, cycle, members[0]))
	s.Require().NoError(err)

	s.Less(out.XP.NewTotal, 300)
	s.Equal(2, out.XP.PreviousLevel)
	s.Equal(2, out.XP.NewLevel)
	s.False(out.XP.LeveledUp)
}

func (s *AttemptServiceTestSuite) TestMovesAreStoredLowercase() {
	set, members, cycle := s.fixture(models.User{ID: "u1"}, 1)
	in := input("u1", set, cycle, members[0])
	in.MovesPlayed = []string{"E2E4", "e7e8Q"}

	out, err := s.service.RecordAttempt(s.ctx, in)
	s.Require().NoError(err)

	s.Equal([]string{"e2e4", "e7e8q"}, out.Attempt.MovesPlayed)
}

func (s *AttemptServiceTestSuite) TestStreakContinuesFromYesterday() {
	tests := []struct {
		name    string
		longest int
		record  bool
	}{
		{"ties previous best", 5, true},
		{"below previous best", 10, false},
	}

	for i, tt := range tests {
		s.Run(tt.name, func() {
			id := []string{"streak-a", "streak-b"}[i]
			set, members, cycle := s.fixture(models.User{
				ID:              id,
				CurrentStreak:   5,
				LongestStreak:   tt.longest,
				LastTrainedDate: ptr(now.AddDate(0, 0, -1)),
			}, 2)

			in := input(id, set, cycle, members[0])
			in.IsCorrect = false
			out, err := s.service.RecordAttempt(s.ctx, in)
			s.Require().NoError(err)

			s.True(out.Streak.Incremented)
			s.Equal(6, out.Streak.NewStreak)
			s.Equal(tt.record, out.Streak.IsNewRecord)
			s.Equal(max(6, tt.longest), out.User.LongestStreak)
			s.False(out.IsLastPuzzle)
		})
	}
}

func (s *AttemptServiceTestSuite) TestSecondAttemptSameDayKeepsStreak() {
	set, members, cycle := s.fixture(models.User{ID: "u1"}, 2)

	_, err := s.service.RecordAttempt(s.ctx, input("u1", set, cycle, members[0]))
	s.Require().NoError(err)
	out, err := s.service.RecordAttempt(s.ctx, input("u1", set, cycle, members[1]))
	s.Require().NoError(err)

	s.False(out.Streak.Incremented)
	s.Equal(1, out.User.CurrentStreak)
	s.True(out.IsLastPuzzle)
	s.Equal(2, out.User.TotalCorrectAttempts)
}

func (s *AttemptServiceTestSuite) TestDuplicateSubmissionChangesNothing() {
	set, members, cycle := s.fixture(models.User{ID: "u1"}, 2)
	in := input("u1", set, cycle, members[0])

	first, err := s.service.RecordAttempt(s.ctx, in)
	s.Require().NoError(err)

	_, err = s.service.RecordAttempt(s.ctx, in)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeDuplicateAttempt))

	after, err := s.sets.GetCycle(s.ctx, cycle.ID)
	s.Require().NoError(err)
	s.Equal(first.Cycle.SolvedCorrect, after.SolvedCorrect)
	s.Equal(first.Cycle.TotalTime, after.TotalTime)

	u, err := s.users.Get(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(first.User.TotalXP, u.TotalXP)
	s.Equal(1, u.TotalCorrectAttempts)
}

func (s *AttemptServiceTestSuite) TestConcurrentDuplicatesRecordOnce() {
	set, members, cycle := s.fixture(models.User{ID: "u1"}, 2)
	in := input("u1", set, cycle, members[0])

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.RecordAttempt(s.ctx, in)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(errors.HasCode(err, errors.ErrCodeDuplicateAttempt), "unexpected error: %v", err)
	}
	s.Equal(1, succeeded)

	c, err := s.sets.GetCycle(s.ctx, cycle.ID)
	s.Require().NoError(err)
	s.Equal(1, c.Answered())
}

func (s *AttemptServiceTestSuite) TestCenturyUnlocksAtHundredthCorrect() {
	set, members, cycle := s.fixture(models.User{ID: "u1", TotalCorrectAttempts: 99}, 2)
	in := input("u1", set, cycle, members[0])
	in.TimeSpentMs = 30_000

	out, err := s.service.RecordAttempt(s.ctx, in)
	s.Require().NoError(err)

	s.Equal(100, out.User.TotalCorrectAttempts)
	s.Contains(unlockedIDs(out), "century")
	s.NotContains(unlockedIDs(out), "quick-thinker")
}

func (s *AttemptServiceTestSuite) TestSkippedAttemptNeverCountsAsCorrect() {
	set, members, cycle := s.fixture(models.User{ID: "u1"}, 2)
	in := input("u1", set, cycle, members[0])
	in.WasSkipped = true

	out, err := s.service.RecordAttempt(s.ctx, in)
	s.Require().NoError(err)

	s.False(out.Attempt.IsCorrect)
	s.True(out.Attempt.WasSkipped)
	s.Equal(1, out.Cycle.Skipped)
	s.Equal(0, out.Cycle.SolvedCorrect)
	s.Equal(0, out.User.TotalCorrectAttempts)
	s.Equal(0, out.XP.Gained)
	// Training still counts toward the streak.
	s.Equal(1, out.User.CurrentStreak)
	s.NotContains(unlockedIDs(out), "first-blood")
}

func (s *AttemptServiceTestSuite) TestWeeklyCounterRollsOver() {
	stale := now.AddDate(0, 0, -14)
	set, members, cycle := s.fixture(models.User{
		ID:                     "u1",
		WeeklyCorrectAttempts:  40,
		WeeklyCorrectStartDate: &stale,
		WeeklyXP:               900,
		WeeklyXPStartDate:      &stale,
	}, 2)

	out, err := s.service.RecordAttempt(s.ctx, input("u1", set, cycle, members[0]))
	s.Require().NoError(err)

	s.Equal(1, out.User.WeeklyCorrectAttempts)
	s.True(weekly.WeekStart(now).Equal(*out.User.WeeklyCorrectStartDate))
	s.Equal(out.XP.Gained, out.User.WeeklyXP)
}

func (s *AttemptServiceTestSuite) TestPreconditionFailures() {
	set, members, cycle := s.fixture(models.User{ID: "owner"}, 2)
	testutil.CreateUser(s.T(), s.db, models.User{ID: "intruder"})
	_, otherMembers, otherCycle := s.fixture(models.User{ID: "other"}, 1)

	tests := []struct {
		name   string
		mutate func(*models.RecordAttemptInput)
		code   string
	}{
		{"missing identity", func(in *models.RecordAttemptInput) { in.UserID = "" }, errors.ErrCodeUnauthorized},
		{"time out of range", func(in *models.RecordAttemptInput) { in.TimeSpentMs = 3_600_001 }, errors.ErrCodeValidation},
		{"zero time", func(in *models.RecordAttemptInput) { in.TimeSpentMs = 0 }, errors.ErrCodeValidation},
		{"bad move", func(in *models.RecordAttemptInput) { in.MovesPlayed = []string{"e2e4", "zz99"} }, errors.ErrCodeValidation},
		{"not the owner", func(in *models.RecordAttemptInput) { in.UserID = "intruder" }, errors.ErrCodeForbidden},
		{"missing set", func(in *models.RecordAttemptInput) { in.PuzzleSetID = 9999 }, errors.ErrCodeNotFound},
		{"cycle of another set", func(in *models.RecordAttemptInput) { in.CycleID = otherCycle.ID }, errors.ErrCodeNotFound},
		{"puzzle of another set", func(in *models.RecordAttemptInput) { in.PuzzleInSetID = otherMembers[0].ID }, errors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			in := input("owner", set, cycle, members[0])
			tt.mutate(&in)
			_, err := s.service.RecordAttempt(s.ctx, in)
			s.Require().Error(err)
			s.True(errors.HasCode(err, tt.code), "got %v", err)
		})
	}

	exists, err := s.attempts.Exists(s.ctx, cycle.ID, members[0].ID)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *AttemptServiceTestSuite) TestBadMoveReportsIndex() {
	set, members, cycle := s.fixture(models.User{ID: "u1"}, 1)
	in := input("u1", set, cycle, members[0])
	in.MovesPlayed = []string{"e2e4", "e7e5", "e1e1"}

	_, err := s.service.RecordAttempt(s.ctx, in)

	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Contains(appErr.Details, "movesPlayed[2]")
}

func (s *AttemptServiceTestSuite) TestCompletedCycleRejectsAttempts() {
	set, members, cycle := s.fixture(models.User{ID: "u1"}, 1)
	_, err := s.service.RecordAttempt(s.ctx, input("u1", set, cycle, members[0]))
	s.Require().NoError(err)

	// A second puzzle added after the cycle snapshot cannot reopen it.
	p := testutil.CreatePuzzle(s.T(), s.db, "late", 1500)
	res, err := s.db.Exec(`INSERT INTO puzzle_in_set (puzzle_set_id, puzzle_id, position) VALUES (?, ?, 2)`, set.ID, p.ID)
	s.Require().NoError(err)
	lateID, err := res.LastInsertId()
	s.Require().NoError(err)

	in := input("u1", set, cycle, models.PuzzleInSet{ID: lateID})
	_, err = s.service.RecordAttempt(s.ctx, in)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeValidation))
}

func (s *AttemptServiceTestSuite) TestRetryOnLaterCycleEarnsImprovement() {
	set, members, cycle := s.fixture(models.User{ID: "u1"}, 1)
	first := input("u1", set, cycle, members[0])
	first.IsCorrect = false
	_, err := s.service.RecordAttempt(s.ctx, first)
	s.Require().NoError(err)

	next := testutil.StartCycle(s.T(), s.db, set.ID, 2, 1)
	out, err := s.service.RecordAttempt(s.ctx, input("u1", set, next, members[0]))
	s.Require().NoError(err)

	var sources []string
	for _, e := range out.XP.Breakdown {
		sources = append(sources, e.Source)
	}
	s.Contains(sources, xp.SourceImprovement)
	s.NotContains(sources, xp.SourceFirstAttempt)

	pis, err := s.sets.GetPuzzleInSet(s.ctx, members[0].ID)
	s.Require().NoError(err)
	s.Equal(2, pis.TotalAttempts)
	s.Equal(1, pis.CorrectAttempts)
}

func TestRecordAttempt_AchievementFailureDoesNotFailResponse(t *testing.T) {
	database := testutil.NewTestDB(t)
	testutil.CreateUser(t, database, models.User{ID: "u1"})
	p := testutil.CreatePuzzle(t, database, "p1", 1400)
	set, members := testutil.CreateSet(t, database, "u1", p)
	cycle := testutil.StartCycle(t, database, set.ID, 1, 1)

	achievementSvc := new(mocks.MockAchievementService)
	achievementSvc.On("Evaluate", mock.Anything, "u1", mock.AnythingOfType("achievements.Context")).
		Return(nil, stderrors.New("database is locked"))
	queue := new(mocks.MockJobQueue)
	queue.On("EnqueueAchievementEvaluation", "u1", mock.MatchedBy(func(evt achievements.Context) bool {
		return evt.TotalCorrect == 1 && evt.Cycle != nil && evt.At.Equal(now)
	})).Return(nil)

	svc := services.NewAttemptService(
		services.Repositories{Sets: sqlite.NewPuzzleSetRepository(database), Attempts: sqlite.NewAttemptRepository(database)},
		achievementSvc, queue, xp.DefaultConfig(), services.WithClock(clock))

	out, err := svc.RecordAttempt(context.Background(), input("u1", set, cycle, members[0]))

	require.NoError(t, err)
	assert.True(t, out.IsLastPuzzle)
	assert.NotNil(t, out.UnlockedAchievements)
	assert.Empty(t, out.UnlockedAchievements)
	achievementSvc.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestRecordAttempt_LoadFailureIsInternal(t *testing.T) {
	sets := new(mocks.MockPuzzleSetRepository)
	attempts := new(mocks.MockAttemptRepository)
	sets.On("GetSet", mock.Anything, int64(1)).Return(nil, stderrors.New("disk I/O error"))
	sets.On("GetCycle", mock.Anything, int64(2)).Return(&models.Cycle{ID: 2, PuzzleSetID: 1, TotalPuzzles: 3}, nil).Maybe()
	sets.On("GetPuzzleInSet", mock.Anything, int64(3)).Return(&models.PuzzleInSet{ID: 3, PuzzleSetID: 1}, nil).Maybe()
	attempts.On("Exists", mock.Anything, int64(2), int64(3)).Return(false, nil).Maybe()
	attempts.On("Latest", mock.Anything, int64(3)).Return(nil, nil).Maybe()

	svc := services.NewAttemptService(services.Repositories{Sets: sets, Attempts: attempts},
		new(mocks.MockAchievementService), nil, xp.DefaultConfig(), services.WithClock(clock))

	_, err := svc.RecordAttempt(context.Background(), models.RecordAttemptInput{
		UserID: "u1", PuzzleSetID: 1, CycleID: 2, PuzzleInSetID: 3, TimeSpentMs: 500, IsCorrect: true,
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInternal))
	attempts.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordAttempt_ConstraintRaceMapsToDuplicate(t *testing.T) {
	sets := new(mocks.MockPuzzleSetRepository)
	attempts := new(mocks.MockAttemptRepository)
	sets.On("GetSet", mock.Anything, int64(1)).Return(&models.PuzzleSet{ID: 1, UserID: "u1"}, nil)
	sets.On("GetCycle", mock.Anything, int64(2)).Return(&models.Cycle{ID: 2, PuzzleSetID: 1, TotalPuzzles: 3}, nil)
	sets.On("GetPuzzleInSet", mock.Anything, int64(3)).Return(&models.PuzzleInSet{ID: 3, PuzzleSetID: 1}, nil)
	attempts.On("Exists", mock.Anything, int64(2), int64(3)).Return(false, nil)
	attempts.On("Latest", mock.Anything, int64(3)).Return(nil, nil)
	attempts.On("Record", mock.Anything, mock.AnythingOfType("models.Attempt"), mock.Anything).
		Return(nil, repository.ErrDuplicateAttempt)

	svc := services.NewAttemptService(services.Repositories{Sets: sets, Attempts: attempts},
		new(mocks.MockAchievementService), nil, xp.DefaultConfig(), services.WithClock(clock))

	_, err := svc.RecordAttempt(context.Background(), models.RecordAttemptInput{
		UserID: "u1", PuzzleSetID: 1, CycleID: 2, PuzzleInSetID: 3, TimeSpentMs: 500, IsCorrect: true,
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDuplicateAttempt))
}
