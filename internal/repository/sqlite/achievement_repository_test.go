package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/db"
	"github.com/vytor/chesscycles/internal/models"
	"github.com/vytor/chesscycles/internal/repository"
	"github.com/vytor/chesscycles/internal/repository/sqlite"
	"github.com/vytor/chesscycles/internal/testutil"
)

type AchievementRepositoryTestSuite struct {
	suite.Suite
	db   *db.DB
	repo repository.AchievementRepository
	ctx  context.Context
}

func (s *AchievementRepositoryTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewAchievementRepository(s.db)
	s.ctx = context.Background()
	testutil.CreateUser(s.T(), s.db, models.User{ID: "u1"})
	testutil.CreateUser(s.T(), s.db, models.User{ID: "u2"})
}

func TestAchievementRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(AchievementRepositoryTestSuite))
}

func (s *AchievementRepositoryTestSuite) TestSyncCatalog_IsIdempotent() {
	defs := achievements.Default().All()
	s.Require().NoError(s.repo.SyncCatalog(s.ctx, defs))
	s.Require().NoError(s.repo.SyncCatalog(s.ctx, defs))

	var n int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM achievements`).Scan(&n))
	s.Equal(len(defs), n)

	var tier string
	s.Require().NoError(s.db.QueryRow(`SELECT tier FROM achievements WHERE id = 'woodpecker'`).Scan(&tier))
	s.Equal(string(achievements.TierHistory), tier)
}

func (s *AchievementRepositoryTestSuite) TestUnlock_ReturnsOnlyNewRows() {
	first, err := s.repo.Unlock(s.ctx, "u1", []string{"first-blood", "cycle-complete"}, at)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"first-blood", "cycle-complete"}, first)

	second, err := s.repo.Unlock(s.ctx, "u1", []string{"first-blood", "century"}, at.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal([]string{"century"}, second)

	ids, err := s.repo.UnlockedIDs(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(map[string]bool{"first-blood": true, "cycle-complete": true, "century": true}, ids)

	list, err := s.repo.ListUnlocked(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	for _, ua := range list {
		if ua.AchievementID == "first-blood" {
			s.True(at.Equal(ua.UnlockedAt), "unlock time must not be rewritten")
		}
	}

	other, err := s.repo.UnlockedIDs(s.ctx, "u2")
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *AchievementRepositoryTestSuite) TestUnlock_Empty() {
	got, err := s.repo.Unlock(s.ctx, "u1", nil, at)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *AchievementRepositoryTestSuite) TestHistory_AggregatesInOneQuery() {
	easy := testutil.CreatePuzzle(s.T(), s.db, "easy", 1200, "fork", "short")
	hard := testutil.CreatePuzzle(s.T(), s.db, "hard", 2100, "pin")
	brutal := testutil.CreatePuzzle(s.T(), s.db, "brutal", 2500, "fork")
	set, members := testutil.CreateSet(s.T(), s.db, "u1", easy, hard, brutal)

	c1 := testutil.CompletedCycle(s.T(), s.db, set.ID, 1, 3, 2, 90_000, at.AddDate(0, 0, -3))
	c2 := testutil.CompletedCycle(s.T(), s.db, set.ID, 2, 3, 3, 40_000, at.AddDate(0, 0, -2))
	testutil.CompletedCycle(s.T(), s.db, set.ID, 3, 3, 3, 60_000, at.AddDate(0, 0, -1))

	// Cycle 1: easy ok, hard wrong, brutal ok. Cycle 2: all ok.
	testutil.InsertAttempt(s.T(), s.db, c1.ID, members[0].ID, true, 1000, at.AddDate(0, 0, -3))
	testutil.InsertAttempt(s.T(), s.db, c1.ID, members[1].ID, false, 1000, at.AddDate(0, 0, -3))
	testutil.InsertAttempt(s.T(), s.db, c1.ID, members[2].ID, true, 1000, at.AddDate(0, 0, -3))
	testutil.InsertAttempt(s.T(), s.db, c2.ID, members[0].ID, true, 1000, at.AddDate(0, 0, -2))
	testutil.InsertAttempt(s.T(), s.db, c2.ID, members[1].ID, true, 1000, at.AddDate(0, 0, -2))
	testutil.InsertAttempt(s.T(), s.db, c2.ID, members[2].ID, true, 1000, at.AddDate(0, 0, -2))

	// Another user's history must not leak in.
	p := testutil.CreatePuzzle(s.T(), s.db, "other", 2600, "fork")
	otherSet, otherMembers := testutil.CreateSet(s.T(), s.db, "u2", p)
	oc := testutil.CompletedCycle(s.T(), s.db, otherSet.ID, 1, 1, 0, 1000, at)
	testutil.InsertAttempt(s.T(), s.db, oc.ID, otherMembers[0].ID, false, 1000, at)

	stats, err := s.repo.History(s.ctx, "u1", models.HistoryRequest{
		RecentWindows:    []int{2, 5},
		RatingThresholds: []int{2000, 2400},
	})
	s.Require().NoError(err)

	s.Equal(models.Tally{Total: 6, Correct: 5}, stats.Lifetime)
	s.Equal(models.Tally{Total: 4, Correct: 4}, stats.Themes["fork"])
	s.Equal(models.Tally{Total: 2, Correct: 1}, stats.Themes["pin"])
	s.Equal(models.Tally{Total: 2, Correct: 2}, stats.Themes["short"])
	s.Equal(models.Tally{Total: 2, Correct: 2}, stats.Recent[2])
	s.Equal(models.Tally{Total: 5, Correct: 4}, stats.Recent[5])
	s.Equal(3, stats.HighRatedCorrect[2000])
	s.Equal(2, stats.HighRatedCorrect[2400])
	s.Equal(3, stats.CompletedCycles)
	s.Equal(3, stats.MaxCompletedCyclesInSet)
	s.Require().Len(stats.Paces, 1)
	s.Equal(models.SetPace{PuzzleSetID: set.ID, FirstCycleMs: 90_000, FastestLaterMs: 40_000}, stats.Paces[0])
}

func (s *AchievementRepositoryTestSuite) TestHistory_NoAttempts() {
	stats, err := s.repo.History(s.ctx, "u1", models.HistoryRequest{RecentWindows: []int{10}})
	s.Require().NoError(err)

	s.Equal(models.Tally{}, stats.Lifetime)
	s.Empty(stats.Themes)
	s.Equal(models.Tally{}, stats.Recent[10])
	s.Zero(stats.CompletedCycles)
	s.Zero(stats.MaxCompletedCyclesInSet)
	s.Empty(stats.Paces)
}
