package api

import (
	"time"

	"github.com/vytor/chesscycles/internal/models"
	"github.com/vytor/chesscycles/internal/xp"
)

type attemptRequest struct {
	PuzzleInSetID *int64   `json:"puzzleInSetId"`
	TimeSpent     *int     `json:"timeSpent"`
	IsCorrect     *bool    `json:"isCorrect"`
	WasSkipped    bool     `json:"wasSkipped"`
	MovesPlayed   []string `json:"movesPlayed"`
}

// missingFields lists required members absent from the body.
func (req attemptRequest) missingFields() map[string]string {
	missing := map[string]string{}
	if req.PuzzleInSetID == nil {
		missing["puzzleInSetId"] = "is required"
	}
	if req.TimeSpent == nil {
		missing["timeSpent"] = "is required"
	}
	if req.IsCorrect == nil {
		missing["isCorrect"] = "is required"
	}
	return missing
}

type attemptDTO struct {
	ID            int64     `json:"id"`
	PuzzleInSetID int64     `json:"puzzleInSetId"`
	CycleID       int64     `json:"cycleId"`
	IsCorrect     bool      `json:"isCorrect"`
	TimeSpent     int       `json:"timeSpent"`
	WasSkipped    bool      `json:"wasSkipped"`
	MovesPlayed   []string  `json:"movesPlayed"`
	CreatedAt     time.Time `json:"createdAt"`
}

type cycleDTO struct {
	ID              int64      `json:"id"`
	CycleNumber     int        `json:"cycleNumber"`
	TotalPuzzles    int        `json:"totalPuzzles"`
	SolvedCorrect   int        `json:"solvedCorrect"`
	SolvedIncorrect int        `json:"solvedIncorrect"`
	Skipped         int        `json:"skipped"`
	TotalTime       int64      `json:"totalTime"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt"`
}

type streakDTO struct {
	Current     int  `json:"current"`
	Longest     int  `json:"longest"`
	Incremented bool `json:"incremented"`
	Broken      bool `json:"broken"`
	IsNewRecord bool `json:"isNewRecord"`
}

type xpEntryDTO struct {
	Source string `json:"source"`
	Amount int    `json:"amount"`
}

type xpDTO struct {
	Gained        int          `json:"gained"`
	Breakdown     []xpEntryDTO `json:"breakdown"`
	NewTotal      int          `json:"newTotal"`
	PreviousLevel int          `json:"previousLevel"`
	NewLevel      int          `json:"newLevel"`
	LeveledUp     bool         `json:"leveledUp"`
}

type unlockedDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

type attemptResponse struct {
	Attempt              attemptDTO    `json:"attempt"`
	Cycle                cycleDTO      `json:"cycle"`
	IsLastPuzzle         bool          `json:"isLastPuzzle"`
	Streak               streakDTO     `json:"streak"`
	XP                   xpDTO         `json:"xp"`
	UnlockedAchievements []unlockedDTO `json:"unlockedAchievements"`
}

func newAttemptResponse(o *models.AttemptOutcome) attemptResponse {
	moves := o.Attempt.MovesPlayed
	if moves == nil {
		moves = []string{}
	}
	breakdown := make([]xpEntryDTO, 0, len(o.XP.Breakdown))
	for _, e := range o.XP.Breakdown {
		breakdown = append(breakdown, xpEntryDTO{Source: e.Source, Amount: e.Amount})
	}
	return attemptResponse{
		Attempt: attemptDTO{
			ID:            o.Attempt.ID,
			PuzzleInSetID: o.Attempt.PuzzleInSetID,
			CycleID:       o.Attempt.CycleID,
			IsCorrect:     o.Attempt.IsCorrect,
			TimeSpent:     o.Attempt.TimeSpentMs,
			WasSkipped:    o.Attempt.WasSkipped,
			MovesPlayed:   moves,
			CreatedAt:     o.Attempt.CreatedAt,
		},
		Cycle: cycleDTO{
			ID:              o.Cycle.ID,
			CycleNumber:     o.Cycle.CycleNumber,
			TotalPuzzles:    o.Cycle.TotalPuzzles,
			SolvedCorrect:   o.Cycle.SolvedCorrect,
			SolvedIncorrect: o.Cycle.SolvedIncorrect,
			Skipped:         o.Cycle.Skipped,
			TotalTime:       o.Cycle.TotalTime,
			StartedAt:       o.Cycle.StartedAt,
			CompletedAt:     o.Cycle.CompletedAt,
		},
		IsLastPuzzle: o.IsLastPuzzle,
		Streak: streakDTO{
			Current:     o.User.CurrentStreak,
			Longest:     o.User.LongestStreak,
			Incremented: o.Streak.Incremented,
			Broken:      o.Streak.Broken,
			IsNewRecord: o.Streak.IsNewRecord,
		},
		XP: xpDTO{
			Gained:        o.XP.Gained,
			Breakdown:     breakdown,
			NewTotal:      o.XP.NewTotal,
			PreviousLevel: o.XP.PreviousLevel,
			NewLevel:      o.XP.NewLevel,
			LeveledUp:     o.XP.LeveledUp,
		},
		UnlockedAchievements: newUnlockedDTOs(o.UnlockedAchievements),
	}
}

func newUnlockedDTOs(in []models.UnlockedAchievement) []unlockedDTO {
	out := make([]unlockedDTO, 0, len(in))
	for _, a := range in {
		out = append(out, unlockedDTO{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Icon:        a.Icon,
			UnlockedAt:  a.UnlockedAt,
		})
	}
	return out
}

type levelDTO struct {
	CurrentLevel         int     `json:"currentLevel"`
	XPInCurrentLevel     int     `json:"xpInCurrentLevel"`
	XPNeededForNextLevel int     `json:"xpNeededForNextLevel"`
	ProgressPercent      float64 `json:"progressPercent"`
}

type progressResponse struct {
	UserID                string     `json:"userId"`
	Username              string     `json:"username"`
	TotalCorrectAttempts  int        `json:"totalCorrectAttempts"`
	WeeklyCorrectAttempts int        `json:"weeklyCorrectAttempts"`
	TotalXP               int        `json:"totalXp"`
	WeeklyXP              int        `json:"weeklyXp"`
	CurrentStreak         int        `json:"currentStreak"`
	LongestStreak         int        `json:"longestStreak"`
	LastTrainedDate       *time.Time `json:"lastTrainedDate"`
	Level                 levelDTO   `json:"level"`
}

func newLevelDTO(p xp.LevelProgress) levelDTO {
	return levelDTO{
		CurrentLevel:         p.CurrentLevel,
		XPInCurrentLevel:     p.XPInCurrentLevel,
		XPNeededForNextLevel: p.XPNeededForNextLevel,
		ProgressPercent:      p.ProgressPercent,
	}
}

func newProgressResponse(p *models.Progress) progressResponse {
	return progressResponse{
		UserID:                p.UserID,
		Username:              p.Username,
		TotalCorrectAttempts:  p.TotalCorrectAttempts,
		WeeklyCorrectAttempts: p.WeeklyCorrectAttempts,
		TotalXP:               p.TotalXP,
		WeeklyXP:              p.WeeklyXP,
		CurrentStreak:         p.CurrentStreak,
		LongestStreak:         p.LongestStreak,
		LastTrainedDate:       p.LastTrainedDate,
		Level:                 newLevelDTO(p.Level),
	}
}

type achievementStatusDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Icon        string     `json:"icon"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

type leaderboardRankRequest struct {
	Rank int `json:"rank"`
}
