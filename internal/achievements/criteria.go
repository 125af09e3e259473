package achievements

import (
	"fmt"
	"time"

	"github.com/vytor/chesscycles/internal/models"
)

// Kind identifies the shape of an achievement criterion.
type Kind string

const (
	KindTotalCorrect       Kind = "total_correct"
	KindSolveTime          Kind = "solve_time"
	KindPracticeBeforeHour Kind = "practice_before_hour"
	KindPracticeAfterHour  Kind = "practice_after_hour"
	KindWeeklyCorrect      Kind = "weekly_correct"
	KindStreak             Kind = "streak"
	KindStreakComeback     Kind = "streak_comeback"
	KindCycleComplete      Kind = "cycle_complete"
	KindCycleAccuracy      Kind = "cycle_accuracy"
	KindLevel              Kind = "level"

	KindTotalAttempts    Kind = "total_attempts"
	KindThemeAccuracy    Kind = "theme_accuracy"
	KindRecentAccuracy   Kind = "recent_accuracy"
	KindHighRatedCorrect Kind = "high_rated_correct"
	KindSetCycles        Kind = "set_cycles"
	KindCompletedCycles  Kind = "completed_cycles"
	KindCycleSpeedup     Kind = "cycle_speedup"

	KindLeaderboardRank Kind = "leaderboard_rank"
)

// Tier partitions criteria by what they need to be decided.
type Tier string

const (
	// TierContext rules are decided from the attempt context alone.
	TierContext Tier = "context"
	// TierHistory rules need the aggregated history query.
	TierHistory Tier = "history"
	// TierLeaderboard rules are evaluated outside the attempt path.
	TierLeaderboard Tier = "leaderboard"
)

// Criterion is a tagged variant; which fields apply depends on Kind.
type Criterion struct {
	Kind        Kind    `yaml:"kind" json:"kind"`
	Threshold   int     `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	UnderMs     int     `yaml:"under_ms,omitempty" json:"under_ms,omitempty"`
	Hour        int     `yaml:"hour,omitempty" json:"hour,omitempty"`
	Percent     float64 `yaml:"percent,omitempty" json:"percent,omitempty"`
	MinAttempts int     `yaml:"min_attempts,omitempty" json:"min_attempts,omitempty"`
	Window      int     `yaml:"window,omitempty" json:"window,omitempty"`
	Rating      int     `yaml:"rating,omitempty" json:"rating,omitempty"`
}

// CycleFacts is present when the attempt completed its cycle.
type CycleFacts struct {
	Correct int
	Total   int
}

// StreakFacts describes the streak transition caused by the attempt.
type StreakFacts struct {
	Incremented bool
	Broken      bool
}

// Context is the post-commit snapshot of an attempt event.
type Context struct {
	At            time.Time
	IsCorrect     bool
	WasSkipped    bool
	TimeSpentMs   int
	PuzzleRating  int
	TotalCorrect  int
	WeeklyCorrect int
	Level         int
	CurrentStreak int
	Cycle         *CycleFacts
	Streak        *StreakFacts
}

func (c Context) solved() bool {
	return c.IsCorrect && !c.WasSkipped
}

type contextRule func(Criterion, Context) bool

type historyRule func(Criterion, *models.HistoricalStats) bool

var contextRules = map[Kind]contextRule{
	KindTotalCorrect: func(cr Criterion, c Context) bool {
		return c.TotalCorrect >= cr.Threshold
	},
	KindSolveTime: func(cr Criterion, c Context) bool {
		return c.solved() && c.TimeSpentMs < cr.UnderMs
	},
	KindPracticeBeforeHour: func(cr Criterion, c Context) bool {
		return c.At.UTC().Hour() < cr.Hour
	},
	KindPracticeAfterHour: func(cr Criterion, c Context) bool {
		return c.At.UTC().Hour() >= cr.Hour
	},
	KindWeeklyCorrect: func(cr Criterion, c Context) bool {
		return c.WeeklyCorrect >= cr.Threshold
	},
	KindStreak: func(cr Criterion, c Context) bool {
		return c.CurrentStreak >= cr.Threshold
	},
	KindStreakComeback: func(_ Criterion, c Context) bool {
		return c.Streak != nil && c.Streak.Broken
	},
	KindCycleComplete: func(_ Criterion, c Context) bool {
		return c.Cycle != nil
	},
	KindCycleAccuracy: func(cr Criterion, c Context) bool {
		if c.Cycle == nil || c.Cycle.Total == 0 {
			return false
		}
		return models.Tally{Total: c.Cycle.Total, Correct: c.Cycle.Correct}.Accuracy() >= cr.Percent
	},
	KindLevel: func(cr Criterion, c Context) bool {
		return c.Level >= cr.Threshold
	},
}

var historyRules = map[Kind]historyRule{
	KindTotalAttempts: func(cr Criterion, s *models.HistoricalStats) bool {
		return s.Lifetime.Total >= cr.Threshold
	},
	KindThemeAccuracy: func(cr Criterion, s *models.HistoricalStats) bool {
		for _, t := range s.Themes {
			if t.Total >= cr.MinAttempts && t.Accuracy() >= cr.Percent {
				return true
			}
		}
		return false
	},
	KindRecentAccuracy: func(cr Criterion, s *models.HistoricalStats) bool {
		t, ok := s.Recent[cr.Window]
		return ok && t.Total >= cr.Window && t.Accuracy() >= cr.Percent
	},
	KindHighRatedCorrect: func(cr Criterion, s *models.HistoricalStats) bool {
		return s.HighRatedCorrect[cr.Rating] >= cr.Threshold
	},
	KindSetCycles: func(cr Criterion, s *models.HistoricalStats) bool {
		return s.MaxCompletedCyclesInSet >= cr.Threshold
	},
	KindCompletedCycles: func(cr Criterion, s *models.HistoricalStats) bool {
		return s.CompletedCycles >= cr.Threshold
	},
	KindCycleSpeedup: func(cr Criterion, s *models.HistoricalStats) bool {
		for _, p := range s.Paces {
			if p.FirstCycleMs > 0 && p.FastestLaterMs > 0 &&
				float64(p.FastestLaterMs)*100 <= float64(p.FirstCycleMs)*cr.Percent {
				return true
			}
		}
		return false
	},
}

// Tier reports which evaluation pass decides the criterion.
func (c Criterion) Tier() Tier {
	if _, ok := contextRules[c.Kind]; ok {
		return TierContext
	}
	if _, ok := historyRules[c.Kind]; ok {
		return TierHistory
	}
	return TierLeaderboard
}

// Validate checks that the fields required by the kind are set.
func (c Criterion) Validate() error {
	positive := func(name string, v int) error {
		if v <= 0 {
			return fmt.Errorf("%s criterion requires positive %s", c.Kind, name)
		}
		return nil
	}
	percent := func() error {
		if c.Percent <= 0 || c.Percent > 100 {
			return fmt.Errorf("%s criterion requires percent in (0, 100]", c.Kind)
		}
		return nil
	}

	switch c.Kind {
	case KindTotalCorrect, KindWeeklyCorrect, KindStreak, KindLevel,
		KindTotalAttempts, KindSetCycles, KindCompletedCycles, KindLeaderboardRank:
		return positive("threshold", c.Threshold)
	case KindSolveTime:
		return positive("under_ms", c.UnderMs)
	case KindPracticeBeforeHour, KindPracticeAfterHour:
		if c.Hour < 0 || c.Hour > 23 {
			return fmt.Errorf("%s criterion requires hour in [0, 23]", c.Kind)
		}
		return nil
	case KindStreakComeback, KindCycleComplete:
		return nil
	case KindCycleAccuracy, KindCycleSpeedup:
		return percent()
	case KindThemeAccuracy:
		if err := positive("min_attempts", c.MinAttempts); err != nil {
			return err
		}
		return percent()
	case KindRecentAccuracy:
		if err := positive("window", c.Window); err != nil {
			return err
		}
		return percent()
	case KindHighRatedCorrect:
		if err := positive("rating", c.Rating); err != nil {
			return err
		}
		return positive("threshold", c.Threshold)
	default:
		return fmt.Errorf("unknown criterion kind %q", c.Kind)
	}
}
