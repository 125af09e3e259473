// Package xp computes experience gains for puzzle attempts and cycle
// completions, and maps cumulative experience to levels.
package xp

import "math"

// Breakdown sources.
const (
	SourceCorrect      = "correct"
	SourceParticipated = "participation"
	SourceSpeed        = "speed"
	SourceRating       = "rating"
	SourceStreak       = "streak"
	SourceFirstAttempt = "first_attempt"
	SourceImprovement  = "improvement"
	SourceCycle        = "cycle_complete"
	SourceCycleAcc     = "cycle_accuracy"
	SourcePerfectCycle = "perfect_cycle"
)

const (
	ratingBonusFloor = 1000
	ratingBonusStep  = 100
	ratingBonusCap   = 20
)

// Config holds the tunable constants. All values are expected to be non-negative.
type Config struct {
	CorrectBase        int
	IncorrectBase      int
	FastSolveMs        int
	FastSolveBonus     int
	StreakBonusPerDay  int
	StreakBonusCap     int
	FirstAttemptBonus  int
	ImprovementBonus   int
	CycleBase          int
	CycleAccuracyBonus int
	PerfectCycleBonus  int
	PerLevelStep       int
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		CorrectBase:        10,
		IncorrectBase:      2,
		FastSolveMs:        10_000,
		FastSolveBonus:     5,
		StreakBonusPerDay:  1,
		StreakBonusCap:     10,
		FirstAttemptBonus:  3,
		ImprovementBonus:   5,
		CycleBase:          50,
		CycleAccuracyBonus: 50,
		PerfectCycleBonus:  25,
		PerLevelStep:       100,
	}
}

// Entry is one contribution to a gain.
type Entry struct {
	Source string `json:"source"`
	Amount int    `json:"amount"`
}

// Gain is the result of an XP computation.
type Gain struct {
	Amount    int     `json:"amount"`
	Breakdown []Entry `json:"breakdown"`
	NewTotal  int     `json:"new_total"`
}

// PreviousAttempt describes the most recent earlier attempt on the same puzzle.
type PreviousAttempt struct {
	IsCorrect   bool
	WasSkipped  bool
	TimeSpentMs int
}

// AttemptInput is everything the attempt gain depends on.
type AttemptInput struct {
	IsCorrect     bool
	WasSkipped    bool
	TimeSpentMs   int
	PuzzleRating  int
	CurrentStreak int
	FirstAttempt  bool
	Previous      *PreviousAttempt
}

type gainBuilder struct {
	entries []Entry
	total   int
}

func (b *gainBuilder) add(source string, amount int) {
	if amount <= 0 {
		return
	}
	b.entries = append(b.entries, Entry{Source: source, Amount: amount})
	b.total += amount
}

func (b *gainBuilder) build(currentTotal int) Gain {
	if currentTotal < 0 {
		currentTotal = 0
	}
	return Gain{Amount: b.total, Breakdown: b.entries, NewTotal: currentTotal + b.total}
}

// ForAttempt computes the gain for a single puzzle attempt.
func (c Config) ForAttempt(in AttemptInput, currentTotal int) Gain {
	var b gainBuilder
	switch {
	case in.WasSkipped:
	case !in.IsCorrect:
		b.add(SourceParticipated, c.IncorrectBase)
	default:
		b.add(SourceCorrect, c.CorrectBase)
		if in.TimeSpentMs > 0 && in.TimeSpentMs <= c.FastSolveMs {
			b.add(SourceSpeed, c.FastSolveBonus)
		}
		b.add(SourceRating, ratingBonus(in.PuzzleRating))
		b.add(SourceStreak, min(in.CurrentStreak*c.StreakBonusPerDay, c.StreakBonusCap))
		if in.FirstAttempt {
			b.add(SourceFirstAttempt, c.FirstAttemptBonus)
		}
		if improved(in) {
			b.add(SourceImprovement, c.ImprovementBonus)
		}
	}
	return b.build(currentTotal)
}

func ratingBonus(rating int) int {
	if rating <= ratingBonusFloor {
		return 0
	}
	return min((rating-ratingBonusFloor)/ratingBonusStep, ratingBonusCap)
}

func improved(in AttemptInput) bool {
	p := in.Previous
	if p == nil {
		return false
	}
	if !p.IsCorrect || p.WasSkipped {
		return true
	}
	return in.TimeSpentMs < p.TimeSpentMs
}

// ForCycle computes the bonus for completing a cycle, scaled by accuracy.
func (c Config) ForCycle(correct, total, currentTotal int) Gain {
	var b gainBuilder
	if total > 0 {
		correct = max(0, min(correct, total))
		accuracy := float64(correct) / float64(total)
		b.add(SourceCycle, c.CycleBase)
		b.add(SourceCycleAcc, int(math.Round(accuracy*float64(c.CycleAccuracyBonus))))
		if correct == total {
			b.add(SourcePerfectCycle, c.PerfectCycleBonus)
		}
	}
	return b.build(currentTotal)
}

// Combine sums gains computed in sequence. The last gain's NewTotal is carried forward.
func Combine(gains ...Gain) Gain {
	var out Gain
	for _, g := range gains {
		out.Amount += g.Amount
		out.Breakdown = append(out.Breakdown, g.Breakdown...)
		out.NewTotal = g.NewTotal
	}
	return out
}
