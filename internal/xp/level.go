package xp

import "math"

// LevelProgress describes where a cumulative total sits within its level.
type LevelProgress struct {
	CurrentLevel         int     `json:"current_level"`
	XPInCurrentLevel     int     `json:"xp_in_current_level"`
	XPNeededForNextLevel int     `json:"xp_needed_for_next_level"`
	ProgressPercent      float64 `json:"progress_percent"`
}

// Progress maps total XP to a level. Advancing from level n costs n*PerLevelStep.
func (c Config) Progress(totalXP int) LevelProgress {
	step := c.PerLevelStep
	if step <= 0 {
		step = DefaultConfig().PerLevelStep
	}
	remaining := max(totalXP, 0)
	level := 1
	for remaining >= level*step {
		remaining -= level * step
		level++
	}
	needed := level * step
	return LevelProgress{
		CurrentLevel:         level,
		XPInCurrentLevel:     remaining,
		XPNeededForNextLevel: needed,
		ProgressPercent:      math.Round(float64(remaining)/float64(needed)*1000) / 10,
	}
}

// Level returns the level for a cumulative XP total.
func (c Config) Level(totalXP int) int {
	return c.Progress(totalXP).CurrentLevel
}

// LeveledUp reports whether moving from oldTotal to newTotal crosses a level boundary.
func (c Config) LeveledUp(oldTotal, newTotal int) bool {
	return c.Level(newTotal) > c.Level(oldTotal)
}
