package achievements

import "github.com/vytor/chesscycles/internal/models"

// Unlocked is the set of achievement ids a user already holds.
type Unlocked map[string]bool

// Complete reports whether every catalog entry is already unlocked.
func (c *Catalog) Complete(unlocked Unlocked) bool {
	for _, d := range c.defs {
		if !unlocked[d.ID] {
			return false
		}
	}
	return true
}

// EvaluateContext runs the context-only rules that are still locked.
// It performs no I/O.
func (c *Catalog) EvaluateContext(ctx Context, unlocked Unlocked) []string {
	var out []string
	for _, d := range c.defs {
		if unlocked[d.ID] {
			continue
		}
		rule, ok := contextRules[d.Criterion.Kind]
		if ok && rule(d.Criterion, ctx) {
			out = append(out, d.ID)
		}
	}
	return out
}

// HistoryRequest describes the history aggregates needed by the locked
// history rules. ok is false when no history rule is locked.
func (c *Catalog) HistoryRequest(unlocked Unlocked) (req models.HistoryRequest, ok bool) {
	windows := map[int]struct{}{}
	ratings := map[int]struct{}{}
	for _, d := range c.ByTier(TierHistory) {
		if unlocked[d.ID] {
			continue
		}
		ok = true
		switch d.Criterion.Kind {
		case KindRecentAccuracy:
			windows[d.Criterion.Window] = struct{}{}
		case KindHighRatedCorrect:
			ratings[d.Criterion.Rating] = struct{}{}
		}
	}
	req.RecentWindows = sortedKeys(windows)
	req.RatingThresholds = sortedKeys(ratings)
	return req, ok
}

// EvaluateHistory runs the locked history rules against aggregated stats.
func (c *Catalog) EvaluateHistory(stats *models.HistoricalStats, unlocked Unlocked) []string {
	if stats == nil {
		return nil
	}
	var out []string
	for _, d := range c.defs {
		if unlocked[d.ID] {
			continue
		}
		rule, ok := historyRules[d.Criterion.Kind]
		if ok && rule(d.Criterion, stats) {
			out = append(out, d.ID)
		}
	}
	return out
}

// EvaluateLeaderboardRank decides the leaderboard rules for a known rank.
func (c *Catalog) EvaluateLeaderboardRank(rank int, unlocked Unlocked) []string {
	if rank <= 0 {
		return nil
	}
	var out []string
	for _, d := range c.defs {
		if unlocked[d.ID] || d.Criterion.Kind != KindLeaderboardRank {
			continue
		}
		if rank <= d.Criterion.Threshold {
			out = append(out, d.ID)
		}
	}
	return out
}
