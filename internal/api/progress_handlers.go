package api

import (
	"net/http"
)

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.Progress.GetProgress(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProgressResponse(p))
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := s.Achievements.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}

	out := make([]achievementStatusDTO, 0, len(list))
	for _, a := range list {
		out = append(out, achievementStatusDTO{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Category:    a.Category,
			Icon:        a.Icon,
			Unlocked:    a.Unlocked,
			UnlockedAt:  a.UnlockedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievements": out})
}

// handleLeaderboardRank is called by the leaderboard read path with the
// caller's computed rank.
func (s *Server) handleLeaderboardRank(w http.ResponseWriter, r *http.Request) {
	var req leaderboardRankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	unlocked, err := s.Achievements.RecordLeaderboardRank(r.Context(), userIDFromContext(r.Context()), req.Rank)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unlockedAchievements": newUnlockedDTOs(unlocked)})
}
