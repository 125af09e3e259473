package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.identityMiddleware)

		r.Post("/puzzle-sets/{setId}/cycles/{cycleId}/attempts", s.handleRecordAttempt)
		r.Get("/me/progress", s.handleProgress)
		r.Get("/me/achievements", s.handleAchievements)
		r.Post("/me/leaderboard-rank", s.handleLeaderboardRank)
	})
	return r
}
