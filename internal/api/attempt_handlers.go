package api

import (
	"net/http"

	"github.com/vytor/chesscycles/internal/errors"
	"github.com/vytor/chesscycles/internal/logger"
	"github.com/vytor/chesscycles/internal/models"
)

func (s *Server) handleRecordAttempt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	setID, err := idParam(r, "setId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	cycleID, err := idParam(r, "cycleId")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req attemptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if missing := req.missingFields(); len(missing) > 0 {
		handleError(w, r, errors.NewFieldValidationError(missing))
		return
	}

	log.Debug("attempt submitted: set_id=%d, cycle_id=%d, puzzle_in_set_id=%d", setID, cycleID, *req.PuzzleInSetID)
	out, err := s.Attempts.RecordAttempt(r.Context(), models.RecordAttemptInput{
		UserID:        userIDFromContext(r.Context()),
		PuzzleSetID:   setID,
		CycleID:       cycleID,
		PuzzleInSetID: *req.PuzzleInSetID,
		TimeSpentMs:   *req.TimeSpent,
		IsCorrect:     *req.IsCorrect,
		WasSkipped:    req.WasSkipped,
		MovesPlayed:   req.MovesPlayed,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAttemptResponse(out))
}
