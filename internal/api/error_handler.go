package api

import (
	"net/http"

	"github.com/vytor/chesscycles/internal/errors"
	"github.com/vytor/chesscycles/internal/logger"
)

type errorPayload struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func errorBody(appErr *errors.AppError) errorResponse {
	return errorResponse{Error: errorPayload{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}}
}

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternalError(err)
	}

	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else {
		log.Warn("client error: %v", appErr)
	}

	writeJSON(w, appErr.Status, errorBody(appErr))
}
