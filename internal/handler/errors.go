package handler

import (
	"errors"
	"net/http"

	"github.com/edustep/placement-backend/internal/response"
	"github.com/edustep/placement-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// failFromService maps a service-layer error to an HTTP status and response
// code. Unknown errors are logged and surfaced as internal.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoMatchingRule):
		response.Fail(c, http.StatusNotFound, response.ErrNoMatchingRule)
	case errors.Is(err, service.ErrNoActiveExamForLevel):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveExamForLevel)
	case errors.Is(err, service.ErrExamNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrLevelNotFound),
		errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusConflict, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrSessionCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	case errors.Is(err, service.ErrSessionNotCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotCompleted)
	case errors.Is(err, service.ErrNoAdjacentLevel):
		response.Fail(c, http.StatusConflict, response.ErrNoAdjacentLevel)
	case errors.Is(err, service.ErrAdjustmentLimit):
		response.Fail(c, http.StatusConflict, response.ErrAdjustmentLimit)
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled service error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
