package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagent/api/middleware"
	"github.com/use-agent/pagent/models"
)

// owner extracts the authenticated owner identity set by the auth middleware.
func owner(c *gin.Context) string {
	return c.GetString(middleware.OwnerKey)
}

// respondError maps a PipelineError to the correct HTTP status and writes a
// structured JSON error response.
func respondError(c *gin.Context, err error) {
	pipeErr, ok := err.(*models.PipelineError)
	if !ok {
		pipeErr = models.NewPipelineError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(pipeErr), gin.H{
		"success": false,
		"error":   pipeErr.ToDetail(),
	})
}

// respondInvalid writes a 400 for request binding failures.
func respondInvalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": &models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: err.Error(),
		},
	})
}

// mapErrorToStatus translates pipeline error codes to HTTP status codes.
//
// NotReady maps to 409, distinct from the 502 of a failed execution, so a UI
// can show "still training" rather than "broken".
func mapErrorToStatus(e *models.PipelineError) int {
	switch e.Code {
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeNotReady, models.ErrCodeAlreadyRunning, models.ErrCodeCrossPageMismatch:
		return http.StatusConflict // 409
	case models.ErrCodeGenerationFailed, models.ErrCodeExecutionFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
