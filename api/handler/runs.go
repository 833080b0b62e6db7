package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagent/engine"
	"github.com/use-agent/pagent/models"
)

// Execute returns a handler for POST /api/v1/definitions/:id/runs.
//
// Concurrent requests for the same (definition, snapshot) pair share one
// collaborator execution; both callers receive the same run. A failed
// execution persists nothing and run history is unchanged.
func Execute(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalid(c, err)
			return
		}

		run, err := eng.Execute(c.Request.Context(), owner(c), c.Param("id"), req.SnapshotID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.RunResponse{Success: true, Run: run})
	}
}

// ListRuns returns a handler for GET /api/v1/definitions/:id/runs.
func ListRuns(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params models.ListParams
		if err := c.ShouldBindQuery(&params); err != nil {
			respondInvalid(c, err)
			return
		}
		params.Defaults()

		runs, err := eng.ListRuns(c.Request.Context(), owner(c), c.Param("id"), params.Limit, params.Offset)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.RunListResponse{Success: true, Runs: runs})
	}
}
