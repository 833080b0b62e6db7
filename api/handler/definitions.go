package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagent/models"
	"github.com/use-agent/pagent/registry"
)

// Learn returns a handler for POST /api/v1/pages/:id/definitions.
//
// The generation collaborator is invoked synchronously; expect the request
// to take tens of seconds. A failed generation persists nothing; the
// definition list is unchanged and the caller may simply try again.
func Learn(reg *registry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LearnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalid(c, err)
			return
		}

		def, err := reg.Learn(c.Request.Context(), owner(c), c.Param("id"), req.SnapshotID, req.Goal)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.DefinitionResponse{Success: true, Definition: def})
	}
}

// Retrain returns a handler for POST /api/v1/definitions/:id/retrain.
// It forks a new definition; the parent is never mutated.
func Retrain(reg *registry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RetrainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalid(c, err)
			return
		}

		def, err := reg.Retrain(c.Request.Context(), owner(c), c.Param("id"), req.RefinementGoal)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.DefinitionResponse{Success: true, Definition: def})
	}
}

// ListDefinitions returns a handler for GET /api/v1/pages/:id/definitions.
func ListDefinitions(reg *registry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		defs, err := reg.List(c.Request.Context(), owner(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.DefinitionListResponse{Success: true, Definitions: defs})
	}
}
