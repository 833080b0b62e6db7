package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagent/models"
	"github.com/use-agent/pagent/provenance"
)

// Lineage returns a handler for GET /api/v1/runs/:id/lineage.
func Lineage(prov *provenance.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		lineage, err := prov.LineageOf(c.Request.Context(), owner(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.LineageResponse{Success: true, Lineage: lineage})
	}
}

// DefinitionsForSnapshot returns a handler for GET /api/v1/snapshots/:id/definitions.
func DefinitionsForSnapshot(prov *provenance.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		defs, err := prov.DefinitionsForSnapshot(c.Request.Context(), owner(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.DefinitionListResponse{Success: true, Definitions: defs})
	}
}

// DriftReport returns a handler for GET /api/v1/pages/:id/drift-report.
func DriftReport(prov *provenance.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params models.ListParams
		if err := c.ShouldBindQuery(&params); err != nil {
			respondInvalid(c, err)
			return
		}
		params.Defaults()

		drifted, err := prov.DriftReport(c.Request.Context(), owner(c), c.Param("id"), params.Limit, params.Offset)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.DriftReportResponse{Success: true, Drifted: drifted})
	}
}
