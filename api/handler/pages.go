package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagent/models"
	"github.com/use-agent/pagent/store"
)

// CreatePage returns a handler for POST /api/v1/pages.
func CreatePage(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreatePageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalid(c, err)
			return
		}

		page, err := st.InsertPage(c.Request.Context(), owner(c), req.URL)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.PageResponse{Success: true, Page: page})
	}
}

// ListPages returns a handler for GET /api/v1/pages.
func ListPages(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		pages, err := st.ListPages(c.Request.Context(), owner(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.PageListResponse{Success: true, Pages: pages})
	}
}

// DeletePage returns a handler for DELETE /api/v1/pages/:id. Deletion
// cascades to the page's snapshots, definitions, and runs.
func DeletePage(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := st.DeletePage(c.Request.Context(), owner(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
