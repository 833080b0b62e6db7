package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagent/cleaner"
	"github.com/use-agent/pagent/models"
	"github.com/use-agent/pagent/snapshot"
	"github.com/use-agent/pagent/store"
)

// Fetcher is the slice of the collaborator client the capture endpoint uses.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, models.SnapshotMeta, error)
}

// CreateSnapshot returns a handler for POST /api/v1/pages/:id/snapshots.
// The caller supplies the HTML (typically relayed from the scrape-fetch
// service); the core records it verbatim.
func CreateSnapshot(svc *snapshot.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateSnapshotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalid(c, err)
			return
		}

		snap, err := svc.Create(c.Request.Context(), owner(c), c.Param("id"), req.HTML, req.Meta)
		if err != nil {
			respondError(c, err)
			return
		}

		snap.HTML = "" // echo the record, not the payload
		c.JSON(http.StatusCreated, models.SnapshotResponse{Success: true, Snapshot: snap})
	}
}

// CaptureSnapshot returns a handler for POST /api/v1/pages/:id/capture.
//
// Flow:
//  1. Look up the page (ownership check).
//  2. Ask the scrape-fetch collaborator to render its URL.
//  3. Record the result as an immutable snapshot.
func CaptureSnapshot(svc *snapshot.Service, st *store.Store, fetcher Fetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		page, err := st.GetPage(ctx, owner(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		html, meta, err := fetcher.Fetch(ctx, page.URL)
		if err != nil {
			respondError(c, err)
			return
		}

		snap, err := svc.Create(ctx, owner(c), page.ID, html, meta)
		if err != nil {
			respondError(c, err)
			return
		}

		snap.HTML = ""
		c.JSON(http.StatusCreated, models.SnapshotResponse{Success: true, Snapshot: snap})
	}
}

// GetSnapshot returns a handler for GET /api/v1/pages/:id/snapshots/:snapshotId.
// ?format=markdown renders the capture as markdown for human inspection;
// the default returns the raw HTML byte-for-byte as captured.
func GetSnapshot(svc *snapshot.Service, cl *cleaner.Cleaner) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.Get(c.Request.Context(), owner(c), c.Param("id"), c.Param("snapshotId"))
		if err != nil {
			respondError(c, err)
			return
		}

		if c.Query("format") == "markdown" {
			md, err := cl.Markdown(snap.HTML, "")
			if err == nil {
				snap.HTML = md
			}
		}

		c.JSON(http.StatusOK, models.SnapshotResponse{Success: true, Snapshot: snap})
	}
}

// ListSnapshots returns a handler for GET /api/v1/pages/:id/snapshots.
func ListSnapshots(svc *snapshot.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params models.ListParams
		if err := c.ShouldBindQuery(&params); err != nil {
			respondInvalid(c, err)
			return
		}
		params.Defaults()

		snaps, err := svc.List(c.Request.Context(), owner(c), c.Param("id"), params.Limit, params.Offset)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SnapshotListResponse{Success: true, Snapshots: snaps})
	}
}
