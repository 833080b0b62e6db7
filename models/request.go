package models

// CreatePageRequest is the payload for POST /api/v1/pages.
type CreatePageRequest struct {
	// URL is the tracked page address. Required.
	URL string `json:"url" binding:"required,url"`
}

// CreateSnapshotRequest is the payload for POST /api/v1/pages/:id/snapshots.
// The HTML is supplied by the caller (typically relayed from the external
// scrape-fetch service); the core records it verbatim.
type CreateSnapshotRequest struct {
	// HTML is the raw page content. Required and non-empty.
	HTML string `json:"html" binding:"required"`

	// Meta is the fetch metadata reported by whoever obtained the HTML.
	Meta SnapshotMeta `json:"meta"`
}

// LearnRequest is the payload for POST /api/v1/pages/:id/definitions.
type LearnRequest struct {
	// SnapshotID selects the snapshot the definition is trained on. Required.
	SnapshotID string `json:"snapshot_id" binding:"required"`

	// Goal is the free-text extraction goal passed to the generation service.
	Goal string `json:"goal" binding:"required"`
}

// RetrainRequest is the payload for POST /api/v1/definitions/:id/retrain.
type RetrainRequest struct {
	// RefinementGoal is appended to the parent definition's goal.
	RefinementGoal string `json:"refinement_goal" binding:"required"`
}

// ExecuteRequest is the payload for POST /api/v1/definitions/:id/runs.
type ExecuteRequest struct {
	// SnapshotID selects the snapshot to execute against. It must belong to
	// the definition's page but need not be the training snapshot. Required.
	SnapshotID string `json:"snapshot_id" binding:"required"`
}

// ListParams are the common pagination query parameters.
type ListParams struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (p *ListParams) Defaults() {
	if p.Limit == 0 {
		p.Limit = 50
	}
}
