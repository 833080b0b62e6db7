package models

// PageResponse wraps a single page.
type PageResponse struct {
	Success bool         `json:"success"`
	Page    *Page        `json:"page,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// PageListResponse wraps a page listing.
type PageListResponse struct {
	Success bool         `json:"success"`
	Pages   []*Page      `json:"pages,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// SnapshotResponse wraps a single snapshot.
type SnapshotResponse struct {
	Success  bool          `json:"success"`
	Snapshot *HtmlSnapshot `json:"snapshot,omitempty"`
	Error    *ErrorDetail  `json:"error,omitempty"`
}

// SnapshotListResponse wraps a snapshot listing, most-recent-first.
// Snapshot HTML is omitted from listings; fetch a snapshot by id for content.
type SnapshotListResponse struct {
	Success   bool            `json:"success"`
	Snapshots []*HtmlSnapshot `json:"snapshots,omitempty"`
	Error     *ErrorDetail    `json:"error,omitempty"`
}

// DefinitionResponse wraps a single extraction definition.
type DefinitionResponse struct {
	Success    bool                  `json:"success"`
	Definition *ExtractionDefinition `json:"definition,omitempty"`
	Error      *ErrorDetail          `json:"error,omitempty"`
}

// DefinitionListResponse wraps a definition listing.
type DefinitionListResponse struct {
	Success     bool                    `json:"success"`
	Definitions []*ExtractionDefinition `json:"definitions,omitempty"`
	Error       *ErrorDetail            `json:"error,omitempty"`
}

// RunResponse wraps a single extraction run.
type RunResponse struct {
	Success bool           `json:"success"`
	Run     *ExtractionRun `json:"run,omitempty"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

// RunListResponse wraps a run listing, most-recent-first.
type RunListResponse struct {
	Success bool             `json:"success"`
	Runs    []*ExtractionRun `json:"runs,omitempty"`
	Error   *ErrorDetail     `json:"error,omitempty"`
}

// LineageResponse wraps the provenance triple for a run.
type LineageResponse struct {
	Success bool         `json:"success"`
	Lineage *Lineage     `json:"lineage,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// DriftReportResponse lists runs whose output diverged from the declared
// schema, most-recent-first: the "this extraction may need retraining" signal.
type DriftReportResponse struct {
	Success bool             `json:"success"`
	Drifted []*ExtractionRun `json:"drifted,omitempty"`
	Error   *ErrorDetail     `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string     `json:"status"` // "healthy" or "degraded"
	Uptime  string     `json:"uptime"`
	Store   StoreStats `json:"store"`
	Version string     `json:"version"`
}

// StoreStats reports row counts from the underlying store.
type StoreStats struct {
	Pages       int64 `json:"pages"`
	Snapshots   int64 `json:"snapshots"`
	Definitions int64 `json:"definitions"`
	Runs        int64 `json:"runs"`
}
