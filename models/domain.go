package models

import (
	"encoding/json"
	"time"
)

// TrainingState is the lifecycle state of an extraction definition.
//
// Learn resolves synchronously, so persisted definitions are always READY;
// a failed generation never produces a row. PENDING_TRAINING and FAILED stay
// representable for an eventual async training path.
type TrainingState string

const (
	TrainingPending TrainingState = "PENDING_TRAINING"
	TrainingReady   TrainingState = "READY"
	TrainingFailed  TrainingState = "FAILED"
)

// Page is a tracked URL owned by one user. Deleting a page cascades to its
// snapshots, definitions, and runs.
type Page struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotMeta is the fetch metadata recorded with a snapshot.
type SnapshotMeta struct {
	ContentType string `json:"content_type,omitempty"`
	ByteLength  int64  `json:"byte_length"`
	FetchedAt   string `json:"fetched_at,omitempty"`
	Status      int    `json:"status,omitempty"`
	Method      string `json:"method,omitempty"`
}

// HtmlSnapshot is an immutable capture of a page's HTML at a point in time.
// Content is never modified after creation; ContentHash (sha256 hex) makes the
// record content-addressable so dedup can be layered on later without touching
// identifiers. StructureHash is a 64-bit DOM-shape fingerprint used for
// structure-change reporting between snapshots of the same page.
type HtmlSnapshot struct {
	ID            string       `json:"id"`
	PageID        string       `json:"page_id"`
	HTML          string       `json:"html,omitempty"`
	Meta          SnapshotMeta `json:"meta"`
	ContentHash   string       `json:"content_hash"`
	StructureHash uint64       `json:"structure_hash"`
	Title         string       `json:"title,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ExtractionDefinition is a goal-bound extraction recipe trained on one
// snapshot. The (Code, Schema) pair is immutable once the definition is READY;
// refining a definition forks a new one (ParentID records the lineage).
type ExtractionDefinition struct {
	ID         string          `json:"id"`
	PageID     string          `json:"page_id"`
	SnapshotID string          `json:"snapshot_id"`
	ParentID   string          `json:"parent_id,omitempty"`
	Goal       string          `json:"goal"`
	Code       string          `json:"code,omitempty"`
	Schema     json.RawMessage `json:"schema,omitempty"`
	State      TrainingState   `json:"state"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ExtractionRun is one execution of a definition against a chosen snapshot.
// The snapshot need not be the definition's training snapshot, but both must
// belong to the same page. Runs are append-only.
type ExtractionRun struct {
	ID           string          `json:"id"`
	DefinitionID string          `json:"definition_id"`
	SnapshotID   string          `json:"snapshot_id"`
	Output       json.RawMessage `json:"output"`
	Drifted      bool            `json:"drifted"`
	// StructureDistance is the Hamming distance between the executed
	// snapshot's DOM fingerprint and the definition's training snapshot.
	// Zero when executed against the training snapshot itself.
	StructureDistance int       `json:"structure_distance"`
	CreatedAt         time.Time `json:"created_at"`
}

// Lineage is the provenance triple for a run.
type Lineage struct {
	Run        *ExtractionRun        `json:"run"`
	Definition *ExtractionDefinition `json:"definition"`
	Snapshot   *HtmlSnapshot         `json:"snapshot"`
	Page       *Page                 `json:"page"`
}
