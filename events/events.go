// Package events publishes pipeline domain events to a pluggable sink so
// observers learn of new snapshots, definitions, and runs without polling.
// The pipeline's correctness never depends on a subscriber being present.
package events

import "time"

// Event types published by the pipeline.
const (
	TypeSnapshotCreated = "snapshot.created"
	TypeDefinitionReady = "definition.ready"
	TypeRunCompleted    = "run.completed"
)

// Event is one pipeline occurrence.
type Event struct {
	Type      string `json:"type"`
	PageID    string `json:"page_id"`
	EntityID  string `json:"entity_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// Sink receives pipeline events. Publish must not block the caller and must
// never return an error into the pipeline; delivery is best-effort.
type Sink interface {
	Publish(event Event)
}

// Nop is a Sink that discards everything.
type Nop struct{}

func (Nop) Publish(Event) {}

// New fills the timestamp and returns the event, for one-line publishing.
func New(eventType, pageID, entityID string, data any) Event {
	return Event{
		Type:      eventType,
		PageID:    pageID,
		EntityID:  entityID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}
