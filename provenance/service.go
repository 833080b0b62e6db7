// Package provenance answers lineage queries: which definition and snapshot
// produced a run, which definitions were trained on a snapshot, and which
// runs have drifted from their declared schema.
//
// Everything here is derived from the pages/snapshots/definitions/runs tables
// and can be rebuilt from them at any time; this component is never
// authoritative for writes.
package provenance

import (
	"context"

	"github.com/use-agent/pagent/models"
	"github.com/use-agent/pagent/store"
)

// Service implements the provenance index component.
type Service struct {
	store *store.Store
}

// NewService creates the provenance service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// LineageOf resolves a run back to its definition, snapshot, and page.
// Snapshot HTML is omitted; lineage is about identity, not content.
func (s *Service) LineageOf(ctx context.Context, ownerID, runID string) (*models.Lineage, error) {
	run, err := s.store.GetRun(ctx, ownerID, runID)
	if err != nil {
		return nil, err
	}
	def, err := s.store.GetDefinition(ctx, ownerID, run.DefinitionID)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.GetSnapshot(ctx, ownerID, "", run.SnapshotID)
	if err != nil {
		return nil, err
	}
	snap.HTML = ""
	page, err := s.store.GetPage(ctx, ownerID, def.PageID)
	if err != nil {
		return nil, err
	}

	return &models.Lineage{Run: run, Definition: def, Snapshot: snap, Page: page}, nil
}

// DefinitionsForSnapshot returns the definitions trained on a snapshot.
func (s *Service) DefinitionsForSnapshot(ctx context.Context, ownerID, snapshotID string) ([]*models.ExtractionDefinition, error) {
	if _, err := s.store.GetSnapshot(ctx, ownerID, "", snapshotID); err != nil {
		return nil, err
	}
	return s.store.ListDefinitionsForSnapshot(ctx, ownerID, snapshotID)
}

// DriftReport returns the page's drift-flagged runs, most-recent-first:
// the "this extraction may need retraining" signal.
func (s *Service) DriftReport(ctx context.Context, ownerID, pageID string, limit, offset int) ([]*models.ExtractionRun, error) {
	if _, err := s.store.GetPage(ctx, ownerID, pageID); err != nil {
		return nil, err
	}
	return s.store.ListDriftedRuns(ctx, ownerID, pageID, limit, offset)
}
