// Package snapshot records immutable captures of page HTML.
//
// A snapshot is a historical fact: there is no update operation by design.
// Each capture stores a sha256 content hash (so content-addressed dedup can
// be layered on later without changing identifiers) and a DOM-structure
// fingerprint used for structure-change reporting.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/use-agent/pagent/cleaner"
	"github.com/use-agent/pagent/events"
	"github.com/use-agent/pagent/models"
	"github.com/use-agent/pagent/pagehash"
	"github.com/use-agent/pagent/store"
)

// Service implements the snapshot store component.
type Service struct {
	store   *store.Store
	cleaner *cleaner.Cleaner
	sink    events.Sink
}

// NewService creates the snapshot service. sink may be nil.
func NewService(st *store.Store, cl *cleaner.Cleaner, sink events.Sink) *Service {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Service{store: st, cleaner: cl, sink: sink}
}

// Create records one immutable capture for the page. The page must exist and
// belong to ownerID; empty HTML is rejected with InvalidInput.
func (s *Service) Create(ctx context.Context, ownerID, pageID, html string, meta models.SnapshotMeta) (*models.HtmlSnapshot, error) {
	if strings.TrimSpace(html) == "" {
		return nil, models.NewPipelineError(models.ErrCodeInvalidInput, "snapshot HTML must be non-empty", nil)
	}

	page, err := s.store.GetPage(ctx, ownerID, pageID)
	if err != nil {
		return nil, err
	}

	if meta.ByteLength == 0 {
		meta.ByteLength = int64(len(html))
	}

	sum := sha256.Sum256([]byte(html))
	summary := s.cleaner.Describe(html, page.URL)

	snap := &models.HtmlSnapshot{
		PageID:        page.ID,
		HTML:          html,
		Meta:          meta,
		ContentHash:   hex.EncodeToString(sum[:]),
		StructureHash: pagehash.Fingerprint(html),
		Title:         summary.Title,
	}
	if err := s.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	slog.Info("snapshot created",
		"snapshot_id", snap.ID,
		"page_id", page.ID,
		"bytes", meta.ByteLength,
		"content_hash", snap.ContentHash[:12],
	)
	s.sink.Publish(events.New(events.TypeSnapshotCreated, page.ID, snap.ID, nil))
	return snap, nil
}

// Get returns one snapshot with its HTML. A snapshot reached through the
// wrong page, or the wrong owner, reads as absent.
func (s *Service) Get(ctx context.Context, ownerID, pageID, id string) (*models.HtmlSnapshot, error) {
	return s.store.GetSnapshot(ctx, ownerID, pageID, id)
}

// List returns the page's snapshots most-recent-first, HTML omitted.
func (s *Service) List(ctx context.Context, ownerID, pageID string, limit, offset int) ([]*models.HtmlSnapshot, error) {
	if _, err := s.store.GetPage(ctx, ownerID, pageID); err != nil {
		return nil, err
	}
	return s.store.ListSnapshots(ctx, ownerID, pageID, limit, offset)
}
