package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/pagent/models"
)

const snapshotCols = `s.id, s.page_id, s.content_type, s.byte_length, s.fetched_at,
	s.status, s.method, s.content_hash, s.structure_hash, s.title, s.created_at`

// InsertSnapshot persists an immutable snapshot. The caller must have
// verified page ownership; ID and CreatedAt are assigned here.
func (s *Store) InsertSnapshot(ctx context.Context, snap *models.HtmlSnapshot) error {
	snap.ID = uuid.NewString()
	snap.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, page_id, html, content_type, byte_length, fetched_at,
			status, method, content_hash, structure_hash, title, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.PageID, []byte(snap.HTML), snap.Meta.ContentType, snap.Meta.ByteLength,
		snap.Meta.FetchedAt, snap.Meta.Status, snap.Meta.Method, snap.ContentHash,
		int64(snap.StructureHash), snap.Title, toUnix(snap.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

func scanSnapshot(row interface{ Scan(...any) error }) (*models.HtmlSnapshot, error) {
	var snap models.HtmlSnapshot
	var structureHash, createdAt int64
	err := row.Scan(&snap.ID, &snap.PageID, &snap.Meta.ContentType, &snap.Meta.ByteLength,
		&snap.Meta.FetchedAt, &snap.Meta.Status, &snap.Meta.Method, &snap.ContentHash,
		&structureHash, &snap.Title, &createdAt)
	if err != nil {
		return nil, err
	}
	snap.StructureHash = uint64(structureHash)
	snap.CreatedAt = fromUnix(createdAt)
	return &snap, nil
}

// GetSnapshot fetches one snapshot with its HTML content. The page must
// belong to ownerID and, when pageID is non-empty, match it; a page mismatch
// reads as absence.
func (s *Store) GetSnapshot(ctx context.Context, ownerID, pageID, id string) (*models.HtmlSnapshot, error) {
	query := `SELECT ` + snapshotCols + `, s.html FROM snapshots s
		JOIN pages p ON p.id = s.page_id
		WHERE s.id = ? AND p.owner_id = ?`
	args := []any{id, ownerID}
	if pageID != "" {
		query += ` AND s.page_id = ?`
		args = append(args, pageID)
	}

	row := s.db.QueryRowContext(ctx, query, args...)

	var snap models.HtmlSnapshot
	var structureHash, createdAt int64
	var html []byte
	err := row.Scan(&snap.ID, &snap.PageID, &snap.Meta.ContentType, &snap.Meta.ByteLength,
		&snap.Meta.FetchedAt, &snap.Meta.Status, &snap.Meta.Method, &snap.ContentHash,
		&structureHash, &snap.Title, &createdAt, &html)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("snapshot")
		}
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}
	snap.StructureHash = uint64(structureHash)
	snap.CreatedAt = fromUnix(createdAt)
	snap.HTML = string(html)
	return &snap, nil
}

// ListSnapshots lists a page's snapshots most-recent-first, HTML omitted.
func (s *Store) ListSnapshots(ctx context.Context, ownerID, pageID string, limit, offset int) ([]*models.HtmlSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotCols+` FROM snapshots s
		 JOIN pages p ON p.id = s.page_id
		 WHERE s.page_id = ? AND p.owner_id = ?
		 ORDER BY s.created_at DESC, s.rowid DESC
		 LIMIT ? OFFSET ?`,
		pageID, ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*models.HtmlSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
