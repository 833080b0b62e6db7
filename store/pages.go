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

// InsertPage creates a new tracked page for the owner.
func (s *Store) InsertPage(ctx context.Context, ownerID, url string) (*models.Page, error) {
	page := &models.Page{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		URL:       url,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (id, owner_id, url, created_at) VALUES (?, ?, ?, ?)`,
		page.ID, page.OwnerID, page.URL, toUnix(page.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting page: %w", err)
	}
	return page, nil
}

// GetPage fetches a page owned by ownerID.
func (s *Store) GetPage(ctx context.Context, ownerID, id string) (*models.Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, url, created_at FROM pages WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)

	var page models.Page
	var createdAt int64
	if err := row.Scan(&page.ID, &page.OwnerID, &page.URL, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("page")
		}
		return nil, fmt.Errorf("scanning page: %w", err)
	}
	page.CreatedAt = fromUnix(createdAt)
	return &page, nil
}

// ListPages lists the owner's pages, most-recent-first.
func (s *Store) ListPages(ctx context.Context, ownerID string) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, url, created_at FROM pages
		 WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		var page models.Page
		var createdAt int64
		if err := rows.Scan(&page.ID, &page.OwnerID, &page.URL, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		page.CreatedAt = fromUnix(createdAt)
		pages = append(pages, &page)
	}
	return pages, rows.Err()
}

// DeletePage removes a page and, via foreign-key cascades, all of its
// snapshots, definitions, and runs.
func (s *Store) DeletePage(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pages WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting page: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting page: %w", err)
	}
	if n == 0 {
		return notFound("page")
	}
	return nil
}
