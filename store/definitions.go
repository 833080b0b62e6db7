package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/pagent/models"
)

const definitionCols = `d.id, d.page_id, d.snapshot_id, d.parent_id, d.goal,
	d.code, d.schema, d.state, d.created_at`

// InsertDefinition persists a definition. ID and CreatedAt are assigned here;
// everything else, including the state, must already be set, since a
// definition's (code, schema) pair is write-once.
func (s *Store) InsertDefinition(ctx context.Context, def *models.ExtractionDefinition) error {
	def.ID = uuid.NewString()
	def.CreatedAt = time.Now().UTC()

	var schema any
	if len(def.Schema) > 0 {
		schema = string(def.Schema)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO definitions (id, page_id, snapshot_id, parent_id, goal, code, schema, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.PageID, def.SnapshotID, def.ParentID, def.Goal, def.Code,
		schema, string(def.State), toUnix(def.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting definition: %w", err)
	}
	return nil
}

func scanDefinition(row interface{ Scan(...any) error }) (*models.ExtractionDefinition, error) {
	var def models.ExtractionDefinition
	var schema sql.NullString
	var state string
	var createdAt int64
	err := row.Scan(&def.ID, &def.PageID, &def.SnapshotID, &def.ParentID, &def.Goal,
		&def.Code, &schema, &state, &createdAt)
	if err != nil {
		return nil, err
	}
	if schema.Valid && schema.String != "" {
		def.Schema = json.RawMessage(schema.String)
	}
	def.State = models.TrainingState(state)
	def.CreatedAt = fromUnix(createdAt)
	return &def, nil
}

// GetDefinition fetches a definition owned by ownerID.
func (s *Store) GetDefinition(ctx context.Context, ownerID, id string) (*models.ExtractionDefinition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+definitionCols+` FROM definitions d
		 JOIN pages p ON p.id = d.page_id
		 WHERE d.id = ? AND p.owner_id = ?`,
		id, ownerID,
	)

	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("definition")
		}
		return nil, fmt.Errorf("scanning definition: %w", err)
	}
	return def, nil
}

// ListDefinitions lists a page's definitions, most-recent-first.
func (s *Store) ListDefinitions(ctx context.Context, ownerID, pageID string) ([]*models.ExtractionDefinition, error) {
	return s.queryDefinitions(ctx,
		`SELECT `+definitionCols+` FROM definitions d
		 JOIN pages p ON p.id = d.page_id
		 WHERE d.page_id = ? AND p.owner_id = ?
		 ORDER BY d.created_at DESC, d.rowid DESC`,
		pageID, ownerID)
}

// ListDefinitionsForSnapshot lists the definitions trained on a snapshot.
func (s *Store) ListDefinitionsForSnapshot(ctx context.Context, ownerID, snapshotID string) ([]*models.ExtractionDefinition, error) {
	return s.queryDefinitions(ctx,
		`SELECT `+definitionCols+` FROM definitions d
		 JOIN pages p ON p.id = d.page_id
		 WHERE d.snapshot_id = ? AND p.owner_id = ?
		 ORDER BY d.created_at DESC, d.rowid DESC`,
		snapshotID, ownerID)
}

func (s *Store) queryDefinitions(ctx context.Context, query string, args ...any) ([]*models.ExtractionDefinition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing definitions: %w", err)
	}
	defer rows.Close()

	var defs []*models.ExtractionDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}
