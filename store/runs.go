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

const runCols = `r.id, r.definition_id, r.snapshot_id, r.output, r.drifted,
	r.structure_distance, r.created_at`

// InsertRun appends a run record. Runs are never updated afterwards.
func (s *Store) InsertRun(ctx context.Context, run *models.ExtractionRun) error {
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, definition_id, snapshot_id, output, drifted, structure_distance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DefinitionID, run.SnapshotID, string(run.Output),
		run.Drifted, run.StructureDistance, toUnix(run.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func scanRun(row interface{ Scan(...any) error }) (*models.ExtractionRun, error) {
	var run models.ExtractionRun
	var output string
	var createdAt int64
	err := row.Scan(&run.ID, &run.DefinitionID, &run.SnapshotID, &output,
		&run.Drifted, &run.StructureDistance, &createdAt)
	if err != nil {
		return nil, err
	}
	run.Output = json.RawMessage(output)
	run.CreatedAt = fromUnix(createdAt)
	return &run, nil
}

// GetRun fetches a run owned (via its definition's page) by ownerID.
func (s *Store) GetRun(ctx context.Context, ownerID, id string) (*models.ExtractionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runCols+` FROM runs r
		 JOIN definitions d ON d.id = r.definition_id
		 JOIN pages p ON p.id = d.page_id
		 WHERE r.id = ? AND p.owner_id = ?`,
		id, ownerID,
	)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("run")
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return run, nil
}

// ListRunsForDefinition lists a definition's runs most-recent-first.
func (s *Store) ListRunsForDefinition(ctx context.Context, ownerID, definitionID string, limit, offset int) ([]*models.ExtractionRun, error) {
	return s.queryRuns(ctx,
		`SELECT `+runCols+` FROM runs r
		 JOIN definitions d ON d.id = r.definition_id
		 JOIN pages p ON p.id = d.page_id
		 WHERE r.definition_id = ? AND p.owner_id = ?
		 ORDER BY r.created_at DESC, r.rowid DESC
		 LIMIT ? OFFSET ?`,
		definitionID, ownerID, limit, offset)
}

// ListDriftedRuns lists a page's drift-flagged runs most-recent-first.
func (s *Store) ListDriftedRuns(ctx context.Context, ownerID, pageID string, limit, offset int) ([]*models.ExtractionRun, error) {
	return s.queryRuns(ctx,
		`SELECT `+runCols+` FROM runs r
		 JOIN definitions d ON d.id = r.definition_id
		 JOIN pages p ON p.id = d.page_id
		 WHERE d.page_id = ? AND p.owner_id = ? AND r.drifted = 1
		 ORDER BY r.created_at DESC, r.rowid DESC
		 LIMIT ? OFFSET ?`,
		pageID, ownerID, limit, offset)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]*models.ExtractionRun, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ExtractionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
