// Package engine executes ready definitions against chosen snapshots.
//
// The one hard concurrency invariant of the pipeline lives here: for a fixed
// (definition, snapshot) pair, duplicate collaborator executions never run
// concurrently. A singleflight group keyed by the pair acts as the execution
// lease: a second caller arriving while a pair is in flight waits for and
// shares the in-flight result. Sequential re-runs each produce an
// independent run record.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/use-agent/pagent/agent"
	"github.com/use-agent/pagent/events"
	"github.com/use-agent/pagent/models"
	"github.com/use-agent/pagent/pagehash"
	"github.com/use-agent/pagent/store"
)

// Executor is the slice of the collaborator client Execute depends on.
type Executor interface {
	Execute(ctx context.Context, req agent.ExecuteRequest) (json.RawMessage, error)
}

// Engine implements the execution engine component.
type Engine struct {
	store *store.Store
	exec  Executor
	sink  events.Sink
	group singleflight.Group
}

// New creates the engine. sink may be nil.
func New(st *store.Store, exec Executor, sink events.Sink) *Engine {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Engine{store: st, exec: exec, sink: sink}
}

// Execute runs a definition against a snapshot and persists the outcome as a
// new run. Preconditions are checked before any collaborator traffic: the
// definition must be READY (NotReady) and the snapshot must belong to the
// definition's page (CrossPageMismatch). On collaborator failure nothing is
// persisted; re-execution has quota cost, so retrying is the caller's call.
func (e *Engine) Execute(ctx context.Context, ownerID, definitionID, snapshotID string) (*models.ExtractionRun, error) {
	def, err := e.store.GetDefinition(ctx, ownerID, definitionID)
	if err != nil {
		return nil, err
	}
	if def.State != models.TrainingReady {
		return nil, models.NewPipelineError(models.ErrCodeNotReady, "definition has not finished training", nil)
	}

	snap, err := e.store.GetSnapshot(ctx, ownerID, "", snapshotID)
	if err != nil {
		return nil, err
	}
	if snap.PageID != def.PageID {
		return nil, models.NewPipelineError(models.ErrCodeCrossPageMismatch,
			"snapshot and definition belong to different pages", nil)
	}

	// The lease: one in-flight execution per pair. DoChan rather than Do so
	// a waiter whose own deadline expires can stop waiting without
	// cancelling the in-flight call for everyone else. The flight runs on
	// the initiating caller's context, so once that context is cancelled the
	// key is forgotten; a retry starts a fresh flight instead of joining the
	// dying one and inheriting its cancellation error.
	key := definitionID + "|" + snapshotID
	ch := e.group.DoChan(key, func() (any, error) {
		return e.run(ctx, ownerID, def, snap)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if models.IsCode(res.Err, models.ErrCodeTimeout) {
				e.group.Forget(key)
			}
			return nil, res.Err
		}
		run := res.Val.(*models.ExtractionRun)
		if res.Shared {
			slog.Debug("execution result shared with concurrent caller",
				"definition_id", definitionID,
				"snapshot_id", snapshotID,
				"run_id", run.ID,
			)
		}
		return run, nil
	case <-ctx.Done():
		e.group.Forget(key)
		return nil, models.NewPipelineError(models.ErrCodeTimeout, "execution wait aborted", ctx.Err())
	}
}

// run performs one collaborator execution and persists the run. It executes
// under the pair's lease; returning on any path releases it.
func (e *Engine) run(ctx context.Context, ownerID string, def *models.ExtractionDefinition, snap *models.HtmlSnapshot) (*models.ExtractionRun, error) {
	page, err := e.store.GetPage(ctx, ownerID, def.PageID)
	if err != nil {
		return nil, err
	}

	output, err := e.exec.Execute(ctx, agent.ExecuteRequest{
		URL:  page.URL,
		HTML: snap.HTML,
		Goal: def.Goal,
		Code: def.Code,
	})
	if err != nil {
		slog.Warn("execution failed",
			"definition_id", def.ID,
			"snapshot_id", snap.ID,
			"error", err,
		)
		return nil, err
	}

	run := &models.ExtractionRun{
		DefinitionID: def.ID,
		SnapshotID:   snap.ID,
		Output:       output,
		Drifted:      Drifted(def.Schema, output),
	}

	// Executing against a later capture: record how far the page structure
	// has moved since training.
	if snap.ID != def.SnapshotID {
		trained, err := e.store.GetSnapshot(ctx, ownerID, "", def.SnapshotID)
		if err == nil {
			run.StructureDistance = pagehash.Distance(trained.StructureHash, snap.StructureHash)
		}
	}

	if err := e.store.InsertRun(ctx, run); err != nil {
		return nil, err
	}

	slog.Info("run completed",
		"run_id", run.ID,
		"definition_id", def.ID,
		"snapshot_id", snap.ID,
		"drifted", run.Drifted,
		"structure_distance", run.StructureDistance,
	)
	e.sink.Publish(events.New(events.TypeRunCompleted, def.PageID, run.ID, map[string]bool{"drifted": run.Drifted}))
	return run, nil
}

// ListRuns returns a definition's runs, most-recent-first.
func (e *Engine) ListRuns(ctx context.Context, ownerID, definitionID string, limit, offset int) ([]*models.ExtractionRun, error) {
	if _, err := e.store.GetDefinition(ctx, ownerID, definitionID); err != nil {
		return nil, err
	}
	return e.store.ListRunsForDefinition(ctx, ownerID, definitionID, limit, offset)
}
