// Package registry manages the lifecycle of extraction definitions.
//
// Learn is transactional from the caller's point of view: the generation
// collaborator is invoked synchronously and a definition row exists only if
// it succeeded; there are no rows for half-built recipes. Improving a
// definition always forks a new one; existing definitions are never mutated.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/pagent/agent"
	"github.com/use-agent/pagent/cache"
	"github.com/use-agent/pagent/cleaner"
	"github.com/use-agent/pagent/events"
	"github.com/use-agent/pagent/models"
	"github.com/use-agent/pagent/store"
)

// Generator is the slice of the collaborator client Learn depends on.
type Generator interface {
	Generate(ctx context.Context, req agent.GenerateRequest) (*agent.GenerateResult, error)
}

// Service implements the definition registry component.
type Service struct {
	store   *store.Store
	gen     Generator
	cleaner *cleaner.Cleaner
	cache   *cache.Cache
	sink    events.Sink

	// cleanThreshold is the HTML byte size above which generation payloads
	// are noise-stripped. 0 disables stripping.
	cleanThreshold int
}

// NewService creates the registry. cache and sink may be nil.
func NewService(st *store.Store, gen Generator, cl *cleaner.Cleaner, cc *cache.Cache, sink events.Sink, cleanThreshold int) *Service {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Service{
		store:          st,
		gen:            gen,
		cleaner:        cl,
		cache:          cc,
		sink:           sink,
		cleanThreshold: cleanThreshold,
	}
}

// Learn trains a new definition for the page on the given snapshot.
// Exactly one generation call is made; on failure nothing is persisted and
// the collaborator's diagnostic is surfaced as GenerationFailed. Retries are
// the caller's decision.
func (s *Service) Learn(ctx context.Context, ownerID, pageID, snapshotID, goal string) (*models.ExtractionDefinition, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, models.NewPipelineError(models.ErrCodeInvalidInput, "goal must be non-empty", nil)
	}
	return s.learn(ctx, ownerID, pageID, snapshotID, goal, "")
}

// Retrain forks a new definition from an existing one: the parent's goal is
// composed with the refinement and trained against the parent's original
// snapshot. The parent is untouched. A parent that has not finished training
// reads as absent: an unfinished recipe cannot be refined.
func (s *Service) Retrain(ctx context.Context, ownerID, definitionID, refinementGoal string) (*models.ExtractionDefinition, error) {
	if strings.TrimSpace(refinementGoal) == "" {
		return nil, models.NewPipelineError(models.ErrCodeInvalidInput, "refinement goal must be non-empty", nil)
	}

	parent, err := s.store.GetDefinition(ctx, ownerID, definitionID)
	if err != nil {
		return nil, err
	}
	if parent.State != models.TrainingReady {
		return nil, models.NewPipelineError(models.ErrCodeNotFound, "definition not found", nil)
	}

	composed := composeGoal(parent.Goal, refinementGoal)
	return s.learn(ctx, ownerID, parent.PageID, parent.SnapshotID, composed, parent.ID)
}

// IsReady reports whether the definition has finished training. The
// execution engine uses it as a precondition.
func (s *Service) IsReady(ctx context.Context, ownerID, definitionID string) (bool, error) {
	def, err := s.store.GetDefinition(ctx, ownerID, definitionID)
	if err != nil {
		return false, err
	}
	return def.State == models.TrainingReady, nil
}

// List returns the page's definitions, most-recent-first.
func (s *Service) List(ctx context.Context, ownerID, pageID string) ([]*models.ExtractionDefinition, error) {
	if _, err := s.store.GetPage(ctx, ownerID, pageID); err != nil {
		return nil, err
	}
	return s.store.ListDefinitions(ctx, ownerID, pageID)
}

func (s *Service) learn(ctx context.Context, ownerID, pageID, snapshotID, goal, parentID string) (*models.ExtractionDefinition, error) {
	snap, err := s.store.GetSnapshot(ctx, ownerID, pageID, snapshotID)
	if err != nil {
		return nil, err
	}
	page, err := s.store.GetPage(ctx, ownerID, snap.PageID)
	if err != nil {
		return nil, err
	}

	result, err := s.gen.Generate(ctx, agent.GenerateRequest{
		URL:  page.URL,
		HTML: s.prepare(snap),
		Goal: goal,
	})
	if err != nil {
		slog.Warn("definition generation failed",
			"page_id", page.ID,
			"snapshot_id", snap.ID,
			"error", err,
		)
		return nil, err
	}

	def := &models.ExtractionDefinition{
		PageID:     page.ID,
		SnapshotID: snap.ID,
		ParentID:   parentID,
		Goal:       goal,
		Code:       result.Code,
		Schema:     result.Schema,
		State:      models.TrainingReady,
	}
	if err := s.store.InsertDefinition(ctx, def); err != nil {
		return nil, err
	}

	slog.Info("definition ready",
		"definition_id", def.ID,
		"page_id", page.ID,
		"snapshot_id", snap.ID,
		"forked_from", parentID,
	)
	s.sink.Publish(events.New(events.TypeDefinitionReady, page.ID, def.ID, nil))
	return def, nil
}

// prepare reduces oversized HTML for the generation prompt. Stripping only
// removes elements, so selectors in the generated code remain valid against
// the raw snapshot. Prepared content is cached; snapshots are immutable.
func (s *Service) prepare(snap *models.HtmlSnapshot) string {
	if s.cleanThreshold <= 0 || len(snap.HTML) < s.cleanThreshold {
		return snap.HTML
	}

	key := cache.Key(snap.ID, "stripped")
	if s.cache != nil {
		if cached, hit := s.cache.Get(key); hit {
			return cached
		}
	}

	stripped := s.cleaner.StripNoise(snap.HTML)
	if s.cache != nil {
		s.cache.Set(key, stripped)
	}
	return stripped
}

func composeGoal(parentGoal, refinement string) string {
	return fmt.Sprintf("%s\n\nAdditionally: %s", parentGoal, strings.TrimSpace(refinement))
}
