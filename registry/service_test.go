package registry

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/pagent/agent"
	"github.com/use-agent/pagent/cache"
	"github.com/use-agent/pagent/cleaner"
	"github.com/use-agent/pagent/models"
	"github.com/use-agent/pagent/store"
)

// fakeGenerator records generation requests and serves a canned result.
type fakeGenerator struct {
	mu       sync.Mutex
	requests []agent.GenerateRequest
	result   *agent.GenerateResult
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, req agent.GenerateRequest) (*agent.GenerateResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeGenerator) lastRequest() agent.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestService(t *testing.T, gen Generator, cleanThreshold int) (*Service, *store.Store, *models.Page, *models.HtmlSnapshot) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	page, err := st.InsertPage(ctx, "alice", "https://example.com/products")
	require.NoError(t, err)

	snap := &models.HtmlSnapshot{
		PageID: page.ID,
		HTML:   `<html><head><script>analytics()</script></head><body><h1>Widget</h1><p>$19.99</p></body></html>`,
	}
	require.NoError(t, st.InsertSnapshot(ctx, snap))

	svc := NewService(st, gen, cleaner.NewCleaner(), cache.New(16), nil, cleanThreshold)
	return svc, st, page, snap
}

func TestLearn_PersistsReadyDefinition(t *testing.T) {
	gen := &fakeGenerator{result: &agent.GenerateResult{
		Code:   "def extract(html): ...",
		Schema: json.RawMessage(`{"title": "string", "price": "string"}`),
	}}
	svc, st, page, snap := newTestService(t, gen, 0)
	ctx := context.Background()

	def, err := svc.Learn(ctx, "alice", page.ID, snap.ID, "extract title and price")
	require.NoError(t, err)
	require.Equal(t, models.TrainingReady, def.State)
	require.Equal(t, snap.ID, def.SnapshotID)
	require.Empty(t, def.ParentID)
	require.Equal(t, 1, gen.callCount())
	require.Equal(t, "https://example.com/products", gen.lastRequest().URL)

	stored, err := st.GetDefinition(ctx, "alice", def.ID)
	require.NoError(t, err)
	require.Equal(t, "def extract(html): ...", stored.Code)
	require.JSONEq(t, `{"title": "string", "price": "string"}`, string(stored.Schema))
}

func TestLearn_EmptyGoal(t *testing.T) {
	gen := &fakeGenerator{result: &agent.GenerateResult{Code: "code"}}
	svc, _, page, snap := newTestService(t, gen, 0)

	_, err := svc.Learn(context.Background(), "alice", page.ID, snap.ID, "   ")
	require.True(t, models.IsCode(err, models.ErrCodeInvalidInput))
	require.Zero(t, gen.callCount())
}

func TestLearn_GenerationFailurePersistsNothing(t *testing.T) {
	gen := &fakeGenerator{err: models.NewPipelineError(models.ErrCodeGenerationFailed, "model declined", nil)}
	svc, st, page, snap := newTestService(t, gen, 0)
	ctx := context.Background()

	_, err := svc.Learn(ctx, "alice", page.ID, snap.ID, "extract everything")
	require.True(t, models.IsCode(err, models.ErrCodeGenerationFailed))
	require.Equal(t, 1, gen.callCount())

	defs, err := st.ListDefinitions(ctx, "alice", page.ID)
	require.NoError(t, err)
	require.Empty(t, defs)
}

func TestLearn_UnknownSnapshot(t *testing.T) {
	gen := &fakeGenerator{result: &agent.GenerateResult{Code: "code"}}
	svc, _, page, _ := newTestService(t, gen, 0)

	_, err := svc.Learn(context.Background(), "alice", page.ID, "no-such-snapshot", "extract titles")
	require.True(t, models.IsCode(err, models.ErrCodeNotFound))
	require.Zero(t, gen.callCount())
}

func TestLearn_StripsOversizedHTML(t *testing.T) {
	gen := &fakeGenerator{result: &agent.GenerateResult{Code: "code"}}
	// Threshold of 1 byte forces stripping for any snapshot.
	svc, _, page, snap := newTestService(t, gen, 1)

	_, err := svc.Learn(context.Background(), "alice", page.ID, snap.ID, "extract titles")
	require.NoError(t, err)

	sent := gen.lastRequest().HTML
	require.NotContains(t, sent, "analytics()")
	require.Contains(t, sent, "Widget")
}

func TestRetrain_ForksWithoutTouchingParent(t *testing.T) {
	gen := &fakeGenerator{result: &agent.GenerateResult{Code: "v1"}}
	svc, st, page, snap := newTestService(t, gen, 0)
	ctx := context.Background()

	parent, err := svc.Learn(ctx, "alice", page.ID, snap.ID, "extract product names")
	require.NoError(t, err)

	gen.result = &agent.GenerateResult{Code: "v2"}
	child, err := svc.Retrain(ctx, "alice", parent.ID, "also extract prices")
	require.NoError(t, err)

	require.NotEqual(t, parent.ID, child.ID)
	require.Equal(t, parent.ID, child.ParentID)
	require.Equal(t, parent.SnapshotID, child.SnapshotID)
	require.Equal(t, models.TrainingReady, child.State)
	require.True(t, strings.HasPrefix(child.Goal, "extract product names"))
	require.Contains(t, child.Goal, "Additionally: also extract prices")

	// The composed goal, not just the refinement, went to the collaborator.
	require.Equal(t, child.Goal, gen.lastRequest().Goal)

	unchanged, err := st.GetDefinition(ctx, "alice", parent.ID)
	require.NoError(t, err)
	require.Equal(t, "v1", unchanged.Code)
	require.Equal(t, "extract product names", unchanged.Goal)
}

func TestRetrain_EmptyRefinement(t *testing.T) {
	gen := &fakeGenerator{result: &agent.GenerateResult{Code: "code"}}
	svc, _, _, _ := newTestService(t, gen, 0)

	_, err := svc.Retrain(context.Background(), "alice", "some-definition", "")
	require.True(t, models.IsCode(err, models.ErrCodeInvalidInput))
	require.Zero(t, gen.callCount())
}

func TestRetrain_UnfinishedParentReadsAsAbsent(t *testing.T) {
	gen := &fakeGenerator{result: &agent.GenerateResult{Code: "code"}}
	svc, st, page, snap := newTestService(t, gen, 0)
	ctx := context.Background()

	failed := &models.ExtractionDefinition{
		PageID:     page.ID,
		SnapshotID: snap.ID,
		Goal:       "extract titles",
		Code:       "",
		State:      models.TrainingFailed,
	}
	require.NoError(t, st.InsertDefinition(ctx, failed))

	_, err := svc.Retrain(ctx, "alice", failed.ID, "try harder")
	require.True(t, models.IsCode(err, models.ErrCodeNotFound))
	require.Zero(t, gen.callCount())
}

func TestIsReady(t *testing.T) {
	gen := &fakeGenerator{result: &agent.GenerateResult{Code: "code"}}
	svc, st, page, snap := newTestService(t, gen, 0)
	ctx := context.Background()

	def, err := svc.Learn(ctx, "alice", page.ID, snap.ID, "extract titles")
	require.NoError(t, err)

	ready, err := svc.IsReady(ctx, "alice", def.ID)
	require.NoError(t, err)
	require.True(t, ready)

	pending := &models.ExtractionDefinition{
		PageID: page.ID, SnapshotID: snap.ID, Goal: "g", Code: "",
		State: models.TrainingPending,
	}
	require.NoError(t, st.InsertDefinition(ctx, pending))

	ready, err = svc.IsReady(ctx, "alice", pending.ID)
	require.NoError(t, err)
	require.False(t, ready)
}
