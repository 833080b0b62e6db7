package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/pagent/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPageRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	page, err := st.InsertPage(ctx, "alice", "https://example.com/products")
	require.NoError(t, err)
	require.NotEmpty(t, page.ID)

	got, err := st.GetPage(ctx, "alice", page.ID)
	require.NoError(t, err)
	require.Equal(t, page.ID, got.ID)
	require.Equal(t, "https://example.com/products", got.URL)
	require.Equal(t, page.CreatedAt, got.CreatedAt)
}

func TestGetPage_WrongOwnerReadsAsNotFound(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	page, err := st.InsertPage(ctx, "alice", "https://example.com")
	require.NoError(t, err)

	_, err = st.GetPage(ctx, "bob", page.ID)
	require.Error(t, err)
	require.True(t, models.IsCode(err, models.ErrCodeNotFound))
}

func TestListPages_ScopedToOwner(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.InsertPage(ctx, "alice", "https://a.example.com")
	require.NoError(t, err)
	_, err = st.InsertPage(ctx, "alice", "https://b.example.com")
	require.NoError(t, err)
	_, err = st.InsertPage(ctx, "bob", "https://c.example.com")
	require.NoError(t, err)

	pages, err := st.ListPages(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	// Most-recent-first.
	require.Equal(t, "https://b.example.com", pages[0].URL)
	require.Equal(t, "https://a.example.com", pages[1].URL)
}

func TestSnapshotRoundtrip_HTMLByteIdentical(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	page, err := st.InsertPage(ctx, "alice", "https://example.com")
	require.NoError(t, err)

	// Odd whitespace and non-ASCII must survive storage untouched.
	html := "<html>\r\n\t<body>café ¥1200 &amp; more</body>\r\n</html>\n"
	snap := &models.HtmlSnapshot{
		PageID:        page.ID,
		HTML:          html,
		Meta:          models.SnapshotMeta{ContentType: "text/html", ByteLength: int64(len(html)), Status: 200},
		ContentHash:   "deadbeef",
		StructureHash: 0xFFFFFFFFFFFFFFFF,
		Title:         "Example",
	}
	require.NoError(t, st.InsertSnapshot(ctx, snap))
	require.NotEmpty(t, snap.ID)

	got, err := st.GetSnapshot(ctx, "alice", page.ID, snap.ID)
	require.NoError(t, err)
	require.Equal(t, html, got.HTML)
	require.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), got.StructureHash)
	require.Equal(t, "text/html", got.Meta.ContentType)
	require.Equal(t, 200, got.Meta.Status)
}

func TestGetSnapshot_PageMismatchReadsAsNotFound(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	pageA, err := st.InsertPage(ctx, "alice", "https://a.example.com")
	require.NoError(t, err)
	pageB, err := st.InsertPage(ctx, "alice", "https://b.example.com")
	require.NoError(t, err)

	snap := &models.HtmlSnapshot{PageID: pageA.ID, HTML: "<p>hi</p>"}
	require.NoError(t, st.InsertSnapshot(ctx, snap))

	_, err = st.GetSnapshot(ctx, "alice", pageB.ID, snap.ID)
	require.True(t, models.IsCode(err, models.ErrCodeNotFound))

	// Empty pageID skips the page filter.
	got, err := st.GetSnapshot(ctx, "alice", "", snap.ID)
	require.NoError(t, err)
	require.Equal(t, snap.ID, got.ID)
}

func TestListSnapshots_OmitsHTML(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	page, err := st.InsertPage(ctx, "alice", "https://example.com")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		snap := &models.HtmlSnapshot{PageID: page.ID, HTML: "<p>content</p>"}
		require.NoError(t, st.InsertSnapshot(ctx, snap))
	}

	snaps, err := st.ListSnapshots(ctx, "alice", page.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	for _, s := range snaps {
		require.Empty(t, s.HTML)
	}

	limited, err := st.ListSnapshots(ctx, "alice", page.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestDefinitionRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	page, err := st.InsertPage(ctx, "alice", "https://example.com")
	require.NoError(t, err)
	snap := &models.HtmlSnapshot{PageID: page.ID, HTML: "<p>hi</p>"}
	require.NoError(t, st.InsertSnapshot(ctx, snap))

	def := &models.ExtractionDefinition{
		PageID:     page.ID,
		SnapshotID: snap.ID,
		Goal:       "extract product names",
		Code:       "def extract(html): ...",
		Schema:     json.RawMessage(`{"title":"string"}`),
		State:      models.TrainingReady,
	}
	require.NoError(t, st.InsertDefinition(ctx, def))

	got, err := st.GetDefinition(ctx, "alice", def.ID)
	require.NoError(t, err)
	require.Equal(t, def.Goal, got.Goal)
	require.Equal(t, def.Code, got.Code)
	require.JSONEq(t, `{"title":"string"}`, string(got.Schema))
	require.Equal(t, models.TrainingReady, got.State)
	require.Empty(t, got.ParentID)
}

func TestDefinition_NilSchemaStaysNil(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	page, err := st.InsertPage(ctx, "alice", "https://example.com")
	require.NoError(t, err)
	snap := &models.HtmlSnapshot{PageID: page.ID, HTML: "<p>hi</p>"}
	require.NoError(t, st.InsertSnapshot(ctx, snap))

	def := &models.ExtractionDefinition{
		PageID:     page.ID,
		SnapshotID: snap.ID,
		Goal:       "extract text",
		Code:       "code",
		State:      models.TrainingReady,
	}
	require.NoError(t, st.InsertDefinition(ctx, def))

	got, err := st.GetDefinition(ctx, "alice", def.ID)
	require.NoError(t, err)
	require.Nil(t, got.Schema)
}

func TestRunQueries(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	page, err := st.InsertPage(ctx, "alice", "https://example.com")
	require.NoError(t, err)
	snap := &models.HtmlSnapshot{PageID: page.ID, HTML: "<p>hi</p>"}
	require.NoError(t, st.InsertSnapshot(ctx, snap))
	def := &models.ExtractionDefinition{
		PageID: page.ID, SnapshotID: snap.ID, Goal: "g", Code: "c", State: models.TrainingReady,
	}
	require.NoError(t, st.InsertDefinition(ctx, def))

	clean := &models.ExtractionRun{
		DefinitionID: def.ID, SnapshotID: snap.ID,
		Output: json.RawMessage(`{"title":"a"}`),
	}
	require.NoError(t, st.InsertRun(ctx, clean))

	drifted := &models.ExtractionRun{
		DefinitionID: def.ID, SnapshotID: snap.ID,
		Output: json.RawMessage(`{"unexpected":"b"}`), Drifted: true, StructureDistance: 7,
	}
	require.NoError(t, st.InsertRun(ctx, drifted))

	got, err := st.GetRun(ctx, "alice", drifted.ID)
	require.NoError(t, err)
	require.True(t, got.Drifted)
	require.Equal(t, 7, got.StructureDistance)
	require.JSONEq(t, `{"unexpected":"b"}`, string(got.Output))

	runs, err := st.ListRunsForDefinition(ctx, "alice", def.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	flagged, err := st.ListDriftedRuns(ctx, "alice", page.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	require.Equal(t, drifted.ID, flagged[0].ID)

	// Runs are owner-scoped through the definition's page.
	_, err = st.GetRun(ctx, "bob", drifted.ID)
	require.True(t, models.IsCode(err, models.ErrCodeNotFound))
}

func TestDeletePage_CascadesToDependents(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	page, err := st.InsertPage(ctx, "alice", "https://example.com")
	require.NoError(t, err)
	snap := &models.HtmlSnapshot{PageID: page.ID, HTML: "<p>hi</p>"}
	require.NoError(t, st.InsertSnapshot(ctx, snap))
	def := &models.ExtractionDefinition{
		PageID: page.ID, SnapshotID: snap.ID, Goal: "g", Code: "c", State: models.TrainingReady,
	}
	require.NoError(t, st.InsertDefinition(ctx, def))
	run := &models.ExtractionRun{DefinitionID: def.ID, SnapshotID: snap.ID, Output: json.RawMessage(`{}`)}
	require.NoError(t, st.InsertRun(ctx, run))

	require.NoError(t, st.DeletePage(ctx, "alice", page.ID))

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Pages)
	require.Zero(t, stats.Snapshots)
	require.Zero(t, stats.Definitions)
	require.Zero(t, stats.Runs)
}

func TestDeletePage_WrongOwnerLeavesRow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	page, err := st.InsertPage(ctx, "alice", "https://example.com")
	require.NoError(t, err)

	err = st.DeletePage(ctx, "bob", page.ID)
	require.True(t, models.IsCode(err, models.ErrCodeNotFound))

	_, err = st.GetPage(ctx, "alice", page.ID)
	require.NoError(t, err)
}
