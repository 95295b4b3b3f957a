package output

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/compare"
)

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func newSink(t *testing.T, workbook bool) (*FileSink, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "output")
	s, err := NewFileSink(FileOptions{Dir: dir, Workers: 3, Indent: true, Workbook: workbook}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func items(n int) []domain.MergedRecord {
	names := []string{"Longsword", "Longbow", "Plate Armor", "Dagger", "Net"}
	out := make([]domain.MergedRecord, 0, n)
	for _, name := range names[:n] {
		r := domain.NewMergedRecord("item", name+"|PHB")
		r.DisplayName = domain.DisplayNameOf(name, "")
		r.MainSource = domain.SourceRef{Source: "PHB"}
		r.Common["weight"] = 1.0
		out = append(out, r)
	}
	return out
}

func TestFileSink_WriteRecords(t *testing.T) {
	t.Parallel()

	s, dir := newSink(t, false)
	n, err := s.WriteRecords(context.Background(), "item", items(5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got := readJSON(t, filepath.Join(dir, "item", "item_1_PHB_1_Plate Armor.json"))
	assert.Equal(t, "item_Plate Armor|PHB", got["uid"])
	assert.Equal(t, map[string]any{"primary": "Plate Armor", "secondary": nil}, got["displayName"])
	assert.Equal(t, []any{}, got["allSources"])
	assert.Nil(t, got["secondary"])

	entries, err := os.ReadDir(filepath.Join(dir, "item"))
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestFileSink_WriteRecords_Canceled(t *testing.T) {
	t.Parallel()

	s, _ := newSink(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := s.WriteRecords(ctx, "item", items(3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestFileSink_WriteCollection(t *testing.T) {
	t.Parallel()

	s, dir := newSink(t, false)
	feat := domain.NewMergedRecord("feat", "Alert|PHB")
	require.NoError(t, s.WriteCollection(context.Background(), CollectionName("feat"), Collection{
		Type: "feat",
		Data: []domain.MergedRecord{feat},
	}))
	require.NoError(t, s.WriteCollection(context.Background(), "sources", Collection{
		Type: "sources",
		Data: map[string]any{"PHB": map[string]any{"id": "PHB"}},
	}))

	got := readJSON(t, filepath.Join(dir, "collection", "featCollection.json"))
	assert.Equal(t, "feat", got["type"])
	require.Len(t, got["data"], 1)

	src := readJSON(t, filepath.Join(dir, "collection", "sources.json"))
	assert.Equal(t, "sources", src["type"])
}

func TestFileSink_WriteAudit(t *testing.T) {
	t.Parallel()

	s, dir := newSink(t, true)
	rep := compare.NewReport()
	type rec struct{ id, title string }
	acc := compare.Accessors[rec]{
		ID:             func(r rec) string { return r.id },
		PrimaryTitle:   func(r rec) string { return r.title },
		SecondaryTitle: func(r rec) string { return r.title },
	}
	compare.Compare(rep, "feat", []rec{{"Alert|PHB", "Alert"}, {"Lucky|PHB", "Lucky"}}, []rec{{"Alert|PHB", "警觉"}}, acc)
	compare.Compare(rep, "spell", []rec{{"Fireball|PHB", "Fireball"}}, nil, acc)

	log := audit.NewLog(nil)
	log.Record(audit.KindMissingCounterpart, "feat", "Lucky|PHB", "no secondary record for Lucky")

	require.NoError(t, s.WriteAudit(context.Background(), Audit{Report: rep, Anomalies: log.Entries()}))

	idMgr := readJSON(t, filepath.Join(dir, "idMgr.json"))
	assert.Equal(t, "idMgr", idMgr["type"])
	dataset := idMgr["dataset"].(map[string]any)
	assert.Len(t, dataset["feat"].(map[string]any)["needSecondary"], 1)

	logs := readJSON(t, filepath.Join(dir, "logs.json"))
	assert.Equal(t, []any{map[string]any{
		"kind": "missing_counterpart", "source": "feat", "key": "Lucky|PHB", "message": "no secondary record for Lucky",
	}}, logs["data"])

	wb, err := excelize.OpenFile(filepath.Join(dir, "idMgr.xlsx"))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"feat", "spell"}, wb.GetSheetList())
	rows, err := wb.GetRows("feat")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"ID", "Primary Title", "Secondary Title"},
		{"Alert|PHB", "Alert", "警觉"},
		{"Lucky|PHB", "Lucky"},
	}, rows)
}

func TestFileSink_WriteAudit_Empty(t *testing.T) {
	t.Parallel()

	s, dir := newSink(t, true)
	require.NoError(t, s.WriteAudit(context.Background(), Audit{}))

	logs := readJSON(t, filepath.Join(dir, "logs.json"))
	assert.Equal(t, []any{}, logs["data"])
	_, err := os.Stat(filepath.Join(dir, "idMgr.xlsx"))
	assert.True(t, os.IsNotExist(err))
}
