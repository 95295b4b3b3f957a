package merged

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/compare"
)

func record(dataType, id, name string) domain.MergedRecord {
	rec := domain.NewMergedRecord(dataType, id)
	rec.DisplayName = domain.DisplayNameOf(name, "")
	rec.MainSource = domain.SourceRef{Source: "PHB", Page: 1}
	return rec
}

func TestUpsertRecordsQuery(t *testing.T) {
	t.Parallel()

	runID := uuid.New()
	recs := []domain.MergedRecord{
		record("item", "Club|PHB", "Club"),
		record("item", "Dagger|PHB", "Dagger"),
	}

	query, args, err := upsertRecordsQuery(runID, "baseitem", recs)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO merged_records (uid,data_type,kind,id,title,main_source,run_id,body) VALUES "), query)
	assert.Contains(t, query, "ON CONFLICT (uid) DO UPDATE SET")
	assert.Contains(t, query, "$16")
	assert.NotContains(t, query, "?")
	require.Len(t, args, 16)

	assert.Equal(t, "item_Club|PHB", args[0])
	assert.Equal(t, "baseitem", args[2])
	assert.Equal(t, "Club", args[4])
	assert.Equal(t, "PHB", args[5])
	assert.Equal(t, runID, args[6])

	var body map[string]any
	require.NoError(t, json.Unmarshal(args[7].([]byte), &body))
	assert.Equal(t, "item_Club|PHB", body["uid"])
}

func TestUpsertRecordsQuery_DuplicateUIDKeepsLast(t *testing.T) {
	t.Parallel()

	first := record("feat", "Alert|PHB", "Alert")
	second := record("feat", "Alert|PHB", "Alert (revised)")

	_, args, err := upsertRecordsQuery(uuid.New(), "feat", []domain.MergedRecord{first, second})
	require.NoError(t, err)
	require.Len(t, args, len(recordColumns))
	assert.Equal(t, "Alert (revised)", args[4])
}

func TestUpsertCollectionQuery(t *testing.T) {
	t.Parallel()

	query, args, err := upsertCollectionQuery(uuid.New(), "featCollection", "feat", []string{"feat_Alert|PHB"})
	require.NoError(t, err)
	assert.Contains(t, query, "INSERT INTO collections (name,type,run_id,data) VALUES ($1,$2,$3,$4)")
	assert.Contains(t, query, "ON CONFLICT (name) DO UPDATE")
	require.Len(t, args, 4)
	assert.JSONEq(t, `["feat_Alert|PHB"]`, string(args[3].([]byte)))
}

func TestComparisonRows(t *testing.T) {
	t.Parallel()

	type rec struct{ id, title string }
	acc := compare.Accessors[rec]{
		ID:             func(r rec) string { return r.id },
		PrimaryTitle:   func(r rec) string { return r.title },
		SecondaryTitle: func(r rec) string { return r.title },
	}
	rep := compare.NewReport()
	compare.Compare(rep, "feat",
		[]rec{{"Alert|PHB", "Alert"}, {"Lucky|PHB", "Lucky"}},
		[]rec{{"Alert|PHB", "警觉"}, {"Tough|PHB", "健壮"}},
		acc,
	)

	rows := ComparisonRows(rep)
	require.Len(t, rows, 3)

	assert.Equal(t, StatusMatched, rows[0].Status)
	assert.Equal(t, "Alert|PHB", rows[0].ID)
	require.NotNil(t, rows[0].SecondaryTitle)
	assert.Equal(t, "警觉", *rows[0].SecondaryTitle)

	assert.Equal(t, StatusNeedPrimary, rows[1].Status)
	assert.Equal(t, "Tough|PHB", rows[1].ID)
	assert.Nil(t, rows[1].PrimaryTitle)

	assert.Equal(t, StatusNeedSecondary, rows[2].Status)
	assert.Equal(t, "Lucky|PHB", rows[2].ID)

	assert.Nil(t, ComparisonRows(nil))
}

func TestChunks(t *testing.T) {
	t.Parallel()

	var sizes []int
	err := chunks([]int{1, 2, 3, 4, 5}, 2, func(c []int) error {
		sizes = append(sizes, len(c))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}
