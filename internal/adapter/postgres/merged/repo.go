// Package merged stores merged records, collections and run diagnostics in
// PostgreSQL.
package merged

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/pttsw/wiki-dnd-parser/internal/adapter/postgres"
	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/compare"
)

const defaultBatchSize = 500

// Comparison row statuses.
const (
	StatusMatched       = "matched"
	StatusNeedPrimary   = "need_primary"
	StatusNeedSecondary = "need_secondary"
)

var recordColumns = []string{"uid", "data_type", "kind", "id", "title", "main_source", "run_id", "body"}

const recordConflict = `ON CONFLICT (uid) DO UPDATE SET
	data_type = EXCLUDED.data_type,
	kind = EXCLUDED.kind,
	id = EXCLUDED.id,
	title = EXCLUDED.title,
	main_source = EXCLUDED.main_source,
	run_id = EXCLUDED.run_id,
	body = EXCLUDED.body,
	updated_at = now()`

// Repo provides merged-record persistence backed by PostgreSQL.
type Repo struct {
	pool      *pgxpool.Pool
	batchSize int
}

// New creates a repository. batchSize bounds the rows of one INSERT.
func New(pool *pgxpool.Pool, batchSize int) *Repo {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Repo{pool: pool, batchSize: batchSize}
}

// UpsertRecords inserts or replaces records by uid and returns the number of
// affected rows.
func (r *Repo) UpsertRecords(ctx context.Context, runID uuid.UUID, kind string, records []domain.MergedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	err := chunks(records, r.batchSize, func(chunk []domain.MergedRecord) error {
		query, args, err := upsertRecordsQuery(runID, kind, chunk)
		if err != nil {
			return err
		}
		batch.Queue(query, args...)
		return nil
	})
	if err != nil {
		return 0, err
	}

	n, err := postgres.SendBatchExec(ctx, postgres.QuerierFromCtx(ctx, r.pool), batch)
	if err != nil {
		return n, postgres.MapError(err, "merged_records", kind)
	}
	return n, nil
}

// upsertRecordsQuery builds one multi-row upsert. A uid repeated within the
// chunk keeps its last occurrence, since ON CONFLICT DO UPDATE cannot touch
// a row twice.
func upsertRecordsQuery(runID uuid.UUID, kind string, records []domain.MergedRecord) (string, []any, error) {
	last := make(map[string]int, len(records))
	for i, rec := range records {
		last[rec.UID] = i
	}

	insert := postgres.Builder().Insert("merged_records").Columns(recordColumns...)
	for i, rec := range records {
		if last[rec.UID] != i {
			continue
		}
		body, err := json.Marshal(rec)
		if err != nil {
			return "", nil, fmt.Errorf("encode record %s: %w", rec.UID, err)
		}
		insert = insert.Values(rec.UID, rec.DataType, kind, rec.ID, rec.Title(), rec.MainSource.Source, runID, body)
	}
	return insert.Suffix(recordConflict).ToSql()
}

// UpsertCollection inserts or replaces the collection document name.
func (r *Repo) UpsertCollection(ctx context.Context, runID uuid.UUID, name, typ string, data any) error {
	query, args, err := upsertCollectionQuery(runID, name, typ, data)
	if err != nil {
		return err
	}
	if _, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "collection", name)
	}
	return nil
}

func upsertCollectionQuery(runID uuid.UUID, name, typ string, data any) (string, []any, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return "", nil, fmt.Errorf("encode collection %s: %w", name, err)
	}
	return postgres.Builder().
		Insert("collections").
		Columns("name", "type", "run_id", "data").
		Values(name, typ, runID, body).
		Suffix(`ON CONFLICT (name) DO UPDATE SET type = EXCLUDED.type, run_id = EXCLUDED.run_id, data = EXCLUDED.data, updated_at = now()`).
		ToSql()
}

// ComparisonRow is one comparator entry flattened for storage.
type ComparisonRow struct {
	Kind           string
	ID             string
	Status         string
	PrimaryTitle   *string
	SecondaryTitle *string
}

// ComparisonRows flattens datasets in kind order: matched, then
// need-primary, then need-secondary rows.
func ComparisonRows(rep *compare.Report) []ComparisonRow {
	if rep == nil {
		return nil
	}
	var rows []ComparisonRow
	for _, kind := range rep.Kinds() {
		ds, _ := rep.Dataset(kind)
		add := func(status string, entries []compare.Entry) {
			for _, e := range entries {
				rows = append(rows, ComparisonRow{
					Kind:           kind,
					ID:             e.ID,
					Status:         status,
					PrimaryTitle:   e.PrimaryTitle,
					SecondaryTitle: e.SecondaryTitle,
				})
			}
		}
		add(StatusMatched, ds.Matched)
		add(StatusNeedPrimary, ds.NeedPrimary)
		add(StatusNeedSecondary, ds.NeedSecondary)
	}
	return rows
}

// ReplaceComparison drops the stored comparison of runID and inserts rows.
func (r *Repo) ReplaceComparison(ctx context.Context, runID uuid.UUID, rows []ComparisonRow) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	del, args, err := postgres.Builder().Delete("comparison_rows").Where(squirrel.Eq{"run_id": runID}).ToSql()
	if err != nil {
		return 0, err
	}
	if _, err := q.Exec(ctx, del, args...); err != nil {
		return 0, postgres.MapError(err, "comparison_rows", runID.String())
	}
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	err = chunks(rows, r.batchSize, func(chunk []ComparisonRow) error {
		insert := postgres.Builder().
			Insert("comparison_rows").
			Columns("run_id", "kind", "id", "status", "primary_title", "secondary_title")
		for _, row := range chunk {
			insert = insert.Values(runID, row.Kind, row.ID, row.Status, row.PrimaryTitle, row.SecondaryTitle)
		}
		query, args, err := insert.Suffix("ON CONFLICT (run_id, kind, id) DO NOTHING").ToSql()
		if err != nil {
			return err
		}
		batch.Queue(query, args...)
		return nil
	})
	if err != nil {
		return 0, err
	}

	n, err := postgres.SendBatchExec(ctx, q, batch)
	if err != nil {
		return n, postgres.MapError(err, "comparison_rows", runID.String())
	}
	return n, nil
}

// InsertAnomalies appends the anomaly log of runID.
func (r *Repo) InsertAnomalies(ctx context.Context, runID uuid.UUID, anomalies []audit.Anomaly) (int, error) {
	if len(anomalies) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	err := chunks(anomalies, r.batchSize, func(chunk []audit.Anomaly) error {
		insert := postgres.Builder().
			Insert("anomalies").
			Columns("run_id", "kind", "source", "key", "message")
		for _, a := range chunk {
			insert = insert.Values(runID, string(a.Kind), a.Source, a.Key, a.Message)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return err
		}
		batch.Queue(query, args...)
		return nil
	})
	if err != nil {
		return 0, err
	}

	n, err := postgres.SendBatchExec(ctx, postgres.QuerierFromCtx(ctx, r.pool), batch)
	if err != nil {
		return n, postgres.MapError(err, "anomalies", runID.String())
	}
	return n, nil
}

// CountRecords returns the number of stored records of kind.
func (r *Repo) CountRecords(ctx context.Context, kind string) (int, error) {
	query, args, err := postgres.Builder().
		Select("count(*)").
		From("merged_records").
		Where(squirrel.Eq{"kind": kind}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var n int
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, postgres.MapError(err, "merged_records", kind)
	}
	return n, nil
}

// GetRecord returns the stored record by uid. Returns domain.ErrNotFound if
// absent.
func (r *Repo) GetRecord(ctx context.Context, uid string) (domain.MergedRecord, error) {
	query, args, err := postgres.Builder().
		Select("body").
		From("merged_records").
		Where(squirrel.Eq{"uid": uid}).
		ToSql()
	if err != nil {
		return domain.MergedRecord{}, err
	}

	var body []byte
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&body); err != nil {
		return domain.MergedRecord{}, postgres.MapError(err, "merged_record", uid)
	}

	var rec domain.MergedRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return domain.MergedRecord{}, fmt.Errorf("decode merged_record %s: %w", uid, err)
	}
	return rec, nil
}

// chunks calls fn for consecutive slices of at most size items.
func chunks[T any](items []T, size int, fn func([]T) error) error {
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		if err := fn(items[i:end]); err != nil {
			return err
		}
	}
	return nil
}
