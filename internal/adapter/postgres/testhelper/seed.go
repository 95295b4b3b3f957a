//go:build integration

package testhelper

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedRecord inserts a feat record with a unique name and returns it.
func SeedRecord(t *testing.T, pool *pgxpool.Pool, runID uuid.UUID) domain.MergedRecord {
	t.Helper()

	name := "Seed Feat " + uniqueSuffix()
	rec := domain.NewMergedRecord("feat", name+"|PHB")
	rec.DisplayName = domain.DisplayNameOf(name, "")
	rec.MainSource = domain.SourceRef{Source: "PHB", Page: 1}

	body, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("testhelper: SeedRecord encode: %v", err)
	}

	_, err = pool.Exec(context.Background(),
		`INSERT INTO merged_records (uid, data_type, kind, id, title, main_source, run_id, body)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.UID, rec.DataType, "feat", rec.ID, rec.Title(), rec.MainSource.Source, runID, body,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedRecord insert: %v", err)
	}
	return rec
}

// RecordExists reports whether a merged record with uid is stored.
func RecordExists(t *testing.T, pool *pgxpool.Pool, uid string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM merged_records WHERE uid = $1)`, uid,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("testhelper: RecordExists query: %v", err)
	}
	return exists
}
