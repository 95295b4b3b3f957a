//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pttsw/wiki-dnd-parser/internal/adapter/postgres"
	"github.com/pttsw/wiki-dnd-parser/internal/adapter/postgres/testhelper"
)

// insertCollection stores an empty collection document named name.
func insertCollection(ctx context.Context, q postgres.Querier, name string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO collections (name, type, run_id, data) VALUES ($1, $2, $3, '[]'::jsonb)`,
		name, "feat", uuid.New(),
	)
	return err
}

// collectionExists checks whether a collection row with the given name exists.
func collectionExists(t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM collections WHERE name = $1)`, name,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("collectionExists query: %v", err)
	}
	return exists
}

func TestRunInTx_Commit(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	name := "commit-" + uuid.NewString()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return insertCollection(ctx, postgres.QuerierFromCtx(ctx, pool), name)
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !collectionExists(t, pool, name) {
		t.Fatal("expected collection to exist after committed transaction")
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	name := "rollback-" + uuid.NewString()
	sentinel := errors.New("merge failed")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if err := insertCollection(ctx, postgres.QuerierFromCtx(ctx, pool), name); err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
	if collectionExists(t, pool, name) {
		t.Fatal("expected collection NOT to exist after rolled-back transaction")
	}
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	name := "panic-" + uuid.NewString()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic to be re-raised")
		}
		if r != "test panic" {
			t.Fatalf("expected panic value %q, got %v", "test panic", r)
		}
		if collectionExists(t, pool, name) {
			t.Fatal("expected collection NOT to exist after panic-rolled-back transaction")
		}
	}()

	_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if err := insertCollection(ctx, postgres.QuerierFromCtx(ctx, pool), name); err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		panic("test panic")
	})
}

func TestRunInTx_NestedJoinsOuter(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	name := "nested-" + uuid.NewString()
	sentinel := errors.New("outer failed")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		inner := tm.RunInTx(ctx, func(ctx context.Context) error {
			return insertCollection(ctx, postgres.QuerierFromCtx(ctx, pool), name)
		})
		if inner != nil {
			t.Fatalf("inner RunInTx: %v", inner)
		}
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
	if collectionExists(t, pool, name) {
		t.Fatal("expected inner write to roll back with the outer transaction")
	}
}

func TestRunInTx_QuerierFromCtx_UsesTx(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	name := "ctx-" + uuid.NewString()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		if err := insertCollection(ctx, q, name); err != nil {
			return err
		}

		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM collections WHERE name = $1)`, name).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			t.Fatal("expected collection to be visible within the transaction")
		}
		if collectionExists(t, pool, name) {
			t.Fatal("expected collection to be invisible outside the transaction before commit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !collectionExists(t, pool, name) {
		t.Fatal("expected collection to exist after committed transaction")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	if err := postgres.Migrate(context.Background(), pool, testLogger()); err != nil {
		t.Fatalf("Migrate on migrated schema: %v", err)
	}
}
