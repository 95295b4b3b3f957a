package merged

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/pttsw/wiki-dnd-parser/internal/adapter/postgres"
	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/output"
	"github.com/pttsw/wiki-dnd-parser/pkg/ctxutil"
)

// Sink writes a run into PostgreSQL. Every write runs in its own
// transaction.
type Sink struct {
	pool  *pgxpool.Pool
	repo  *Repo
	txm   *postgres.TxManager
	runID uuid.UUID
	log   *slog.Logger
}

var _ output.Sink = (*Sink)(nil)

// NewSink takes ownership of pool; Close closes it. Writes are tagged with
// the run id found in their context, else with a fresh one.
func NewSink(pool *pgxpool.Pool, batchSize int, log *slog.Logger) *Sink {
	return &Sink{
		pool:  pool,
		repo:  New(pool, batchSize),
		txm:   postgres.NewTxManager(pool),
		runID: uuid.New(),
		log:   log,
	}
}

// Repo exposes the underlying repository for reads.
func (s *Sink) Repo() *Repo { return s.repo }

func (s *Sink) runIDFor(ctx context.Context) uuid.UUID {
	if id, ok := ctxutil.RunIDFromCtx(ctx); ok {
		return id
	}
	return s.runID
}

// WriteRecords implements output.Sink.
func (s *Sink) WriteRecords(ctx context.Context, kind string, records []domain.MergedRecord) (int, error) {
	var n int
	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.UpsertRecords(ctx, s.runIDFor(ctx), kind, records)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.DebugContext(ctx, "records upserted", slog.String("kind", kind), slog.Int("rows", n))
	return n, nil
}

// WriteCollection implements output.Sink.
func (s *Sink) WriteCollection(ctx context.Context, name string, c output.Collection) error {
	return s.repo.UpsertCollection(ctx, s.runIDFor(ctx), name, c.Type, c.Data)
}

// WriteAudit implements output.Sink. The comparison of the run is replaced
// and its anomalies appended atomically.
func (s *Sink) WriteAudit(ctx context.Context, a output.Audit) error {
	runID := s.runIDFor(ctx)
	return s.txm.RunInTx(ctx, func(ctx context.Context) error {
		rows, err := s.repo.ReplaceComparison(ctx, runID, ComparisonRows(a.Report))
		if err != nil {
			return err
		}
		anomalies, err := s.repo.InsertAnomalies(ctx, runID, a.Anomalies)
		if err != nil {
			return err
		}
		s.log.InfoContext(ctx, "audit stored",
			slog.String("run_id", runID.String()),
			slog.Int("comparison_rows", rows),
			slog.Int("anomalies", anomalies),
		)
		return nil
	})
}

// Close implements output.Sink.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
