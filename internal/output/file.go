package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/compare"
)

const (
	collectionDir = "collection"
	idMgrFile     = "idMgr.json"
	workbookFile  = "idMgr.xlsx"
	logsFile      = "logs.json"
)

// FileOptions configure a FileSink.
type FileOptions struct {
	Dir string
	// Workers bounds concurrent record writes.
	Workers  int
	Indent   bool
	Workbook bool
}

// FileSink writes JSON documents under a directory tree.
type FileSink struct {
	opts FileOptions
	log  *slog.Logger
}

// NewFileSink creates the output root and its collection directory.
func NewFileSink(opts FileOptions, log *slog.Logger) (*FileSink, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(opts.Dir, collectionDir), 0o755); err != nil {
		return nil, fmt.Errorf("file sink: create %s: %w", opts.Dir, err)
	}
	return &FileSink{opts: opts, log: log}, nil
}

// WriteRecords writes one file per record on a bounded worker group. The
// first failure cancels the remaining writes.
func (s *FileSink) WriteRecords(ctx context.Context, kind string, records []domain.MergedRecord) (int, error) {
	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.writeJSON(RecordPath(rec), rec); err != nil {
				return fmt.Errorf("%s %s: %w", kind, rec.ID, err)
			}
			written.Add(1)
			return nil
		})
	}
	err := g.Wait()
	s.log.Debug("records written",
		slog.String("kind", kind),
		slog.Int("written", int(written.Load())),
		slog.Int("total", len(records)),
	)
	return int(written.Load()), err
}

// WriteCollection writes collection/<name>.json.
func (s *FileSink) WriteCollection(ctx context.Context, name string, c Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(collectionDir, name+".json"), c)
}

type idMgrDoc struct {
	Type    string                     `json:"type"`
	Dataset map[string]compare.Dataset `json:"dataset"`
}

type logsDoc struct {
	Type string          `json:"type"`
	Data []audit.Anomaly `json:"data"`
}

// WriteAudit writes idMgr.json, logs.json and, when enabled, idMgr.xlsx.
func (s *FileSink) WriteAudit(ctx context.Context, a Audit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	datasets := map[string]compare.Dataset{}
	if a.Report != nil {
		datasets = a.Report.Datasets()
	}
	if err := s.writeJSON(idMgrFile, idMgrDoc{Type: "idMgr", Dataset: datasets}); err != nil {
		return err
	}
	anomalies := a.Anomalies
	if anomalies == nil {
		anomalies = []audit.Anomaly{}
	}
	if err := s.writeJSON(logsFile, logsDoc{Type: "logs", Data: anomalies}); err != nil {
		return err
	}
	if s.opts.Workbook && a.Report != nil {
		if err := compare.WriteWorkbook(a.Report, filepath.Join(s.opts.Dir, workbookFile)); err != nil {
			return fmt.Errorf("file sink: %w", err)
		}
	}
	return nil
}

// Close implements Sink.
func (s *FileSink) Close() error { return nil }

func (s *FileSink) writeJSON(rel string, v any) error {
	path := filepath.Join(s.opts.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("file sink: create directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if s.opts.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("file sink: encode %s: %w", rel, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("file sink: write %s: %w", rel, err)
	}
	return nil
}
