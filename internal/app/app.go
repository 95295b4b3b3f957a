package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pttsw/wiki-dnd-parser/internal/adapter/postgres"
	"github.com/pttsw/wiki-dnd-parser/internal/adapter/postgres/merged"
	"github.com/pttsw/wiki-dnd-parser/internal/app/merge"
	"github.com/pttsw/wiki-dnd-parser/internal/catalog"
	"github.com/pttsw/wiki-dnd-parser/internal/config"
	"github.com/pttsw/wiki-dnd-parser/internal/corpus"
	"github.com/pttsw/wiki-dnd-parser/internal/output"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/i18n"
	"github.com/pttsw/wiki-dnd-parser/pkg/ctxutil"
)

// Options are the command-line overrides of a run.
type Options struct {
	// ConfigPath names the YAML file; empty falls back to CONFIG_PATH.
	ConfigPath string
	// Phases overrides pipeline.phases when non-empty.
	Phases []string
	DryRun bool
}

// Run is the application entry point. It loads configuration, initializes
// the logger, opens the configured sink and runs the merge pipeline.
func Run(ctx context.Context, opts Options) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadPath(opts.ConfigPath, true)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)

	logger := NewLogger(cfg.Log)
	runID := uuid.New()
	ctx = ctxutil.WithRunID(ctx, runID)

	logger.InfoContext(ctx, "starting merge",
		slog.String("version", BuildVersion()),
		slog.String("run_id", runID.String()),
		slog.String("primary_dir", cfg.Input.PrimaryDir),
		slog.String("secondary_dir", cfg.Input.SecondaryDir),
		slog.String("sink", cfg.Output.Sink),
		slog.Bool("dry_run", cfg.Pipeline.DryRun),
	)

	sink, err := newSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			logger.Warn("close sink", slog.String("error", cerr.Error()))
		}
	}()

	loader := corpus.NewLoader(cfg.Input.PrimaryDir, cfg.Input.SecondaryDir, logger)
	pipeline := merge.NewPipeline(logger, loader, sink, pipelineOptions(cfg))
	if err := pipeline.Run(ctx, cfg.Pipeline.Phases); err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	counts := pipeline.Anomalies().Counts()
	attrs := []any{slog.String("run_id", runID.String()), slog.Int("anomalies", pipeline.Anomalies().Len())}
	for kind, n := range counts {
		attrs = append(attrs, slog.Int(string(kind), n))
	}
	logger.InfoContext(ctx, "merge completed", attrs...)
	return nil
}

func applyOverrides(cfg *config.Config, opts Options) {
	if len(opts.Phases) > 0 {
		cfg.Pipeline.Phases = config.ParseList(opts.Phases)
	}
	if opts.DryRun {
		cfg.Pipeline.DryRun = true
	}
}

// pipelineOptions maps configuration onto the merge pipeline.
func pipelineOptions(cfg *config.Config) merge.Options {
	return merge.Options{
		Catalog: catalog.Options{
			Rules: i18n.Rules{
				ForceLocalized: cfg.I18n.ForceLocalizedKeys,
				ForceCommon:    cfg.I18n.ForceCommonKeys,
			},
			WeaponKeys:     cfg.I18n.WeaponKeys,
			ArmorKeys:      cfg.I18n.ArmorKeys,
			EmptyValue:     cfg.I18n.EmptyValue,
			SourcePriority: cfg.Variant.SourcePriority,
		},
		LoadWorkers: cfg.Input.LoadWorkers,
		DryRun:      cfg.Pipeline.DryRun,
	}
}

// newSink opens the configured output sink. The postgres sink applies
// pending migrations first when database.migrate is set.
func newSink(ctx context.Context, cfg *config.Config, log *slog.Logger) (output.Sink, error) {
	switch cfg.Output.Sink {
	case config.SinkPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate database: %w", err)
			}
		}
		return merged.NewSink(pool, cfg.Database.BatchSize, log), nil
	default:
		return output.NewFileSink(output.FileOptions{
			Dir:      cfg.Output.Dir,
			Workers:  cfg.Output.Workers,
			Indent:   cfg.Output.Indent,
			Workbook: cfg.Output.Workbook,
		}, log)
	}
}
