// Package merge runs the phases of a corpus merge.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pttsw/wiki-dnd-parser/internal/catalog"
	"github.com/pttsw/wiki-dnd-parser/internal/corpus"
	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/output"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/compare"
	"github.com/pttsw/wiki-dnd-parser/pkg/ctxutil"
)

// Phase names.
const (
	PhaseBooks          = "books"
	PhaseFeats          = "feats"
	PhaseItemsBase      = "items-base"
	PhaseItems          = "items"
	PhaseMagicVariants  = "magicvariants"
	PhaseSpells         = "spells"
	PhaseSourcesMapping = "sources-mapping"
	PhaseFinalize       = "finalize"
)

// allPhases defines the canonical execution order.
var allPhases = []string{
	PhaseBooks, PhaseFeats, PhaseItemsBase, PhaseItems,
	PhaseMagicVariants, PhaseSpells, PhaseSourcesMapping, PhaseFinalize,
}

// phaseDeps lists the phases whose state a phase reads.
var phaseDeps = map[string][]string{
	PhaseItems:         {PhaseItemsBase},
	PhaseMagicVariants: {PhaseItemsBase},
}

// Corpus files.
const (
	booksFile         = "books.json"
	adventuresFile    = "adventures.json"
	featsFile         = "feats.json"
	itemsBaseFile     = "items-base.json"
	itemFluffFile     = "fluff-items.json"
	itemsFile         = "items.json"
	magicVariantsFile = "magicvariants.json"
)

const sourcesCollection = "sources"

// AllPhases returns the phase names in execution order.
func AllPhases() []string { return slices.Clone(allPhases) }

// Options configure a Pipeline.
type Options struct {
	Catalog catalog.Options
	// LoadWorkers bounds concurrent corpus reads.
	LoadWorkers int
	DryRun      bool
}

// PhaseResult holds the outcome of a single pipeline phase.
type PhaseResult struct {
	Written   int
	Skipped   int
	Anomalies int
	Duration  time.Duration
	Err       error
}

// Pipeline orchestrates one merge run. The comparison report, identity
// spaces and anomaly log it owns live for the whole run.
//
// Phases only merge and stage their output. Nothing reaches the sink until
// every selected phase has succeeded, so a failed run leaves no output.
type Pipeline struct {
	log       *slog.Logger
	loader    *corpus.Loader
	sink      output.Sink
	opts      Options
	report    *compare.Report
	anomalies *audit.Log
	cat       *catalog.Catalog
	results   map[string]PhaseResult
	pending   []pendingWrite
}

// pendingWrite is one staged sink call. write reports how many records it
// stored.
type pendingWrite struct {
	phase string
	what  string
	write func(ctx context.Context) (int, error)
}

// NewPipeline creates a new Pipeline.
func NewPipeline(log *slog.Logger, loader *corpus.Loader, sink output.Sink, opts Options) *Pipeline {
	report := compare.NewReport()
	anomalies := audit.NewLog(log)
	return &Pipeline{
		log:       log,
		loader:    loader,
		sink:      sink,
		opts:      opts,
		report:    report,
		anomalies: anomalies,
		cat:       catalog.New(opts.Catalog, report, anomalies, log),
		results:   make(map[string]PhaseResult),
	}
}

// Results returns phase results after Run completes.
func (p *Pipeline) Results() map[string]PhaseResult {
	return p.results
}

// Report returns the run's comparison report.
func (p *Pipeline) Report() *compare.Report { return p.report }

// Anomalies returns the run's anomaly log.
func (p *Pipeline) Anomalies() *audit.Log { return p.anomalies }

// HasErrors returns true if any phase failed.
func (p *Pipeline) HasErrors() bool {
	for _, r := range p.results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// ResolvePhases filters phases into canonical order and adds the phases
// they depend on. Empty input selects all phases.
func ResolvePhases(phases []string) ([]string, error) {
	if len(phases) == 0 {
		return AllPhases(), nil
	}
	want := make(map[string]bool, len(phases))
	for _, ph := range phases {
		if !slices.Contains(allPhases, ph) {
			return nil, fmt.Errorf("unknown phase %q", ph)
		}
		want[ph] = true
		for _, dep := range phaseDeps[ph] {
			want[dep] = true
		}
	}
	var out []string
	for _, ph := range allPhases {
		if want[ph] {
			out = append(out, ph)
		}
	}
	return out, nil
}

// Run executes the pipeline. If phases is non-empty, only the listed phases
// and their dependencies run. The first failing phase aborts the run before
// anything is written; staged output is flushed in phase order afterwards.
func (p *Pipeline) Run(ctx context.Context, phases []string) error {
	toRun, err := ResolvePhases(phases)
	if err != nil {
		return err
	}
	p.pending = nil

	for _, phase := range toRun {
		pctx := ctxutil.WithPhase(ctx, phase)
		start := time.Now()
		before := p.anomalies.Len()
		p.log.InfoContext(pctx, "starting phase", ctxutil.LogAttrs(pctx)...)

		var result PhaseResult
		switch phase {
		case PhaseBooks:
			result = p.runBooks(pctx)
		case PhaseFeats:
			result = p.runFeats(pctx)
		case PhaseItemsBase:
			result = p.runItemsBase(pctx)
		case PhaseItems:
			result = p.runItems(pctx)
		case PhaseMagicVariants:
			result = p.runMagicVariants(pctx)
		case PhaseSpells:
			result = p.runSpells(pctx)
		case PhaseSourcesMapping:
			result = p.runSourcesMapping(pctx)
		case PhaseFinalize:
			result = p.runFinalize(pctx)
		}
		result.Duration = time.Since(start)
		result.Anomalies = p.anomalies.Len() - before
		p.results[phase] = result

		if result.Err != nil {
			p.log.ErrorContext(pctx, "phase failed", append(ctxutil.LogAttrs(pctx),
				slog.String("error", result.Err.Error()),
				slog.Duration("duration", result.Duration),
			)...)
			return fmt.Errorf("phase %s: %w", phase, result.Err)
		}
		p.log.InfoContext(pctx, "phase merged", append(ctxutil.LogAttrs(pctx),
			slog.Int("staged", p.staged(phase)),
			slog.Int("skipped", result.Skipped),
			slog.Int("anomalies", result.Anomalies),
			slog.Duration("duration", result.Duration),
		)...)
	}

	if err := p.flush(ctx); err != nil {
		return err
	}

	p.log.InfoContext(ctx, "pipeline completed", append(ctxutil.LogAttrs(ctx),
		slog.Int("phases_run", len(toRun)),
		slog.Int("anomalies", p.anomalies.Len()),
	)...)
	return nil
}

// flush hands staged output to the sink in phase order. A sink failure
// stops the flush and is recorded against the phase that staged the write.
func (p *Pipeline) flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, w := range p.pending {
		pctx := ctxutil.WithPhase(ctx, w.phase)
		n, err := w.write(pctx)
		r := p.results[w.phase]
		if err != nil {
			r.Err = fmt.Errorf("write %s: %w", w.what, err)
			p.results[w.phase] = r
			p.log.ErrorContext(pctx, "write failed", append(ctxutil.LogAttrs(pctx),
				slog.String("target", w.what),
				slog.String("error", err.Error()),
			)...)
			return fmt.Errorf("phase %s: %w", w.phase, r.Err)
		}
		r.Written += n
		p.results[w.phase] = r
	}
	for _, ph := range AllPhases() {
		if r, ok := p.results[ph]; ok && r.Written > 0 {
			p.log.InfoContext(ctx, "phase written", slog.String("phase", ph), slog.Int("written", r.Written))
		}
	}
	p.pending = nil
	return nil
}

// stage queues a sink call for the current phase.
func (p *Pipeline) stage(ctx context.Context, what string, write func(ctx context.Context) (int, error)) {
	p.pending = append(p.pending, pendingWrite{phase: ctxutil.PhaseFromCtx(ctx), what: what, write: write})
}

func (p *Pipeline) staged(phase string) int {
	n := 0
	for _, w := range p.pending {
		if w.phase == phase {
			n++
		}
	}
	return n
}

func (p *Pipeline) runBooks(ctx context.Context) PhaseResult {
	pair, err := p.loader.LoadPair(ctx, PhaseBooks, booksFile)
	if err != nil {
		return PhaseResult{Err: err}
	}
	return p.stageCollection(ctx, p.cat.Books, pair)
}

func (p *Pipeline) runFeats(ctx context.Context) PhaseResult {
	pair, err := p.loader.LoadPair(ctx, PhaseFeats, featsFile)
	if err != nil {
		return PhaseResult{Err: err}
	}
	return p.stageCollection(ctx, p.cat.Feats, pair)
}

// runItemsBase merges item properties, item types and base items. The item
// fluff index loaded here serves every later item phase.
func (p *Pipeline) runItemsBase(ctx context.Context) PhaseResult {
	base, err := p.loader.LoadPair(ctx, PhaseItemsBase, itemsBaseFile)
	if err != nil {
		return PhaseResult{Err: err}
	}
	fluffPair, err := p.loader.LoadOptionalPair(ctx, PhaseItemsBase, itemFluffFile)
	if err != nil {
		return PhaseResult{Err: err}
	}
	p.cat.LoadItemFluff(fluffPair)

	var total PhaseResult
	for _, fn := range []mergeFunc{p.cat.ItemProperties, p.cat.ItemTypes} {
		r := p.stageCollection(ctx, fn, base)
		if r.Err != nil {
			return r
		}
		total.add(r)
	}

	col, err := p.cat.BaseItems(ctx, base)
	if err != nil {
		return PhaseResult{Err: err}
	}
	total.add(p.stageRecords(ctx, col))
	return total
}

func (p *Pipeline) runItems(ctx context.Context) PhaseResult {
	pair, err := p.loader.LoadPair(ctx, PhaseItems, itemsFile)
	if err != nil {
		return PhaseResult{Err: err}
	}
	col, err := p.cat.Items(ctx, pair)
	if err != nil {
		return PhaseResult{Err: err}
	}
	return p.stageRecords(ctx, col)
}

func (p *Pipeline) runMagicVariants(ctx context.Context) PhaseResult {
	pair, err := p.loader.LoadPair(ctx, PhaseMagicVariants, magicVariantsFile)
	if err != nil {
		return PhaseResult{Err: err}
	}
	col, err := p.cat.MagicVariants(ctx, pair)
	if err != nil {
		return PhaseResult{Err: err}
	}
	return p.stageRecords(ctx, col)
}

func (p *Pipeline) runSpells(ctx context.Context) PhaseResult {
	sc, err := p.loader.LoadSpells(ctx, p.opts.LoadWorkers)
	if err != nil {
		return PhaseResult{Err: err}
	}
	p.log.InfoContext(ctx, "spell corpus loaded", append(ctxutil.LogAttrs(ctx),
		slog.Int("files", len(sc.Files)),
		slog.Int("fluff_files", sc.FluffFilesCount),
	)...)
	col, err := p.cat.Spells(ctx, sc)
	if err != nil {
		return PhaseResult{Err: err}
	}
	return p.stageRecords(ctx, col)
}

// runSourcesMapping stages the source table. Without a legacy source list
// every source counts as the newest edition.
func (p *Pipeline) runSourcesMapping(ctx context.Context) PhaseResult {
	books, err := p.loader.LoadPair(ctx, PhaseSourcesMapping, booksFile)
	if err != nil {
		return PhaseResult{Err: err}
	}
	adventures, err := p.loader.LoadOptionalPair(ctx, PhaseSourcesMapping, adventuresFile)
	if err != nil {
		return PhaseResult{Err: err}
	}

	legacy, path, found, err := p.loader.LegacySources()
	if err != nil {
		return PhaseResult{Err: err}
	}
	if found {
		p.log.DebugContext(ctx, "legacy sources parsed", append(ctxutil.LogAttrs(ctx),
			slog.String("path", path),
			slog.Int("count", len(legacy)),
		)...)
	} else {
		p.log.WarnContext(ctx, "legacy source list not found, every source marked newest", ctxutil.LogAttrs(ctx)...)
	}

	sources := catalog.SourceMap(books, adventures, legacy)
	if p.opts.DryRun {
		return PhaseResult{Skipped: len(sources)}
	}
	p.stage(ctx, sourcesCollection, func(ctx context.Context) (int, error) {
		err := p.sink.WriteCollection(ctx, sourcesCollection, output.Collection{Type: sourcesCollection, Data: sources})
		return len(sources), err
	})
	return PhaseResult{}
}

// runFinalize stages the comparison report and anomaly log. The audit is
// taken when the write runs, after every other staged write.
func (p *Pipeline) runFinalize(ctx context.Context) PhaseResult {
	if p.opts.DryRun {
		return PhaseResult{Skipped: 1}
	}
	p.stage(ctx, "audit", func(ctx context.Context) (int, error) {
		a := output.Audit{Report: p.report, Anomalies: p.anomalies.Entries()}
		return 1, p.sink.WriteAudit(ctx, a)
	})
	for kind, n := range p.anomalies.Counts() {
		p.log.InfoContext(ctx, "anomalies recorded", append(ctxutil.LogAttrs(ctx),
			slog.String("kind", string(kind)),
			slog.Int("count", n),
		)...)
	}
	return PhaseResult{}
}

type mergeFunc func(context.Context, corpus.Pair) (catalog.Collection, error)

// stageCollection merges a collection kind and stages it as one document.
func (p *Pipeline) stageCollection(ctx context.Context, fn mergeFunc, pair corpus.Pair) PhaseResult {
	col, err := fn(ctx, pair)
	if err != nil {
		return PhaseResult{Err: err}
	}
	if p.opts.DryRun {
		return PhaseResult{Skipped: len(col.Records)}
	}
	name := output.CollectionName(col.DataType)
	records := col.Records
	if records == nil {
		records = []domain.MergedRecord{}
	}
	p.stage(ctx, name, func(ctx context.Context) (int, error) {
		return len(records), p.sink.WriteCollection(ctx, name, output.Collection{Type: name, Data: records})
	})
	return PhaseResult{}
}

// stageRecords stages each record of a collection as its own document.
func (p *Pipeline) stageRecords(ctx context.Context, col catalog.Collection) PhaseResult {
	if p.opts.DryRun {
		return PhaseResult{Skipped: len(col.Records)}
	}
	p.stage(ctx, col.Kind+" records", func(ctx context.Context) (int, error) {
		return p.sink.WriteRecords(ctx, col.Kind, col.Records)
	})
	return PhaseResult{}
}

func (r *PhaseResult) add(o PhaseResult) {
	r.Written += o.Written
	r.Skipped += o.Skipped
}
