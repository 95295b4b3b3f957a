package variant

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/i18n"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/reprint"
)

const auditSource = "magicvariant"

// Base is one catalog entry eligible for matching. Secondary may be nil.
type Base struct {
	Key       string
	Primary   domain.Record
	Secondary domain.Record
}

// Catalog supplies base entities in catalog order.
type Catalog interface {
	Bases() []Base
}

// Bases is a slice-backed Catalog.
type Bases []Base

// Bases implements Catalog.
func (b Bases) Bases() []Base { return b }

// TemplatePair holds a template and its optional localized counterpart.
type TemplatePair struct {
	Primary   Template
	Secondary *Template
}

// Derived is one output of Expand: the template itself or a variant of a
// base entity.
type Derived struct {
	Key string
	// Origin is the template key. Empty for the template record itself.
	Origin    string
	Base      string
	Primary   domain.Record
	Secondary domain.Record
	Fields    i18n.Split
	Sources   []domain.SourceRef
}

// IsTemplate reports whether d is the emitted template record.
func (d Derived) IsTemplate() bool { return d.Origin == "" }

// Options configure an Engine for one collection.
type Options struct {
	// SourcePriority orders candidates; unlisted sources sort last.
	SourcePriority []string
	KeySets        i18n.KeySets
	// EmptyValue defaults to i18n.DefaultEmptyValue.
	EmptyValue any
	// Graph is the template reprint graph used for provenance. When nil a
	// template contributes only its own sources.
	Graph *reprint.Graph
}

// Engine expands templates against a catalog. Collisions are checked
// against the run-wide identity set shared with the other catalogs.
type Engine struct {
	log       *slog.Logger
	ids       *domain.IdentitySet
	anomalies *audit.Log
	opts      Options
}

// NewEngine creates an Engine.
func NewEngine(log *slog.Logger, ids *domain.IdentitySet, anomalies *audit.Log, opts Options) *Engine {
	if opts.EmptyValue == nil {
		opts.EmptyValue = i18n.DefaultEmptyValue
	}
	return &Engine{log: log, ids: ids, anomalies: anomalies, opts: opts}
}

// Expand emits the template record followed by one derived record per
// selected base. A structural error in the template is returned; collisions
// and empty matches are logged and skipped.
func (e *Engine) Expand(ctx context.Context, tp TemplatePair, cat Catalog) ([]Derived, error) {
	tmplKey, err := tp.Primary.Key()
	if err != nil {
		return nil, err
	}
	secTmpl := tp.Primary
	var secRecord domain.Record
	if tp.Secondary != nil {
		secTmpl = *tp.Secondary
		secRecord = tp.Secondary.Record
	}
	tmplSources := e.templateSources(tmplKey, tp.Primary)

	var out []Derived
	if e.ids.Add(tmplKey, auditSource) {
		out = append(out, Derived{
			Key:       tmplKey,
			Primary:   tp.Primary.Record,
			Secondary: secRecord,
			Fields:    e.split(tp.Primary.Record, secRecord),
			Sources:   tmplSources,
		})
	} else {
		e.collision(tmplKey, tmplKey)
	}

	candidates := e.candidates(tp.Primary, cat)
	if len(candidates) == 0 {
		e.anomalies.Record(audit.KindUnmatchedVariant, auditSource, tmplKey, "no base entity satisfies requires")
		return out, nil
	}

	source := tp.Primary.Source()
	seen := make(map[string]bool, len(candidates))
	for _, base := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := tp.Primary.DisplayName(domain.KeyName(base.Primary))
		fold := strings.ToLower(name)
		if seen[fold] {
			continue
		}
		seen[fold] = true

		key := domain.JoinKey(name, source)
		if !e.ids.Add(key, auditSource) {
			e.collision(key, tmplKey)
			continue
		}

		primary := merge(base.Primary, tp.Primary, name, "", base.Key)
		var secondary domain.Record
		if base.Secondary != nil {
			secondary = merge(base.Secondary, secTmpl, secTmpl.DisplayName(base.Secondary.Name()), name, base.Key)
		}

		var provenance reprint.Sources
		provenance.AddAll(tmplSources)
		provenance.AddAll(base.Primary.DeclaredSources())

		out = append(out, Derived{
			Key:       key,
			Origin:    tmplKey,
			Base:      base.Key,
			Primary:   primary,
			Secondary: secondary,
			Fields:    e.split(primary, secondary),
			Sources:   provenance.List(),
		})
	}
	return out, nil
}

// candidates filters by requires and excludes, orders by source priority
// and keeps catalog order among equals.
func (e *Engine) candidates(t Template, cat Catalog) []Base {
	var out []Base
	for _, b := range cat.Bases() {
		if !MatchesAny(b.Primary, t.Requires) {
			continue
		}
		if len(t.Excludes) > 0 && Matches(b.Primary, t.Excludes) {
			continue
		}
		out = append(out, b)
	}
	slices.SortStableFunc(out, func(a, b Base) int {
		return e.rank(a.Primary.Source()) - e.rank(b.Primary.Source())
	})
	return out
}

func (e *Engine) rank(source string) int {
	if i := slices.Index(e.opts.SourcePriority, source); i >= 0 {
		return i
	}
	return len(e.opts.SourcePriority)
}

func (e *Engine) templateSources(key string, t Template) []domain.SourceRef {
	if e.opts.Graph != nil {
		if _, ok := e.opts.Graph.Record(key); ok {
			return e.opts.Graph.Provenance(key)
		}
	}
	var s reprint.Sources
	s.AddAll(t.Sources())
	return s.List()
}

func (e *Engine) split(primary, secondary domain.Record) i18n.Split {
	return i18n.SplitPair(primary, secondary, e.opts.KeySets, i18n.SplitOptions{EmptyValue: e.opts.EmptyValue})
}

func (e *Engine) collision(key, origin string) {
	owner, _ := e.ids.Owner(key)
	e.anomalies.Recordf(audit.KindDuplicateDerivation, auditSource, key, "derivation from %s skipped, key already owned by %s", origin, owner)
	if e.log != nil {
		e.log.Debug("variant collision skipped",
			slog.String("key", key),
			slog.String("origin", origin),
			slog.String("owner", owner),
		)
	}
}

// merge overlays template t onto a copy of base. altName, when set, is the
// primary-language derived name carried as ENG_name by secondary records.
func merge(base domain.Record, t Template, name, altName, baseKey string) domain.Record {
	out := base.Clone()
	for k, v := range t.payload() {
		out[k] = v
	}
	out[domain.FieldName] = name
	if altName != "" {
		out[domain.FieldAltName] = altName
	} else {
		delete(out, domain.FieldAltName)
	}
	out[domain.FieldSource] = t.Source()
	if p := t.Page(); p != 0 {
		out[domain.FieldPage] = float64(p)
	} else {
		delete(out, domain.FieldPage)
	}
	entries := t.Entries()
	if entries == nil {
		entries = []any{}
	}
	out[domain.FieldEntries] = entries
	delete(out, domain.FieldReprintedAs)
	out[fieldBaseItem] = baseKey
	return out
}
