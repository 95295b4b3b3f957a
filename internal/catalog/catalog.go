// Package catalog merges each content kind of the two corpora into output
// records. Managers run in dependency order: item properties, item types and
// base items before items and magic variants.
package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/compare"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/fluff"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/i18n"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/reprint"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/variant"
)

// Output data types.
const (
	DataTypeBook         = "book"
	DataTypeFeat         = "feat"
	DataTypeItemProperty = "itemProperty"
	DataTypeItemType     = "itemType"
	DataTypeItem         = "item"
	DataTypeSpell        = "spell"
)

// Comparison kinds. Item kinds share the item data type.
const (
	KindBook         = "book"
	KindFeat         = "feat"
	KindItemProperty = "itemProperty"
	KindItemType     = "itemType"
	KindBaseItem     = "baseitem"
	KindItem         = "item"
	KindMagicVariant = "magicvariant"
	KindSpell        = "spell"
)

// Options tune localization and variant handling.
type Options struct {
	Rules          i18n.Rules
	WeaponKeys     []string
	ArmorKeys      []string
	EmptyValue     any
	SourcePriority []string
}

// Collection is the merged output of one content kind.
type Collection struct {
	Kind     string
	DataType string
	KeySets  i18n.KeySets
	Records  []domain.MergedRecord
}

// Catalog owns the cross-kind state of one run. Its managers must be called
// from a single goroutine; the report, identity sets and anomaly log it
// shares are safe for concurrent readers.
type Catalog struct {
	opts      Options
	report    *compare.Report
	anomalies *audit.Log
	log       *slog.Logger

	mu  sync.Mutex
	ids map[string]*domain.IdentitySet

	itemFluff *fluff.Index
	baseItems []entry
}

// New creates a Catalog writing diagnostics into report and anomalies.
func New(opts Options, report *compare.Report, anomalies *audit.Log, log *slog.Logger) *Catalog {
	if opts.EmptyValue == nil {
		opts.EmptyValue = i18n.DefaultEmptyValue
	}
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{
		opts:      opts,
		report:    report,
		anomalies: anomalies,
		log:       log,
		ids:       make(map[string]*domain.IdentitySet),
		itemFluff: fluff.NewIndex("itemFluff", anomalies),
	}
}

// Identities returns the identity space of a data type, creating it on
// first use. Base items, items and variants share the item space.
func (c *Catalog) Identities(dataType string) *domain.IdentitySet {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.ids[dataType]
	if !ok {
		s = domain.NewIdentitySet()
		c.ids[dataType] = s
	}
	return s
}

// entry is one primary record with its optional counterpart.
type entry struct {
	Key       string
	Primary   domain.Record
	Secondary domain.Record
}

func (e entry) pair() domain.Pair { return domain.Pair{Primary: e.Primary, Secondary: e.Secondary} }

// keyed is a record with its computed key, as fed to the comparator.
type keyed struct {
	key string
	rec domain.Record
}

// kindSpec describes how one content kind is keyed, titled and extended.
type kindSpec struct {
	kind     string
	dataType string
	key      func(domain.Record) (string, error)
	title    func(domain.Record) string
	graph    reprint.Options
	skipKeys []string
	// extend adds kind-specific fields after the split.
	extend func(rec *domain.MergedRecord, e entry, ks i18n.KeySets)
}

// merged is the intermediate result of collect.
type merged struct {
	entries []entry
	keySets i18n.KeySets
	graph   *reprint.Graph
}

// keyAll computes keys, dropping and logging records without one.
func (c *Catalog) keyAll(spec kindSpec, lang domain.Lang, records []domain.Record) []keyed {
	out := make([]keyed, 0, len(records))
	for _, r := range records {
		k, err := spec.key(r)
		if err != nil {
			c.anomalies.Recordf(audit.KindStructural, spec.kind, "", "%s record %q skipped: %v", lang, r.Name(), err)
			continue
		}
		out = append(out, keyed{key: k, rec: r})
	}
	return out
}

// pairUp runs the comparator, pairs primaries with their counterpart and
// classifies the matched pairs. Duplicate primaries lose to the first
// occurrence.
func (c *Catalog) pairUp(spec kindSpec, primary, secondary []domain.Record) merged {
	pk := c.keyAll(spec, domain.Primary, primary)
	sk := c.keyAll(spec, domain.Secondary, secondary)

	counts := compare.Compare(c.report, spec.kind, pk, sk, compare.Accessors[keyed]{
		ID:             func(k keyed) string { return k.key },
		PrimaryTitle:   func(k keyed) string { return spec.title(k.rec) },
		SecondaryTitle: func(k keyed) string { return spec.title(k.rec) },
	})

	secIdx := make(map[string]domain.Record, len(sk))
	for _, k := range sk {
		if _, dup := secIdx[k.key]; !dup {
			secIdx[k.key] = k.rec
		}
	}

	var m merged
	seen := make(map[string]bool, len(pk))
	var pairs []domain.Pair
	for _, k := range pk {
		if seen[k.key] {
			c.anomalies.Record(audit.KindIdentityCollision, spec.kind, k.key, "duplicate primary record skipped")
			continue
		}
		seen[k.key] = true
		e := entry{Key: k.key, Primary: k.rec, Secondary: secIdx[k.key]}
		if e.Secondary != nil {
			pairs = append(pairs, e.pair())
		}
		m.entries = append(m.entries, e)
	}
	m.keySets = i18n.Classify(pairs, c.opts.Rules)

	g := spec.graph
	g.Key = spec.key
	m.graph = reprint.Build(primary, g)

	c.log.Debug("collection paired",
		slog.String("kind", spec.kind),
		slog.Int("matched", counts.Matched),
		slog.Int("need_primary", counts.NeedPrimary),
		slog.Int("need_secondary", counts.NeedSecondary),
		slog.Int("localized_keys", len(m.keySets.Localized)),
	)
	return m
}

// build turns paired entries into merged records. Entries whose key is
// already taken in the data type's identity space are rejected.
func (c *Catalog) build(spec kindSpec, m merged) []domain.MergedRecord {
	ids := c.Identities(spec.dataType)
	out := make([]domain.MergedRecord, 0, len(m.entries))
	for _, e := range m.entries {
		if err := ids.Claim(e.Key, spec.kind); err != nil {
			c.anomalies.Record(audit.KindIdentityCollision, spec.kind, e.Key, err.Error())
			continue
		}
		if e.Secondary == nil {
			c.anomalies.Recordf(audit.KindMissingCounterpart, spec.kind, e.Key, "no secondary record for %s", spec.title(e.Primary))
		}

		rec := domain.NewMergedRecord(spec.dataType, e.Key)
		rec.DisplayName = domain.DisplayNameOf(spec.title(e.Primary), titleOf(spec, e.Secondary))
		rec.MainSource = domain.SourceRef{Source: e.Primary.Source(), Page: e.Primary.Page()}
		rec.AllSources = m.graph.Provenance(e.Key)
		rec.RelatedVersions = m.graph.RelatedVersions(e.Key)
		c.applySplit(&rec, e.Primary, e.Secondary, m.keySets, spec.skipKeys)
		if spec.extend != nil {
			spec.extend(&rec, e, m.keySets)
		}
		out = append(out, rec)
	}
	return out
}

func (c *Catalog) applySplit(rec *domain.MergedRecord, primary, secondary domain.Record, ks i18n.KeySets, skip []string) {
	split := i18n.SplitPair(primary, secondary, ks, i18n.SplitOptions{EmptyValue: c.opts.EmptyValue, SkipKeys: skip})
	rec.Common = split.Common
	rec.Primary = split.Primary
	rec.Secondary = nil
	if secondary != nil {
		rec.Secondary = split.Secondary
	}
}

// collect runs the shared pipeline of a content kind.
func (c *Catalog) collect(ctx context.Context, spec kindSpec, primary, secondary []domain.Record) (Collection, merged, error) {
	if err := ctx.Err(); err != nil {
		return Collection{}, merged{}, err
	}
	m := c.pairUp(spec, primary, secondary)
	col := Collection{
		Kind:     spec.kind,
		DataType: spec.dataType,
		KeySets:  m.keySets,
		Records:  c.build(spec, m),
	}
	return col, m, nil
}

func titleOf(spec kindSpec, r domain.Record) string {
	if r == nil {
		return ""
	}
	return spec.title(r)
}

func nameTitle(r domain.Record) string { return r.Name() }

// variantEngine builds an engine over the item identity space.
func (c *Catalog) variantEngine(ks i18n.KeySets, g *reprint.Graph) *variant.Engine {
	return variant.NewEngine(c.log, c.Identities(DataTypeItem), c.anomalies, variant.Options{
		SourcePriority: c.opts.SourcePriority,
		KeySets:        ks,
		EmptyValue:     c.opts.EmptyValue,
		Graph:          g,
	})
}
