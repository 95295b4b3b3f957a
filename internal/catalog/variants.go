package catalog

import (
	"context"

	"github.com/pttsw/wiki-dnd-parser/internal/corpus"
	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/compare"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/i18n"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/reprint"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/variant"
)

// MagicVariants expands magicvariants.json templates against the base item
// catalog. Each template yields its own record followed by its derived
// items. BaseItems must run first.
func (c *Catalog) MagicVariants(ctx context.Context, p corpus.Pair) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return Collection{}, err
	}
	primary := p.Primary.Records("magicvariant")
	secondary := p.Secondary.Records("magicvariant")

	pk := c.templates(domain.Primary, primary)
	sk := c.templates(domain.Secondary, secondary)
	compare.Compare(c.report, KindMagicVariant, pk, sk, compare.Accessors[keyedTemplate]{
		ID:             func(t keyedTemplate) string { return t.key },
		PrimaryTitle:   func(t keyedTemplate) string { return t.tmpl.Record.Name() },
		SecondaryTitle: func(t keyedTemplate) string { return t.tmpl.Record.Name() },
	})

	secIdx := make(map[string]*variant.Template, len(sk))
	for i := range sk {
		if _, dup := secIdx[sk[i].key]; !dup {
			secIdx[sk[i].key] = &sk[i].tmpl
		}
	}

	// Templates and base items are classified together so that derived
	// records split base fields the same way base items do.
	var pairs []domain.Pair
	for _, t := range pk {
		if s := secIdx[t.key]; s != nil {
			pairs = append(pairs, domain.Pair{Primary: t.tmpl.Record, Secondary: s.Record})
		}
	}
	for _, b := range c.baseItems {
		if b.Secondary != nil {
			pairs = append(pairs, b.pair())
		}
	}
	ks := i18n.Classify(pairs, c.opts.Rules)

	graph := reprint.Build(primary, reprint.Options{
		Key:      variant.KeyFor,
		Reprints: variant.ReprintsFor,
		Sources:  variant.SourcesFor,
	})
	engine := c.variantEngine(ks, graph)
	bases := c.bases()

	col := Collection{Kind: KindMagicVariant, DataType: DataTypeItem, KeySets: ks}
	seen := make(map[string]bool, len(pk))
	for _, t := range pk {
		if seen[t.key] {
			c.anomalies.Record(audit.KindIdentityCollision, KindMagicVariant, t.key, "duplicate primary template skipped")
			continue
		}
		seen[t.key] = true
		sec := secIdx[t.key]
		if sec == nil {
			c.anomalies.Recordf(audit.KindMissingCounterpart, KindMagicVariant, t.key, "no secondary template for %s", t.tmpl.Record.Name())
		}

		derived, err := engine.Expand(ctx, variant.TemplatePair{Primary: t.tmpl, Secondary: sec}, bases)
		if err != nil {
			return Collection{}, err
		}
		for _, d := range derived {
			col.Records = append(col.Records, c.variantRecord(d, t.tmpl, graph, ks))
		}
	}
	return col, nil
}

type keyedTemplate struct {
	key  string
	tmpl variant.Template
}

func (c *Catalog) templates(lang domain.Lang, records []domain.Record) []keyedTemplate {
	out := make([]keyedTemplate, 0, len(records))
	for _, r := range records {
		t := variant.ParseTemplate(r)
		key, err := t.Key()
		if err != nil {
			c.anomalies.Recordf(audit.KindStructural, KindMagicVariant, "", "%s template %q skipped: %v", lang, r.Name(), err)
			continue
		}
		out = append(out, keyedTemplate{key: key, tmpl: t})
	}
	return out
}

// bases exposes the base item catalog to the variant engine.
func (c *Catalog) bases() variant.Bases {
	out := make(variant.Bases, 0, len(c.baseItems))
	for _, b := range c.baseItems {
		out = append(out, variant.Base{Key: b.Key, Primary: b.Primary, Secondary: b.Secondary})
	}
	return out
}

func (c *Catalog) variantRecord(d variant.Derived, t variant.Template, g *reprint.Graph, ks i18n.KeySets) domain.MergedRecord {
	rec := domain.NewMergedRecord(DataTypeItem, d.Key)
	rec.DisplayName = domain.NewDisplayName(d.Primary.Name(), d.Secondary)
	rec.MainSource = domain.SourceRef{Source: t.Source(), Page: t.Page()}
	rec.AllSources = d.Sources
	rec.Common = d.Fields.Common
	rec.Primary = d.Fields.Primary
	if d.Secondary != nil {
		rec.Secondary = d.Fields.Secondary
	}

	if d.IsTemplate() {
		rec.RelatedVersions = g.RelatedVersions(d.Key)
		rec.Attributes = map[string]any{"isBaseItem": false, "isTemplate": true}
		if rarity, ok := t.Inherits["rarity"]; ok {
			rec.Attributes["rarity"] = rarity
		}
		return rec
	}

	rec.Origin = d.Origin
	rec.BaseItem = d.Base
	c.applySplit(&rec, d.Primary, d.Secondary, ks, c.blockKeys())
	c.itemExtras(&rec, d.Primary, d.Secondary, ks)
	rec.Attributes["isBaseItem"] = false
	if rec.Full == nil {
		rec.Full = c.itemFluff.Full(d.Base)
	}
	return rec
}
