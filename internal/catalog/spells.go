package catalog

import (
	"context"

	"github.com/pttsw/wiki-dnd-parser/internal/corpus"
	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/fluff"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/i18n"
)

// spellLists are the array attributes copied onto spell records, empty when
// absent.
var spellLists = []string{
	"spellAttack", "abilityCheck", "damageInflict", "damageVulnerable",
	"conditionInflict", "damageResist", "damageImmune", "conditionImmune",
	"savingThrow", "affectsCreatureType",
}

// Spells merges every indexed spell file as one collection, with class
// lists and fluff attached.
func (c *Catalog) Spells(ctx context.Context, sc corpus.SpellCorpus) (Collection, error) {
	idx := fluff.NewIndex("spellFluff", c.anomalies)
	for lang, records := range map[domain.Lang][]domain.Record{domain.Primary: sc.FluffPrimary, domain.Secondary: sc.FluffSecondary} {
		for _, err := range idx.Add(lang, records) {
			c.anomalies.Record(audit.KindStructural, "spellFluff", "", err.Error())
		}
	}

	var primary, secondary []domain.Record
	for _, f := range sc.Files {
		primary = append(primary, f.Primary.Records("spell")...)
		secondary = append(secondary, f.Secondary.Records("spell")...)
	}

	spec := kindSpec{
		kind:     KindSpell,
		dataType: DataTypeSpell,
		key:      domain.CanonicalKey,
		title:    nameTitle,
		extend: func(rec *domain.MergedRecord, e entry, _ i18n.KeySets) {
			rec.Attributes = spellAttributes(e.Primary, sc.Classes)
			rec.Full = idx.Full(e.Key)
		},
	}
	col, _, err := c.collect(ctx, spec, primary, secondary)
	return col, err
}

func spellAttributes(r domain.Record, classes corpus.ClassIndex) map[string]any {
	attrs := map[string]any{
		"level":  r["level"],
		"school": r["school"],
		"ritual": r.Object("meta").Bool("ritual"),
	}
	if cl := classes.Classes(r.Source(), r.Name()); cl != nil {
		attrs["classes"] = cl
	}
	for _, k := range spellLists {
		v, ok := r[k].([]any)
		if !ok {
			v = []any{}
		}
		attrs[k] = v
	}
	return attrs
}
