package corpus

import (
	"context"
	"maps"
	"path"
	"slices"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

const (
	spellDir       = "spells"
	spellIndexFile = "spells/index.json"
	spellFluffFile = "spells/fluff-index.json"
	spellClassFile = "spells/sources.json"
)

// ClassIndex maps source and spell name to the class lists of
// spells/sources.json.
type ClassIndex map[string]map[string]any

// Classes returns the "class" entry of a spell, nil when unknown.
func (ci ClassIndex) Classes(source, name string) any {
	entry, _ := ci[source][name].(map[string]any)
	return entry["class"]
}

// SpellCorpus is everything the spell phase reads.
type SpellCorpus struct {
	// Files holds one pair per spell file, ordered by source.
	Files           []Pair
	FluffPrimary    []domain.Record
	FluffSecondary  []domain.Record
	Classes         ClassIndex
	FluffFilesCount int
}

// LoadSpells reads the spell index, every indexed spell file of both
// corpora, the fluff index and the class lists. limit bounds concurrent
// file reads.
func (l *Loader) LoadSpells(ctx context.Context, limit int) (SpellCorpus, error) {
	var sc SpellCorpus

	index, err := l.LoadOne(ctx, domain.Primary, "spells", spellIndexFile, false)
	if err != nil {
		return sc, err
	}
	files := index.Strings()
	rels := make([]string, 0, len(files))
	for _, src := range slices.Sorted(maps.Keys(files)) {
		rels = append(rels, path.Join(spellDir, files[src]))
	}
	if sc.Files, err = l.LoadPairs(ctx, "spells", rels, limit); err != nil {
		return sc, err
	}

	fluffIndex, err := l.LoadOptionalPair(ctx, "spell-fluff", spellFluffFile)
	if err != nil {
		return sc, err
	}
	if err := l.loadSpellFluff(ctx, &sc, fluffIndex.Primary.Strings(), fluffIndex.Secondary.Strings()); err != nil {
		return sc, err
	}

	classes, err := l.LoadOne(ctx, domain.Primary, "spell-classes", spellClassFile, true)
	if err != nil {
		return sc, err
	}
	sc.Classes = make(ClassIndex, len(classes))
	for src, raw := range classes {
		if m, ok := raw.(map[string]any); ok {
			sc.Classes[src] = m
		}
	}
	return sc, nil
}

// loadSpellFluff reads per-source fluff files. A file listed identically on
// both sides is read as a pair; otherwise each side reads its own file.
func (l *Loader) loadSpellFluff(ctx context.Context, sc *SpellCorpus, primary, secondary map[string]string) error {
	sources := maps.Clone(primary)
	maps.Copy(sources, secondary)

	for _, src := range slices.Sorted(maps.Keys(sources)) {
		pf, sf := primary[src], secondary[src]
		if pf != "" && pf == sf {
			p, err := l.LoadPair(ctx, "spell-fluff", path.Join(spellDir, pf))
			if err != nil {
				return err
			}
			sc.FluffPrimary = append(sc.FluffPrimary, p.Primary.Records("spellFluff")...)
			sc.FluffSecondary = append(sc.FluffSecondary, p.Secondary.Records("spellFluff")...)
			sc.FluffFilesCount++
			continue
		}
		if pf != "" {
			doc, err := l.LoadOne(ctx, domain.Primary, "spell-fluff", path.Join(spellDir, pf), false)
			if err != nil {
				return err
			}
			sc.FluffPrimary = append(sc.FluffPrimary, doc.Records("spellFluff")...)
			sc.FluffFilesCount++
		}
		if sf != "" {
			doc, err := l.LoadOne(ctx, domain.Secondary, "spell-fluff", path.Join(spellDir, sf), false)
			if err != nil {
				return err
			}
			sc.FluffSecondary = append(sc.FluffSecondary, doc.Records("spellFluff")...)
			sc.FluffFilesCount++
		}
	}
	return nil
}
