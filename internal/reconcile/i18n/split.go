package i18n

import "github.com/pttsw/wiki-dnd-parser/internal/domain"

// DefaultEmptyValue marks a localized field whose translation is pending.
const DefaultEmptyValue = ""

// SplitOptions tunes Split.
type SplitOptions struct {
	// EmptyValue fills a localized field the secondary side lacks.
	EmptyValue any
	// SkipKeys are left to a grouped block builder.
	SkipKeys []string
}

// Split is the three disjoint field groups of one record pair.
type Split struct {
	Common    map[string]any
	Primary   map[string]any
	Secondary map[string]any
}

// SplitPair applies ks to one pair. Presence is key existence, so explicit
// nulls are carried over.
func SplitPair(primary, secondary domain.Record, ks KeySets, opts SplitOptions) Split {
	skip := NewKeySet(opts.SkipKeys...)
	out := Split{
		Common:    map[string]any{},
		Primary:   map[string]any{},
		Secondary: map[string]any{},
	}
	for _, key := range unionKeys(primary, secondary) {
		if skip.Has(key) {
			continue
		}
		place(out.Common, out.Primary, out.Secondary, key, primary, secondary, ks, opts.EmptyValue)
	}
	return out
}

// GroupedBlock applies the same per-field rule to an ordered subset of keys.
// Groups that end up empty are nil; a block with nothing at all is the zero
// Block.
func GroupedBlock(primary, secondary domain.Record, keys []string, ks KeySets, empty any) domain.Block {
	common := map[string]any{}
	pri := map[string]any{}
	sec := map[string]any{}
	for _, key := range keys {
		if !primary.Has(key) && !secondary.Has(key) {
			continue
		}
		place(common, pri, sec, key, primary, secondary, ks, empty)
	}
	return domain.Block{
		Common:    nilIfEmpty(common),
		Primary:   nilIfEmpty(pri),
		Secondary: nilIfEmpty(sec),
	}
}

func place(common, pri, sec map[string]any, key string, primary, secondary domain.Record, ks KeySets, empty any) {
	pv, pok := primary[key]
	sv, sok := secondary[key]
	if ks.IsLocalized(key) {
		if pok {
			pri[key] = pv
		}
		switch {
		case sok:
			sec[key] = sv
		case pok:
			sec[key] = empty
		}
		return
	}
	switch {
	case pok:
		common[key] = pv
	case sok:
		common[key] = sv
	}
}

func nilIfEmpty(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}
