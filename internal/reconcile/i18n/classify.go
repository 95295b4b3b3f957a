// Package i18n decides which fields of a collection carry per-language
// values and splits record pairs accordingly.
package i18n

import (
	"slices"

	"github.com/google/go-cmp/cmp"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

// Rules are the force lists that override the diff heuristic.
type Rules struct {
	ForceLocalized []string
	ForceCommon    []string
}

// KeySet is a set of field names.
type KeySet map[string]struct{}

// NewKeySet builds a set from keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s KeySet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// Sorted returns the members in lexical order.
func (s KeySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// KeySets is the classification of one collection. Localized and Common are
// disjoint and together cover All.
type KeySets struct {
	All       KeySet
	Localized KeySet
	Common    KeySet
}

// IsLocalized reports whether key carries per-language values.
func (ks KeySets) IsLocalized(key string) bool { return ks.Localized.Has(key) }

// Classify inspects every pair of the collection once. A field is localized
// if its values are not deeply equal in any pair, absence on one side
// included. ForceCommon always wins; ForceLocalized is always added.
func Classify(pairs []domain.Pair, rules Rules) KeySets {
	all := KeySet{}
	diff := KeySet{}
	forceLoc := NewKeySet(rules.ForceLocalized...)
	forceCom := NewKeySet(rules.ForceCommon...)

	for _, p := range pairs {
		for _, key := range unionKeys(p.Primary, p.Secondary) {
			all[key] = struct{}{}
			if forceLoc.Has(key) || forceCom.Has(key) || diff.Has(key) {
				continue
			}
			pv, pok := p.Primary[key]
			sv, sok := p.Secondary[key]
			if pok != sok || !cmp.Equal(pv, sv) {
				diff[key] = struct{}{}
			}
		}
	}

	localized := KeySet{}
	for k := range diff {
		localized[k] = struct{}{}
	}
	for k := range forceLoc {
		localized[k] = struct{}{}
	}
	for k := range forceCom {
		delete(localized, k)
	}

	common := KeySet{}
	for k := range all {
		if !localized.Has(k) {
			common[k] = struct{}{}
		}
	}
	return KeySets{All: all, Localized: localized, Common: common}
}

// unionKeys returns the field names of a then the ones only in b, each
// side in sorted order so output is deterministic.
func unionKeys(a, b domain.Record) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	extra := make([]string, 0, len(b))
	for k := range b {
		if _, ok := a[k]; !ok {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(keys, extra...)
}
