// Package fluff indexes descriptive "fluff" records per language and
// resolves their _copy chains.
package fluff

import (
	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
)

const (
	fieldCopy   = "_copy"
	fieldImages = "images"
)

// Index holds fluff records of both languages keyed by canonical key.
type Index struct {
	kind      string
	anomalies *audit.Log
	byLang    map[domain.Lang]map[string]domain.Record
}

// NewIndex creates an empty index. kind labels anomalies; anomalies may be
// nil.
func NewIndex(kind string, anomalies *audit.Log) *Index {
	return &Index{
		kind:      kind,
		anomalies: anomalies,
		byLang: map[domain.Lang]map[string]domain.Record{
			domain.Primary:   {},
			domain.Secondary: {},
		},
	}
}

// Add indexes records of one language. Later records with the same key
// replace earlier ones. Records without a key are skipped and their errors
// returned.
func (ix *Index) Add(lang domain.Lang, records []domain.Record) []error {
	var errs []error
	m := ix.byLang[lang]
	for _, r := range records {
		key, err := domain.CanonicalKey(r)
		if err != nil {
			errs = append(errs, domain.NewRecordError(ix.kind, r.Name(), err))
			continue
		}
		m[key] = r
	}
	return errs
}

// Len is the number of records indexed for lang.
func (ix *Index) Len(lang domain.Lang) int { return len(ix.byLang[lang]) }

// Resolve returns the first record along the _copy chain starting at key
// that carries entries or images. When the chain ends without content the
// last record reached is returned. Cycles terminate.
func (ix *Index) Resolve(lang domain.Lang, key string) (domain.Record, bool) {
	r := ix.resolve(lang, key, make(map[string]bool))
	return r, r != nil
}

func (ix *Index) resolve(lang domain.Lang, key string, visited map[string]bool) domain.Record {
	if visited[key] {
		return nil
	}
	visited[key] = true

	r, ok := ix.byLang[lang][key]
	if !ok {
		return nil
	}
	if hasContent(r) {
		return r
	}
	ref := r.Object(fieldCopy)
	if ref == nil {
		return r
	}
	target, ok := copyKey(ref, r.Source())
	if !ok {
		return r
	}
	if next := ix.resolve(lang, target, visited); next != nil {
		return next
	}
	if _, known := ix.byLang[lang][target]; !known && ix.anomalies != nil {
		ix.anomalies.Recordf(audit.KindUnresolvedReference, ix.kind, key,
			"%s _copy target %s not found", lang, target)
	}
	return r
}

// copyKey builds the key of a _copy reference. The source defaults to the
// referring record's source.
func copyKey(ref domain.Record, fallbackSource string) (string, bool) {
	name := domain.KeyName(ref)
	src := ref.Source()
	if src == "" {
		src = fallbackSource
	}
	if name == "" || src == "" {
		return "", false
	}
	return domain.JoinKey(name, src), true
}

func hasContent(r domain.Record) bool {
	return r[domain.FieldEntries] != nil || r[fieldImages] != nil
}

// Content returns the resolved entries and images of key, or nil.
func (ix *Index) Content(lang domain.Lang, key string) *domain.FluffContent {
	r, ok := ix.Resolve(lang, key)
	if !ok || !hasContent(r) {
		return nil
	}
	c := &domain.FluffContent{}
	c.Entries, _ = r[domain.FieldEntries].([]any)
	c.Images, _ = r[fieldImages].([]any)
	return c
}

// Full pairs the content of both languages. It is nil when neither side has
// any.
func (ix *Index) Full(key string) *domain.Full {
	p := ix.Content(domain.Primary, key)
	s := ix.Content(domain.Secondary, key)
	if p == nil && s == nil {
		return nil
	}
	return &domain.Full{Primary: p, Secondary: s}
}
