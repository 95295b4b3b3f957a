// Package compare classifies canonical keys of two corpora as matched or
// missing on one side, and accumulates the results in a per-run Report.
package compare

import (
	"maps"
	"slices"
	"sync"
)

// SheetHeader is the first row of every kind's sheet.
var SheetHeader = []string{"ID", "Primary Title", "Secondary Title"}

// Entry is one classified key. A nil title means that side has no record.
type Entry struct {
	ID             string  `json:"id"`
	PrimaryTitle   *string `json:"primaryTitle"`
	SecondaryTitle *string `json:"secondaryTitle"`
}

// Dataset holds the classification of one kind.
type Dataset struct {
	Matched       []Entry `json:"matched"`
	NeedPrimary   []Entry `json:"needPrimary"`
	NeedSecondary []Entry `json:"needSecondary"`
}

// Counts summarizes a Dataset.
type Counts struct {
	Matched       int
	NeedPrimary   int
	NeedSecondary int
}

// Accessors extract the key and titles of a T.
type Accessors[T any] struct {
	ID             func(T) string
	PrimaryTitle   func(T) string
	SecondaryTitle func(T) string
}

// Report is the run-owned audit state. It is safe for concurrent use.
type Report struct {
	mu       sync.Mutex
	kinds    []string
	datasets map[string]*Dataset
	sheets   map[string][][]string
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{
		datasets: make(map[string]*Dataset),
		sheets:   make(map[string][][]string),
	}
}

// Compare classifies every key of primary and secondary. The kind's dataset
// is replaced; its sheet rows are appended (matched, needPrimary,
// needSecondary). Keys are compared by exact string equality. Duplicate keys
// within one side count once, at their first position.
func Compare[T any](rep *Report, kind string, primary, secondary []T, acc Accessors[T]) Counts {
	pIdx, pOrder := index(primary, acc.ID)
	sIdx, sOrder := index(secondary, acc.ID)

	ds := &Dataset{
		Matched:       []Entry{},
		NeedPrimary:   []Entry{},
		NeedSecondary: []Entry{},
	}
	for _, id := range pOrder {
		pt := acc.PrimaryTitle(primary[pIdx[id]])
		if si, ok := sIdx[id]; ok {
			st := acc.SecondaryTitle(secondary[si])
			ds.Matched = append(ds.Matched, Entry{ID: id, PrimaryTitle: &pt, SecondaryTitle: &st})
			continue
		}
		ds.NeedSecondary = append(ds.NeedSecondary, Entry{ID: id, PrimaryTitle: &pt})
	}
	for _, id := range sOrder {
		if _, ok := pIdx[id]; ok {
			continue
		}
		st := acc.SecondaryTitle(secondary[sIdx[id]])
		ds.NeedPrimary = append(ds.NeedPrimary, Entry{ID: id, SecondaryTitle: &st})
	}

	rep.store(kind, ds)
	return Counts{
		Matched:       len(ds.Matched),
		NeedPrimary:   len(ds.NeedPrimary),
		NeedSecondary: len(ds.NeedSecondary),
	}
}

func index[T any](items []T, id func(T) string) (map[string]int, []string) {
	idx := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for i, it := range items {
		k := id(it)
		if _, ok := idx[k]; ok {
			continue
		}
		idx[k] = i
		order = append(order, k)
	}
	return idx, order
}

func (r *Report) store(kind string, ds *Dataset) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.datasets[kind]; !ok {
		r.kinds = append(r.kinds, kind)
	}
	r.datasets[kind] = ds

	rows, ok := r.sheets[kind]
	if !ok {
		rows = [][]string{slices.Clone(SheetHeader)}
	}
	for _, group := range [][]Entry{ds.Matched, ds.NeedPrimary, ds.NeedSecondary} {
		for _, e := range group {
			rows = append(rows, []string{e.ID, deref(e.PrimaryTitle), deref(e.SecondaryTitle)})
		}
	}
	r.sheets[kind] = rows
}

// Kinds returns the compared kinds in first-seen order.
func (r *Report) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.kinds)
}

// Dataset returns the current dataset of kind.
func (r *Report) Dataset(kind string) (Dataset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ds, ok := r.datasets[kind]
	if !ok {
		return Dataset{}, false
	}
	return *ds, true
}

// Datasets returns a snapshot of every kind's dataset.
func (r *Report) Datasets() map[string]Dataset {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Dataset, len(r.datasets))
	for k, v := range r.datasets {
		out[k] = *v
	}
	return out
}

// Sheet returns the accumulated rows of kind, header first.
func (r *Report) Sheet(kind string) [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sheets[kind])
}

// Sheets returns every sheet keyed by kind.
func (r *Report) Sheets() map[string][][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.sheets)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
