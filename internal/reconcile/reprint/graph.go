// Package reprint builds the "republished as" graph of one collection and
// answers reachability and provenance queries over it.
package reprint

import (
	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

// Options customizes how records are keyed and read. Zero fields use the
// defaults: domain.CanonicalKey, Record.ReprintedAs and Record.DeclaredSources.
type Options struct {
	Key      func(domain.Record) (string, error)
	Reprints func(domain.Record) []string
	Sources  func(domain.Record) []domain.SourceRef
}

func (o Options) withDefaults() Options {
	if o.Key == nil {
		o.Key = domain.CanonicalKey
	}
	if o.Reprints == nil {
		o.Reprints = domain.Record.ReprintedAs
	}
	if o.Sources == nil {
		o.Sources = domain.Record.DeclaredSources
	}
	return o
}

// Graph is immutable after Build.
type Graph struct {
	opts    Options
	order   []string
	records map[string]domain.Record
	forward map[string][]string
	reverse map[string][]string
	invalid []error
}

// Build indexes records by key and builds forward and reverse edges in one
// pass. Records whose key cannot be computed are left out and reported by
// Invalid. When two records share a key the first one is kept.
func Build(records []domain.Record, opts Options) *Graph {
	opts = opts.withDefaults()
	g := &Graph{
		opts:    opts,
		records: make(map[string]domain.Record, len(records)),
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
	}
	for _, r := range records {
		key, err := opts.Key(r)
		if err != nil {
			g.invalid = append(g.invalid, err)
			continue
		}
		if _, dup := g.records[key]; dup {
			continue
		}
		g.records[key] = r
		g.order = append(g.order, key)
		for _, target := range opts.Reprints(r) {
			g.forward[key] = append(g.forward[key], target)
			g.reverse[target] = append(g.reverse[target], key)
		}
	}
	return g
}

// Invalid returns the structural errors of records left out of the graph.
func (g *Graph) Invalid() []error { return g.invalid }

// Keys returns the indexed keys in input order.
func (g *Graph) Keys() []string { return g.order }

// Record returns the record indexed under key.
func (g *Graph) Record(key string) (domain.Record, bool) {
	r, ok := g.records[key]
	return r, ok
}

// Reachable returns every key connected to start through forward or
// reverse edges, start included, in visit order. Cycles terminate.
func (g *Graph) Reachable(start string) []string {
	visited := make(map[string]bool)
	var out []string
	stack := []string{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, cur)

		for _, next := range g.forward[cur] {
			if !visited[next] {
				stack = append(stack, next)
			}
		}
		for _, next := range g.reverse[cur] {
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return out
}

// RelatedVersions returns the reachable keys other than key, nil if none.
func (g *Graph) RelatedVersions(key string) []string {
	var out []string
	for _, k := range g.Reachable(key) {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// AggregateSources collects the declared sources of every key, deduplicated
// by "source|page" in first-seen order. A key without a record contributes
// its trailing source segment with page 0.
func (g *Graph) AggregateSources(keys []string) []domain.SourceRef {
	var acc Sources
	for _, k := range keys {
		r, ok := g.records[k]
		if !ok {
			acc.Add(domain.SourceRef{Source: domain.TrailingSegment(k)})
			continue
		}
		for _, s := range g.opts.Sources(r) {
			acc.Add(s)
		}
	}
	return acc.List()
}

// Provenance is AggregateSources over the reachable set of key.
func (g *Graph) Provenance(key string) []domain.SourceRef {
	return g.AggregateSources(g.Reachable(key))
}
