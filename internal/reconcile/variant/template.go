// Package variant expands sparse variant templates into derived records by
// matching their requirements against a base catalog.
package variant

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

const (
	fieldRequires   = "requires"
	fieldExcludes   = "excludes"
	fieldInherits   = "inherits"
	fieldNamePrefix = "namePrefix"
	fieldNameSuffix = "nameSuffix"
	fieldBaseItem   = "baseItem"
)

// mergeBlockList are the template fields never copied onto a derived record.
var mergeBlockList = []string{
	domain.FieldName, domain.FieldAltName, domain.FieldType, domain.FieldSource,
	domain.FieldPage, fieldRequires, fieldExcludes, fieldInherits,
	domain.FieldReprintedAs, domain.FieldEntries, fieldNamePrefix, fieldNameSuffix,
}

// Template is a parsed variant template in one language.
type Template struct {
	Record   domain.Record
	Requires []Constraint
	Excludes Constraint
	// Inherits is the open-ended override payload.
	Inherits   domain.Record
	NamePrefix string
	NameSuffix string
}

// ParseTemplate reads the requires/excludes/inherits vocabulary of r.
func ParseTemplate(r domain.Record) Template {
	t := Template{Record: r, Inherits: r.Object(fieldInherits)}
	if list, ok := r[fieldRequires].([]any); ok {
		for _, raw := range list {
			if m, ok := raw.(map[string]any); ok {
				t.Requires = append(t.Requires, Constraint(m))
			}
		}
	}
	if m, ok := r[fieldExcludes].(map[string]any); ok {
		t.Excludes = Constraint(m)
	}
	t.NamePrefix = firstString(t.Inherits, r, fieldNamePrefix)
	t.NameSuffix = firstString(t.Inherits, r, fieldNameSuffix)
	return t
}

func firstString(a, b domain.Record, key string) string {
	if s := a.String(key); s != "" {
		return s
	}
	return b.String(key)
}

// Source is the template's own source, else inherits.source, else the
// trailing segment of its type.
func (t Template) Source() string {
	if s := t.Record.Source(); s != "" {
		return s
	}
	if s := t.Inherits.Source(); s != "" {
		return s
	}
	if typ := t.Record.String(domain.FieldType); typ != "" {
		return domain.TrailingSegment(typ)
	}
	return ""
}

// Page is the template's own page, else inherits.page.
func (t Template) Page() int {
	if p := t.Record.Page(); p != 0 {
		return p
	}
	return t.Inherits.Page()
}

// Entries are the template's own entries when non-empty, else inherited ones.
func (t Template) Entries() []any {
	if e := t.Record.Entries(); len(e) > 0 {
		return e
	}
	return t.Inherits.Entries()
}

// Reprints are the template's own reprint targets, else inherited ones.
func (t Template) Reprints() []string {
	if t.Record.Has(domain.FieldReprintedAs) {
		return t.Record.ReprintedAs()
	}
	return t.Inherits.ReprintedAs()
}

// Sources lists the template's effective source and reprint fragments.
func (t Template) Sources() []domain.SourceRef {
	var out []domain.SourceRef
	if s := t.Source(); s != "" {
		out = append(out, domain.SourceRef{Source: s, Page: t.Page()})
	}
	return append(out, domain.ReprintSources(t.Reprints())...)
}

// Key is the canonical key of the template itself.
func (t Template) Key() (string, error) {
	name := domain.KeyName(t.Record)
	src := t.Source()
	if src == "" {
		return "", fmt.Errorf("variant template %q: %w", name, domain.ErrMissingSource)
	}
	if name == "" {
		return "", fmt.Errorf("variant template of %s: %w", src, domain.ErrMissingName)
	}
	return domain.JoinKey(name, src), nil
}

// DisplayName derives the name of the variant of a base named baseName.
func (t Template) DisplayName(baseName string) string {
	return t.NamePrefix + strings.TrimSpace(baseName) + t.NameSuffix
}

// payload is the set of fields overlaid onto a base: top-level template
// fields, then inherits, minus the block list.
func (t Template) payload() map[string]any {
	out := make(map[string]any)
	for _, src := range []domain.Record{t.Record, t.Inherits} {
		for k, v := range src {
			if slices.Contains(mergeBlockList, k) {
				continue
			}
			out[k] = v
		}
	}
	return out
}

// KeyFor builds the canonical key of a template record: KeyName joined with
// the effective source. It is the Key option of the template reprint graph.
func KeyFor(r domain.Record) (string, error) {
	return ParseTemplate(r).Key()
}

// ReprintsFor is the Reprints option of the template reprint graph.
func ReprintsFor(r domain.Record) []string {
	return ParseTemplate(r).Reprints()
}

// SourcesFor is the Sources option of the template reprint graph.
func SourcesFor(r domain.Record) []domain.SourceRef {
	return ParseTemplate(r).Sources()
}
