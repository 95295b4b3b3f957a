package domain

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"
)

// Well-known field names shared by every content kind.
const (
	FieldName              = "name"
	FieldAltName           = "ENG_name"
	FieldSource            = "source"
	FieldPage              = "page"
	FieldType              = "type"
	FieldEntries           = "entries"
	FieldReprintedAs       = "reprintedAs"
	FieldAdditionalSources = "additionalSources"
	FieldOtherSources      = "otherSources"
)

// Record is one decoded content item in one language. Values are whatever
// encoding/json produced: string, float64, bool, nil, []any, map[string]any.
// The core never mutates a Record it did not Clone.
type Record map[string]any

// SourceRef is a (source, page) provenance pair.
type SourceRef struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Key returns the dedup key "source|page".
func (s SourceRef) Key() string {
	return s.Source + "|" + strconv.Itoa(s.Page)
}

// Has reports whether the field is present, even if its value is null.
func (r Record) Has(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r[key]
	return ok
}

// String returns the field as a string, or "" when absent or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool reports the JSON truthiness of a field.
func (r Record) Bool(key string) bool {
	return Truthy(r[key])
}

// Int returns a numeric field as an int, 0 when absent.
func (r Record) Int(key string) int {
	return toInt(r[key])
}

// Name returns the display name in the record's own language.
func (r Record) Name() string { return r.String(FieldName) }

// AltName returns the language-neutral name used for cross-language keying.
func (r Record) AltName() string { return r.String(FieldAltName) }

// Source returns the provenance book/document id.
func (r Record) Source() string { return r.String(FieldSource) }

// Page returns the page number, 0 when absent.
func (r Record) Page() int { return r.Int(FieldPage) }

// Entries returns the raw entries array, nil when absent.
func (r Record) Entries() []any {
	e, _ := r[FieldEntries].([]any)
	return e
}

// Object returns a nested object field as a Record.
func (r Record) Object(key string) Record {
	m, _ := r[key].(map[string]any)
	return m
}

// ReprintedAs returns the normalized reprint targets. Entries may be bare
// keys or {uid, tag} objects; both normalize to the uid string.
func (r Record) ReprintedAs() []string {
	return NormalizeReprints(r[FieldReprintedAs])
}

// AdditionalSources returns additionalSources followed by otherSources.
func (r Record) AdditionalSources() []SourceRef {
	var out []SourceRef
	for _, field := range []string{FieldAdditionalSources, FieldOtherSources} {
		list, _ := r[field].([]any)
		for _, raw := range list {
			obj, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			src, _ := obj[FieldSource].(string)
			if src == "" {
				continue
			}
			out = append(out, SourceRef{Source: src, Page: toInt(obj[FieldPage])})
		}
	}
	return out
}

// DeclaredSources returns the record's own source/page, its additional
// sources, and one page-0 entry per reprint target's trailing source segment.
func (r Record) DeclaredSources() []SourceRef {
	var out []SourceRef
	if src := r.Source(); src != "" {
		out = append(out, SourceRef{Source: src, Page: r.Page()})
	}
	out = append(out, r.AdditionalSources()...)
	out = append(out, ReprintSources(r.ReprintedAs())...)
	return out
}

// Clone returns a shallow copy. Nested values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// NormalizeReprints converts a raw reprintedAs value into uid strings.
func NormalizeReprints(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		if ss, ok := raw.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if uid, ok := v["uid"].(string); ok && uid != "" {
				out = append(out, uid)
			}
		}
	}
	return out
}

// ReprintSources maps reprint targets to page-0 sources taken from the
// trailing "|" segment of each key.
func ReprintSources(keys []string) []SourceRef {
	out := make([]SourceRef, 0, len(keys))
	for _, k := range keys {
		out = append(out, SourceRef{Source: TrailingSegment(k), Page: 0})
	}
	return out
}

// TrailingSegment returns the part after the last "|", or s itself.
func TrailingSegment(s string) string {
	if i := strings.LastIndex(s, "|"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Truthy mirrors JSON-side truthiness: false, 0, "", null and absent are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		return t.String() != "0" && t.String() != ""
	default:
		return true
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, _ := t.Float64()
			return int(f)
		}
		return int(n)
	default:
		return 0
	}
}

// Pair holds the primary and secondary records sharing one canonical key.
// Either side may be nil.
type Pair struct {
	Primary   Record
	Secondary Record
}
