package variant

import (
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

// Strategy is how one constraint field is compared against a base record.
type Strategy int

const (
	Exact Strategy = iota
	CaseInsensitive
	SetMembership
	Boolean
)

func (s Strategy) String() string {
	switch s {
	case CaseInsensitive:
		return "case-insensitive"
	case SetMembership:
		return "set-membership"
	case Boolean:
		return "boolean"
	default:
		return "exact"
	}
}

var caseInsensitiveFields = []string{"name", "source", "weaponCategory"}

// genericWeaponTypes are the base type codes a bare {weapon: true}
// requirement matches: melee and ranged weapons.
var genericWeaponTypes = []string{"M", "R"}

// Constraint is one conjunction of field expectations.
type Constraint map[string]any

// StrategyFor selects the comparison for field given the expected value.
// Array expectations always use set membership.
func StrategyFor(field string, expected any) Strategy {
	switch expected.(type) {
	case []any:
		return SetMembership
	case bool:
		return Boolean
	}
	if slices.Contains(caseInsensitiveFields, field) {
		return CaseInsensitive
	}
	return Exact
}

// MatchValue compares an actual base value with the expected value of field.
func MatchValue(actual, expected any, field string) bool {
	switch StrategyFor(field, expected) {
	case SetMembership:
		for _, want := range expected.([]any) {
			if list, ok := actual.([]any); ok {
				for _, got := range list {
					if scalarEqual(got, want, field) {
						return true
					}
				}
				continue
			}
			if scalarEqual(actual, want, field) {
				return true
			}
		}
		return false
	case Boolean:
		return domain.Truthy(actual) == expected.(bool)
	case CaseInsensitive:
		return foldEqual(actual, expected)
	default:
		return cmp.Equal(actual, expected)
	}
}

func scalarEqual(actual, expected any, field string) bool {
	if slices.Contains(caseInsensitiveFields, field) {
		return foldEqual(actual, expected)
	}
	return cmp.Equal(actual, expected)
}

func foldEqual(actual, expected any) bool {
	a, aok := actual.(string)
	e, eok := expected.(string)
	if aok && eok {
		return strings.EqualFold(a, e)
	}
	return cmp.Equal(actual, expected)
}

// Matches reports whether every field of c matches base.
func Matches(base domain.Record, c Constraint) bool {
	for field, want := range c {
		if !MatchValue(base[field], want, field) {
			return false
		}
	}
	return true
}

// MatchesAny evaluates requires as a disjunction. A bare {weapon: true}
// requirement is matched by base type code instead.
func MatchesAny(base domain.Record, requires []Constraint) bool {
	if isGenericWeaponRequirement(requires) {
		return slices.Contains(genericWeaponTypes, typeCode(base))
	}
	for _, c := range requires {
		if Matches(base, c) {
			return true
		}
	}
	return false
}

func isGenericWeaponRequirement(requires []Constraint) bool {
	if len(requires) != 1 || len(requires[0]) != 1 {
		return false
	}
	v, ok := requires[0]["weapon"].(bool)
	return ok && v
}

// typeCode returns the part of the type field before "|".
func typeCode(r domain.Record) string {
	t := r.String(domain.FieldType)
	if i := strings.Index(t, "|"); i >= 0 {
		return t[:i]
	}
	return t
}
