package domain

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
)

func decode(t *testing.T, s string) Record {
	t.Helper()
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return r
}

func TestRecord_ReprintedAs(t *testing.T) {
	t.Parallel()

	r := decode(t, `{"reprintedAs": ["Dagger|XPHB", {"uid": "Dagger|XDMG", "tag": "item"}, {"tag": "x"}, 7]}`)
	got := r.ReprintedAs()
	want := []string{"Dagger|XPHB", "Dagger|XDMG"}
	if !slices.Equal(got, want) {
		t.Errorf("ReprintedAs() = %v, want %v", got, want)
	}

	if got := (Record{}).ReprintedAs(); got != nil {
		t.Errorf("absent ReprintedAs() = %v, want nil", got)
	}
}

func TestRecord_DeclaredSources(t *testing.T) {
	t.Parallel()

	r := decode(t, `{
		"name": "Fireball", "source": "PHB", "page": 241,
		"additionalSources": [{"source": "SRD", "page": 144}],
		"otherSources": [{"source": "LMoP"}],
		"reprintedAs": ["Fireball|XPHB"]
	}`)
	got := r.DeclaredSources()
	want := []SourceRef{
		{Source: "PHB", Page: 241},
		{Source: "SRD", Page: 144},
		{Source: "LMoP", Page: 0},
		{Source: "XPHB", Page: 0},
	}
	if !slices.Equal(got, want) {
		t.Errorf("DeclaredSources() = %v, want %v", got, want)
	}
}

func TestRecord_HasNull(t *testing.T) {
	t.Parallel()

	r := decode(t, `{"dexterityMax": null}`)
	if !r.Has("dexterityMax") {
		t.Error("null field should count as present")
	}
	if r.Has("ac") {
		t.Error("absent field should not be present")
	}
	var nilRec Record
	if nilRec.Has("x") {
		t.Error("nil record has no fields")
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    any
		want bool
	}{
		{name: "nil", v: nil, want: false},
		{name: "false", v: false, want: false},
		{name: "true", v: true, want: true},
		{name: "zero", v: 0.0, want: false},
		{name: "number", v: 2.0, want: true},
		{name: "empty string", v: "", want: false},
		{name: "string", v: "M", want: true},
		{name: "empty array", v: []any{}, want: true},
		{name: "object", v: map[string]any{}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Truthy(tt.v); got != tt.want {
				t.Errorf("Truthy(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestSourceRef_Key(t *testing.T) {
	t.Parallel()

	if got := (SourceRef{Source: "PHB", Page: 12}).Key(); got != "PHB|12" {
		t.Errorf("Key() = %q", got)
	}
}

func TestIdentitySet_FirstWriterWins(t *testing.T) {
	t.Parallel()

	s := NewIdentitySet()
	if !s.Add("Mace|PHB", "baseitem") {
		t.Fatal("first Add should succeed")
	}
	if s.Add("Mace|PHB", "magicvariant") {
		t.Fatal("second Add should be rejected")
	}
	if owner, _ := s.Owner("Mace|PHB"); owner != "baseitem" {
		t.Errorf("owner = %q, want baseitem", owner)
	}

	err := s.Claim("Mace|PHB", "item")
	if !errors.Is(err, ErrIdentityCollision) {
		t.Errorf("Claim() error = %v, want ErrIdentityCollision", err)
	}
}

func TestIdentitySet_Concurrent(t *testing.T) {
	t.Parallel()

	s := NewIdentitySet()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("k|S", "w") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("wins = %d, want 1", wins)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestNewDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		primary   string
		secondary Record
		want      *string
	}{
		{name: "no counterpart", primary: "Dagger", secondary: nil, want: nil},
		{name: "same after trim", primary: "Dagger", secondary: Record{"name": " Dagger "}, want: nil},
		{name: "translated", primary: "Dagger", secondary: Record{"name": "匕首"}, want: ptr("匕首")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewDisplayName(tt.primary, tt.secondary)
			if got.Primary != tt.primary {
				t.Errorf("Primary = %q", got.Primary)
			}
			switch {
			case tt.want == nil && got.Secondary != nil:
				t.Errorf("Secondary = %q, want nil", *got.Secondary)
			case tt.want != nil && (got.Secondary == nil || *got.Secondary != *tt.want):
				t.Errorf("Secondary = %v, want %q", got.Secondary, *tt.want)
			}
		})
	}
}

func TestMergedRecord_JSONShape(t *testing.T) {
	t.Parallel()

	m := NewMergedRecord("feat", "Alert|PHB")
	m.DisplayName = NewDisplayName("Alert", nil)
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["uid"] != "feat_Alert|PHB" {
		t.Errorf("uid = %v", got["uid"])
	}
	if v, ok := got["secondary"]; !ok || v != nil {
		t.Errorf("secondary should be present and null, got %v (present=%v)", v, ok)
	}
	if _, ok := got["relatedVersions"]; ok {
		t.Error("relatedVersions should be omitted when empty")
	}
	if src, _ := got["allSources"].([]any); src == nil {
		t.Error("allSources should encode as an empty array")
	}
	dn := got["displayName"].(map[string]any)
	if v, ok := dn["secondary"]; !ok || v != nil {
		t.Errorf("displayName.secondary should be null, got %v", v)
	}
}

func ptr(s string) *string { return &s }
