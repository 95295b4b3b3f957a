package reprint

import "github.com/pttsw/wiki-dnd-parser/internal/domain"

// Sources is an insertion-ordered set of SourceRef keyed by "source|page".
// The zero value is ready to use.
type Sources struct {
	seen map[string]bool
	list []domain.SourceRef
}

// Add appends s unless its source is empty or it was already added.
func (s *Sources) Add(ref domain.SourceRef) {
	if ref.Source == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	k := ref.Key()
	if s.seen[k] {
		return
	}
	s.seen[k] = true
	s.list = append(s.list, ref)
}

// AddAll adds every ref in order.
func (s *Sources) AddAll(refs []domain.SourceRef) {
	for _, r := range refs {
		s.Add(r)
	}
}

// List returns the collected refs, never nil.
func (s *Sources) List() []domain.SourceRef {
	if s.list == nil {
		return []domain.SourceRef{}
	}
	return s.list
}
