package domain

import (
	"fmt"
	"sync"
)

// IdentitySet is the run-wide collision guard. The first writer of a key
// owns it; later claims are rejected.
type IdentitySet struct {
	mu    sync.Mutex
	owner map[string]string
}

// NewIdentitySet returns an empty set.
func NewIdentitySet() *IdentitySet {
	return &IdentitySet{owner: make(map[string]string)}
}

// Add registers key for owner. It returns false if the key was already taken.
func (s *IdentitySet) Add(key, owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owner[key]; ok {
		return false
	}
	s.owner[key] = owner
	return true
}

// Claim is Add reporting a collision as ErrIdentityCollision.
func (s *IdentitySet) Claim(key, owner string) error {
	if s.Add(key, owner) {
		return nil
	}
	prev, _ := s.Owner(key)
	return fmt.Errorf("key %q claimed by %s, already owned by %s: %w", key, owner, prev, ErrIdentityCollision)
}

// Contains reports whether key is registered.
func (s *IdentitySet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.owner[key]
	return ok
}

// Owner returns who registered key.
func (s *IdentitySet) Owner(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.owner[key]
	return o, ok
}

// Len returns the number of registered keys.
func (s *IdentitySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owner)
}
