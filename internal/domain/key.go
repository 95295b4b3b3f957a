package domain

import (
	"fmt"
	"strings"
)

// KeyName returns the name part of a canonical key: the trimmed ENG_name
// when present, else the trimmed name.
func KeyName(r Record) string {
	if alt := strings.TrimSpace(r.AltName()); alt != "" {
		return alt
	}
	return strings.TrimSpace(r.Name())
}

// CanonicalKey computes the cross-corpus join key "name|source".
// Case is not folded. A record without a source is a structural error.
func CanonicalKey(r Record) (string, error) {
	name := KeyName(r)
	src := r.Source()
	if src == "" {
		return "", fmt.Errorf("canonical key for %q: %w", name, ErrMissingSource)
	}
	if name == "" {
		return "", fmt.Errorf("canonical key for source %q: %w", src, ErrMissingName)
	}
	return JoinKey(name, src), nil
}

// JoinKey builds a key from an already normalized name and a source.
func JoinKey(name, source string) string {
	return name + "|" + source
}

// SplitKey separates a key at its last "|". A key without a separator is
// returned as a bare name.
func SplitKey(key string) (name, source string) {
	i := strings.LastIndex(key, "|")
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}
