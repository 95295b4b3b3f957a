// Package audit collects record-level anomalies of a run. Anomalies never
// abort processing.
package audit

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Kind classifies an anomaly.
type Kind string

const (
	KindMissingCounterpart  Kind = "missing_counterpart"
	KindUnmatchedVariant    Kind = "unmatched_variant"
	KindDuplicateDerivation Kind = "duplicate_derivation"
	KindIdentityCollision   Kind = "identity_collision"
	KindUnresolvedReference Kind = "unresolved_reference"
	KindStructural          Kind = "structural"
)

// Anomaly is one logged problem.
type Anomaly struct {
	Kind    Kind   `json:"kind"`
	Source  string `json:"source"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message"`
}

// Log is the run-owned anomaly log. It is safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	items  []Anomaly
	logger *slog.Logger
}

// NewLog returns an empty log that mirrors entries to logger at debug level.
// A nil logger disables mirroring.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Record appends an anomaly. source names the component or content kind.
func (l *Log) Record(kind Kind, source, key, msg string) {
	l.mu.Lock()
	l.items = append(l.items, Anomaly{Kind: kind, Source: source, Key: key, Message: msg})
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Debug("anomaly",
			slog.String("kind", string(kind)),
			slog.String("source", source),
			slog.String("key", key),
			slog.String("message", msg),
		)
	}
}

// Recordf is Record with a formatted message.
func (l *Log) Recordf(kind Kind, source, key, format string, args ...any) {
	l.Record(kind, source, key, fmt.Sprintf(format, args...))
}

// Entries returns a copy of all anomalies in insertion order.
func (l *Log) Entries() []Anomaly {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// Len returns the number of anomalies.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Count returns the number of anomalies of kind.
func (l *Log) Count(kind Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, a := range l.items {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Counts groups anomaly counts by kind.
func (l *Log) Counts() map[Kind]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[Kind]int)
	for _, a := range l.items {
		out[a.Kind]++
	}
	return out
}
