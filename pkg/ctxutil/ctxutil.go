// Package ctxutil carries run-scoped values through a context.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey string

const (
	runIDKey ctxKey = "run_id"
	phaseKey ctxKey = "phase"
)

// WithRunID stores the run ID in the context.
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromCtx extracts the run ID from the context.
// Returns uuid.Nil and false if the value is missing, nil UUID, or wrong type.
func RunIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(runIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// WithPhase stores the name of the running pipeline phase.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromCtx returns the running phase, or an empty string if absent.
func PhaseFromCtx(ctx context.Context) string {
	p, _ := ctx.Value(phaseKey).(string)
	return p
}

// LogAttrs returns the run_id and phase attributes present in ctx.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id, ok := RunIDFromCtx(ctx); ok {
		attrs = append(attrs, slog.String(string(runIDKey), id.String()))
	}
	if p := PhaseFromCtx(ctx); p != "" {
		attrs = append(attrs, slog.String(string(phaseKey), p))
	}
	return attrs
}
