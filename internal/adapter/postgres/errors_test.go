package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

func TestMapError_Nil(t *testing.T) {
	t.Parallel()

	if got := MapError(nil, "merged_record", "item_Longsword|PHB"); got != nil {
		t.Errorf("MapError(nil) = %v, want nil", got)
	}
}

func TestMapError_NoRows(t *testing.T) {
	t.Parallel()

	got := MapError(pgx.ErrNoRows, "merged_record", "feat_Alert|PHB")
	if !errors.Is(got, domain.ErrNotFound) {
		t.Errorf("MapError(ErrNoRows) does not wrap domain.ErrNotFound: %v", got)
	}
	if want := "merged_record feat_Alert|PHB: not found"; got.Error() != want {
		t.Errorf("MapError(ErrNoRows).Error() = %q, want %q", got.Error(), want)
	}
}

func TestMapError_WrappedNoRows(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("scan row: %w", pgx.ErrNoRows)
	if got := MapError(wrapped, "collection", "featCollection"); !errors.Is(got, domain.ErrNotFound) {
		t.Errorf("MapError(wrapped ErrNoRows) does not wrap domain.ErrNotFound: %v", got)
	}
}

func TestMapError_PgCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"unique_violation", "23505", domain.ErrIdentityCollision},
		{"foreign_key_violation", "23503", domain.ErrUnresolvedReference},
		{"not_null_violation", "23502", domain.ErrInvalidRecord},
		{"check_violation", "23514", domain.ErrInvalidRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := MapError(&pgconn.PgError{Code: tt.code}, "merged_record", "item_Club|PHB")
			if !errors.Is(got, tt.wantErr) {
				t.Errorf("MapError(code %s) does not wrap %v: %v", tt.code, tt.wantErr, got)
			}
		})
	}
}

func TestMapError_WrappedPgError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("insert row: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key"})
	if got := MapError(wrapped, "merged_record", "x"); !errors.Is(got, domain.ErrIdentityCollision) {
		t.Errorf("MapError(wrapped 23505) does not wrap domain.ErrIdentityCollision: %v", got)
	}
}

func TestMapError_ContextErrors(t *testing.T) {
	t.Parallel()

	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		got := MapError(cause, "anomaly", "run")
		if !errors.Is(got, cause) {
			t.Errorf("MapError(%v) does not wrap the cause: %v", cause, got)
		}
		if errors.Is(got, domain.ErrNotFound) {
			t.Errorf("MapError(%v) should not wrap domain.ErrNotFound", cause)
		}
	}
}

func TestMapError_UnknownPgError(t *testing.T) {
	t.Parallel()

	got := MapError(&pgconn.PgError{Code: "42P01", Message: "relation does not exist"}, "merged_record", "x")

	var pgErr *pgconn.PgError
	if !errors.As(got, &pgErr) {
		t.Errorf("MapError(unknown PgError) does not wrap *pgconn.PgError: %v", got)
	}
	if errors.Is(got, domain.ErrIdentityCollision) || errors.Is(got, domain.ErrInvalidRecord) {
		t.Error("MapError(unknown PgError) should not map to a domain error")
	}
}

func TestMapError_UnknownError(t *testing.T) {
	t.Parallel()

	original := errors.New("something unexpected")
	got := MapError(original, "collection", "sources")
	if !errors.Is(got, original) {
		t.Errorf("MapError(unknown) does not wrap original error: %v", got)
	}
	if !strings.HasPrefix(got.Error(), "collection sources:") {
		t.Errorf("MapError message = %q, want prefix %q", got.Error(), "collection sources:")
	}
}
