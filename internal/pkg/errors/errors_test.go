package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(KindNotFound, "CASE_NOT_FOUND", "case not found"),
			want: "CASE_NOT_FOUND: case not found",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("db error"), KindInternal, "DB_ERROR", "database failure"),
			want: "DB_ERROR: database failure: db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(inner, KindInternal, "CODE", "msg")

	if !errors.Is(appErr, inner) {
		t.Error("errors.Is should match inner error")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("NOT_FOUND", "resource not found")
	wrapped := fmt.Errorf("wrapped: %w", appErr)

	got, ok := IsAppError(wrapped)
	if !ok {
		t.Fatal("IsAppError should return true for wrapped AppError")
	}
	if got.Code != "NOT_FOUND" {
		t.Errorf("Code = %q, want NOT_FOUND", got.Code)
	}
	if got.Kind != KindNotFound {
		t.Errorf("Kind = %q, want %q", got.Kind, KindNotFound)
	}
}

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		kind       Kind
		wantStatus int
	}{
		{"Validation", KindValidation, http.StatusBadRequest},
		{"Unauthenticated", KindUnauthenticated, http.StatusUnauthorized},
		{"NotFound", KindNotFound, http.StatusNotFound},
		{"Forbidden", KindForbidden, http.StatusForbidden},
		{"Conflict", KindConflict, http.StatusConflict},
		{"Precondition", KindPrecondition, http.StatusPreconditionFailed},
		{"Unavailable", KindUnavailable, http.StatusServiceUnavailable},
		{"Storage", KindStorage, http.StatusInternalServerError},
		{"Chain", KindChain, http.StatusInternalServerError},
		{"Internal", KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindHTTPStatus(tt.kind); got != tt.wantStatus {
				t.Errorf("KindHTTPStatus(%s) = %d, want %d", tt.kind, got, tt.wantStatus)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantKind Kind
	}{
		{"NotFound", NotFound("NF", "not found"), KindNotFound},
		{"Validation", Validation("BR", "bad request"), KindValidation},
		{"Unauthenticated", Unauthenticated("UA", "unauthenticated"), KindUnauthenticated},
		{"Forbidden", Forbidden("FB", "forbidden"), KindForbidden},
		{"Conflict", Conflict("CF", "conflict"), KindConflict},
		{"Internal", Internal("IE", "internal"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.wantKind)
			}
		})
	}
}
