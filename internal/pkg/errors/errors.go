// Package errors provides the domain error taxonomy (spec §7).
//
// Import path: aibos-vmp/core/internal/pkg/errors
package errors

import (
	"errors"
	"fmt"
)

// Kind is one of the ten error kinds named by spec §7. Kinds, not names:
// callers branch on Kind, never on Code or Message text.
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindValidation      Kind = "VALIDATION"
	KindConflict        Kind = "CONFLICT"
	KindPrecondition    Kind = "PRECONDITION"
	KindStorage         Kind = "STORAGE"
	KindChain           Kind = "CHAIN"
	KindUnavailable     Kind = "UNAVAILABLE"
	KindInternal        Kind = "INTERNAL"
)

// Sentinel errors for comparing against ent/pgx errors before they are
// translated into an AppError at the service boundary.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// AppError is a structured application error carrying a taxonomy Kind, a
// machine-readable Code, a caller-safe Message, optional structured Details,
// and the wrapped underlying error (never serialized to the wire).
type AppError struct {
	Kind    Kind                   `json:"-"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError of the given kind.
func New(kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// Wrap wraps an existing error into an AppError of the given kind.
func Wrap(err error, kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Err: err}
}

// WithDetails attaches structured details and returns the same error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// Convenience constructors, one per kind.

func NotFound(code, message string) *AppError        { return New(KindNotFound, code, message) }
func Validation(code, message string) *AppError       { return New(KindValidation, code, message) }
func Conflict(code, message string) *AppError         { return New(KindConflict, code, message) }
func Precondition(code, message string) *AppError     { return New(KindPrecondition, code, message) }
func Unauthenticated(code, message string) *AppError  { return New(KindUnauthenticated, code, message) }
func Forbidden(code, message string) *AppError        { return New(KindForbidden, code, message) }
func Internal(code, message string) *AppError         { return New(KindInternal, code, message) }
func Storage(code, message string) *AppError          { return New(KindStorage, code, message) }
func Chain(code, message string) *AppError            { return New(KindChain, code, message) }
func Unavailable(code, message string) *AppError       { return New(KindUnavailable, code, message) }

// f-suffixed variants format a message around a lower-level error, used at
// the boundary where ent/pgx/storage-library errors are translated.

func NotFoundf(format string, args ...interface{}) *AppError {
	return New(KindNotFound, CodeNotFound, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...interface{}) *AppError {
	return New(KindValidation, CodeValidationFailed, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...interface{}) *AppError {
	return New(KindConflict, CodeConflict, fmt.Sprintf(format, args...))
}

func Preconditionf(format string, args ...interface{}) *AppError {
	return New(KindPrecondition, CodePreconditionFailed, fmt.Sprintf(format, args...))
}

func Internalf(format string, args ...interface{}) *AppError {
	return New(KindInternal, CodeInternal, fmt.Sprintf(format, args...))
}

func Storagef(format string, args ...interface{}) *AppError {
	return New(KindStorage, CodeStorageFailed, fmt.Sprintf(format, args...))
}

func Chainf(format string, args ...interface{}) *AppError {
	return New(KindChain, CodeChainFailed, fmt.Sprintf(format, args...))
}

func Unavailablef(format string, args ...interface{}) *AppError {
	return New(KindUnavailable, CodeUnavailable, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is (or wraps) an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
