package shared

import "errors"

// ErrorKind classifies domain errors into the categories callers branch on
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindForbidden       ErrorKind = "forbidden"
	KindDerivedArtifact ErrorKind = "derived_artifact"
	KindPersistence     ErrorKind = "persistence"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"-"`

	cause   error
	generic bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches by code. Generic kind sentinels (ErrNotFound, ErrConflict, ...)
// match every error of the same kind.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.generic {
		return t.Kind == e.Kind
	}
	return t.Code == e.Code
}

// WithCause returns a copy of the error carrying cause
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.generic = false
	cp.cause = cause
	return &cp
}

// NewDomainError creates a new validation-kind domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindValidation}
}

// NewNotFoundError creates a not-found error with a specific code
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindNotFound}
}

// NewConflictError creates a uniqueness/conflict error with a specific code
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindConflict}
}

// NewUnauthorizedError creates an authentication failure with a specific code
func NewUnauthorizedError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindUnauthorized}
}

// NewForbiddenError creates an access-policy violation error
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Code: ErrForbidden.Code, Message: message, Kind: KindForbidden}
}

// NewArtifactError creates a derived-artifact (PDF) error
func NewArtifactError(code, message string, cause error) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindDerivedArtifact, cause: cause}
}

// NewPersistenceError wraps a storage failure. The message never includes the cause.
func NewPersistenceError(message string, cause error) *DomainError {
	return &DomainError{Code: ErrPersistence.Code, Message: message, Kind: KindPersistence, cause: cause}
}

func sentinel(code, message string, kind ErrorKind) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: kind, generic: true}
}

// Common domain errors
var (
	ErrNotFound        = sentinel("NOT_FOUND", "Resource not found", KindNotFound)
	ErrConflict        = sentinel("CONFLICT", "Resource conflicts with an existing one", KindConflict)
	ErrInvalidInput    = sentinel("VALIDATION_ERROR", "Invalid input provided", KindValidation)
	ErrUnauthorized    = sentinel("UNAUTHORIZED", "Authentication required", KindUnauthorized)
	ErrForbidden       = sentinel("FORBIDDEN", "Access to this resource is forbidden", KindForbidden)
	ErrDerivedArtifact = sentinel("PDF_GENERATION_FAILED", "Document generation failed", KindDerivedArtifact)
	ErrPersistence     = sentinel("PERSISTENCE_ERROR", "A storage error occurred", KindPersistence)
)

// KindOf reports the kind of err. Errors that are not DomainErrors are
// treated as persistence failures so they never leak as client errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindPersistence
}

// AsDomainError extracts the outermost DomainError from err
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
