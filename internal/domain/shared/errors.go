package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// kind links a constructed error back to one of the sentinels below
	kind *DomainError
	err  error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.err
}

// Is reports whether target is this error or the sentinel it was built from
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e == t {
		return true
	}
	return e.kind != nil && e.kind == t
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("CONFLICT", "Resource already exists")
	ErrInvalidInput        = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// NewValidationError creates a VALIDATION_ERROR that matches ErrInvalidInput
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: ErrInvalidInput.Code, Message: message, kind: ErrInvalidInput}
}

// NewNotFoundError creates a NOT_FOUND error that matches ErrNotFound
func NewNotFoundError(message string) *DomainError {
	return &DomainError{Code: ErrNotFound.Code, Message: message, kind: ErrNotFound}
}

// NewConflictError creates a CONFLICT error that matches ErrAlreadyExists
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: ErrAlreadyExists.Code, Message: message, kind: ErrAlreadyExists}
}

// NewInvalidStateError creates an INVALID_STATE error that matches ErrInvalidState
func NewInvalidStateError(message string) *DomainError {
	return &DomainError{Code: ErrInvalidState.Code, Message: message, kind: ErrInvalidState}
}

// WrapConflict creates a CONFLICT error carrying the store error as its cause
func WrapConflict(message string, cause error) *DomainError {
	return &DomainError{Code: ErrAlreadyExists.Code, Message: message, kind: ErrAlreadyExists, err: cause}
}

// IsNotFound reports whether err is a NOT_FOUND domain error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a VALIDATION_ERROR domain error
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConflict reports whether err is a CONFLICT domain error
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// ErrorCode extracts the domain error code, or "" for non-domain errors
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
