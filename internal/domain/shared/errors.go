package shared

import "errors"

// ErrorKind classifies a DomainError so callers can branch on the failure class
// without matching individual codes
type ErrorKind string

const (
	KindValidation  ErrorKind = "VALIDATION"           // Malformed input or broken account rule
	KindHierarchy   ErrorKind = "HIERARCHY"            // Cycle, cross-tenant parent, move under own descendant
	KindState       ErrorKind = "STATE"                // Operation not allowed in the current lifecycle state
	KindNotFound    ErrorKind = "NOT_FOUND"            // Referenced record does not exist in scope
	KindConcurrency ErrorKind = "CONCURRENCY_CONFLICT" // Optimistic lock failure, caller must retry
	KindTemplate    ErrorKind = "TEMPLATE"             // Chart template cannot be applied
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`

	// AlsoKind is a second kind whose sentinel this error also matches
	AlsoKind ErrorKind `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target matches this error.
// A target without a code matches every error of the same kind (or of AlsoKind).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind && (e.AlsoKind == "" || t.Kind != e.AlsoKind) {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewDomainError creates a new domain error of the given kind
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION error
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewHierarchyError creates a HIERARCHY error
func NewHierarchyError(code, message string) *DomainError {
	return NewDomainError(KindHierarchy, code, message)
}

// NewStateError creates a STATE error
func NewStateError(code, message string) *DomainError {
	return NewDomainError(KindState, code, message)
}

// NewNotFoundError creates a NOT_FOUND error
func NewNotFoundError(code, message string) *DomainError {
	return NewDomainError(KindNotFound, code, message)
}

// NewTemplateError creates a TEMPLATE error
func NewTemplateError(code, message string) *DomainError {
	return NewDomainError(KindTemplate, code, message)
}

// NewConcurrencyError creates a CONCURRENCY_CONFLICT error
func NewConcurrencyError(code, message string) *DomainError {
	return NewDomainError(KindConcurrency, code, message)
}

// Kind sentinels, usable with errors.Is to match any error of that kind
var (
	ErrValidation = &DomainError{Kind: KindValidation, Message: "Validation failed"}
	ErrHierarchy  = &DomainError{Kind: KindHierarchy, Message: "Invalid account hierarchy"}
	ErrState      = &DomainError{Kind: KindState, Message: "Operation not allowed in current state"}
	ErrTemplate   = &DomainError{Kind: KindTemplate, Message: "Chart template cannot be applied"}

	ErrNotFound            = &DomainError{Kind: KindNotFound, Message: "Resource not found"}
	ErrConcurrencyConflict = &DomainError{Kind: KindConcurrency, Message: "Resource was modified by another process"}
)

// KindOf returns the kind of a DomainError anywhere in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsNotFound reports whether err is any NOT_FOUND domain error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
