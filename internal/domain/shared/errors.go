package shared

import "fmt"

// ErrorCode classifies operation outcomes across service boundaries
type ErrorCode string

const (
	CodeValidation              ErrorCode = "VALIDATION"
	CodeInsufficientFunds       ErrorCode = "INSUFFICIENT_FUNDS"
	CodeNotFound                ErrorCode = "NOT_FOUND"
	CodeConflict                ErrorCode = "CONFLICT"
	CodeCollaboratorUnavailable ErrorCode = "COLLABORATOR_UNAVAILABLE"
	CodeCollaboratorRejected    ErrorCode = "COLLABORATOR_REJECTED"
	CodeInternal                ErrorCode = "INTERNAL"

	// CodeNeedsReconciliation marks outcomes where money moved but
	// bookkeeping did not complete. Never surfaced to clients as a
	// retryable error.
	CodeNeedsReconciliation ErrorCode = "NEEDS_RECONCILIATION"
)

// OpError is the error type operations return across the orchestrator
// boundary. Detail is safe to surface to the caller.
type OpError struct {
	Code   ErrorCode
	Detail string
	Cause  error
}

func (e *OpError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *OpError) Unwrap() error {
	return e.Cause
}

// Is matches on the error code so callers can test taxonomy membership
// with errors.Is(err, &OpError{Code: CodeNotFound}).
func (e *OpError) Is(target error) bool {
	t, ok := target.(*OpError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewOpError builds a taxonomy error without an underlying cause.
func NewOpError(code ErrorCode, detail string) *OpError {
	return &OpError{Code: code, Detail: detail}
}

// WrapOpError builds a taxonomy error around an underlying cause.
func WrapOpError(code ErrorCode, detail string, cause error) *OpError {
	return &OpError{Code: code, Detail: detail, Cause: cause}
}
