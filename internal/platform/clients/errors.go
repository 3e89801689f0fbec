// Package clients holds the HTTP clients for the orchestrator's remote
// collaborators: identity resolution, the group service, and the external
// bank. Every call carries a bounded timeout; a timeout or transport
// failure surfaces as ErrUnavailable so sagas can compensate and tell the
// caller to retry.
package clients

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates the collaborator could not be reached in time.
var ErrUnavailable = errors.New("collaborator unavailable")

// RejectionError is a structured business-rule rejection from a remote
// collaborator, e.g. a bank limit.
type RejectionError struct {
	StatusCode int
	Code       string
	Detail     string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("collaborator rejected request (%d %s): %s", e.StatusCode, e.Code, e.Detail)
}

// ErrPhoneNotFound indicates no user owns the given phone number
type ErrPhoneNotFound struct {
	Phone string
}

func (e ErrPhoneNotFound) Error() string {
	return "no user found for phone number: " + e.Phone
}

// Is matches any ErrPhoneNotFound when the target carries no phone
func (e ErrPhoneNotFound) Is(target error) bool {
	t, ok := target.(ErrPhoneNotFound)
	if !ok {
		return false
	}
	return t.Phone == "" || e.Phone == t.Phone
}
