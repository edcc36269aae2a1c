package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a request without a valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates an authenticated user lacking a permission.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicate indicates a uniqueness constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// InvariantError marks a mutation rejected by an admin safety rule, e.g.
// deleting the last admin user or a core permission. Handlers map it to a
// structured 409 response rather than a bare status code.
type InvariantError struct {
	Rule    string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s: %s", e.Rule, e.Message)
}

// NewInvariantError builds an InvariantError for the given rule.
func NewInvariantError(rule, format string, args ...any) *InvariantError {
	return &InvariantError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// IsInvariant reports whether err wraps an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// ValidationError carries field level messages for a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}
