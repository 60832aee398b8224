package domain

import (
	"errors"
)

// Common domain errors
var (
	ErrShareNotFound               = errors.New("share not found")
	ErrShareUnavailable            = errors.New("share is no longer available")
	ErrAccessLimitReached          = errors.New("access limit reached")
	ErrInvalidPassword             = errors.New("invalid password")
	ErrDirectoryDownloadNotAllowed = errors.New("directory download not allowed")
	ErrInvalidInput                = errors.New("invalid input")
	ErrInvalidPath                 = errors.New("invalid path")
	ErrInternal                    = errors.New("internal error")
)

// Security policy rejection reasons. Each maps 1:1 to a policy gate in the
// security evaluator.
const (
	ReasonRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ReasonIPNotAllowed      = "IP_NOT_ALLOWED"
	ReasonIPBlocked         = "IP_BLOCKED"
	ReasonInvalidReferrer   = "INVALID_REFERRER"
	ReasonInvalidCSRFToken  = "INVALID_CSRF_TOKEN"
)

// SecurityViolation is returned when a request fails one of the security
// policy gates. Reason is a stable machine-readable code.
type SecurityViolation struct {
	Reason string
}

// Error returns a human-readable message for the violation
func (e *SecurityViolation) Error() string {
	switch e.Reason {
	case ReasonRateLimitExceeded:
		return "Rate limit exceeded"
	case ReasonIPNotAllowed:
		return "IP address not allowed"
	case ReasonIPBlocked:
		return "IP address blocked"
	case ReasonInvalidReferrer:
		return "Invalid referrer"
	case ReasonInvalidCSRFToken:
		return "Invalid CSRF token"
	}
	return "Security policy violation"
}

// NewSecurityViolation creates a violation with the given reason code
func NewSecurityViolation(reason string) *SecurityViolation {
	return &SecurityViolation{Reason: reason}
}

// AsSecurityViolation returns the violation reason if err is a security
// policy rejection
func AsSecurityViolation(err error) (*SecurityViolation, bool) {
	var sv *SecurityViolation
	if errors.As(err, &sv) {
		return sv, true
	}
	return nil, false
}

// ValidationError reports malformed request input as a structured list of
// per-field problems.
type ValidationError struct {
	Fields map[string]string
}

// Error returns the error message
func (e *ValidationError) Error() string {
	return "validation failed"
}

// Unwrap makes ValidationError match ErrInvalidInput via errors.Is
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a validation error from field problems
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}
