package core

import "fmt"

// ErrorCode classifies domain errors independently of the transport
// that reports them.
type ErrorCode int

const (
	ErrorCodeInternal ErrorCode = iota
	ErrorCodeInvalidArgument
	ErrorCodeNotFound
	ErrorCodeUnauthenticated
	ErrorCodePermissionDenied
	ErrorCodeDeadlineExceeded
	ErrorCodeResourceExhausted
	ErrorCodeUnavailable
	ErrorCodeGone
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeInvalidArgument:
		return "invalid_argument"
	case ErrorCodeNotFound:
		return "not_found"
	case ErrorCodeUnauthenticated:
		return "unauthenticated"
	case ErrorCodePermissionDenied:
		return "permission_denied"
	case ErrorCodeDeadlineExceeded:
		return "deadline_exceeded"
	case ErrorCodeResourceExhausted:
		return "resource_exhausted"
	case ErrorCodeUnavailable:
		return "unavailable"
	case ErrorCodeGone:
		return "gone"
	default:
		return "internal"
	}
}

// DomainError is an error carrying a domain-level code. Adapters wrap
// infrastructure errors (e.g. Kubernetes API statuses) in it so that
// callers can branch on Code without importing client libraries.
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return e.Code.String()
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// ErrInvalidInput indicates a domain-level input validation failure.
type ErrInvalidInput struct {
	Field   string
	Message string
}

func (e *ErrInvalidInput) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ErrUnexpectedStatus is the halt reason of a stream whose watch
// request was answered with a status other than 200 or 410.
type ErrUnexpectedStatus struct {
	Code int
}

func (e *ErrUnexpectedStatus) Error() string {
	return fmt.Sprintf("unexpected watch response status %d", e.Code)
}
