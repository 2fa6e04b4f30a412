package sonarr

import (
	"errors"
	"fmt"
)

// Common errors. An *APIError matches the sentinel of its Kind with errors.Is.
var (
	// ErrTransport indicates Sonarr could not be reached (refused, DNS, reset)
	ErrTransport = errors.New("failed to connect to sonarr")
	// ErrTimeout indicates the request did not finish within its deadline
	ErrTimeout = errors.New("sonarr request timed out")
	// ErrUnauthorized indicates authentication failure
	ErrUnauthorized = errors.New("unauthorized: invalid API key")
	// ErrServer indicates any other non-2xx response
	ErrServer = errors.New("sonarr returned an error status")
	// ErrDecode indicates the response body was not the expected structure
	ErrDecode = errors.New("invalid response from sonarr")
)

// ErrorKind classifies a failed request
type ErrorKind int

const (
	KindTransport ErrorKind = iota + 1
	KindTimeout
	KindUnauthorized
	KindServer
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindTimeout:
		return ErrTimeout
	case KindUnauthorized:
		return ErrUnauthorized
	case KindServer:
		return ErrServer
	case KindDecode:
		return ErrDecode
	default:
		return nil
	}
}

// APIError represents a failed Sonarr API request
type APIError struct {
	Kind       ErrorKind
	Method     string
	Endpoint   string
	StatusCode int // zero when no response was received
	Body       string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := fmt.Sprintf("sonarr %s %s: %s", e.Method, e.Endpoint, e.Kind.sentinel())
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *APIError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.Kind == KindUnauthorized
}

// KindOf returns the kind of err, or zero if err is not an *APIError
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}
