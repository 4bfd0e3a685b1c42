package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrNoHost is returned when a host operation runs without a host handler in scope.
	ErrNoHost = errors.New("no host effect handler in scope")

	// ErrEmptyEffect is returned when running the zero Effect.
	ErrEmptyEffect = errors.New("empty effect")

	ErrEnvVarNotFound  = errors.New("environment variable not found")
	ErrEndOfInput      = errors.New("end of input")
	ErrInvalidPath     = errors.New("invalid path")
	ErrNetworkDisabled = errors.New("network access disabled")
)

// HostError reports which host operation failed, and on which path if any.
type HostError struct {
	Op   string
	Path string
	Err  error
}

func (e *HostError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *HostError) Unwrap() error { return e.Err }

type RequestErrorKind int

const (
	RequestBadRequest RequestErrorKind = iota + 1
	RequestTimeout
	RequestNetwork
)

func (k RequestErrorKind) String() string {
	switch k {
	case RequestBadRequest:
		return "bad request"
	case RequestTimeout:
		return "timeout"
	case RequestNetwork:
		return "network error"
	default:
		return fmt.Sprintf("RequestErrorKind(%d)", int(k))
	}
}

// RequestError is the failure of SendRequest. A response with a non-2xx status is not an error.
type RequestError struct {
	Kind RequestErrorKind
	URL  string
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
