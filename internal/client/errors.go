package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed call to the consultation service.
type ErrorKind string

const (
	// KindNetwork covers transport failures: DNS, refused connections, timeouts, truncated bodies.
	KindNetwork ErrorKind = "network"
	// KindServer covers non-2xx responses.
	KindServer ErrorKind = "server"
	// KindDecode covers responses that could not be parsed or lack required fields.
	KindDecode ErrorKind = "decode"
)

// Sentinel errors matching each ErrorKind.
// Use errors.Is() to check for these errors in calling code.
var (
	ErrNetwork = errors.New("network error")
	ErrServer  = errors.New("server error")
	ErrDecode  = errors.New("decode error")
)

// APIError describes a failed call to the consultation service.
type APIError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int    // set for KindServer
	Detail     string // server-provided detail or body excerpt
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Kind == KindServer && e.Detail != "":
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Detail)
	case e.Kind == KindServer:
		return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case KindNetwork:
		return target == ErrNetwork
	case KindServer:
		return target == ErrServer
	case KindDecode:
		return target == ErrDecode
	}
	return false
}

// KindOf extracts the ErrorKind from err, if it carries one.
func KindOf(err error) (ErrorKind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return "", false
}

func networkError(op string, err error) error {
	return &APIError{Op: op, Kind: KindNetwork, Err: err}
}

func decodeError(op string, err error) error {
	return &APIError{Op: op, Kind: KindDecode, Err: err}
}
