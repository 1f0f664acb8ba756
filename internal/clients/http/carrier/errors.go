package carrier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies carrier API failures.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimited ErrorKind = "rate_limited"
	KindValidation  ErrorKind = "validation"
	KindAuth        ErrorKind = "auth"
	KindNotFound    ErrorKind = "not_found"
	KindServer      ErrorKind = "server"
	KindNetwork     ErrorKind = "network"
)

// Error is returned by every Client call that fails.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("carrier %s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("carrier %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the call may succeed when repeated.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindServer, KindNetwork:
		return true
	default:
		return false
	}
}

// IsKind reports whether err is a carrier Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var carrierErr *Error
	return errors.As(err, &carrierErr) && carrierErr.Kind == kind
}

func statusError(status int, message string) *Error {
	kind := KindServer
	switch {
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = KindTimeout
	case status >= 400 && status < 500:
		kind = KindValidation
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: kind, StatusCode: status, Message: message}
}

func transportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Message: err.Error(), Err: err}
	}
	return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
}
