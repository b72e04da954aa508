package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can pick message text and recovery
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindAuthentication
	KindNotFound
	KindServer
	KindRequest
	KindEmptyResponse
	KindParse
	KindStreamFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network error"
	case KindAuthentication:
		return "authentication failed"
	case KindNotFound:
		return "not found"
	case KindServer:
		return "server error"
	case KindRequest:
		return "request rejected"
	case KindEmptyResponse:
		return "empty response"
	case KindParse:
		return "unexpected response format"
	case KindStreamFailure:
		return "stream failure"
	default:
		return "error"
	}
}

// Code returns the stable machine-readable code for the kind
func (k ErrorKind) Code() string {
	switch k {
	case KindNetwork:
		return "NETWORK_ERROR"
	case KindAuthentication:
		return "AUTH_FAILED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindServer:
		return "SERVER_ERROR"
	case KindRequest:
		return "REQUEST_REJECTED"
	case KindEmptyResponse:
		return "EMPTY_RESPONSE"
	case KindParse:
		return "PARSE_ERROR"
	case KindStreamFailure:
		return "STREAM_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is a classified failure from the snapshot fetcher or a stream session
type Error struct {
	Kind   ErrorKind
	Op     string // "snapshot" or "stream"
	Status int    // HTTP status, zero when no response was received
	Body   string // server-provided message, if any
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of status or body.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels for errors.Is
var (
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrServer         = &Error{Kind: KindServer}
	ErrRequest        = &Error{Kind: KindRequest}
	ErrEmptyResponse  = &Error{Kind: KindEmptyResponse}
	ErrParse          = &Error{Kind: KindParse}
	ErrStreamFailure  = &Error{Kind: KindStreamFailure}
)

// ErrCancelled reports an explicit cancellation. It is an outcome, not a failure.
var ErrCancelled = errors.New("cancelled")

// ErrNoTarget is returned by operations that need a selected target
var ErrNoTarget = errors.New("no log target selected")

// KindOf extracts the kind of a classified error, or KindUnknown
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// KindForStatus maps a non-2xx HTTP status onto the taxonomy. Statuses that
// are neither auth, not-found nor 5xx are reported as rejected requests.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == 401:
		return KindAuthentication
	case status == 404:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindRequest
	}
}
