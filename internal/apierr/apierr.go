// Package apierr is the tagged result type shared by the catalog, order
// replica, and front-end HTTP boundaries. Internal code returns an *Error
// (or nil); only the HTTP handler layer maps a kind to a status code, so
// the mapping lives in exactly one place per spec.md's design note on
// error propagation.
package apierr

import "fmt"

// Kind classifies why an operation failed.
type Kind int

const (
	// NotFound means the referenced instrument or transaction id is unknown.
	NotFound Kind = iota
	// Rejected means the request was well-formed but violates a domain
	// invariant (unknown transaction type, insufficient shares, zero quantity).
	Rejected
	// Upstream means a downstream component (catalog, leader, peer) could
	// not be reached or returned an unexpected failure.
	Upstream
)

// Error is a classified failure with an HTTP-protocol message attached.
// Message is the exact text the wire protocol expects to see echoed back
// to the client (see SPEC_FULL.md "SUPPLEMENTED FEATURES" for the literal
// strings carried over from the original implementation).
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewNotFound builds a NotFound error with the given message.
func NewNotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

// NewRejected builds a Rejected error with the given message.
func NewRejected(format string, args ...interface{}) *Error {
	return &Error{Kind: Rejected, Message: fmt.Sprintf(format, args...)}
}

// NewUpstream builds an Upstream error with the given message.
func NewUpstream(format string, args ...interface{}) *Error {
	return &Error{Kind: Upstream, Message: fmt.Sprintf(format, args...)}
}

// StatusCode maps a Kind to the HTTP status spec.md's wire protocol uses.
// NotFound -> 404, everything else -> 500: the protocol has no other
// status codes (spec.md §7).
func (e *Error) StatusCode() int {
	if e == nil {
		return 200
	}
	switch e.Kind {
	case NotFound:
		return 404
	default:
		return 500
	}
}

// As attempts to recover an *Error from a generic error value.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	e, ok := err.(*Error)
	return e, ok
}
