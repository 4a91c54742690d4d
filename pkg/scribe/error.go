package scribe

import (
	"errors"
	"fmt"
)

// Kind classifies a client failure.
type Kind string

// Failure kinds.
const (
	// KindNetwork is a transport-level failure: the request never produced
	// an HTTP response.
	KindNetwork Kind = "network"

	// KindProtocol is a malformed exchange with the transcription endpoint:
	// a non-success status or an undecodable response body.
	KindProtocol Kind = "protocol"

	// KindHTTPStatus is a non-2xx response from the summarization endpoint.
	KindHTTPStatus Kind = "http-status"

	// KindEmptyResponse is a success status whose body carried no usable
	// content field.
	KindEmptyResponse Kind = "empty-response"
)

// Error is a failed transcription or summarization request.
type Error struct {
	// Op is the operation that failed: "transcribe" or "summarize".
	Op string

	// Kind classifies the failure.
	Kind Kind

	// HTTPStatus is the response status code, if a response was received.
	HTTPStatus int

	// Msg is a short human-readable description.
	Msg string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	s := fmt.Sprintf("scribe: %s: %s (%s)", e.Op, e.Msg, e.Kind)
	if e.HTTPStatus != 0 {
		s += fmt.Sprintf(", http %d", e.HTTPStatus)
	}
	return s
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// AsError extracts *Error from an error.
//
// Example:
//
//	if e, ok := scribe.AsError(err); ok && e.Kind == scribe.KindNetwork {
//	    // endpoint unreachable
//	}
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
