package proxy

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidTarget is returned when the backend and request URI do not
	// form a valid origin URL.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrRetryExhausted is returned when all origin attempts failed.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// Kind classifies where in the request flow an error happened.
type Kind string

const (
	// KindTarget is a failure to build the outbound request.
	KindTarget Kind = "target"

	// KindStoreRead is a failed connection checkout or lookup.
	KindStoreRead Kind = "store_read"

	// KindOrigin is a failed origin round trip.
	KindOrigin Kind = "origin"

	// KindReconstruct is a stored response that cannot be turned back into
	// an HTTP response.
	KindReconstruct Kind = "reconstruct"

	// KindStoreWrite is a failed write. It is logged, never returned to clients.
	KindStoreWrite Kind = "store_write"

	// KindEncode is a response that cannot be serialized for storage.
	KindEncode Kind = "encode"
)

// Error is the error type produced by the request flow.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// WriteError writes the client-facing failure response. Every error maps to
// 500 Internal Server Error.
func WriteError(w http.ResponseWriter, err error) {
	http.Error(w, "Something went wrong: "+err.Error(), http.StatusInternalServerError)
}
