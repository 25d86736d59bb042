// Package apperr defines the error taxonomy shared by the availability and
// booking layers.  Every error surfaced to a caller is one of five kinds;
// handlers translate the kind into an HTTP status with HTTPStatus and render
// the message as {"error": "..."}.
package apperr

import (
	"errors"
	"net/http"
)

// Error kinds.  Match with errors.Is.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing business, booking, service or block.
	ErrNotFound = errors.New("not found")
	// ErrSlotUnavailable marks a requested start time that is no longer
	// computable as available.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrInvalidState marks a transition out of a terminal booking state.
	ErrInvalidState = errors.New("invalid state")
	// ErrStore marks a persistence failure.
	ErrStore = errors.New("store error")
)

// Error carries a kind, a caller-facing message and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Validation(msg string) error      { return &Error{Kind: ErrValidation, Msg: msg} }
func NotFound(msg string) error        { return &Error{Kind: ErrNotFound, Msg: msg} }
func SlotUnavailable(msg string) error { return &Error{Kind: ErrSlotUnavailable, Msg: msg} }
func InvalidState(msg string) error    { return &Error{Kind: ErrInvalidState, Msg: msg} }

// Store wraps a persistence failure.  The message shown to callers never
// includes the driver error; the cause is kept for logging.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: ErrStore, Msg: op + " failed", Err: err}
}

// HTTPStatus maps an error to the status code the HTTP layer responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing text for err.  Unclassified errors are
// reported generically.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Error()
	}
	return "internal server error"
}
