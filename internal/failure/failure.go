// Package failure classifies portal errors so handlers can map them to a
// response without inspecting messages.
package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the error category.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is raised before any network call.
	KindValidation
	// KindUpload is a non-2xx from the object storage PUT.
	KindUpload
	// KindServer is a backend fetch failure or malformed envelope.
	KindServer
	// KindConfirmation is a backend failure while saving a training datapoint.
	KindConfirmation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUpload:
		return "upload"
	case KindServer:
		return "server"
	case KindConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// Error is a categorized failure. Status is the upstream HTTP status when
// there was one, zero otherwise.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a KindValidation error with a user-facing message.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Upload returns a KindUpload error.
func Upload(status int, message string, err error) *Error {
	return &Error{Kind: KindUpload, Status: status, Message: message, Err: err}
}

// Server returns a KindServer error.
func Server(status int, message string, err error) *Error {
	return &Error{Kind: KindServer, Status: status, Message: message, Err: err}
}

// Confirmation returns a KindConfirmation error.
func Confirmation(status int, message string, err error) *Error {
	return &Error{Kind: KindConfirmation, Status: status, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// StatusOf returns the upstream status carried by err, or zero.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}

// MessageOf returns the user-facing message of err. Non-categorized errors
// yield fallback so internal details are not shown to users.
func MessageOf(err error, fallback string) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return fallback
}

// HTTPStatus maps an error to the status the portal responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUpload, KindServer, KindConfirmation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
