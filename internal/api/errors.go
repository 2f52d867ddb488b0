package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork           = errors.New("network failure")
	ErrStatus            = errors.New("unexpected status")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnsuccessful      = errors.New("request not successful")
)

// User-facing messages. Every remote failure ends up as one of these unless
// the server supplied its own message.
const (
	MsgNetwork    = "Network error. Please check your connection."
	MsgUnauth     = "Please login to continue."
	MsgForbidden  = "You do not have permission to access this resource."
	MsgNotFound   = "Resource not found."
	MsgServer     = "Something went wrong. Please try again later."
	MsgValidation = "Please check your input and try again."
	MsgMalformed  = "Unexpected response from server."
	MsgUnknown    = "An unexpected error occurred."
)

// Error is the single shape every API failure is normalized into, whatever
// the transport failure looked like.
type Error struct {
	Op      string // e.g. "cart.add"
	Status  int    // HTTP status, 0 when no response was received
	Message string // human-readable, safe to show
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message extracts the human-readable message from any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgUnknown
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func statusMessage(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return MsgUnauth
	case status == http.StatusForbidden:
		return MsgForbidden
	case status == http.StatusNotFound:
		return MsgNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return MsgValidation
	case status >= 500:
		return MsgServer
	default:
		return MsgUnknown
	}
}
