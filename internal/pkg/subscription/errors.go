package subscription

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind is the closed set of domain error categories. Handlers map kinds
// to HTTP statuses; they never match on message strings.
type ErrorKind string

const (
	KindUnauthorized     ErrorKind = "unauthorized"
	KindInvalidParameter ErrorKind = "invalid_parameter"
	KindInternal         ErrorKind = "error"
)

// Error is the single tagged error type raised by the subscription service.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a tagged domain error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError tags an underlying error with a domain kind and message.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func newError(kind ErrorKind, message string) *Error {
	return NewError(kind, message)
}

func wrapError(kind ErrorKind, message string, err error) *Error {
	return WrapError(kind, message, err)
}

// KindOf extracts the error kind, treating everything untagged as a server
// fault.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the domain message of a tagged error, or a generic one.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error kind to its HTTP status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindInvalidParameter:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
