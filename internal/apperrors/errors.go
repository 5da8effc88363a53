// Package apperrors defines the closed set of authentication failure
// kinds surfaced at the HTTP boundary. Middleware and handlers return
// *Error values; the response package maps each kind to its HTTP status
// and a safe message.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindNotLoggedIn
	KindInvalidLogin
	KindInvalidCsrfToken
	KindInvalidSession
	KindEncoding
	KindBadRequest
	KindNotFound
	KindForbidden
	KindConflict
	KindTooManyRequests
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthorized, KindNotLoggedIn, KindInvalidLogin:
		return http.StatusUnauthorized
	case KindInvalidCsrfToken, KindInvalidSession, KindBadRequest:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Status is the human-readable taxonomy name used in error bodies.
func (k Kind) Status() string {
	switch k {
	case KindUnauthorized:
		return "UnauthorizedError"
	case KindNotLoggedIn:
		return "NotLoggedInError"
	case KindInvalidLogin:
		return "InvalidLoginError"
	case KindInvalidCsrfToken:
		return "InvalidCsrfTokenError"
	case KindInvalidSession:
		return "InvalidSessionError"
	case KindEncoding:
		return "EncodingError"
	case KindBadRequest:
		return "BadRequestError"
	case KindNotFound:
		return "NotFoundError"
	case KindForbidden:
		return "ForbiddenError"
	case KindConflict:
		return "ConflictError"
	case KindTooManyRequests:
		return "TooManyRequestsError"
	default:
		return "InternalError"
	}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "not authorized"
	}
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NotLoggedIn() *Error {
	return &Error{Kind: KindNotLoggedIn, Message: "this action requires a logged in user"}
}

func InvalidLogin() *Error {
	return &Error{Kind: KindInvalidLogin, Message: "invalid username or password"}
}

func InvalidCsrfToken() *Error {
	return &Error{Kind: KindInvalidCsrfToken, Message: "invalid csrf token"}
}

func InvalidSession(message string) *Error {
	if message == "" {
		message = "session is not in a usable state"
	}
	return &Error{Kind: KindInvalidSession, Message: message}
}

func Encoding(err error) *Error {
	return &Error{Kind: KindEncoding, Message: "could not encode token claims", Err: err}
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func TooManyRequests(message string) *Error {
	if message == "" {
		message = "too many requests"
	}
	return &Error{Kind: KindTooManyRequests, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// From resolves any error to an *Error, wrapping unknown errors as
// internal so unexpected repository failures surface as 500s.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
