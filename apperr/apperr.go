// Package apperr defines the error kinds surfaced by the memory lane service.
// Every error carries an internal message for logs and a separate message that
// is safe to show to the user verbatim.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindFileUpload
	KindDatabase
	KindBusinessRule
)

const genericUserMessage = "Something went wrong"

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindValidation:    "validation",
	KindAuthorization: "authorization",
	KindNotFound:      "not_found",
	KindFileUpload:    "file_upload",
	KindDatabase:      "database",
	KindBusinessRule:  "business_rule",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// ErrNoSession is the cause of Authorization errors raised for anonymous callers
var ErrNoSession = errors.New("no session")

type Error struct {
	Kind        Kind
	Message     string
	UserMessage string
	Details     map[string]any
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With attaches a detail value and returns the same error
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// Wrap sets the underlying cause
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func newError(kind Kind, message, userMessage, fallback string) *Error {
	if userMessage == "" {
		userMessage = fallback
	}
	return &Error{Kind: kind, Message: message, UserMessage: userMessage}
}

func Validation(message, userMessage string) *Error {
	return newError(KindValidation, message, userMessage, "Validation failed")
}

func Authorization(message, userMessage string) *Error {
	return newError(KindAuthorization, message, userMessage, "You don't have permission to perform this action")
}

// Unauthenticated is an Authorization error for a caller without a session
func Unauthenticated() *Error {
	return Authorization("Unauthorized", "You must be logged in to access this resource").Wrap(ErrNoSession)
}

func NotFound(message, userMessage string) *Error {
	return newError(KindNotFound, message, userMessage, "The requested resource was not found")
}

func FileUpload(message, userMessage string) *Error {
	return newError(KindFileUpload, message, userMessage, "File upload failed")
}

func Database(message, userMessage string) *Error {
	return newError(KindDatabase, message, userMessage, "A database error occurred")
}

func BusinessRule(message, userMessage string) *Error {
	return newError(KindBusinessRule, message, userMessage, message)
}

// KindOf returns the kind of the first *Error in the chain, KindUnknown otherwise
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage falls back to a generic message for uncategorized errors
func UserMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	return genericUserMessage
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		if errors.Is(err, ErrNoSession) {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindFileUpload:
		return http.StatusBadGateway
	case KindBusinessRule:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
