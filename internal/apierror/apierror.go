// Package apierror provides standardized error values and response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the caller. The set is closed.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindStateConflict      Kind = "state_conflict"
	KindBusinessRule       Kind = "business_rule_violation"
	KindNotFound           Kind = "not_found"
	KindPersistenceFailure Kind = "persistence_failure"
)

// Error is the typed error every service operation returns for expected
// business conditions. Two Errors are equal under errors.Is when their Codes
// match, so callers compare against package-level sentinels.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by Code so that a sentinel compares equal to any copy of it
// carrying a more specific Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Withf returns a copy of the sentinel with a formatted human-readable message.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// Wrap returns a copy of the sentinel carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: cause}
}

func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindStateConflict, Code: code, Message: msg}
}

func BusinessRule(code, msg string) *Error {
	return &Error{Kind: KindBusinessRule, Code: code, Message: msg}
}

func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

// Persistence wraps an unexpected store failure.
func Persistence(op string, cause error) *Error {
	return &Error{Kind: KindPersistenceFailure, Code: "PersistenceFailure", Message: op, Err: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps an error Kind to its response status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation, KindBusinessRule:
		return http.StatusUnprocessableEntity
	case KindStateConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ── Response envelopes ──────────────────────────────────────────────────────

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Success   bool   `json:"success"`
	ErrorKind Kind   `json:"error_kind,omitempty"`
	Code      string `json:"code,omitempty"`
	Detail    string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// FromError builds the envelope for err. Persistence failures and unknown
// errors get a generic detail.
func FromError(err error) (int, *APIError) {
	e, ok := As(err)
	if !ok || e.Kind == KindPersistenceFailure {
		return http.StatusInternalServerError, &APIError{
			ErrorKind: KindPersistenceFailure,
			Code:      "PersistenceFailure",
			Detail:    "Error interno del servidor",
		}
	}
	return HTTPStatus(e.Kind), &APIError{ErrorKind: e.Kind, Code: e.Code, Detail: e.Message}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Success   bool              `json:"success"`
	ErrorKind Kind              `json:"error_kind"`
	Code      string            `json:"code"`
	Detail    string            `json:"detail"`
	Fields    map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{
		ErrorKind: KindValidation,
		Code:      "InvalidRequest",
		Detail:    "Error de validacion",
		Fields:    fields,
	}
}

// Envelope is the success wrapper.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func OK(data any) Envelope { return Envelope{Success: true, Data: data} }
