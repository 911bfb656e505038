package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrReference      ErrorType = "REFERENCE_ERROR"
	ErrState          ErrorType = "STATE_ERROR"
	ErrValueRange     ErrorType = "VALUE_RANGE_ERROR"
	ErrAvailability   ErrorType = "AVAILABILITY_ERROR"
	ErrInputFormat    ErrorType = "INPUT_FORMAT_ERROR"
	ErrGuardPaused    ErrorType = "GUARD_PAUSED"
	ErrAuthFailed     ErrorType = "AUTH_FAILED"
	ErrInvalidRequest ErrorType = "INVALID_REQUEST"
	ErrInternal       ErrorType = "INTERNAL_ERROR"
	ErrNotFound       ErrorType = "NOT_FOUND"
	ErrUpstream       ErrorType = "UPSTREAM_ERROR"
)

// AppError is the standard error struct for the application.
// Code names the specific failure condition; Type groups it for transport mapping.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on Code so annotated copies of a sentinel still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Code:       string(errType),
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

// Define declares a named failure condition.
func Define(errType ErrorType, code, msg string) *AppError {
	e := New(errType, msg, nil)
	e.Code = code
	return e
}

// Withf returns a copy of e carrying extra detail in its message.
func (e *AppError) Withf(format string, args ...any) *AppError {
	cp := *e
	cp.Message = e.Message + ": " + fmt.Sprintf(format, args...)
	return &cp
}

// WithCause returns a copy of e wrapping cause.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewUpstream(msg string, cause error) *AppError {
	return New(ErrUpstream, msg, cause)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrReference, ErrValueRange, ErrInputFormat, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrState:
		return http.StatusConflict
	case ErrAvailability:
		return http.StatusUnprocessableEntity
	case ErrGuardPaused:
		return http.StatusServiceUnavailable
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrReference:
		return "Provide a non-zero address."
	case ErrValueRange:
		return "Check amounts, prices and rates."
	case ErrInputFormat:
		return "Names may only contain a-z and 0-9."
	case ErrGuardPaused:
		return "Wait for the operator to unpause registrations."
	case ErrAuthFailed:
		return "Check caller address and signature."
	case ErrUpstream:
		return "Retry the request."
	default:
		return ""
	}
}
