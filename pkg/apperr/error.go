package apperr

import (
	"errors"
	"fmt"
)

// AppError is a classified error carrying a taxonomy code and optional
// structured details surfaced to API clients.
type AppError struct {
	code    string
	message string
	err     error
	details map[string]any
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

func (e *AppError) Message() string {
	return e.message
}

func (e *AppError) Details() map[string]any {
	return e.details
}

func (e *AppError) Unwrap() error {
	return e.err
}

func New(code, message string) *AppError {
	return &AppError{code: code, message: message}
}

func Wrap(code, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

// WithDetail returns a copy of e with key set in its details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	details := make(map[string]any, len(e.details)+1)
	for k, v := range e.details {
		details[k] = v
	}
	details[key] = value
	return &AppError{code: e.code, message: e.message, err: e.err, details: details}
}

// CodeOf returns the taxonomy code of err, or ErrInternal when err is not
// classified.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.code
	}
	return ErrInternal
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.code == code
	}
	return false
}

func NotFound(entity string) *AppError {
	return New(ErrNotFound, fmt.Sprintf("%s not found", entity))
}

func Forbidden(message string) *AppError {
	return New(ErrForbidden, message)
}

func Unauthorized(message string) *AppError {
	return New(ErrUnauthorized, message)
}

func Validation(fields map[string]string) *AppError {
	e := New(ErrValidation, "Validation failed")
	e.details = map[string]any{}
	for k, v := range fields {
		e.details[k] = v
	}
	return e
}

func InvalidTransition(from, to string) *AppError {
	return New(ErrInvalidTransition, fmt.Sprintf("cannot transition booking from %s to %s", from, to)).
		WithDetail("from", from).
		WithDetail("to", to)
}

func InvalidState(message string) *AppError {
	return New(ErrInvalidState, message)
}

func NotVerified(message string) *AppError {
	return New(ErrNotVerified, message)
}

func PaymentNotSuccessful(gatewayStatus string) *AppError {
	return New(ErrPaymentNotSuccessful, "Payment not successful").
		WithDetail("gateway_status", gatewayStatus)
}

func PaymentGateway(err error) *AppError {
	return Wrap(ErrPaymentGateway, "payment gateway error", err)
}

func DuplicateKey(message string) *AppError {
	return New(ErrDuplicateKey, message)
}

func Conflict(message string) *AppError {
	return New(ErrConflict, message)
}

func Internal(message string, err error) *AppError {
	return Wrap(ErrInternal, message, err)
}
