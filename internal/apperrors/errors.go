package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	CodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	CodeMissingAmount      ErrorCode = "MISSING_AMOUNT"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeStudentNotFound    ErrorCode = "STUDENT_NOT_FOUND"
	CodePaymentNotFound    ErrorCode = "PAYMENT_NOT_FOUND"
	CodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	CodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"
	CodeGatewayRejected    ErrorCode = "GATEWAY_REJECTED"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeMethodNotAllowed   ErrorCode = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge    ErrorCode = "PAYLOAD_TOO_LARGE"
)

// AppError is the error type every layer returns when the failure should reach a client.
// Err carries the underlying cause for logs and is never serialised.
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError with the same code, so copies made by WithDetails/Wrap still
// satisfy errors.Is against the predefined values below.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, HTTPCode: httpCode}
}

// WithDetails returns a copy carrying details
func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Wrap returns a copy carrying err as the cause
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// WithMessage returns a copy with a different client-facing message
func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(&alias{Code: e.Code, Message: e.Message, Details: e.Details})
}

var (
	ErrValidationFailed   = New(CodeValidationFailed, "Validation failed", http.StatusBadRequest)
	ErrMissingAmount      = New(CodeMissingAmount, "Amount required for this fee type.", http.StatusBadRequest)
	ErrUnauthorized       = New(CodeUnauthorized, "Authentication required", http.StatusUnauthorized)
	ErrStudentNotFound    = New(CodeStudentNotFound, "Student not found.", http.StatusNotFound)
	ErrPaymentNotFound    = New(CodePaymentNotFound, "Payment record not found.", http.StatusNotFound)
	ErrUserNotFound       = New(CodeUserNotFound, "User not found.", http.StatusNotFound)
	ErrGatewayUnavailable = New(CodeGatewayUnavailable, "Payment gateway is unavailable, please retry.", http.StatusBadGateway)
	ErrGatewayRejected    = New(CodeGatewayRejected, "Payment gateway rejected the transaction.", http.StatusBadRequest)
	ErrInternal           = New(CodeInternalError, "Internal server error", http.StatusInternalServerError)
)

// ValidationError builds a 400 with per-field or free-form details
func ValidationError(details interface{}) *AppError {
	return ErrValidationFailed.WithDetails(details)
}

// InternalError hides err behind a generic 500
func InternalError(err error) *AppError {
	return ErrInternal.Wrap(err)
}

// From returns err as an *AppError, wrapping anything unknown as an internal error
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err)
}
