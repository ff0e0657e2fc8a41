// Package errors provides the structured error type used across the
// normalization service. Every layer (stores, engine, HTTP interface) carries
// failures as *AppError so that codes survive wrapping and the API can map
// them to consistent responses.
package errors

import (
	"errors"
	"fmt"
)

// AppError is the canonical service error. It satisfies the standard error
// interface and supports errors.Is / errors.As / errors.Unwrap.
type AppError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is the human-readable description, suitable for API responses.
	Message string

	// Detail carries supplementary context (keys, store names) that aids
	// debugging without leaking internals to end users.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
// Format: "[<code>] <message>: <detail>", detail omitted when empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf constructs a fresh AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an AppError that wraps an existing error. If err is nil,
// Wrap returns nil so it can be used inline on call results.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError in err's chain,
// or ErrCodeInternal when none is present.
func GetCode(err error) ErrorCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeInternal
}

// IsStoreUnavailable reports whether err represents a store transport failure.
func IsStoreUnavailable(err error) bool {
	return IsCode(err, ErrCodeStoreUnavailable)
}

// IsValidation reports whether err represents a caller input problem.
func IsValidation(err error) bool {
	return IsCode(err, ErrCodeValidation) ||
		IsCode(err, ErrCodeEmptyCurieList) ||
		IsCode(err, ErrCodeUnknownConflation)
}
