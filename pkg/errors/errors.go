// Package errors provides structured error types for macroeco.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the numerical core, the workflow harness and the CLI
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The numerical core reports four kinds of failure:
//   - PRECONDITION_FAILED: community or sample invariants violated before any computation
//   - ROOT_FINDING: the beta solver could not bracket or converge on a root
//   - NUMERIC_INSTABILITY: a denominator vanished or a density became non-finite or non-positive
//   - INVALID_SAMPLE: a malformed empirical abundance sample
//
// Data plumbing (parameter files, survey tables, output paths) uses the
// INVALID_*, FILE_NOT_FOUND and PARAMS_MISSING codes.
//
// # Usage
//
//	err := errors.New(errors.ErrCodePrecondition, "S must be greater than 1, got %d", s)
//	if errors.Is(err, errors.ErrCodePrecondition) {
//	    // Skip this dataset
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeRootFinding, origErr, "solve beta for S=%d N=%d", s, n)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Numerical core errors
	ErrCodePrecondition       Code = "PRECONDITION_FAILED"
	ErrCodeRootFinding        Code = "ROOT_FINDING"
	ErrCodeNumericInstability Code = "NUMERIC_INSTABILITY"
	ErrCodeInvalidSample      Code = "INVALID_SAMPLE"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource errors
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"
	ErrCodeParamsMissing Code = "PARAMS_MISSING"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Numerical reports whether err belongs to the numerical core's taxonomy.
// Workflow callers use it to decide whether to skip a dataset or abort.
func Numerical(err error) bool {
	switch GetCode(err) {
	case ErrCodePrecondition, ErrCodeRootFinding, ErrCodeNumericInstability, ErrCodeInvalidSample:
		return true
	}
	return false
}
