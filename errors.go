// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error categories for session operations.
type ErrorCode int

const (
	// ErrProtocol indicates a protocol-level error.
	ErrProtocol ErrorCode = iota
	// ErrAuthentication indicates an authentication failure.
	ErrAuthentication
	// ErrEncoding indicates an encoding/decoding error.
	ErrEncoding
	// ErrNetwork indicates a network-related error.
	ErrNetwork
	// ErrConfiguration indicates a configuration error.
	ErrConfiguration
	// ErrTimeout indicates a timeout error.
	ErrTimeout
	// ErrValidation indicates input validation failure.
	ErrValidation
	// ErrUnsupported indicates an unsupported feature or operation.
	ErrUnsupported
	// ErrFormat indicates a malformed recording header or frame.
	ErrFormat
	// ErrInvalidState indicates an operation invoked outside its required session state.
	ErrInvalidState
	// ErrInvalidOperation indicates an operation that is not valid at this point,
	// such as authenticating twice for the same challenge.
	ErrInvalidOperation
	// ErrArgument indicates a missing or out-of-range argument.
	ErrArgument
	// ErrCanceled indicates the user abandoned the operation.
	ErrCanceled
)

// String returns the string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrProtocol:
		return "protocol"
	case ErrAuthentication:
		return "authentication"
	case ErrEncoding:
		return "encoding"
	case ErrNetwork:
		return "network"
	case ErrConfiguration:
		return "configuration"
	case ErrTimeout:
		return "timeout"
	case ErrValidation:
		return "validation"
	case ErrUnsupported:
		return "unsupported"
	case ErrFormat:
		return "format"
	case ErrInvalidState:
		return "invalid state"
	case ErrInvalidOperation:
		return "invalid operation"
	case ErrArgument:
		return "argument"
	case ErrCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// VNCError provides structured error information with operation context,
// error codes, and message wrapping.
type VNCError struct {
	Op      string
	Code    ErrorCode
	Message string
	Err     error
}

// Error returns the formatted error message.
func (e *VNCError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vnc %s: %s: %s: %v", e.Code.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("vnc %s: %s: %s", e.Code.String(), e.Op, e.Message)
}

// Unwrap returns the underlying error for error chain unwrapping.
func (e *VNCError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target error.
func (e *VNCError) Is(target error) bool {
	var vncErr *VNCError
	if errors.As(target, &vncErr) {
		return e.Code == vncErr.Code && e.Op == vncErr.Op
	}
	return false
}

// NewVNCError creates a new VNCError with the specified parameters.
func NewVNCError(op string, code ErrorCode, message string, err error) *VNCError {
	return &VNCError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapError wraps an existing error with operation context.
// Returns nil if the input error is nil.
func WrapError(op string, code ErrorCode, message string, err error) error {
	if err == nil {
		return nil
	}
	return NewVNCError(op, code, message, err)
}

// IsVNCError checks if an error is a VNCError and optionally matches specific error codes.
// If no codes are provided, returns true for any VNCError.
func IsVNCError(err error, code ...ErrorCode) bool {
	var vncErr *VNCError
	if !errors.As(err, &vncErr) {
		return false
	}

	if len(code) == 0 {
		return true
	}

	for _, c := range code {
		if vncErr.Code == c {
			return true
		}
	}
	return false
}

// GetErrorCode extracts the error code from a VNCError.
// Returns -1 if the error is not a VNCError.
func GetErrorCode(err error) ErrorCode {
	var vncErr *VNCError
	if errors.As(err, &vncErr) {
		return vncErr.Code
	}
	return ErrorCode(-1)
}

func protocolError(op, message string, err error) error {
	return NewVNCError(op, ErrProtocol, message, err)
}

func authenticationError(op, message string, err error) error {
	return NewVNCError(op, ErrAuthentication, message, err)
}

func encodingError(op, message string, err error) error {
	return NewVNCError(op, ErrEncoding, message, err)
}

func networkError(op, message string, err error) error {
	return NewVNCError(op, ErrNetwork, message, err)
}

func configurationError(op, message string, err error) error {
	return NewVNCError(op, ErrConfiguration, message, err)
}

func validationError(op, message string, err error) error {
	return NewVNCError(op, ErrValidation, message, err)
}

func unsupportedError(op, message string, err error) error {
	return NewVNCError(op, ErrUnsupported, message, err)
}

// formatError reports a malformed FBS recording.
func formatError(op, message string, err error) error {
	return NewVNCError(op, ErrFormat, message, err)
}

func invalidStateError(op, message string) error {
	return NewVNCError(op, ErrInvalidState, message, nil)
}

func invalidOperationError(op, message string) error {
	return NewVNCError(op, ErrInvalidOperation, message, nil)
}

func argumentError(op, message string) error {
	return NewVNCError(op, ErrArgument, message, nil)
}

func canceledError(op, message string) error {
	return NewVNCError(op, ErrCanceled, message, nil)
}
