// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-net.

package api

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

// Common errors used across the library.
var (
	ErrSessionActive   = errors.New("session is active; configuration is read-only")
	ErrNotConnected    = errors.New("session is not connected")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrSocketClosed    = errors.New("socket is closed")
	ErrResolveEmpty    = errors.New("resolver returned no endpoints")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotSupported    = errors.New("operation not supported")
)

// ErrorCode represents specific error conditions in the library.
// Positive values carry the OS errno verbatim.
type ErrorCode int

const (
	ErrCodeOK       ErrorCode = 0
	ErrCodeInternal ErrorCode = -1
	ErrCodeResolve  ErrorCode = -2
	ErrCodeProtocol ErrorCode = -3
	ErrCodeClosed   ErrorCode = -4
	ErrCodeEOF      ErrorCode = -5
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WrapError builds a structured error from err, deriving its code.
func WrapError(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Code: CodeOf(err), Message: err.Error(), cause: err}
}

// WrapErrorCode builds a structured error from err with an explicit code.
func WrapErrorCode(code ErrorCode, err error) *Error {
	return &Error{Code: code, Message: err.Error(), cause: err}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the numeric error code of err.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return ErrorCode(errno)
	}
	switch {
	case errors.Is(err, io.EOF):
		return ErrCodeEOF
	case errors.Is(err, ErrSocketClosed):
		return ErrCodeClosed
	case errors.Is(err, ErrResolveEmpty):
		return ErrCodeResolve
	}
	return ErrCodeInternal
}
