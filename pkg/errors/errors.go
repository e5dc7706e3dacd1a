// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the error kinds shared by the upstream clients,
// the tool handlers and the command line.
package errors

import (
	"errors"
	"fmt"
)

// Error kinds
const (
	// ErrTransport is returned when the upstream could not be reached
	// (timeout, refused connection, DNS failure, cancelled context).
	ErrTransport = "transport_error"

	// ErrUpstreamHTTP is returned when the upstream answered with a status >= 400.
	ErrUpstreamHTTP = "upstream_http_error"

	// ErrInvalidResponseBody is returned when a success response is not valid JSON.
	ErrInvalidResponseBody = "invalid_response_body"

	// ErrNotFound is returned when the upstream answered 404 or a lookup found nothing.
	ErrNotFound = "not_found"

	// ErrConfiguration is returned when required configuration is missing or invalid.
	ErrConfiguration = "configuration_error"

	// ErrInvalidRequest is returned when a request descriptor or tool argument is invalid.
	ErrInvalidRequest = "invalid_request"

	// ErrUnsupportedOperation is returned for operations the upstream API does not offer.
	ErrUnsupportedOperation = "unsupported_operation"
)

// Error represents an error in the application
type Error struct {
	// Kind is one of the Err* constants
	Kind string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *Error {
	return NewError(ErrNotFound, message, cause)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string, cause error) *Error {
	return NewError(ErrConfiguration, message, cause)
}

// NewInvalidRequestError creates a new invalid request error
func NewInvalidRequestError(message string, cause error) *Error {
	return NewError(ErrInvalidRequest, message, cause)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return KindOf(err) == ErrNotFound
}
