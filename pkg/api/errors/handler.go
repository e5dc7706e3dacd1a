// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors provides HTTP error handling utilities for the REST tool routes.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"

	"github.com/renoblabs/coolify-mcp/pkg/logger"
)

// HandlerWithError is an HTTP handler that can return an error.
type HandlerWithError func(http.ResponseWriter, *http.Request) error

// ErrorHandler wraps a HandlerWithError and converts returned errors
// into HTTP responses.
//
// The status code comes from httperr.Code. 5xx errors are logged and answered
// with the generic status text; 4xx errors return the error message.
//
// Usage:
//
//	r.Post("/tools/{name}", apierrors.ErrorHandler(routes.callTool))
func ErrorHandler(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		code := httperr.Code(err)
		if code >= http.StatusInternalServerError {
			logger.Errorf("Internal server error: %v", err)
			http.Error(w, http.StatusText(code), code)
			return
		}

		http.Error(w, err.Error(), code)
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent, so the error can only be logged.
		logger.Warnf("Failed to encode JSON response: %v", err)
	}
	return nil
}
