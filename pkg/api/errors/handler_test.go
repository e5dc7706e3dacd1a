// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stacklok/toolhive-core/httperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no error",
			wantStatus: http.StatusAccepted,
			wantBody:   "done",
		},
		{
			name:       "client error message is returned",
			err:        httperr.WithCode(errors.New("unknown tool \"nope\""), http.StatusNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   "unknown tool \"nope\"",
		},
		{
			name:       "wrapped client error",
			err:        fmt.Errorf("decoding: %w", httperr.WithCode(errors.New("bad json"), http.StatusBadRequest)),
			wantStatus: http.StatusBadRequest,
			wantBody:   "bad json",
		},
		{
			name:       "server error is hidden",
			err:        httperr.WithCode(errors.New("secret detail"), http.StatusBadGateway),
			wantStatus: http.StatusBadGateway,
			wantBody:   http.StatusText(http.StatusBadGateway),
		},
		{
			name:       "uncoded error is internal",
			err:        errors.New("secret detail"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   http.StatusText(http.StatusInternalServerError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := ErrorHandler(func(w http.ResponseWriter, _ *http.Request) error {
				if tt.err != nil {
					return tt.err
				}
				w.WriteHeader(http.StatusAccepted)
				_, _ = w.Write([]byte("done"))
				return nil
			})

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, strings.ToLower(rec.Body.String()), "secret")
		})
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusOK, map[string]any{"ok": true}))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, map[string]any{"ok": true}, got)
}
