// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerTokenMiddleware(t *testing.T) {
	t.Parallel()

	const token = "inbound-secret"

	tests := []struct {
		name          string
		path          string
		authHeader    string
		wantStatus    int
		wantChallenge bool
		wantReached   bool
	}{
		{
			name:        "health without header",
			path:        "/health",
			wantStatus:  http.StatusOK,
			wantReached: true,
		},
		{
			name:        "ping without header",
			path:        "/ping",
			wantStatus:  http.StatusOK,
			wantReached: true,
		},
		{
			name:        "readyz without header",
			path:        "/readyz",
			wantStatus:  http.StatusOK,
			wantReached: true,
		},
		{
			name:          "missing header",
			path:          "/tools/deploy_application",
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: true,
		},
		{
			name:          "malformed header",
			path:          "/mcp",
			authHeader:    "Token inbound-secret",
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: true,
		},
		{
			name:          "empty bearer",
			path:          "/mcp",
			authHeader:    "Bearer ",
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: true,
		},
		{
			name:       "wrong token",
			path:       "/tools/list_applications",
			authHeader: "Bearer not-the-secret",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "token prefix only",
			path:       "/tools/list_applications",
			authHeader: "Bearer inbound",
			wantStatus: http.StatusForbidden,
		},
		{
			name:        "exact token",
			path:        "/tools/list_applications",
			authHeader:  "Bearer " + token,
			wantStatus:  http.StatusOK,
			wantReached: true,
		},
		{
			name:       "health subpath is not exempt",
			path:       "/health/extra",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reached := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			})
			handler := BearerTokenMiddleware(token, HealthPaths...)(next)

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantReached, reached)
			if tt.wantChallenge {
				assert.Equal(t, `Bearer realm="coolify-mcp"`, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestBearerTokenMiddleware_EmptyTokenDisablesAuth(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := BearerTokenMiddleware("", HealthPaths...)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tools/deploy_application", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
