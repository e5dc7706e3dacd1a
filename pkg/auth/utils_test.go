// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		authHeader    string
		expectedToken string
		expectedError error
	}{
		{
			name:          "valid_bearer_token",
			authHeader:    "Bearer s3cr3t-token",
			expectedToken: "s3cr3t-token",
		},
		{
			name:          "missing_authorization_header",
			authHeader:    "",
			expectedError: ErrAuthHeaderMissing,
		},
		{
			name:          "invalid_format_no_bearer_prefix",
			authHeader:    "s3cr3t-token",
			expectedError: ErrInvalidAuthHeaderFormat,
		},
		{
			name:          "lowercase_bearer",
			authHeader:    "bearer s3cr3t-token",
			expectedError: ErrInvalidAuthHeaderFormat,
		},
		{
			name:          "empty_token_after_prefix",
			authHeader:    "Bearer ",
			expectedError: ErrEmptyBearerToken,
		},
		{
			name:          "empty_token_with_trailing_spaces",
			authHeader:    "Bearer    ",
			expectedError: ErrEmptyBearerToken,
		},
		{
			name:          "token_with_spaces_valid_per_rfc",
			authHeader:    "Bearer token with spaces",
			expectedToken: "token with spaces",
		},
		{
			name:          "basic_auth_instead_of_bearer",
			authHeader:    "Basic dXNlcjpwYXNz",
			expectedError: ErrInvalidAuthHeaderFormat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/tools", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			token, err := ExtractBearerToken(req)

			if tc.expectedError != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.expectedError), "Expected error %v, got %v", tc.expectedError, err)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedToken, token)
		})
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, tokenBytes)
}
