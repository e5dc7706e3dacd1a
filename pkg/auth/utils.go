// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Errors returned by ExtractBearerToken.
var (
	ErrAuthHeaderMissing       = errors.New("authorization header required")
	ErrInvalidAuthHeaderFormat = errors.New("invalid authorization header format, expected 'Bearer <token>'")
	ErrEmptyBearerToken        = errors.New("empty bearer token")
)

const bearerPrefix = "Bearer "

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-sensitively.
func ExtractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrAuthHeaderMissing
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthHeaderFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if strings.TrimSpace(token) == "" {
		return "", ErrEmptyBearerToken
	}

	return token, nil
}

// tokenBytes is the amount of entropy in a generated token.
const tokenBytes = 32

// GenerateToken returns a random URL-safe token suitable for MCP_AUTH_TOKEN.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
