// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package auth gates the tool server's HTTP surface behind a single static
// bearer token.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/renoblabs/coolify-mcp/pkg/logger"
)

// Realm is reported in the WWW-Authenticate challenge.
const Realm = "coolify-mcp"

// HealthPaths are exempt from authentication.
var HealthPaths = []string{"/health", "/ping", "/readyz"}

// BearerTokenMiddleware returns middleware that requires "Authorization: Bearer <token>"
// on every path except the exempt ones.
//
// A missing or malformed header is answered with 401 and a challenge; a well
// formed header carrying the wrong token is answered with 403. An empty token
// disables the check.
func BearerTokenMiddleware(token string, exempt ...string) func(http.Handler) http.Handler {
	exemptSet := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		exemptSet[p] = struct{}{}
	}
	expected := []byte(token)
	challenge := fmt.Sprintf(`Bearer realm="%s"`, Realm)

	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptSet[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			presented, err := ExtractBearerToken(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
				logger.Debugw("rejected request with invalid bearer token", "path", r.URL.Path, "remote", r.RemoteAddr)
				http.Error(w, "invalid bearer token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
