// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload any
		key     string
		want    any
	}{
		{
			name:    "empty list",
			payload: []any{},
			key:     "applications",
			want:    map[string]any{"applications": []any{}, "count": 0},
		},
		{
			name:    "list of objects",
			payload: []any{map[string]any{"uuid": "a"}, map[string]any{"uuid": "b"}},
			key:     "servers",
			want: map[string]any{
				"servers": []any{map[string]any{"uuid": "a"}, map[string]any{"uuid": "b"}},
				"count":   2,
			},
		},
		{
			name:    "object is unchanged",
			payload: map[string]any{"data": []any{}},
			key:     "applications",
			want:    map[string]any{"data": []any{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(tt.payload, tt.key)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_CountMatchesItems(t *testing.T) {
	t.Parallel()

	for n := 0; n < 5; n++ {
		items := make([]any, n)
		got, ok := Normalize(items, "projects").(map[string]any)
		require.True(t, ok)
		assert.Len(t, got["projects"], got["count"].(int))
	}
}

func TestDecode_Invariant(t *testing.T) {
	t.Parallel()

	statuses := []int{
		http.StatusOK, http.StatusCreated, http.StatusNoContent,
		http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound,
		http.StatusUnprocessableEntity, http.StatusInternalServerError, http.StatusServiceUnavailable,
	}
	bodies := []string{"", "{}", "[]", `{"a":1}`, "null", "not json", `[1,2`}

	for _, status := range statuses {
		for _, body := range bodies {
			env := Decode(status, []byte(body))
			assertInvariant(t, env)
			assert.Equal(t, status, env.StatusCode)
			if status >= http.StatusBadRequest {
				assert.False(t, env.OK, "status %d body %q", status, body)
			}
		}
	}
}

func TestFailure_FallsBackToKind(t *testing.T) {
	t.Parallel()

	env := Failure(0, cerrors.ErrTransport, "  ")
	require.NotNil(t, env.Error)
	assert.Equal(t, cerrors.ErrTransport, env.Error.Message)

	env = Failure(http.StatusTeapot, "", "")
	assert.Equal(t, cerrors.ErrUpstreamHTTP, env.Error.Kind)
}

func TestEnvelope_Err(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Success(http.StatusOK, map[string]any{}, []byte("{}")).Err())

	err := Failure(http.StatusNotFound, cerrors.ErrNotFound, "Not found").Err()
	require.Error(t, err)
	assert.True(t, cerrors.IsNotFound(err))
}

func TestEnvelope_Get(t *testing.T) {
	t.Parallel()

	env := Decode(http.StatusOK, []byte(`{"settings":{"is_reachable":true},"name":"prod"}`))
	assert.True(t, env.Get("settings.is_reachable").Bool())
	assert.Equal(t, "prod", env.Get("name").String())

	failed := Decode(http.StatusNotFound, nil)
	assert.False(t, failed.Get("name").Exists())
}

func TestEnvelope_MarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Failure(http.StatusNotFound, cerrors.ErrNotFound, "Not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"status_code":404,"error":{"kind":"not_found","message":"Not found"}}`, string(data))
}

func TestRequest_WithQueryDoesNotMutate(t *testing.T) {
	t.Parallel()

	base := Get("/applications/a/logs").WithQuery("lines", "100")
	derived := base.WithQuery("lines", "5")

	assert.Equal(t, "100", base.Query.Get("lines"))
	assert.Equal(t, "5", derived.Query.Get("lines"))
}
