// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package coolify

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/renoblabs/coolify-mcp/pkg/cache"
	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
	"github.com/renoblabs/coolify-mcp/pkg/gateway/mocks"
)

const appList = `[
	{"uuid": "a1", "name": "api", "status": "running"},
	{"uuid": "b2", "name": "Frontend-Web", "status": "exited"},
	{"uuid": "api", "name": "shadow", "status": "running"}
]`

func ok(body string) gateway.Envelope {
	return gateway.Decode(http.StatusOK, []byte(body))
}

func newCachedClient(t *testing.T) (*Client, *mocks.MockDoer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	doer := mocks.NewMockDoer(ctrl)
	return New(doer, WithCache(cache.NewMemory(), time.Minute)), doer
}

func TestFindApplication(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		identifier string
		wantUUID   string
		wantErr    func(error) bool
	}{
		{name: "exact name wins over uuid", identifier: "api", wantUUID: "a1"},
		{name: "exact uuid", identifier: "b2", wantUUID: "b2"},
		{name: "case-insensitive substring", identifier: "frontend", wantUUID: "b2"},
		{name: "surrounding whitespace ignored", identifier: "  shadow ", wantUUID: "api"},
		{name: "missing", identifier: "nothing", wantErr: cerrors.IsNotFound},
		{name: "blank", identifier: " ", wantErr: func(err error) bool { return cerrors.KindOf(err) == cerrors.ErrInvalidRequest }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, doer := newCachedClient(t)
			doer.EXPECT().Do(gomock.Any(), gateway.Get("/applications")).Return(ok(appList)).MaxTimes(1)

			app, err := client.FindApplication(context.Background(), tt.identifier)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error kind: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUUID, app.UUID)
		})
	}
}

func TestFindApplication_UpstreamFailure(t *testing.T) {
	t.Parallel()

	client, doer := newCachedClient(t)
	doer.EXPECT().Do(gomock.Any(), gateway.Get("/applications")).
		Return(gateway.Failure(http.StatusUnauthorized, cerrors.ErrUpstreamHTTP, "Unauthenticated."))

	_, err := client.FindApplication(context.Background(), "api")
	require.Error(t, err)
	assert.True(t, cerrors.KindOf(err) == cerrors.ErrUpstreamHTTP)
	assert.Contains(t, err.Error(), "Unauthenticated.")
}

func TestApplicationCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, doer := newCachedClient(t)

	gomock.InOrder(
		doer.EXPECT().Do(gomock.Any(), gateway.Get("/applications")).Return(ok(appList)),
		doer.EXPECT().Do(gomock.Any(), gateway.Post("/applications/a1/restart", nil)).Return(ok(`{"message":"queued"}`)),
		doer.EXPECT().Do(gomock.Any(), gateway.Get("/applications")).Return(ok(appList)),
	)

	// The second lookup is served from the cache.
	_, err := client.FindApplication(ctx, "api")
	require.NoError(t, err)
	_, err = client.FindApplication(ctx, "frontend")
	require.NoError(t, err)

	// A write invalidates it.
	env := client.RestartApplication(ctx, "a1")
	require.True(t, env.OK)
	_, err = client.FindApplication(ctx, "api")
	require.NoError(t, err)
}

func TestApplicationCache_InvalidatedOnFailedWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, doer := newCachedClient(t)

	gomock.InOrder(
		doer.EXPECT().Do(gomock.Any(), gateway.Get("/applications")).Return(ok(appList)),
		doer.EXPECT().Do(gomock.Any(), gateway.Post("/applications/a1/stop", nil)).
			Return(gateway.Failure(http.StatusInternalServerError, cerrors.ErrUpstreamHTTP, "boom")),
		doer.EXPECT().Do(gomock.Any(), gateway.Get("/applications")).Return(ok(appList)),
	)

	_, err := client.FindApplication(ctx, "api")
	require.NoError(t, err)
	assert.False(t, client.StopApplication(ctx, "a1").OK)
	_, err = client.FindApplication(ctx, "api")
	require.NoError(t, err)
}

func TestListApplications_AlwaysFresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, doer := newCachedClient(t)
	doer.EXPECT().Do(gomock.Any(), gateway.Get("/applications")).Return(ok(`[]`)).Times(2)

	first := client.ListApplications(ctx)
	second := client.ListApplications(ctx)
	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, map[string]any{"applications": []any{}, "count": 0}, gateway.Normalize(first.Payload, "applications"))
}

func TestApplicationRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		call func(*Client) gateway.Envelope
		want gateway.Request
	}{
		{
			name: "get",
			call: func(c *Client) gateway.Envelope { return c.GetApplication(context.Background(), "a1") },
			want: gateway.Get("/applications/a1"),
		},
		{
			name: "deploy",
			call: func(c *Client) gateway.Envelope { return c.DeployApplication(context.Background(), "a1", true) },
			want: gateway.Post("/applications/a1/deploy", map[string]any{"force_rebuild": true}),
		},
		{
			name: "start",
			call: func(c *Client) gateway.Envelope { return c.StartApplication(context.Background(), "a1") },
			want: gateway.Post("/applications/a1/start", nil),
		},
		{
			name: "default log lines",
			call: func(c *Client) gateway.Envelope { return c.GetApplicationLogs(context.Background(), "a1", 0) },
			want: gateway.Request{Method: http.MethodGet, Path: "/applications/a1/logs", Query: url.Values{"lines": {"100"}}},
		},
		{
			name: "explicit log lines",
			call: func(c *Client) gateway.Envelope { return c.GetApplicationLogs(context.Background(), "a1", 25) },
			want: gateway.Request{Method: http.MethodGet, Path: "/applications/a1/logs", Query: url.Values{"lines": {"25"}}},
		},
		{
			name: "update",
			call: func(c *Client) gateway.Envelope {
				return c.UpdateApplication(context.Background(), "a1", map[string]any{"fqdn": "https://app.example.test"})
			},
			want: gateway.Patch("/applications/a1", map[string]any{"fqdn": "https://app.example.test"}),
		},
		{
			name: "uuid is path escaped",
			call: func(c *Client) gateway.Envelope { return c.GetApplication(context.Background(), "a/b") },
			want: gateway.Get("/applications/a%2Fb"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			doer := mocks.NewMockDoer(ctrl)
			doer.EXPECT().Do(gomock.Any(), tt.want).Return(ok(`{}`))

			assert.True(t, tt.call(New(doer)).OK)
		})
	}
}

func TestUpdateApplication_NoFields(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := New(mocks.NewMockDoer(ctrl))

	env := client.UpdateApplication(context.Background(), "a1", nil)
	assert.False(t, env.OK)
	assert.Equal(t, cerrors.ErrInvalidRequest, env.Error.Kind)
}

func TestCreateApplication_Unsupported(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := New(mocks.NewMockDoer(ctrl))

	env := client.CreateApplication(context.Background(), map[string]any{"name": "new"})
	assert.False(t, env.OK)
	assert.Equal(t, http.StatusNotImplemented, env.StatusCode)
	assert.True(t, cerrors.KindOf(env.Err()) == cerrors.ErrUnsupportedOperation)
}

func TestApplicationStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "running:healthy", ApplicationStatus(ok(`{"status":"running:healthy"}`)))
	assert.Equal(t, "exited", ApplicationStatus(ok(`{"data":{"status":"exited"}}`)))
	assert.Empty(t, ApplicationStatus(ok(`{}`)))
}
