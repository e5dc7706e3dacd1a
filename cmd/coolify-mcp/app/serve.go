// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/renoblabs/coolify-mcp/pkg/auth"
	"github.com/renoblabs/coolify-mcp/pkg/config"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
	mcpserver "github.com/renoblabs/coolify-mcp/pkg/mcp/server"
	"github.com/renoblabs/coolify-mcp/pkg/versions"
)

const closeTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var generateToken bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP tool server",
		Long: `Start the MCP tool server.

With --transport stdio the server speaks MCP over stdin and stdout, which is how
desktop MCP clients launch it. With --transport http it serves:

  /mcp            streamable HTTP MCP endpoint
  /sse, /message  SSE MCP endpoints
  /tools          tool listing, and POST /tools/{name} to call a tool
  /metrics        Prometheus metrics
  /health, /ping, /readyz  unauthenticated health checks

Set MCP_AUTH_TOKEN to require "Authorization: Bearer <token>" on every HTTP
route except the health checks.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), generateToken)
		},
	}

	cmd.Flags().String("transport", config.TransportHTTP, "Transport to serve: stdio or http")
	cmd.Flags().String("host", config.DefaultHost, "Host to listen on for the http transport")
	cmd.Flags().Int("port", config.DefaultPort, "Port to listen on for the http transport")
	cmd.Flags().BoolVar(&generateToken, "generate-auth-token", false,
		"Generate a random bearer token when MCP_AUTH_TOKEN is not set")

	bindFlags(cmd.Flags(), map[string]string{
		config.KeyServerTransport: "transport",
		config.KeyServerHost:      "host",
		config.KeyServerPort:      "port",
	})
	return cmd
}

// bindFlags binds each named flag to its viper key.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			logger.Errorf("Error binding %s flag: %v", name, err)
		}
	}
}

func runServe(ctx context.Context, generateToken bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Server.AuthToken == "" && generateToken && cfg.Server.Transport == config.TransportHTTP {
		token, err := auth.GenerateToken()
		if err != nil {
			return err
		}
		cfg.Server.AuthToken = token
		logger.Infow("Generated bearer token for this run", "token", token)
	}

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			logger.Warnf("Failed to release resources: %v", err)
		}
	}()

	srv := mcpserver.New(mcpserver.Config{
		Name:      mcpserver.DefaultName,
		Version:   versions.GetVersionInfo().Version,
		Transport: cfg.Server.Transport,
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		AuthToken: cfg.Server.AuthToken,
	}, rt.handler(), mcpserver.WithMetricsEndpoint(rt.recorder))

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
