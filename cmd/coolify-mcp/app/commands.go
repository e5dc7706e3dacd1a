// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the coolify-mcp command-line application.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/renoblabs/coolify-mcp/pkg/config"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
	"github.com/renoblabs/coolify-mcp/pkg/versions"
)

// NewRootCmd creates a new root command for the coolify-mcp CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "coolify-mcp",
		DisableAutoGenTag: true,
		Short:             "MCP tool server for Coolify deployments and Cloudflare DNS",
		Long: `coolify-mcp exposes the Coolify deployment API and Cloudflare DNS and tunnel
management as MCP (Model Context Protocol) tools.

Configuration is read from the environment. COOLIFY_BASE_URL and COOLIFY_API_TOKEN
are required; the DNS tools are enabled by CLOUDFLARE_API_TOKEN, CLOUDFLARE_ZONE_ID
and BASE_DOMAIN, and the tunnel tools additionally need CLOUDFLARE_TUNNEL_ID.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				logger.Errorf("Error displaying help: %v", err)
			}
		},
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// Re-initialize so the debug flag takes effect.
			logger.Initialize()
			return config.BindEnv(viper.GetViper())
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAppsCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.SilenceUsage = true
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			if asJSON {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode version: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "coolify-mcp %s\n  Commit: %s\n  Built: %s\n  Go: %s %s\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
