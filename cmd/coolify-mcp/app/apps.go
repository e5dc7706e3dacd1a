// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/renoblabs/coolify-mcp/pkg/coolify"
)

func newAppsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Inspect Coolify applications",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCoolify(cmd.Context(), func(c *coolify.Client) error {
				env := c.ListApplications(cmd.Context())
				if !env.OK {
					return env.Err()
				}
				return renderApplications(cmd.OutOrStdout(), coolify.Applications(env))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status NAME|UUID",
		Short: "Show the status of one application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCoolify(cmd.Context(), func(c *coolify.Client) error {
				app, err := c.FindApplication(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if env := c.GetApplication(cmd.Context(), app.UUID); env.OK {
					if status := coolify.ApplicationStatus(env); status != "" {
						app.Status = status
					}
				}
				return renderApplications(cmd.OutOrStdout(), []coolify.Application{app})
			})
		},
	})
	return cmd
}

func withCoolify(ctx context.Context, fn func(*coolify.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.Background()) }()
	return fn(rt.coolify)
}

func renderApplications(w io.Writer, apps []coolify.Application) error {
	if len(apps) == 0 {
		_, err := fmt.Fprintln(w, "No applications found")
		return err
	}

	headers := []string{"UUID", "Name", "Status", "Domain"}
	table := tablewriter.NewWriter(w)
	table.Options(
		tablewriter.WithHeader(headers),
		tablewriter.WithAlignment(tw.MakeAlign(len(headers), tw.AlignLeft)),
	)
	for _, a := range apps {
		if err := table.Append([]string{a.UUID, a.Name, a.Status, a.FQDN}); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
