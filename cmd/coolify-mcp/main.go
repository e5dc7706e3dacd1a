// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the coolify-mcp tool server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/renoblabs/coolify-mcp/cmd/coolify-mcp/app"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
)

func main() {
	logger.Initialize()

	// Create a context that will be canceled on signal
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		logger.Errorf("Error executing command: %v", err)
		cancel()
		os.Exit(1)
	}
}
