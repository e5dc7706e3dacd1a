// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package coolify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
)

// Polling bounds for WaitForRunning.
const (
	DefaultWaitTimeout     = 5 * time.Minute
	defaultInitialInterval = 2 * time.Second
	defaultMaxInterval     = 30 * time.Second
)

// WaitOptions tunes WaitForRunning.
type WaitOptions struct {
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// WaitResult is the outcome of WaitForRunning.
type WaitResult struct {
	Envelope gateway.Envelope
	Status   string
	Attempts int
	Elapsed  time.Duration
}

// WaitForRunning polls the application with exponential backoff until its
// status starts with "running". A missing application stops polling at once.
// The last envelope observed is always returned.
func (c *Client) WaitForRunning(ctx context.Context, uuid string, opts WaitOptions) (WaitResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = orDefault(opts.InitialInterval, defaultInitialInterval)
	expBackoff.MaxInterval = orDefault(opts.MaxInterval, defaultMaxInterval)
	expBackoff.Reset()

	var (
		result WaitResult
		start  = time.Now()
	)

	operation := func() (gateway.Envelope, error) {
		result.Attempts++
		env := c.GetApplication(ctx, uuid)
		result.Envelope = env
		if err := env.Err(); err != nil {
			if cerrors.IsNotFound(err) {
				return env, backoff.Permanent(err)
			}
			return env, err
		}
		result.Status = ApplicationStatus(env)
		if strings.HasPrefix(result.Status, "running") {
			return env, nil
		}
		return env, fmt.Errorf("application %s status is %q", uuid, result.Status)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Debugf("Waiting %v before polling application %s again: %v", d, uuid, err)
		}),
	)
	result.Elapsed = time.Since(start)
	return result, err
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
