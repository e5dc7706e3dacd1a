// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package coolify

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/renoblabs/coolify-mcp/pkg/gateway"
)

// Diagnosis lists problems that commonly break applications served through a tunnel.
type Diagnosis struct {
	Application     gateway.Envelope
	Status          string
	Issues          []string
	Recommendations []string
}

// HasIssues reports whether any problem was found.
func (d Diagnosis) HasIssues() bool {
	return len(d.Issues) > 0
}

// DiagnoseTunnel fetches the application and its environment concurrently
// and flags loopback references and a non-running status. When the
// application itself cannot be fetched its envelope is returned as is.
func (c *Client) DiagnoseTunnel(ctx context.Context, uuid string) Diagnosis {
	var app, envVars gateway.Envelope

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app = c.GetApplication(gctx, uuid)
		return nil
	})
	g.Go(func() error {
		envVars = c.GetEnvironment(gctx, uuid)
		return nil
	})
	_ = g.Wait()

	d := Diagnosis{Application: app}
	if !app.OK {
		return d
	}

	d.Status = ApplicationStatus(app)
	if !strings.HasPrefix(d.Status, "running") {
		d.Issues = append(d.Issues, fmt.Sprintf("application status is %q", d.Status))
		d.Recommendations = append(d.Recommendations, "Deploy or restart the application and check its logs")
	}

	if !envVars.OK {
		d.Issues = append(d.Issues, "could not read environment variables: "+envVars.Error.Message)
		return d
	}

	vars := ParseEnvironment(envVars)
	loopback := false
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		value := vars[key]
		if strings.Contains(value, "localhost") || strings.Contains(value, "127.0.0.1") {
			d.Issues = append(d.Issues, fmt.Sprintf("%s references a loopback address: %s", key, value))
			loopback = true
		}
	}
	if loopback {
		d.Recommendations = append(d.Recommendations,
			"Replace localhost URLs with the public tunnel hostname, then redeploy")
	}
	return d
}

var plainLocalhost = regexp.MustCompile(`http://localhost(/|$)`)

// RewriteLocalhost replaces loopback URLs that point at port with https://fqdn.
// A bare "localhost:<port>" prefix becomes fqdn and a portless
// "http://localhost" becomes https://fqdn. Only changed variables are returned.
func RewriteLocalhost(vars map[string]string, port int, fqdn string) map[string]string {
	public := "https://" + fqdn
	withPort := regexp.MustCompile(`https?://localhost:` + strconv.Itoa(port) + `\b`)
	bare := regexp.MustCompile(`^localhost:` + strconv.Itoa(port) + `\b`)

	out := map[string]string{}
	for key, value := range vars {
		rewritten := withPort.ReplaceAllLiteralString(value, public)
		rewritten = bare.ReplaceAllLiteralString(rewritten, fqdn)
		rewritten = plainLocalhost.ReplaceAllString(rewritten, public+"$1")
		if rewritten != value {
			out[key] = rewritten
		}
	}
	return out
}
