// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/renoblabs/coolify-mcp/pkg/cache"
	"github.com/renoblabs/coolify-mcp/pkg/cloudflare"
	"github.com/renoblabs/coolify-mcp/pkg/config"
	"github.com/renoblabs/coolify-mcp/pkg/coolify"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
	mcpserver "github.com/renoblabs/coolify-mcp/pkg/mcp/server"
	"github.com/renoblabs/coolify-mcp/pkg/metrics"
	"github.com/renoblabs/coolify-mcp/pkg/telemetry"
	"github.com/renoblabs/coolify-mcp/pkg/versions"
)

// runtime holds the clients built from one configuration.
type runtime struct {
	cfg        *config.Config
	recorder   *metrics.Recorder
	coolify    *coolify.Client
	cloudflare *cloudflare.Client

	closers []func(context.Context) error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg, recorder: metrics.NewRecorder()}

	tp, shutdownTracing, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Attributes:  cfg.Telemetry.ResourceAttributes,
		ServiceName: mcpserver.DefaultName,
		Version:     versions.GetVersionInfo().Version,
	})
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, shutdownTracing)

	store, err := cache.New(ctx, cache.Config{RedisURL: cfg.Cache.RedisURL, KeyPrefix: mcpserver.DefaultName + ":"})
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })

	shared := []gateway.Option{
		gateway.WithTimeout(cfg.Upstream.Timeout),
		gateway.WithRateLimit(cfg.Upstream.RateLimit, cfg.Upstream.RateBurst),
		gateway.WithMetrics(rt.recorder),
		gateway.WithTracerProvider(tp),
	}

	coolifyGW, err := gateway.New(cfg.Coolify.EffectiveBaseURL(), append([]gateway.Option{
		gateway.WithName("coolify"),
		gateway.WithAPIPrefix(coolify.APIPrefix),
		gateway.WithToken(cfg.Coolify.APIToken),
	}, shared...)...)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to create Coolify client: %w", err)
	}
	rt.coolify = coolify.New(coolifyGW, coolify.WithCache(store, cfg.Cache.TTL))
	logger.Debugf("Coolify API at %s", cfg.Coolify.EffectiveBaseURL())

	if cfg.Cloudflare.Enabled() {
		cfGW, err := gateway.New(cfg.Cloudflare.APIURL, append([]gateway.Option{
			gateway.WithName("cloudflare"),
			gateway.WithAPIPrefix(cloudflare.APIPrefix),
			gateway.WithToken(cfg.Cloudflare.APIToken),
		}, shared...)...)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("failed to create Cloudflare client: %w", err)
		}
		rt.cloudflare = cloudflare.New(cfGW, cloudflare.Config{
			ZoneID:        cfg.Cloudflare.ZoneID,
			AccountID:     cfg.Cloudflare.AccountID,
			TunnelID:      cfg.Cloudflare.TunnelID,
			BaseDomain:    cfg.Cloudflare.BaseDomain,
			DefaultTarget: cfg.Cloudflare.DefaultTarget,
		})
	} else {
		logger.Info("CLOUDFLARE_API_TOKEN not set; DNS and tunnel tools are disabled")
	}

	return rt, nil
}

// handler builds the tool handler for this runtime.
func (rt *runtime) handler() *mcpserver.Handler {
	opts := []mcpserver.HandlerOption{
		mcpserver.WithMetrics(rt.recorder),
		mcpserver.WithInfo(mcpserver.Info{
			Name:           mcpserver.DefaultName,
			Version:        versions.GetVersionInfo().Version,
			Transport:      rt.cfg.Server.Transport,
			CoolifyBaseURL: rt.cfg.Coolify.EffectiveBaseURL(),
			AuthEnabled:    rt.cfg.Server.AuthToken != "",
		}),
	}
	if rt.cloudflare != nil {
		opts = append(opts, mcpserver.WithCloudflare(rt.cloudflare))
	}
	return mcpserver.NewHandler(rt.coolify, opts...)
}

// Close releases everything in reverse order of creation.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
