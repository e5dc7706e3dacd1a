// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads coolify-mcp settings from the environment and flags.
//
// Credentials, zone and account identifiers, and domains have no defaults.
// Missing required values fail at startup with a configuration error.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
)

// Transports supported by the tool server.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Defaults for optional settings.
const (
	DefaultHost             = "127.0.0.1"
	DefaultPort             = 8765
	DefaultUpstreamTimeout  = 30 * time.Second
	DefaultCacheTTL         = 30 * time.Second
	DefaultCloudflareAPIURL = "https://api.cloudflare.com"
)

// Viper keys.
const (
	KeyCoolifyBaseURL   = "coolify.base_url"
	KeyCoolifyAPIToken  = "coolify.api_token"
	KeyCoolifyUseTunnel = "coolify.use_tunnel"
	KeyCoolifyTunnelURL = "coolify.tunnel_url"

	KeyCloudflareAPIURL        = "cloudflare.api_url"
	KeyCloudflareAPIToken      = "cloudflare.api_token"
	KeyCloudflareZoneID        = "cloudflare.zone_id"
	KeyCloudflareAccountID     = "cloudflare.account_id"
	KeyCloudflareTunnelID      = "cloudflare.tunnel_id"
	KeyCloudflareBaseDomain    = "cloudflare.base_domain"
	KeyCloudflareDefaultTarget = "cloudflare.default_target"

	KeyServerTransport = "server.transport"
	KeyServerHost      = "server.host"
	KeyServerPort      = "server.port"
	KeyServerAuthToken = "server.auth_token"

	KeyUpstreamTimeout   = "upstream.timeout"
	KeyUpstreamRateLimit = "upstream.rate_limit"
	KeyUpstreamRateBurst = "upstream.rate_burst"

	KeyCacheTTL      = "cache.ttl"
	KeyCacheRedisURL = "cache.redis_url"

	KeyTelemetryEndpoint = "telemetry.otlp_endpoint"
	KeyTelemetryInsecure = "telemetry.otlp_insecure"
	KeyTelemetryAttrs    = "telemetry.resource_attributes"
)

// envBindings maps viper keys to environment variable names.
var envBindings = map[string]string{
	KeyCoolifyBaseURL:   "COOLIFY_BASE_URL",
	KeyCoolifyAPIToken:  "COOLIFY_API_TOKEN",
	KeyCoolifyUseTunnel: "USE_TUNNEL",
	KeyCoolifyTunnelURL: "COOLIFY_TUNNEL_URL",

	KeyCloudflareAPIURL:        "CLOUDFLARE_API_URL",
	KeyCloudflareAPIToken:      "CLOUDFLARE_API_TOKEN",
	KeyCloudflareZoneID:        "CLOUDFLARE_ZONE_ID",
	KeyCloudflareAccountID:     "CLOUDFLARE_ACCOUNT_ID",
	KeyCloudflareTunnelID:      "CLOUDFLARE_TUNNEL_ID",
	KeyCloudflareBaseDomain:    "BASE_DOMAIN",
	KeyCloudflareDefaultTarget: "DNS_DEFAULT_TARGET",

	KeyServerTransport: "MCP_TRANSPORT",
	KeyServerHost:      "MCP_HOST",
	KeyServerPort:      "MCP_PORT",
	KeyServerAuthToken: "MCP_AUTH_TOKEN",

	KeyUpstreamTimeout:   "UPSTREAM_TIMEOUT",
	KeyUpstreamRateLimit: "UPSTREAM_RATE_LIMIT",
	KeyUpstreamRateBurst: "UPSTREAM_RATE_BURST",

	KeyCacheTTL:      "CACHE_TTL",
	KeyCacheRedisURL: "REDIS_URL",

	KeyTelemetryEndpoint: "OTEL_EXPORTER_OTLP_ENDPOINT",
	KeyTelemetryInsecure: "OTEL_EXPORTER_OTLP_INSECURE",
	KeyTelemetryAttrs:    "OTEL_RESOURCE_ATTRIBUTES",
}

// Config is the complete runtime configuration.
type Config struct {
	Coolify    CoolifyConfig
	Cloudflare CloudflareConfig
	Server     ServerConfig
	Upstream   UpstreamConfig
	Cache      CacheConfig
	Telemetry  TelemetryConfig
}

// CoolifyConfig configures the deployment API client.
type CoolifyConfig struct {
	BaseURL   string
	APIToken  string
	UseTunnel bool
	TunnelURL string
}

// EffectiveBaseURL returns the tunnel URL when tunnelling is enabled.
func (c CoolifyConfig) EffectiveBaseURL() string {
	if c.UseTunnel {
		return c.TunnelURL
	}
	return c.BaseURL
}

// CloudflareConfig configures the DNS and tunnel API client.
type CloudflareConfig struct {
	APIURL        string
	APIToken      string
	ZoneID        string
	AccountID     string
	TunnelID      string
	BaseDomain    string
	DefaultTarget string
}

// Enabled reports whether the DNS tools should be registered.
func (c CloudflareConfig) Enabled() bool {
	return c.APIToken != ""
}

// TunnelEnabled reports whether the tunnel route tools should be registered.
func (c CloudflareConfig) TunnelEnabled() bool {
	return c.Enabled() && c.TunnelID != ""
}

// ServerConfig configures the tool server listener.
type ServerConfig struct {
	Transport string
	Host      string
	Port      int
	AuthToken string
}

// UpstreamConfig configures behaviour shared by every upstream client.
type UpstreamConfig struct {
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

// CacheConfig configures the application lookup cache.
type CacheConfig struct {
	TTL      time.Duration
	RedisURL string
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	OTLPEndpoint       string
	Insecure           bool
	ResourceAttributes string
}

// BindEnv binds every key to its environment variable and registers defaults.
func BindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	v.SetDefault(KeyCloudflareAPIURL, DefaultCloudflareAPIURL)
	v.SetDefault(KeyServerTransport, TransportHTTP)
	v.SetDefault(KeyServerHost, DefaultHost)
	v.SetDefault(KeyServerPort, DefaultPort)
	v.SetDefault(KeyUpstreamTimeout, DefaultUpstreamTimeout)
	v.SetDefault(KeyUpstreamRateBurst, 1)
	v.SetDefault(KeyCacheTTL, DefaultCacheTTL)
	return nil
}

// Load reads and validates the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Coolify: CoolifyConfig{
			BaseURL:   strings.TrimSpace(v.GetString(KeyCoolifyBaseURL)),
			APIToken:  strings.TrimSpace(v.GetString(KeyCoolifyAPIToken)),
			UseTunnel: v.GetBool(KeyCoolifyUseTunnel),
			TunnelURL: strings.TrimSpace(v.GetString(KeyCoolifyTunnelURL)),
		},
		Cloudflare: CloudflareConfig{
			APIURL:        strings.TrimSpace(v.GetString(KeyCloudflareAPIURL)),
			APIToken:      strings.TrimSpace(v.GetString(KeyCloudflareAPIToken)),
			ZoneID:        strings.TrimSpace(v.GetString(KeyCloudflareZoneID)),
			AccountID:     strings.TrimSpace(v.GetString(KeyCloudflareAccountID)),
			TunnelID:      strings.TrimSpace(v.GetString(KeyCloudflareTunnelID)),
			BaseDomain:    strings.Trim(strings.TrimSpace(v.GetString(KeyCloudflareBaseDomain)), "."),
			DefaultTarget: strings.TrimSpace(v.GetString(KeyCloudflareDefaultTarget)),
		},
		Server: ServerConfig{
			Transport: strings.ToLower(strings.TrimSpace(v.GetString(KeyServerTransport))),
			Host:      v.GetString(KeyServerHost),
			Port:      v.GetInt(KeyServerPort),
			AuthToken: strings.TrimSpace(v.GetString(KeyServerAuthToken)),
		},
		Upstream: UpstreamConfig{
			Timeout:   v.GetDuration(KeyUpstreamTimeout),
			RateLimit: v.GetFloat64(KeyUpstreamRateLimit),
			RateBurst: v.GetInt(KeyUpstreamRateBurst),
		},
		Cache: CacheConfig{
			TTL:      v.GetDuration(KeyCacheTTL),
			RedisURL: strings.TrimSpace(v.GetString(KeyCacheRedisURL)),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint:       strings.TrimSpace(v.GetString(KeyTelemetryEndpoint)),
			Insecure:           v.GetBool(KeyTelemetryInsecure),
			ResourceAttributes: strings.TrimSpace(v.GetString(KeyTelemetryAttrs)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Coolify.BaseURL == "" {
		problems = append(problems, "COOLIFY_BASE_URL is required")
	} else if err := checkURL(c.Coolify.BaseURL); err != nil {
		problems = append(problems, "COOLIFY_BASE_URL "+err.Error())
	}
	if c.Coolify.APIToken == "" {
		problems = append(problems, "COOLIFY_API_TOKEN is required")
	}
	if c.Coolify.UseTunnel {
		if c.Coolify.TunnelURL == "" {
			problems = append(problems, "COOLIFY_TUNNEL_URL is required when USE_TUNNEL is true")
		} else if err := checkURL(c.Coolify.TunnelURL); err != nil {
			problems = append(problems, "COOLIFY_TUNNEL_URL "+err.Error())
		}
	}

	if c.Cloudflare.Enabled() {
		if c.Cloudflare.ZoneID == "" {
			problems = append(problems, "CLOUDFLARE_ZONE_ID is required when CLOUDFLARE_API_TOKEN is set")
		}
		if c.Cloudflare.BaseDomain == "" {
			problems = append(problems, "BASE_DOMAIN is required when CLOUDFLARE_API_TOKEN is set")
		}
		if err := checkURL(c.Cloudflare.APIURL); err != nil {
			problems = append(problems, "CLOUDFLARE_API_URL "+err.Error())
		}
	}

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		problems = append(problems, fmt.Sprintf("transport %q is not one of %s, %s", c.Server.Transport, TransportStdio, TransportHTTP))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d is out of range", c.Server.Port))
	}

	if c.Upstream.Timeout <= 0 {
		problems = append(problems, "UPSTREAM_TIMEOUT must be positive")
	}
	if c.Upstream.RateLimit < 0 {
		problems = append(problems, "UPSTREAM_RATE_LIMIT must not be negative")
	}
	if c.Cache.TTL < 0 {
		problems = append(problems, "CACHE_TTL must not be negative")
	}

	if len(problems) > 0 {
		return cerrors.NewConfigurationError(strings.Join(problems, "; "), nil)
	}
	return nil
}

// Address returns host:port for the HTTP listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) URL")
	}
	return nil
}
