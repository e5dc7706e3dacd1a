// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package telemetry sets up OpenTelemetry tracing for upstream API calls.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation name used for all spans.
const TracerName = "github.com/renoblabs/coolify-mcp"

// Config holds the OTLP exporter settings. An empty Endpoint disables tracing.
type Config struct {
	Endpoint     string
	Insecure     bool
	SamplingRate float64
	ServiceName  string
	Version      string
	// Attributes are extra resource attributes as "key=value,key=value".
	Attributes string
}

// NewTracerProvider returns a tracer provider and its shutdown function.
// The shutdown function is never nil.
func NewTracerProvider(ctx context.Context, cfg Config) (trace.TracerProvider, func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return tracenoop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	extra, err := ParseResourceAttributes(cfg.Attributes)
	if err != nil {
		return nil, nil, err
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	rate := cfg.SamplingRate
	if rate <= 0 {
		rate = 1
	}

	res := resource.NewSchemaless(append([]attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.Version),
	}, extra...)...)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(rate)),
	)

	return provider, provider.Shutdown, nil
}
