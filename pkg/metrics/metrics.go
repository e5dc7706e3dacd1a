// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides the Prometheus collectors for upstream API calls
// and tool invocations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coolify_mcp"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder exposes the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	toolCalls        *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Upstream API requests by upstream, method and outcome kind.",
		}, []string{"upstream", "method", "kind"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Upstream API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"upstream", "method"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Tool invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	reg.MustRegister(r.upstreamRequests, r.upstreamDuration, r.toolCalls, r.toolDuration)
	return r
}

// ObserveUpstream records one upstream request. kind is "success" or an error kind.
func (r *Recorder) ObserveUpstream(upstream, method, kind string, d time.Duration) {
	if r == nil {
		return
	}
	r.upstreamRequests.WithLabelValues(upstream, method, kind).Inc()
	r.upstreamDuration.WithLabelValues(upstream, method).Observe(d.Seconds())
}

// ObserveTool records one tool invocation.
func (r *Recorder) ObserveTool(tool, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, outcome).Inc()
	r.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// Gatherer returns the registry backing this Recorder.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns the /metrics handler for this Recorder.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
