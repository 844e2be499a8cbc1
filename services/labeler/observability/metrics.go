// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the labeler
// HTTP surface and label lifecycle.
//
// Metrics are exposed via the /metrics endpoint. Cache-internal
// metrics live in the metacache package next to the code they measure;
// this package covers the request boundary.
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "tracelabel"

// LabelerMetrics holds the request-boundary metrics. Initialize once
// at startup via InitMetrics.
type LabelerMetrics struct {
	// RequestsTotal counts HTTP requests by route, method and status.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration measures request latency by route.
	RequestDuration *prometheus.HistogramVec

	// LabelMutationsTotal counts label writes and deletes.
	// Labels: action (upsert, delete), result (success, rejected, error)
	LabelMutationsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *LabelerMetrics

// InitMetrics registers all metrics on the default registry. Call once
// at startup; a second call panics on duplicate registration.
func InitMetrics() *LabelerMetrics {
	DefaultMetrics = &LabelerMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 1, 2.5, 10},
			},
			[]string{"route"},
		),
		LabelMutationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "label_mutations_total",
				Help:      "Label store mutations by action and result",
			},
			[]string{"action", "result"},
		),
	}
	return DefaultMetrics
}

// RecordMutation records one label store mutation outcome.
func (m *LabelerMetrics) RecordMutation(action, result string) {
	if m == nil {
		return
	}
	m.LabelMutationsTotal.WithLabelValues(action, result).Inc()
}

// Middleware returns a gin middleware recording request counts and
// latencies. Routes are labeled by their registered pattern, not the
// raw URL, to keep cardinality bounded.
func Middleware(m *LabelerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(route, c.Request.Method,
			strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
