// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors shared by the SDK.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ams_request_total",
			Help: "Total number of REST request attempts against the media service",
		},
		[]string{"method", "entity_set", "status_class"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ams_request_duration_seconds",
			Help:    "Duration of media service REST requests per attempt",
			Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8),
		},
		[]string{"method", "entity_set", "status_class"},
	)
	requestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ams_request_errors_total",
			Help: "Number of media service request attempts that failed",
		},
		[]string{"method", "entity_set", "status_class"},
	)
	requestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ams_request_retries_total",
			Help: "Number of media service request retries performed",
		},
		[]string{"policy", "entity_set"},
	)
	redirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ams_api_redirects_total",
			Help: "Number of times the API root was rebased after a 301 redirect",
		},
	)
)

// StatusClass buckets an HTTP status (or transport error) into a low
// cardinality label.
func StatusClass(err error, status int) string {
	if err != nil && status == 0 {
		return "error"
	}
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	}
	return "unknown"
}

// RecordAttempt records one HTTP attempt.
func RecordAttempt(method, entitySet string, status int, duration time.Duration, err error) {
	class := StatusClass(err, status)
	requestTotal.WithLabelValues(method, entitySet, class).Inc()
	requestDuration.WithLabelValues(method, entitySet, class).Observe(duration.Seconds())
	if class != "2xx" {
		requestErrors.WithLabelValues(method, entitySet, class).Inc()
	}
}

// RecordRetry increments the retry counter for a retry policy.
func RecordRetry(policy, entitySet string) {
	requestRetries.WithLabelValues(policy, entitySet).Inc()
}

// RecordRedirect counts API root rebases.
func RecordRedirect() {
	redirectsTotal.Inc()
}
