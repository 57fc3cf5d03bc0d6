// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ams_operation_polls_total",
		Help: "Number of Operations(id) polls issued while waiting for async server operations",
	}, []string{"state"}) // state=InProgress|Succeeded|Failed|error

	operationWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ams_operation_wait_seconds",
		Help:    "Time spent waiting for async server operations to reach a terminal state",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"outcome"}) // outcome=succeeded|failed|canceled|error

	tokenRefresh = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ams_token_refresh_total",
		Help: "Access token acquisitions by provider and outcome",
	}, []string{"provider", "outcome"}) // outcome=success|failure|cache_hit
)

// RecordOperationPoll counts a single poll of an operation.
func RecordOperationPoll(state string) {
	operationPolls.WithLabelValues(state).Inc()
}

// ObserveOperationWait records how long an operation wait took.
func ObserveOperationWait(outcome string, d time.Duration) {
	operationWait.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordTokenRefresh counts token acquisitions.
func RecordTokenRefresh(provider, outcome string) {
	tokenRefresh.WithLabelValues(provider, outcome).Inc()
}
