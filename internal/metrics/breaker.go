// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ams_breaker_state",
		Help: "Request circuit state per breaker: 0 closed, 1 half-open, 2 open",
	}, []string{"breaker"})

	breakerOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ams_breaker_opened_total",
		Help: "Times a breaker stopped forwarding requests to the service",
	}, []string{"breaker", "cause"}) // cause=consecutive_failures|half_open_failed
)

var breakerLevels = map[string]float64{
	"closed":    0,
	"half-open": 1,
	"open":      2,
}

// SetBreakerState publishes the current state of a breaker. Unknown states
// are ignored.
func SetBreakerState(breaker, state string) {
	if v, ok := breakerLevels[state]; ok {
		breakerState.WithLabelValues(breaker).Set(v)
	}
}

// RecordBreakerOpened counts a transition into the open state.
func RecordBreakerOpened(breaker, cause string) {
	breakerOpened.WithLabelValues(breaker, cause).Inc()
}
