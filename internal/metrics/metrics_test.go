// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	cases := []struct {
		err    error
		status int
		want   string
	}{
		{errors.New("dial"), 0, "error"},
		{nil, 0, "unknown"},
		{nil, 202, "2xx"},
		{nil, 301, "3xx"},
		{nil, 404, "4xx"},
		{nil, 503, "5xx"},
		{errors.New("decode"), 200, "2xx"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusClass(tc.err, tc.status), "status=%d err=%v", tc.status, tc.err)
	}
}

func TestRecordAttemptCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(requestErrors.WithLabelValues("GET", "MetricsTest", "5xx"))
	RecordAttempt("GET", "MetricsTest", 503, 10*time.Millisecond, nil)
	RecordAttempt("GET", "MetricsTest", 200, 10*time.Millisecond, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(requestErrors.WithLabelValues("GET", "MetricsTest", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requestTotal.WithLabelValues("GET", "MetricsTest", "2xx")))
}

func TestBreakerState(t *testing.T) {
	SetBreakerState("metrics-test", "open")
	assert.Equal(t, 2.0, testutil.ToFloat64(breakerState.WithLabelValues("metrics-test")))

	SetBreakerState("metrics-test", "half-open")
	assert.Equal(t, 1.0, testutil.ToFloat64(breakerState.WithLabelValues("metrics-test")))

	SetBreakerState("metrics-test", "bogus")
	assert.Equal(t, 1.0, testutil.ToFloat64(breakerState.WithLabelValues("metrics-test")))

	SetBreakerState("metrics-test", "closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(breakerState.WithLabelValues("metrics-test")))
}

func TestRecordBreakerOpened(t *testing.T) {
	before := testutil.ToFloat64(breakerOpened.WithLabelValues("metrics-test", "half_open_failed"))
	RecordBreakerOpened("metrics-test", "half_open_failed")
	assert.Equal(t, before+1, testutil.ToFloat64(breakerOpened.WithLabelValues("metrics-test", "half_open_failed")))
}
