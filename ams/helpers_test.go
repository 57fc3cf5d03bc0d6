// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediaservices/internal/amstest"
)

func fastRetry() RetryOptions {
	return RetryOptions{MaxRetries: 3, MinBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func newMock(t *testing.T) *amstest.MockServer {
	t.Helper()
	m := amstest.NewMockServer()
	t.Cleanup(m.Close)
	return m
}

func newTestClient(t *testing.T, m *amstest.MockServer, mutate ...func(*Options)) *Client {
	t.Helper()
	return newClientFor(t, m.APIURL(), m.Client(), mutate...)
}

// newServerClient points a client at a hand-written handler for wire
// shapes the mock server does not produce.
func newServerClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Options)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newClientFor(t, srv.URL+"/api/", srv.Client(), mutate...), srv
}

func newClientFor(t *testing.T, baseURL string, hc *http.Client, mutate ...func(*Options)) *Client {
	t.Helper()
	opts := Options{
		BaseURL:        baseURL,
		TokenSource:    StaticToken("test-token"),
		HTTPClient:     hc,
		PollInterval:   time.Millisecond,
		QueryRetry:     fastRetry(),
		SaveRetry:      fastRetry(),
		RateLimit:      1000,
		RateLimitBurst: 1000,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}
