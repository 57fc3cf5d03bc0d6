// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package keydelivery

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, string, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Options{
		HTTPClient: srv.Client(),
		MaxRetries: 2,
		MinBackoff: time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
	})
	return c, srv.URL + "/?kid=5a3b9f0e-0000-4000-8000-000000000001", &calls
}

func TestAcquireKey_Envelope(t *testing.T) {
	key := []byte("0123456789abcdef")
	c, target, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "5a3b9f0e-0000-4000-8000-000000000001", r.URL.Query().Get("kid"))
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		_, _ = w.Write(key)
	})

	got, err := c.AcquireKey(context.Background(), target, "tok", nil)
	require.NoError(t, err)
	assert.Equal(t, key, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAcquireKey_LicenseChallenge(t *testing.T) {
	c, target, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/xml", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(append([]byte("license:"), body...))
	})

	got, err := c.AcquireKey(context.Background(), target, "", []byte("<challenge/>"))
	require.NoError(t, err)
	assert.Equal(t, "license:<challenge/>", string(got))
}

func TestAcquireKey_Unauthorized(t *testing.T) {
	c, target, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "token validation failed")
	})

	_, err := c.AcquireKey(context.Background(), target, "bad", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "token validation failed")
	assert.Equal(t, int32(1), calls.Load())

	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusUnauthorized, de.Status)
}

func TestAcquireKey_RetriesUnavailable(t *testing.T) {
	var n atomic.Int32
	c, target, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if n.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("key"))
	})

	got, err := c.AcquireKey(context.Background(), target, "tok", nil)
	require.NoError(t, err)
	assert.Equal(t, "key", string(got))
	assert.Equal(t, int32(3), calls.Load())
}

func TestAcquireKey_RetryBudget(t *testing.T) {
	c, target, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.AcquireKey(context.Background(), target, "tok", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAcquireKey_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadRequest, ErrRejected},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, target, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.AcquireKey(context.Background(), target, "tok", nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAcquireKey_EmptyKey(t *testing.T) {
	c, target, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	_, err := c.AcquireKey(context.Background(), target, "tok", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty key")
}

func TestAcquireKey_InvalidURL(t *testing.T) {
	c := NewClient(Options{})
	for _, raw := range []string{"", "ftp://host/key", "https://", "::bad"} {
		_, err := c.AcquireKey(context.Background(), raw, "tok", nil)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestAcquireKey_Canceled(t *testing.T) {
	c, target, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.AcquireKey(ctx, target, "tok", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
