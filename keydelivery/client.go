// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package keydelivery talks to the key delivery service and builds the
// restriction documents attached to content key authorization policies.
package keydelivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/mediaservices/internal/log"
	"github.com/ManuGH/mediaservices/internal/metrics"
	"github.com/ManuGH/mediaservices/internal/platform/httpx"
	"github.com/ManuGH/mediaservices/internal/resilience"
)

var (
	// ErrUnauthorized means the service rejected the token.
	ErrUnauthorized = errors.New("keydelivery: unauthorized")
	// ErrNotFound means the key or policy is unknown to the service.
	ErrNotFound = errors.New("keydelivery: not found")
	// ErrUnavailable covers transport failures and 5xx answers.
	ErrUnavailable = errors.New("keydelivery: service unavailable")
	// ErrInvalidURL is returned for malformed delivery URLs.
	ErrInvalidURL = errors.New("keydelivery: invalid delivery url")
	// ErrRejected covers every other non-success answer.
	ErrRejected = errors.New("keydelivery: request rejected")
)

const (
	metricsLabel = "KeyDelivery"
	maxKeyBytes  = 1 << 20
)

// DeliveryError describes a failed key request.
type DeliveryError struct {
	Status  int
	Message string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("keydelivery: %v", e.Err)
	}
	if e.Message == "" {
		return fmt.Sprintf("keydelivery: HTTP %d", e.Status)
	}
	return fmt.Sprintf("keydelivery: HTTP %d: %s", e.Status, e.Message)
}

func (e *DeliveryError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *DeliveryError) sentinel() error {
	switch {
	case e.Status == 0, e.Status >= http.StatusInternalServerError, e.Status == http.StatusTooManyRequests:
		return ErrUnavailable
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrRejected
	}
}

// Options configures a Client. Zero values take defaults.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxRetries int
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Client acquires keys and licenses. It is safe for concurrent use.
type Client struct {
	http   *http.Client
	policy *resilience.Policy
	logger zerolog.Logger
}

// NewClient returns a Client.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = httpx.NewClient(timeout)
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	return &Client{
		http:   hc,
		policy: resilience.NewPolicy("keydelivery", maxRetries, opts.MinBackoff, opts.MaxBackoff, retryable),
		logger: xglog.WithComponent("keydelivery"),
	}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrUnavailable)
}

// AcquireKey posts to a key delivery URL with a bearer token. For envelope
// keys challenge is nil and the raw key bytes come back; for license
// requests challenge carries the DRM challenge and the license is
// returned. An empty token sends no Authorization header.
func (c *Client) AcquireKey(ctx context.Context, deliveryURL, token string, challenge []byte) ([]byte, error) {
	u, err := url.Parse(deliveryURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, deliveryURL)
	}

	var key []byte
	err = c.policy.Execute(ctx, func(ctx context.Context) error {
		out, err := c.post(ctx, u.String(), token, challenge)
		if err != nil {
			return err
		}
		key = out
		return nil
	})
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("event", "keydelivery.acquire.failed").
			Str("host", u.Host).
			Msg("key acquisition failed")
		return nil, err
	}
	c.logger.Debug().
		Str("event", "keydelivery.acquire.done").
		Str("host", u.Host).
		Int("bytes", len(key)).
		Msg("key acquired")
	return key, nil
}

func (c *Client) post(ctx context.Context, target, token string, challenge []byte) ([]byte, error) {
	var body io.Reader = http.NoBody
	if challenge != nil {
		body = bytes.NewReader(challenge)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, &DeliveryError{Err: err}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if challenge != nil {
		req.Header.Set("Content-Type", "text/xml")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordAttempt(http.MethodPost, metricsLabel, 0, time.Since(start), err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &DeliveryError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxKeyBytes))
	metrics.RecordAttempt(http.MethodPost, metricsLabel, resp.StatusCode, time.Since(start), err)
	if err != nil {
		return nil, &DeliveryError{Status: 0, Err: fmt.Errorf("read body (HTTP %d): %w", resp.StatusCode, err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &DeliveryError{Status: resp.StatusCode, Message: strings.TrimSpace(string(truncate(data, 512)))}
	}
	if len(data) == 0 {
		return nil, &DeliveryError{Status: resp.StatusCode, Message: "empty key"}
	}
	return data, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
