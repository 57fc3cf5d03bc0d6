// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/mediaservices/internal/log"
	"github.com/ManuGH/mediaservices/internal/metrics"
	"github.com/ManuGH/mediaservices/internal/odata"
	"github.com/ManuGH/mediaservices/internal/resilience"
	"github.com/ManuGH/mediaservices/internal/telemetry"
)

const (
	tracerName   = "mediaservices.ams"
	maxBodyBytes = 16 << 20
)

// request describes one logical call. Retries replay it unchanged.
type request struct {
	method string
	// path is relative to the API root (Channels('id')/Start) or an
	// absolute next link returned by the service.
	path   string
	query  url.Values
	body   any
	policy *resilience.Policy

	// labels for logs, spans and metrics
	entitySet string
	entityID  string
	action    string
}

func (r request) operation() string {
	op := strings.ToLower(r.method) + " " + r.entitySet
	if r.action != "" {
		op += "/" + r.action
	}
	return op
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) operationID() string {
	if r == nil {
		return ""
	}
	return r.header.Get(odata.HeaderOperationID)
}

// do runs r through the retry policy and returns the first successful
// response. Non-2xx answers come back as *ServiceError.
func (c *Client) do(ctx context.Context, r request) (*response, error) {
	requestID := uuid.NewString()
	ctx = xglog.ContextWithRequestID(ctx, requestID)
	logger := xglog.WithContext(ctx, c.logger)

	tracer := telemetry.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "ams.request", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(telemetry.EntityAttributes(r.entitySet, r.entityID, r.action)...)
	span.SetAttributes(attribute.String("ams.client_request_id", requestID))
	defer span.End()

	var payload []byte
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("%w: encode %s body: %v", ErrInvalidArgument, r.entitySet, err)
		}
		payload = data
	}

	var (
		resp    *response
		attempt int
	)
	err := r.policy.ExecuteWithHook(ctx, func(ctx context.Context) error {
		attempt++
		res, err := c.attempt(ctx, r, payload, requestID, attempt)
		if err != nil {
			return err
		}
		resp = res
		return nil
	}, func(retry int, wait time.Duration, err error) {
		metrics.RecordRetry(r.policy.Name, r.entitySet)
		logger.Warn().
			Err(err).
			Str("event", "ams.request.retry").
			Str(xglog.FieldMethod, r.method).
			Str(xglog.FieldEntitySet, r.entitySet).
			Int(xglog.FieldAttempt, retry+1).
			Dur("backoff", wait).
			Msg("retrying media services request")
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug().
			Err(err).
			Str("event", "ams.request.failed").
			Str(xglog.FieldMethod, r.method).
			Str(xglog.FieldEntitySet, r.entitySet).
			Int(xglog.FieldAttempt, attempt).
			Msg("media services request failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// attempt performs a single try, following at most one permanent redirect
// and refreshing a rejected token at most once.
func (c *Client) attempt(ctx context.Context, r request, payload []byte, requestID string, attempt int) (*response, error) {
	tracer := telemetry.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "ams.request.attempt", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.Int("attempt", attempt),
		attribute.Bool("retry", attempt > 1),
	)
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, fmt.Errorf("ams: rate limiter: %w", ctx.Err())
			}
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrTimeout, err)
		}
	}

	token, err := c.token(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// path and query move to the Location target when an absolute next
	// link is redirected.
	path, query := r.path, r.query
	redirected, reauthed := false, false
	for {
		target := c.resolve(path, query)
		res, err := c.send(ctx, r, target, payload, token, requestID)
		status := 0
		if res != nil {
			status = res.status
		}
		span.SetAttributes(telemetry.HTTPAttributes(r.method, r.entitySet, redactURL(target), status)...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		if status == http.StatusMovedPermanently && !redirected {
			location := res.header.Get("Location")
			if location == "" {
				err := statusError(r.operation(), status, res.header, res.body)
				err.Sentinel = ErrBadResponse
				err.Message = "redirect without location"
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			rel := path
			if isAbsolute(path) {
				rel = relativeTo(c.root().String(), path)
			}
			newRoot, err := c.rebase(location, rel)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			if isAbsolute(path) {
				next, err := resolveLocation(target, location)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					return nil, err
				}
				path, query = next, nil
			}
			metrics.RecordRedirect()
			c.logger.Info().
				Str("event", "ams.client.rebased").
				Str(xglog.FieldBaseURL, newRoot).
				Msg("service moved the API root")
			redirected = true
			continue
		}

		if status == http.StatusUnauthorized && !reauthed {
			if inv, ok := c.tokens.(TokenInvalidator); ok {
				inv.Invalidate(ctx)
				token, err = c.token(ctx, r)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					return nil, err
				}
				c.logger.Info().
					Str("event", "ams.client.token_rejected").
					Str(xglog.FieldEntitySet, r.entitySet).
					Msg("service rejected the access token, retrying with a fresh one")
				reauthed = true
				continue
			}
		}

		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			err := statusError(r.operation(), status, res.header, res.body)
			span.SetStatus(codes.Error, http.StatusText(status))
			return nil, err
		}
		span.SetStatus(codes.Ok, "")
		return res, nil
	}
}

// token fetches the bearer token. A failure is final for this request.
func (c *Client) token(ctx context.Context, r request) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	t, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", &ServiceError{
			Sentinel:    ErrForbidden,
			Operation:   r.operation(),
			Err:         fmt.Errorf("acquire token: %w", err),
			tokenFailed: true,
		}
	}
	return t, nil
}

// send executes one HTTP exchange behind the circuit breaker.
func (c *Client) send(ctx context.Context, r request, target string, payload []byte, token, requestID string) (*response, error) {
	var res *response
	err := c.breaker.Execute(func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, target, body)
		if err != nil {
			return fmt.Errorf("%w: build request: %v", ErrInvalidArgument, err)
		}
		c.applyHeaders(req, token, requestID, payload != nil)
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		start := time.Now()
		httpResp, err := c.http.Do(req)
		duration := time.Since(start)
		if err != nil {
			metrics.RecordAttempt(r.method, r.entitySet, 0, duration, err)
			return transportError(r.operation(), err)
		}
		defer func() { _ = httpResp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
		if err != nil {
			metrics.RecordAttempt(r.method, r.entitySet, httpResp.StatusCode, duration, err)
			return transportError(r.operation(), fmt.Errorf("read body (HTTP %d): %w", httpResp.StatusCode, err))
		}
		metrics.RecordAttempt(r.method, r.entitySet, httpResp.StatusCode, duration, nil)

		if httpResp.StatusCode >= http.StatusInternalServerError {
			return statusError(r.operation(), httpResp.StatusCode, httpResp.Header, data)
		}
		res = &response{status: httpResp.StatusCode, header: httpResp.Header, body: data}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) applyHeaders(req *http.Request, token, requestID string, hasBody bool) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", odata.MediaTypeJSON)
	req.Header.Set("Accept-Charset", "UTF-8")
	req.Header.Set(odata.HeaderDataServiceVersion, odata.ProtocolVersion)
	req.Header.Set(odata.HeaderMaxDataServiceVersion, odata.ProtocolVersion)
	req.Header.Set(odata.HeaderMSVersion, c.apiVersion)
	req.Header.Set(odata.HeaderClientRequestID, requestID)
	if hasBody {
		req.Header.Set("Content-Type", odata.MediaTypeJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// relativeTo returns link's path below root without its query, or "" when
// link lives elsewhere.
func relativeTo(root, link string) string {
	if !strings.HasPrefix(link, root) {
		return ""
	}
	rel := strings.TrimPrefix(link, root)
	if i := strings.IndexByte(rel, '?'); i >= 0 {
		rel = rel[:i]
	}
	return rel
}

func resolveLocation(target, location string) (string, error) {
	base, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: request url %q: %v", ErrBadResponse, target, err)
	}
	loc, err := base.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: redirect location %q: %v", ErrBadResponse, location, err)
	}
	return loc.String(), nil
}

// resolve joins path onto the API root. Absolute next links pass through.
func (c *Client) resolve(path string, query url.Values) string {
	if isAbsolute(path) {
		return path
	}
	target := c.root().String() + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}
	return target
}

// redactURL drops the query string so filters never land in span labels.
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i] + "?"
	}
	return raw
}

func (c *Client) decode(res *response, r request, v any) error {
	if err := odata.DecodeEntity(res.body, v); err != nil {
		return &ServiceError{Sentinel: ErrBadResponse, Operation: r.operation(), Status: res.status, Err: err}
	}
	return nil
}
