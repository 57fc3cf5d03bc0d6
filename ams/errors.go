// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/mediaservices/internal/odata"
	"github.com/ManuGH/mediaservices/internal/resilience"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound            = errors.New("ams: resource not found")
	ErrForbidden           = errors.New("ams: access forbidden")
	ErrConflict            = errors.New("ams: resource state conflict")
	ErrUpstreamUnavailable = errors.New("ams: service unreachable or transport failure")
	ErrUpstreamError       = errors.New("ams: service internal error (5xx)")
	ErrBadResponse         = errors.New("ams: invalid response format or malformed data")
	ErrTimeout             = errors.New("ams: request timed out")
	ErrMissingID           = errors.New("ams: entity has no id")
	ErrInvalidArgument     = errors.New("ams: invalid argument")
	ErrOperationFailed     = errors.New("ams: operation failed")

	// ErrCircuitOpen is returned without a network call while the breaker
	// guarding the service is open.
	ErrCircuitOpen = resilience.ErrCircuitOpen
)

// ServiceError is a rich error type that wraps the sentinel errors with
// the request context and the service's own error payload.
type ServiceError struct {
	Sentinel  error
	Operation string
	Status    int
	Code      string
	Message   string
	RequestID string
	Err       error // Nested lower-level error (e.g. net.Error)

	retryAfter time.Duration
	// dialFailed marks transport failures that happened before the request
	// reached the service.
	dialFailed bool
	// tokenFailed marks a credential failure; nothing was sent.
	tokenFailed bool
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("ams: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the nested cause.
func (e *ServiceError) Unwrap() []error {
	errs := []error{e.Sentinel}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// RetryAfter is the server's Retry-After hint, zero when absent.
func (e *ServiceError) RetryAfter() time.Duration { return e.retryAfter }

// OperationError reports an asynchronous operation that ended in Failed.
type OperationError struct {
	OperationID    string
	TargetEntityID string
	Code           string
	Message        string
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("ams: operation %s failed", e.OperationID)
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	return msg
}

func (e *OperationError) Unwrap() error { return ErrOperationFailed }

func missingID(kind string) error {
	return fmt.Errorf("%w: %s", ErrMissingID, kind)
}

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// transportError classifies a failure that produced no HTTP response.
func transportError(op string, err error) *ServiceError {
	se := &ServiceError{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		se.Sentinel = ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		se.Sentinel = ErrTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		se.dialFailed = true
	}
	return se
}

// statusError classifies a non-success HTTP response.
func statusError(op string, status int, header http.Header, body []byte) *ServiceError {
	se := &ServiceError{
		Sentinel:   sentinelForStatus(status),
		Operation:  op,
		Status:     status,
		RequestID:  header.Get(odata.HeaderRequestID),
		retryAfter: parseRetryAfter(header.Get(odata.HeaderRetryAfter), time.Now()),
	}
	if payload, ok := odata.ParseError(body); ok {
		se.Code = payload.Code
		se.Message = payload.Message
	} else if len(body) > 0 {
		se.Message = truncate(string(body), 256)
	}
	return se
}

func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		return ErrConflict
	case status == http.StatusBadRequest:
		return ErrInvalidArgument
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
		return ErrUpstreamUnavailable
	case status >= http.StatusInternalServerError:
		return ErrUpstreamError
	default:
		return ErrBadResponse
	}
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsQueryRetryable reports whether a read can be replayed: any transport
// failure and 408/429/500/502/503/504.
func IsQueryRetryable(err error) bool {
	var se *ServiceError
	if !errors.As(err, &se) || se.tokenFailed {
		return false
	}
	if errors.Is(se.Err, context.Canceled) {
		return false
	}
	if se.Status == 0 {
		return se.Err != nil
	}
	switch se.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsSaveRetryable reports whether a mutation can be replayed without risk
// of applying it twice: transport failures before the request left the
// client and 408/429/503.
func IsSaveRetryable(err error) bool {
	var se *ServiceError
	if !errors.As(err, &se) || se.tokenFailed {
		return false
	}
	if se.Status == 0 {
		return se.dialFailed
	}
	switch se.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// countsAgainstBreaker keeps client-side faults from opening the circuit.
func countsAgainstBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrUpstreamError) ||
		errors.Is(err, ErrTimeout)
}
