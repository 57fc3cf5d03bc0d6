// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth acquires the bearer tokens attached to service requests.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNoCredentials is returned when a provider is built without the
	// fields it needs.
	ErrNoCredentials = errors.New("auth: missing credentials")
	// ErrTokenEndpoint wraps failures reported by a token endpoint.
	ErrTokenEndpoint = errors.New("auth: token endpoint error")
)

// Token is an access token and the instant it stops being valid.
// A zero ExpiresAt means the token never expires.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires,omitempty"`
}

// Valid reports whether t can still be used at now with skew to spare.
func (t Token) Valid(now time.Time, skew time.Duration) bool {
	if t.Value == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(skew).Before(t.ExpiresAt)
}

// Provider fetches a fresh token from its issuer.
type Provider interface {
	Fetch(ctx context.Context) (Token, error)
	// Name labels metrics and cache keys.
	Name() string
}

// Static always yields the same non-expiring token.
type Static string

// Fetch implements Provider.
func (s Static) Fetch(context.Context) (Token, error) {
	if strings.TrimSpace(string(s)) == "" {
		return Token{}, ErrNoCredentials
	}
	return Token{Value: string(s)}, nil
}

// Name implements Provider.
func (Static) Name() string { return "static" }
