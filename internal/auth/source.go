// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/mediaservices/internal/cache"
	xglog "github.com/ManuGH/mediaservices/internal/log"
	"github.com/ManuGH/mediaservices/internal/metrics"
)

const (
	// DefaultRefreshSkew renews tokens this long before they expire.
	DefaultRefreshSkew = 5 * time.Minute
	// DefaultFetchTimeout bounds a single provider call.
	DefaultFetchTimeout = 30 * time.Second
)

// SourceOptions configures a CachingSource.
type SourceOptions struct {
	// Cache shares tokens between processes. Nil keeps them in memory only.
	Cache cache.Cache
	// CacheKey identifies the credential in Cache. Derived from the
	// provider name and Identity when empty.
	CacheKey string
	// Identity distinguishes accounts using the same provider kind.
	Identity    string
	RefreshSkew time.Duration
	// FetchTimeout bounds one provider call shared by concurrent callers.
	FetchTimeout time.Duration
}

// CachingSource hands out a provider's token until it is about to expire.
// Concurrent refreshes collapse into one provider call. It satisfies
// ams.TokenSource.
type CachingSource struct {
	provider     Provider
	store        cache.Cache
	key          string
	skew         time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       zerolog.Logger

	mu      sync.RWMutex
	current Token
	group   singleflight.Group
}

// NewCachingSource wraps p.
func NewCachingSource(p Provider, opts SourceOptions) *CachingSource {
	if opts.RefreshSkew <= 0 {
		opts.RefreshSkew = DefaultRefreshSkew
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	key := opts.CacheKey
	if key == "" {
		sum := sha256.Sum256([]byte(p.Name() + "\x00" + opts.Identity))
		key = "token:" + p.Name() + ":" + hex.EncodeToString(sum[:])[:16]
	}
	return &CachingSource{
		provider:     p,
		store:        opts.Cache,
		key:          key,
		skew:         opts.RefreshSkew,
		fetchTimeout: opts.FetchTimeout,
		now:          time.Now,
		logger:       xglog.WithComponent("auth"),
	}
}

// AccessToken returns a valid token, fetching a new one when needed.
func (s *CachingSource) AccessToken(ctx context.Context) (string, error) {
	if tok, ok := s.cached(); ok {
		metrics.RecordTokenRefresh(s.provider.Name(), "cache_hit")
		return tok.Value, nil
	}

	// The shared fetch outlives any single caller; each caller still
	// stops waiting when its own ctx ends.
	ch := s.group.DoChan(s.key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		if tok, ok := s.cached(); ok {
			return tok, nil
		}
		if tok, ok := s.shared(ctx); ok {
			s.remember(tok)
			return tok, nil
		}
		tok, err := s.provider.Fetch(ctx)
		if err != nil {
			metrics.RecordTokenRefresh(s.provider.Name(), "failure")
			s.logger.Warn().
				Err(err).
				Str("event", "auth.token.refresh_failed").
				Str("provider", s.provider.Name()).
				Msg("token refresh failed")
			return Token{}, err
		}
		metrics.RecordTokenRefresh(s.provider.Name(), "success")
		s.remember(tok)
		s.publish(ctx, tok)
		s.logger.Debug().
			Str("event", "auth.token.refreshed").
			Str("provider", s.provider.Name()).
			Time("expires_at", tok.ExpiresAt).
			Msg("access token refreshed")
		return tok, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(Token).Value, nil
	}
}

// Invalidate drops the current token so the next call refetches it.
func (s *CachingSource) Invalidate(ctx context.Context) {
	s.mu.Lock()
	s.current = Token{}
	s.mu.Unlock()
	if s.store != nil {
		s.store.Delete(ctx, s.key)
	}
}

func (s *CachingSource) cached() (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current.Valid(s.now(), s.skew)
}

func (s *CachingSource) remember(tok Token) {
	s.mu.Lock()
	s.current = tok
	s.mu.Unlock()
}

func (s *CachingSource) shared(ctx context.Context) (Token, bool) {
	if s.store == nil {
		return Token{}, false
	}
	data, ok := s.store.Get(ctx, s.key)
	if !ok {
		return Token{}, false
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		s.store.Delete(ctx, s.key)
		return Token{}, false
	}
	if !tok.Valid(s.now(), s.skew) {
		return Token{}, false
	}
	metrics.RecordTokenRefresh(s.provider.Name(), "cache_hit")
	return tok, true
}

func (s *CachingSource) publish(ctx context.Context, tok Token) {
	if s.store == nil {
		return
	}
	var ttl time.Duration
	if !tok.ExpiresAt.IsZero() {
		ttl = tok.ExpiresAt.Sub(s.now()) - s.skew
		if ttl <= 0 {
			return
		}
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return
	}
	s.store.Set(ctx, s.key, data, ttl)
}
