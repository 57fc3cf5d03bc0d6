// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

type validator struct {
	errs []error
}

func (v *validator) fail(field, format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf("%s: %s", field, fmt.Sprintf(format, args...)))
}

func (v *validator) positive(field string, ok bool) {
	if !ok {
		v.fail(field, "must be positive")
	}
}

// Validate checks cfg and reports every problem at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	var v validator

	if cfg.Version != CurrentVersion {
		v.fail("version", "unsupported version %d (want %d)", cfg.Version, CurrentVersion)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level)); err != nil {
		v.fail("log.level", "unknown level %q", cfg.Log.Level)
	}

	validateService(&v, cfg.Service)
	validateAuth(&v, cfg.Auth)

	for name, p := range map[string]RetryPolicyConfig{"retry.query": cfg.Retry.Query, "retry.save": cfg.Retry.Save} {
		if p.MaxRetries < -1 {
			v.fail(name+".max_retries", "must be -1 or greater")
		}
		if p.MinBackoff < 0 || p.MaxBackoff < 0 {
			v.fail(name, "backoff must not be negative")
		}
		if p.MinBackoff > 0 && p.MaxBackoff > 0 && p.MinBackoff > p.MaxBackoff {
			v.fail(name, "min_backoff %s exceeds max_backoff %s", p.MinBackoff, p.MaxBackoff)
		}
	}

	v.positive("breaker.threshold", cfg.Breaker.Threshold > 0)
	v.positive("breaker.reset", cfg.Breaker.Reset > 0)
	v.positive("upload.window", cfg.Upload.Window > 0)
	v.positive("upload.concurrency", cfg.Upload.Concurrency > 0)

	t := cfg.Telemetry
	if t.Exporter != "grpc" && t.Exporter != "http" {
		v.fail("telemetry.exporter", "must be grpc or http, got %q", t.Exporter)
	}
	if t.SamplingRate < 0 || t.SamplingRate > 1 {
		v.fail("telemetry.sampling_rate", "must be between 0 and 1")
	}
	if t.Enabled && strings.TrimSpace(t.Endpoint) == "" {
		v.fail("telemetry.endpoint", "required when telemetry is enabled")
	}

	if len(v.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(v.errs...))
}

func validateService(v *validator, s ServiceConfig) {
	u, err := url.Parse(strings.TrimSpace(s.BaseURL))
	switch {
	case s.BaseURL == "":
		v.fail("service.base_url", "required")
	case err != nil:
		v.fail("service.base_url", "%v", err)
	case u.Scheme != "http" && u.Scheme != "https":
		v.fail("service.base_url", "scheme must be http or https")
	case u.Host == "":
		v.fail("service.base_url", "missing host")
	}
	if strings.TrimSpace(s.APIVersion) == "" {
		v.fail("service.api_version", "required")
	}
	v.positive("service.timeout", s.Timeout > 0)
	v.positive("service.poll_interval", s.PollInterval > 0)
	v.positive("service.rate_limit", s.RateLimit > 0)
	v.positive("service.rate_burst", s.RateBurst > 0)
}

func validateAuth(v *validator, a AuthConfig) {
	switch a.Mode {
	case AuthModeStatic:
		if strings.TrimSpace(a.Token) == "" {
			v.fail("auth.token", "required for static auth")
		}
	case AuthModeACS:
		if a.ACS.AccountName == "" || a.ACS.AccountKey == "" {
			v.fail("auth.acs", "account_name and account_key are required")
		}
	case AuthModeAAD:
		if a.AAD.ClientSecret != "" && (a.AAD.ClientID == "" || a.AAD.TenantID == "") {
			v.fail("auth.aad", "client_secret needs client_id and tenant_id")
		}
	default:
		v.fail("auth.mode", "must be static, acs or aad, got %q", a.Mode)
	}
	if a.RefreshSkew < 0 {
		v.fail("auth.refresh_skew", "must not be negative")
	}
	switch a.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(a.Cache.RedisAddr) == "" {
			v.fail("auth.cache.redis_addr", "required for the redis backend")
		}
	default:
		v.fail("auth.cache.backend", "must be none, memory or redis, got %q", a.Cache.Backend)
	}
}
