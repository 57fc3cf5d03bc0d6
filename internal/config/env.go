// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/mediaservices/internal/log"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "AMS_"

// envReader applies environment overrides on top of a value that already
// holds the file or default setting. Empty variables keep that setting.
type envReader struct {
	lookup func(string) (string, bool)
	logger zerolog.Logger
}

func newEnvReader(lookup func(string) (string, bool)) envReader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return envReader{lookup: lookup, logger: log.WithComponent("config")}
}

func (r envReader) get(key string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r envReader) String(key string, dst *string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	ev := r.logger.Debug().Str("key", EnvPrefix+key).Str("source", "environment")
	if isSensitiveKey(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", v)
	}
	ev.Msg("using environment variable")
	*dst = v
}

func (r envReader) Int(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.logger.Warn().
			Str("key", EnvPrefix+key).
			Str("value", v).
			Int("current", *dst).
			Msg("invalid integer in environment variable, keeping current value")
		return
	}
	r.logger.Debug().Str("key", EnvPrefix+key).Int("value", i).Str("source", "environment").Msg("using environment variable")
	*dst = i
}

func (r envReader) Float(key string, dst *float64) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		r.logger.Warn().
			Str("key", EnvPrefix+key).
			Str("value", v).
			Float64("current", *dst).
			Msg("invalid number in environment variable, keeping current value")
		return
	}
	r.logger.Debug().Str("key", EnvPrefix+key).Float64("value", f).Str("source", "environment").Msg("using environment variable")
	*dst = f
}

func (r envReader) Duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		r.logger.Warn().
			Str("key", EnvPrefix+key).
			Str("value", v).
			Dur("current", *dst).
			Msg("invalid duration in environment variable, keeping current value")
		return
	}
	r.logger.Debug().Str("key", EnvPrefix+key).Dur("value", d).Str("source", "environment").Msg("using environment variable")
	*dst = d
}

func (r envReader) Bool(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.logger.Warn().
			Str("key", EnvPrefix+key).
			Str("value", v).
			Bool("current", *dst).
			Msg("invalid boolean in environment variable, keeping current value")
		return
	}
	r.logger.Debug().Str("key", EnvPrefix+key).Bool("value", b).Str("source", "environment").Msg("using environment variable")
	*dst = b
}

// applyEnv overlays AMS_* variables onto cfg.
func applyEnv(cfg *Config, r envReader) {
	r.String("LOG_LEVEL", &cfg.Log.Level)

	r.String("BASE_URL", &cfg.Service.BaseURL)
	r.String("API_VERSION", &cfg.Service.APIVersion)
	r.Duration("TIMEOUT", &cfg.Service.Timeout)
	r.String("USER_AGENT", &cfg.Service.UserAgent)
	r.Duration("POLL_INTERVAL", &cfg.Service.PollInterval)
	r.Float("RATE_LIMIT", &cfg.Service.RateLimit)
	r.Int("RATE_BURST", &cfg.Service.RateBurst)

	r.String("AUTH_MODE", &cfg.Auth.Mode)
	r.String("TOKEN", &cfg.Auth.Token)
	r.Duration("TOKEN_REFRESH_SKEW", &cfg.Auth.RefreshSkew)
	r.String("ACS_ENDPOINT", &cfg.Auth.ACS.Endpoint)
	r.String("ACCOUNT_NAME", &cfg.Auth.ACS.AccountName)
	r.String("ACCOUNT_KEY", &cfg.Auth.ACS.AccountKey)
	r.String("ACS_SCOPE", &cfg.Auth.ACS.Scope)
	r.String("TENANT_ID", &cfg.Auth.AAD.TenantID)
	r.String("CLIENT_ID", &cfg.Auth.AAD.ClientID)
	r.String("CLIENT_SECRET", &cfg.Auth.AAD.ClientSecret)
	r.String("AAD_SCOPE", &cfg.Auth.AAD.Scope)
	r.String("TOKEN_CACHE", &cfg.Auth.Cache.Backend)
	r.String("REDIS_ADDR", &cfg.Auth.Cache.RedisAddr)
	r.String("REDIS_PASSWORD", &cfg.Auth.Cache.RedisPassword)
	r.Int("REDIS_DB", &cfg.Auth.Cache.RedisDB)
	r.String("REDIS_PREFIX", &cfg.Auth.Cache.Prefix)

	r.Int("QUERY_MAX_RETRIES", &cfg.Retry.Query.MaxRetries)
	r.Duration("QUERY_MIN_BACKOFF", &cfg.Retry.Query.MinBackoff)
	r.Duration("QUERY_MAX_BACKOFF", &cfg.Retry.Query.MaxBackoff)
	r.Int("SAVE_MAX_RETRIES", &cfg.Retry.Save.MaxRetries)
	r.Duration("SAVE_MIN_BACKOFF", &cfg.Retry.Save.MinBackoff)
	r.Duration("SAVE_MAX_BACKOFF", &cfg.Retry.Save.MaxBackoff)

	r.Int("BREAKER_THRESHOLD", &cfg.Breaker.Threshold)
	r.Duration("BREAKER_RESET", &cfg.Breaker.Reset)

	r.Duration("UPLOAD_WINDOW", &cfg.Upload.Window)
	r.Int("UPLOAD_CONCURRENCY", &cfg.Upload.Concurrency)

	r.Bool("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	r.String("OTLP_EXPORTER", &cfg.Telemetry.Exporter)
	r.String("OTLP_ENDPOINT", &cfg.Telemetry.Endpoint)
	r.String("TELEMETRY_SERVICE_NAME", &cfg.Telemetry.ServiceName)
	r.String("TELEMETRY_ENVIRONMENT", &cfg.Telemetry.Environment)
	r.Float("TELEMETRY_SAMPLING_RATE", &cfg.Telemetry.SamplingRate)
}
