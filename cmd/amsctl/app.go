// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/mediaservices/ams"
	"github.com/ManuGH/mediaservices/internal/auth"
	"github.com/ManuGH/mediaservices/internal/cache"
	"github.com/ManuGH/mediaservices/internal/config"
	xglog "github.com/ManuGH/mediaservices/internal/log"
	"github.com/ManuGH/mediaservices/internal/platform/httpx"
	"github.com/ManuGH/mediaservices/internal/telemetry"
	"github.com/ManuGH/mediaservices/internal/version"
)

// app carries state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	output     string
	logLevel   string

	cfg     *config.Config
	client  *ams.Client
	closers []func() error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, output: outputTable}
}

func (a *app) logger() zerolog.Logger {
	return xglog.WithComponent("amsctl")
}

// setup loads configuration and prepares logging and tracing.
func (a *app) setup(ctx context.Context) error {
	path := a.configPath
	if path == "" {
		path = os.Getenv("AMS_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	xglog.Reconfigure(xglog.Config{
		Level:   cfg.Log.Level,
		Output:  a.stderr,
		Service: "amsctl",
		Version: version.Version,
	})

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	})
	return nil
}

// amsClient builds the SDK client on first use.
func (a *app) amsClient(ctx context.Context) (*ams.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	if a.cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	cfg := a.cfg

	tokens, closeTokens, err := buildTokenSource(ctx, cfg.Auth, cfg.Service.Timeout)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeTokens)

	userAgent := cfg.Service.UserAgent
	if strings.TrimSpace(userAgent) == "" {
		userAgent = version.UserAgent("amsctl")
	}
	client, err := ams.NewClient(ams.Options{
		BaseURL:          cfg.Service.BaseURL,
		APIVersion:       cfg.Service.APIVersion,
		TokenSource:      tokens,
		Timeout:          cfg.Service.Timeout,
		UserAgent:        userAgent,
		QueryRetry:       retryOptions(cfg.Retry.Query),
		SaveRetry:        retryOptions(cfg.Retry.Save),
		PollInterval:     cfg.Service.PollInterval,
		RateLimit:        rate.Limit(cfg.Service.RateLimit),
		RateLimitBurst:   cfg.Service.RateBurst,
		BreakerThreshold: cfg.Breaker.Threshold,
		BreakerReset:     cfg.Breaker.Reset,
	})
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

func retryOptions(p config.RetryPolicyConfig) ams.RetryOptions {
	return ams.RetryOptions{MaxRetries: p.MaxRetries, MinBackoff: p.MinBackoff, MaxBackoff: p.MaxBackoff}
}

// A 401 from the service drops the cached token through this interface.
var _ ams.TokenInvalidator = (*auth.CachingSource)(nil)

// buildTokenSource wires the configured provider behind a caching source.
func buildTokenSource(ctx context.Context, cfg config.AuthConfig, timeout time.Duration) (ams.TokenSource, func() error, error) {
	hc := httpx.NewClient(timeout)

	var (
		provider auth.Provider
		identity string
		err      error
	)
	switch cfg.Mode {
	case config.AuthModeStatic:
		provider = auth.Static(cfg.Token)
	case config.AuthModeACS:
		provider, err = auth.NewACSProvider(auth.ACSConfig{
			Endpoint:     cfg.ACS.Endpoint,
			ClientID:     cfg.ACS.AccountName,
			ClientSecret: cfg.ACS.AccountKey,
			Scope:        cfg.ACS.Scope,
		}, hc)
		identity = cfg.ACS.AccountName
	case config.AuthModeAAD:
		provider, err = auth.NewAADProvider(auth.AADConfig{
			TenantID:     cfg.AAD.TenantID,
			ClientID:     cfg.AAD.ClientID,
			ClientSecret: cfg.AAD.ClientSecret,
			Scope:        cfg.AAD.Scope,
		}, hc)
		identity = cfg.AAD.TenantID + "/" + cfg.AAD.ClientID
	default:
		err = fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, nil, err
	}

	var store cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheMemory:
		store = cache.NewMemoryCache(time.Minute)
	case config.CacheRedis:
		store, err = cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.Prefix,
		}, xglog.WithComponent("cache"))
		if err != nil {
			return nil, nil, fmt.Errorf("connect token cache: %w", err)
		}
	default:
		store = cache.NewNoOpCache()
	}

	src := auth.NewCachingSource(provider, auth.SourceOptions{
		Cache:       store,
		Identity:    identity,
		RefreshSkew: cfg.RefreshSkew,
	})
	return src, store.Close, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger().Debug().Err(err).Msg("release resource")
		}
	}
	a.closers = nil
}
