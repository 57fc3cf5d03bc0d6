// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// CurrentVersion is written by Save and accepted by Load.
const CurrentVersion = 1

// Auth modes.
const (
	AuthModeStatic = "static"
	AuthModeACS    = "acs"
	AuthModeAAD    = "aad"
)

// Token cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the complete client configuration. Durations use Go syntax
// ("5s", "1m30s") in YAML and in the environment.
type Config struct {
	Version   int             `yaml:"version"`
	Log       LogConfig       `yaml:"log"`
	Service   ServiceConfig   `yaml:"service"`
	Auth      AuthConfig      `yaml:"auth"`
	Retry     RetryConfig     `yaml:"retry"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Upload    UploadConfig    `yaml:"upload"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// ServiceConfig locates the REST endpoint.
type ServiceConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIVersion   string        `yaml:"api_version"`
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval"`
	RateLimit    float64       `yaml:"rate_limit"`
	RateBurst    int           `yaml:"rate_burst"`
}

// AuthConfig selects the token provider.
type AuthConfig struct {
	Mode        string        `yaml:"mode"`
	Token       string        `yaml:"token,omitempty"`
	ACS         ACSConfig     `yaml:"acs"`
	AAD         AADConfig     `yaml:"aad"`
	RefreshSkew time.Duration `yaml:"refresh_skew"`
	Cache       CacheConfig   `yaml:"cache"`
}

type ACSConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty"`
	AccountName string `yaml:"account_name,omitempty"`
	AccountKey  string `yaml:"account_key,omitempty"`
	Scope       string `yaml:"scope,omitempty"`
}

// AADConfig uses a service principal when ClientID and ClientSecret are
// set, otherwise the default Azure credential chain.
type AADConfig struct {
	TenantID     string `yaml:"tenant_id,omitempty"`
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
	Scope        string `yaml:"scope,omitempty"`
}

// CacheConfig controls where tokens are shared.
type CacheConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
	Prefix        string `yaml:"prefix,omitempty"`
}

type RetryConfig struct {
	Query RetryPolicyConfig `yaml:"query"`
	Save  RetryPolicyConfig `yaml:"save"`
}

// RetryPolicyConfig mirrors ams.RetryOptions. MaxRetries -1 disables retries.
type RetryPolicyConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	MinBackoff time.Duration `yaml:"min_backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

type BreakerConfig struct {
	Threshold int           `yaml:"threshold"`
	Reset     time.Duration `yaml:"reset"`
}

type UploadConfig struct {
	Window      time.Duration `yaml:"window"`
	Concurrency int           `yaml:"concurrency"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment,omitempty"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Default returns the configuration used before file and env overrides.
func Default() Config {
	return Config{
		Version: CurrentVersion,
		Log:     LogConfig{Level: "info"},
		Service: ServiceConfig{
			BaseURL:      "https://media.windows.net/API/",
			APIVersion:   "2.19",
			Timeout:      60 * time.Second,
			PollInterval: 5 * time.Second,
			RateLimit:    20,
			RateBurst:    40,
		},
		Auth: AuthConfig{
			Mode:        AuthModeACS,
			RefreshSkew: 5 * time.Minute,
			Cache:       CacheConfig{Backend: CacheMemory, Prefix: "mediaservices:"},
		},
		Retry: RetryConfig{
			Query: RetryPolicyConfig{MaxRetries: 4, MinBackoff: time.Second, MaxBackoff: 30 * time.Second},
			Save:  RetryPolicyConfig{MaxRetries: 4, MinBackoff: time.Second, MaxBackoff: 30 * time.Second},
		},
		Breaker: BreakerConfig{Threshold: 5, Reset: 30 * time.Second},
		Upload:  UploadConfig{Window: 4 * time.Hour, Concurrency: 4},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			ServiceName:  "amsctl",
			SamplingRate: 1.0,
		},
	}
}
