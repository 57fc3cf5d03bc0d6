// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() Config {
	cfg := Default()
	cfg.Auth.ACS.AccountName = "account"
	cfg.Auth.ACS.AccountKey = "key=="
	return cfg
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "ams.yaml", `
version: 1
log:
  level: debug
service:
  base_url: https://wamsbayclus001rest-hs.cloudapp.net/api/
  poll_interval: 2s
auth:
  mode: acs
  acs:
    account_name: fileaccount
    account_key: filekey
retry:
  save:
    max_retries: -1
`)
	cfg, err := NewLoader(path).WithLookup(envMap(map[string]string{
		"AMS_ACCOUNT_KEY":        "envkey",
		"AMS_RATE_LIMIT":         "5.5",
		"AMS_UPLOAD_CONCURRENCY": "8",
		"AMS_TELEMETRY_ENABLED":  "true",
		"AMS_OTLP_ENDPOINT":      "localhost:4317",
		"AMS_API_VERSION":        "",
	})).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "https://wamsbayclus001rest-hs.cloudapp.net/api/", cfg.Service.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Service.PollInterval)
	assert.Equal(t, "fileaccount", cfg.Auth.ACS.AccountName)
	assert.Equal(t, "envkey", cfg.Auth.ACS.AccountKey)
	assert.Equal(t, -1, cfg.Retry.Save.MaxRetries)
	assert.Equal(t, 5.5, cfg.Service.RateLimit)
	assert.Equal(t, 8, cfg.Upload.Concurrency)
	assert.True(t, cfg.Telemetry.Enabled)

	// untouched defaults survive both layers
	assert.Equal(t, "2.19", cfg.Service.APIVersion)
	assert.Equal(t, 60*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 4, cfg.Retry.Query.MaxRetries)
	assert.Equal(t, CacheMemory, cfg.Auth.Cache.Backend)
}

func TestLoad_EnvOnly(t *testing.T) {
	cfg, err := NewLoader("").WithLookup(envMap(map[string]string{
		"AMS_AUTH_MODE": "static",
		"AMS_TOKEN":     "bearer-token",
		"AMS_TIMEOUT":   "15s",
	})).Load()
	require.NoError(t, err)
	assert.Equal(t, AuthModeStatic, cfg.Auth.Mode)
	assert.Equal(t, "bearer-token", cfg.Auth.Token)
	assert.Equal(t, 15*time.Second, cfg.Service.Timeout)
}

func TestLoad_InvalidEnvKeepsCurrent(t *testing.T) {
	cfg, err := NewLoader("").WithLookup(envMap(map[string]string{
		"AMS_ACCOUNT_NAME":      "a",
		"AMS_ACCOUNT_KEY":       "b",
		"AMS_RATE_BURST":        "lots",
		"AMS_POLL_INTERVAL":     "soon",
		"AMS_TELEMETRY_ENABLED": "maybe",
	})).Load()
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Service.RateBurst)
	assert.Equal(t, 5*time.Second, cfg.Service.PollInterval)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_StrictParsing(t *testing.T) {
	path := writeFile(t, "ams.yaml", "service:\n  base_uri: https://example/\n")
	_, err := NewLoader(path).WithLookup(envMap(nil)).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConfigField)

	path = writeFile(t, "multi.yaml", "version: 1\n---\nversion: 1\n")
	_, err = NewLoader(path).WithLookup(envMap(nil)).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")

	path = writeFile(t, "ams.json", "{}")
	_, err = NewLoader(path).WithLookup(envMap(nil)).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")

	_, err = NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeFile(t, "empty.yaml", "")
	cfg, err := NewLoader(path).WithLookup(envMap(map[string]string{
		"AMS_ACCOUNT_NAME": "a",
		"AMS_ACCOUNT_KEY":  "b",
	})).Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Service, cfg.Service)
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Validate(&cfg))

	cfg.Version = 2
	cfg.Log.Level = "loud"
	cfg.Service.BaseURL = "ftp://media"
	cfg.Service.PollInterval = 0
	cfg.Auth.ACS.AccountKey = ""
	cfg.Auth.Cache.Backend = CacheRedis
	cfg.Retry.Query.MinBackoff = time.Minute
	cfg.Retry.Query.MaxBackoff = time.Second
	cfg.Telemetry.Exporter = "zipkin"

	err := Validate(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	for _, field := range []string{
		"version", "log.level", "service.base_url", "service.poll_interval",
		"auth.acs", "auth.cache.redis_addr", "retry.query", "telemetry.exporter",
	} {
		assert.Contains(t, err.Error(), field)
	}

	assert.ErrorIs(t, Validate(nil), ErrInvalidConfig)
}

func TestValidate_AuthModes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AuthConfig)
		ok     bool
	}{
		{"static without token", func(a *AuthConfig) { a.Mode = AuthModeStatic }, false},
		{"static", func(a *AuthConfig) { a.Mode = AuthModeStatic; a.Token = "t" }, true},
		{"aad default chain", func(a *AuthConfig) { a.Mode = AuthModeAAD }, true},
		{"aad secret without tenant", func(a *AuthConfig) { a.Mode = AuthModeAAD; a.AAD.ClientID = "c"; a.AAD.ClientSecret = "s" }, false},
		{"unknown", func(a *AuthConfig) { a.Mode = "kerberos" }, false},
		{"unknown cache", func(a *AuthConfig) { a.Cache.Backend = "memcached" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.Auth)
			err := Validate(&cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestManager_SaveRoundTrip(t *testing.T) {
	want := validConfig()
	want.Service.PollInterval = 1500 * time.Millisecond
	want.Auth.Cache = CacheConfig{Backend: CacheRedis, RedisAddr: "localhost:6379", Prefix: "ams:"}

	path := filepath.Join(t.TempDir(), "nested", "ams.yaml")
	m := NewManager(path)
	require.NoError(t, m.Save(&want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "poll_interval: 1.5s")

	got, err := NewLoader(path).WithLookup(envMap(nil)).Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_SaveRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ams.yaml")
	cfg := Default()
	err := NewManager(path).Save(&cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
