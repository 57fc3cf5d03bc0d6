// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecrets_Config(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Token = "raw-token"
	cfg.Auth.AAD.ClientSecret = "aad-secret"
	cfg.Auth.Cache.RedisPassword = ""
	cfg.Service.BaseURL = "https://user:pw@media.windows.net/API/"

	masked, ok := MaskSecrets(&cfg).(map[string]any)
	require.True(t, ok)

	auth := masked["auth"].(map[string]any)
	assert.Equal(t, "***", auth["token"])
	assert.Equal(t, "***", auth["acs"].(map[string]any)["account_key"])
	assert.Equal(t, "account", auth["acs"].(map[string]any)["account_name"])
	assert.Equal(t, "***", auth["aad"].(map[string]any)["client_secret"])
	assert.Equal(t, "", auth["cache"].(map[string]any)["redis_password"])

	service := masked["service"].(map[string]any)
	assert.Equal(t, "https://***@media.windows.net/API/", service["base_url"])
	assert.Equal(t, "5s", service["poll_interval"])
	assert.Equal(t, 40, service["rate_burst"])
}

func TestMaskSecrets_Generic(t *testing.T) {
	in := map[string]any{
		"password": "p",
		"nested":   []any{map[string]string{"api_token": "t", "name": "n"}},
		"count":    3,
	}
	out := MaskSecrets(in).(map[string]any)
	assert.Equal(t, "***", out["password"])
	assert.Equal(t, 3, out["count"])
	nested := out["nested"].([]any)[0].(map[string]any)
	assert.Equal(t, "***", nested["api_token"])
	assert.Equal(t, "n", nested["name"])

	assert.Nil(t, MaskSecrets(nil))
	var nilCfg *Config
	assert.Nil(t, MaskSecrets(nilCfg))
}

func TestMaskURL(t *testing.T) {
	assert.Equal(t, "", MaskURL(""))
	assert.Equal(t, "not a url", MaskURL("not a url"))

	sas := MaskURL("https://acct.blob.core.windows.net/asset-1?sv=2012-02-12&sig=abc%2Bdef&se=2025")
	assert.NotContains(t, sas, "abc")
	assert.Contains(t, sas, "sv=2012-02-12")
	assert.Contains(t, sas, "sig=")

	assert.Equal(t, "redis://***@cache:6379/0", MaskURL("redis://:hunter2@cache:6379/0"))
}
