// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTokenValid(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Token{}.Valid(now, time.Minute))
	assert.True(t, Token{Value: "x"}.Valid(now, time.Minute))
	assert.True(t, Token{Value: "x", ExpiresAt: now.Add(2 * time.Minute)}.Valid(now, time.Minute))
	assert.False(t, Token{Value: "x", ExpiresAt: now.Add(time.Minute)}.Valid(now, time.Minute))
	assert.False(t, Token{Value: "x", ExpiresAt: now.Add(-time.Second)}.Valid(now, 0))
}

func TestStatic(t *testing.T) {
	tok, err := Static("abc").Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.Value)
	assert.True(t, tok.ExpiresAt.IsZero())

	_, err = Static(" ").Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func newACS(t *testing.T, handler http.HandlerFunc) (*ACSProvider, time.Time) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewACSProvider(ACSConfig{
		Endpoint:     srv.URL + "/v2/OAuth2-13",
		ClientID:     "account",
		ClientSecret: "s3cr3t+key=",
	}, srv.Client())
	require.NoError(t, err)
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return issued }
	return p, issued
}

func TestACSProvider_Fetch(t *testing.T) {
	var form url.Values
	p, issued := newACS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/OAuth2-13", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token_type":"http://schemas.xmlsoap.org/ws/2009/11/swt-token-profile-1.0","access_token":"tok-1","expires_in":"21600","scope":"urn:WindowsAzureMediaServices"}`)
	})

	tok, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.Value)
	assert.Equal(t, issued.Add(6*time.Hour), tok.ExpiresAt)

	assert.Equal(t, "client_credentials", form.Get("grant_type"))
	assert.Equal(t, "account", form.Get("client_id"))
	assert.Equal(t, "s3cr3t+key=", form.Get("client_secret"))
	assert.Equal(t, DefaultACSScope, form.Get("scope"))
}

func TestACSProvider_NumericExpiresIn(t *testing.T) {
	p, issued := newACS(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":"tok-2","expires_in":3599}`)
	})

	tok, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, issued.Add(3599*time.Second), tok.ExpiresAt)
}

func TestACSProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"rejected", http.StatusBadRequest, `{"error":"invalid_client","error_description":"ACS50012: Authentication failed."}`, "ACS50012"},
		{"no description", http.StatusUnauthorized, `{"error":"unauthorized_client"}`, "unauthorized_client"},
		{"not json", http.StatusBadGateway, `<html/>`, "Bad Gateway"},
		{"no token", http.StatusOK, `{"expires_in":"60"}`, "no access_token"},
		{"bad expiry", http.StatusOK, `{"access_token":"x","expires_in":"soon"}`, "invalid expires_in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newACS(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := p.Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTokenEndpoint)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestNewACSProvider_Validation(t *testing.T) {
	_, err := NewACSProvider(ACSConfig{ClientID: "a"}, nil)
	assert.ErrorIs(t, err, ErrNoCredentials)

	p, err := NewACSProvider(ACSConfig{ClientID: "a", ClientSecret: "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultACSEndpoint, p.cfg.Endpoint)
	assert.Equal(t, "acs", p.Name())
}

type fakeCredential struct {
	scopes []string
	token  azcore.AccessToken
	err    error
}

func (f *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.scopes = opts.Scopes
	return f.token, f.err
}

func TestAADProvider(t *testing.T) {
	expires := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	cred := &fakeCredential{token: azcore.AccessToken{Token: "aad-token", ExpiresOn: expires}}

	p := NewCredentialProvider(cred, "")
	tok, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Token{Value: "aad-token", ExpiresAt: expires}, tok)
	assert.Equal(t, []string{DefaultAADScope}, cred.scopes)
	assert.Equal(t, "aad", p.Name())

	cred.err = errors.New("AADSTS7000215: invalid client secret")
	_, err = p.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrTokenEndpoint)
	assert.Contains(t, err.Error(), "AADSTS7000215")
}

func TestNewAADProvider_RequiresTenantForSecret(t *testing.T) {
	_, err := NewAADProvider(AADConfig{ClientID: "app", ClientSecret: "secret"}, nil)
	assert.ErrorIs(t, err, ErrNoCredentials)

	p, err := NewAADProvider(AADConfig{TenantID: "tenant", ClientID: "app", ClientSecret: "secret", Scope: "api://custom/.default"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "api://custom/.default", p.scope)
}
