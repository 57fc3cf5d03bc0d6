// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package keydelivery

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyID = "nb:kid:UUID:5a3b9f0e-1c2d-4e5f-8a9b-0c1d2e3f4a5b"

var tokenNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGenerateTestToken_JWT(t *testing.T) {
	tmpl := sampleTemplate()
	token, err := GenerateTestToken(tmpl, TokenOptions{
		KeyID:     testKeyID,
		NotBefore: tokenNow.Add(-time.Minute),
		Expires:   tokenNow.Add(time.Hour),
	})
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return tmpl.PrimaryVerificationKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return tokenNow }))
	require.NoError(t, err)
	assert.Equal(t, "http://issuer.example/", claims["iss"])
	assert.Equal(t, "urn:test-audience", claims["aud"])
	assert.Equal(t, "5a3b9f0e-1c2d-4e5f-8a9b-0c1d2e3f4a5b", claims[ContentKeyIdentifierClaimType])
	assert.Equal(t, "gold", claims["urn:custom:tier"])
	assert.EqualValues(t, tokenNow.Add(time.Hour).Unix(), claims["exp"])

	values, err := VerifyToken(tmpl, token, tokenNow)
	require.NoError(t, err)
	assert.Equal(t, "5a3b9f0e-1c2d-4e5f-8a9b-0c1d2e3f4a5b", values[ContentKeyIdentifierClaimType])
}

func TestVerifyToken_JWTAlternateKey(t *testing.T) {
	tmpl := sampleTemplate()
	token, err := GenerateTestToken(tmpl, TokenOptions{
		KeyID:      testKeyID,
		SigningKey: tmpl.AlternateVerificationKeys[0],
		Expires:    tokenNow.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = VerifyToken(tmpl, token, tokenNow)
	assert.NoError(t, err)
}

func TestVerifyToken_JWTFailures(t *testing.T) {
	tmpl := sampleTemplate()
	sign := func(mutate func(*TokenOptions)) string {
		opts := TokenOptions{KeyID: testKeyID, Expires: tokenNow.Add(time.Hour)}
		if mutate != nil {
			mutate(&opts)
		}
		token, err := GenerateTestToken(tmpl, opts)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name  string
		token string
		now   time.Time
	}{
		{"unknown key", sign(func(o *TokenOptions) { o.SigningKey = []byte("other") }), tokenNow},
		{"expired", sign(nil), tokenNow.Add(2 * time.Hour)},
		{"not yet valid", sign(func(o *TokenOptions) { o.NotBefore = tokenNow.Add(time.Minute) }), tokenNow},
		{"garbage", "not-a-token", tokenNow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken(tmpl, tt.token, tt.now)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	other := sampleTemplate()
	other.Audience = "urn:other"
	_, err := VerifyToken(other, sign(nil), tokenNow)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_ClaimMismatch(t *testing.T) {
	tmpl := sampleTemplate()
	token, err := GenerateTestToken(tmpl, TokenOptions{KeyID: testKeyID, Expires: tokenNow.Add(time.Hour)})
	require.NoError(t, err)

	stricter := sampleTemplate()
	stricter.RequiredClaims[1].Value = "platinum"
	_, err = VerifyToken(stricter, token, tokenNow)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "urn:custom:tier")
}

func TestGenerateTestToken_SWT(t *testing.T) {
	tmpl := sampleTemplate()
	tmpl.TokenType = TokenTypeSWT
	token, err := GenerateTestToken(tmpl, TokenOptions{KeyID: testKeyID, Expires: tokenNow.Add(time.Hour)})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, "urn%3Amicrosoft%3Aazure%3Amediaservices%3Acontentkeyidentifier=5a3b9f0e-1c2d-4e5f-8a9b-0c1d2e3f4a5b&"))
	assert.Contains(t, token, "&Issuer=http%3A%2F%2Fissuer.example%2F&Audience=urn%3Atest-audience&ExpiresOn=")
	assert.Contains(t, token, "&HMACSHA256=")

	values, err := VerifyToken(tmpl, token, tokenNow)
	require.NoError(t, err)
	assert.Equal(t, "gold", values["urn:custom:tier"])

	_, err = VerifyToken(tmpl, token, tokenNow.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)

	tampered := strings.Replace(token, "gold", "platinum", 1)
	_, err = VerifyToken(tmpl, tampered, tokenNow)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = VerifyToken(tmpl, "Issuer=x", tokenNow)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateTestToken_MissingClaimValue(t *testing.T) {
	tmpl := sampleTemplate()
	_, err := GenerateTestToken(tmpl, TokenOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ContentKeyIdentifierClaimType)

	tmpl.RequiredClaims = append(tmpl.RequiredClaims, TokenClaim{Type: "urn:custom:region"})
	_, err = GenerateTestToken(tmpl, TokenOptions{KeyID: testKeyID})
	require.Error(t, err)

	token, err := GenerateTestToken(tmpl, TokenOptions{
		KeyID:   testKeyID,
		Claims:  map[string]string{"urn:custom:region": "eu"},
		Expires: tokenNow.Add(time.Hour),
	})
	require.NoError(t, err)
	values, err := VerifyToken(tmpl, token, tokenNow)
	require.NoError(t, err)
	assert.Equal(t, "eu", values["urn:custom:region"])
}
