// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPolicyOptionLinking(t *testing.T) {
	m := newMock(t)
	c := newTestClient(t, m)
	ctx := context.Background()

	policy, err := c.ContentKeyAuthorizationPolicies().Create(ctx, &ContentKeyAuthorizationPolicy{Name: "open"})
	require.NoError(t, err)
	option, err := c.ContentKeyAuthorizationPolicyOptions().Create(ctx, &ContentKeyAuthorizationPolicyOption{
		Name:            "aes-open",
		KeyDeliveryType: KeyDeliveryBaselineHTTP,
		Restrictions: []ContentKeyAuthorizationPolicyRestriction{
			{Name: "open", KeyRestrictionType: RestrictionOpen},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, KeyDeliveryBaselineHTTP, option.KeyDeliveryType)
	require.Len(t, option.Restrictions, 1)

	require.NoError(t, c.ContentKeyAuthorizationPolicies().LinkOption(ctx, policy.ID, option.ID))
	assert.Equal(t, []string{option.ID}, m.Links("ContentKeyAuthorizationPolicies", policy.ID, "Options"))

	var linkBody string
	for _, r := range m.Requests() {
		if strings.Contains(r.Path, "/$links/") {
			linkBody = string(r.Body)
		}
	}
	assert.Contains(t, linkBody, c.BaseURL()+"ContentKeyAuthorizationPolicyOptions(")

	options, err := c.ContentKeyAuthorizationPolicies().Options(ctx, policy.ID)
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "aes-open", options[0].Name)

	require.NoError(t, c.ContentKeyAuthorizationPolicies().UnlinkOption(ctx, policy.ID, option.ID))
	assert.Empty(t, m.Links("ContentKeyAuthorizationPolicies", policy.ID, "Options"))

	err = c.ContentKeyAuthorizationPolicies().UnlinkOption(ctx, policy.ID, option.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseContentKeyDeliveryType(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want ContentKeyDeliveryType
	}{
		{"PlayReadyLicense", KeyDeliveryPlayReadyLicense},
		{"baselinehttp", KeyDeliveryBaselineHTTP},
		{"Widevine", KeyDeliveryWidevine},
	} {
		got, err := ParseContentKeyDeliveryType(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
	_, err := ParseContentKeyDeliveryType("FairPlay")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetKeyDeliveryURL(t *testing.T) {
	m := newMock(t)
	c := newTestClient(t, m)
	ctx := context.Background()
	keyID := m.Seed("ContentKeys", map[string]any{"Id": ContentKeyIDPrefix + "0f0e0d0c-0b0a-0908-0706-050403020100", "ContentKeyType": 4})

	u, err := c.ContentKeys().GetKeyDeliveryURL(ctx, keyID, KeyDeliveryBaselineHTTP)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://keydelivery.mock/"))
	assert.Contains(t, u, "type=2")

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.True(t, strings.HasSuffix(reqs[0].Path, "/GetKeyDeliveryUrl"))
	assert.JSONEq(t, `{"keyDeliveryType":2}`, string(reqs[0].Body))

	_, err = c.ContentKeys().GetKeyDeliveryURL(ctx, keyID, KeyDeliveryNone)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = c.ContentKeys().GetKeyDeliveryURL(ctx, "", KeyDeliveryWidevine)
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestSetAuthorizationPolicy(t *testing.T) {
	m := newMock(t)
	c := newTestClient(t, m)
	ctx := context.Background()
	keyID := m.Seed("ContentKeys", map[string]any{"Id": ContentKeyIDPrefix + "1", "ContentKeyType": 4})

	require.NoError(t, c.ContentKeys().SetAuthorizationPolicy(ctx, keyID, "nb:ckpid:UUID:7"))
	key, err := c.ContentKeys().Get(ctx, keyID)
	require.NoError(t, err)
	assert.Equal(t, "nb:ckpid:UUID:7", key.AuthorizationPolicyID)
	assert.Equal(t, EnvelopeEncryptionKey, key.ContentKeyType)
}

func selfSignedCertificate(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "protection key"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	return priv, base64.StdEncoding.EncodeToString(der)
}

func TestSealContentKey(t *testing.T) {
	priv, cert := selfSignedCertificate(t)
	key := []byte("0123456789abcdef")
	keyID := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")

	encrypted, checksum, err := SealContentKey(cert, key, keyID)
	require.NoError(t, err)

	sealed, err := base64.StdEncoding.DecodeString(encrypted)
	require.NoError(t, err)
	plain, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, priv, sealed, nil)
	require.NoError(t, err)
	assert.Equal(t, key, plain)

	raw, err := base64.StdEncoding.DecodeString(checksum)
	require.NoError(t, err)
	assert.Len(t, raw, 8)

	_, again, err := SealContentKey(cert, key, keyID)
	require.NoError(t, err)
	assert.Equal(t, checksum, again)
	_, other, err := SealContentKey(cert, key, uuid.MustParse("ffeeddcc-bbaa-9988-7766-554433221100"))
	require.NoError(t, err)
	assert.NotEqual(t, checksum, other)

	_, _, err = SealContentKey(cert, key[:8], keyID)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, _, err = SealContentKey("not-base64!", key, keyID)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGUIDByteOrder(t *testing.T) {
	id := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	got := guidBytes(id)
	want := [16]byte{0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	assert.Equal(t, want, got)
}

func TestCreateSealedContentKey(t *testing.T) {
	m := newMock(t)
	_, cert := selfSignedCertificate(t)
	m.SetProtectionCertificate(cert)
	c := newTestClient(t, m)
	ctx := context.Background()

	pkID, err := c.ContentKeys().ProtectionKeyID(ctx, EnvelopeEncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "pk-4", pkID)
	got, err := c.ContentKeys().ProtectionKey(ctx, pkID)
	require.NoError(t, err)
	assert.Equal(t, cert, got)

	keyID := uuid.New()
	encrypted, checksum, err := SealContentKey(got, []byte("fedcba9876543210"), keyID)
	require.NoError(t, err)
	created, err := c.ContentKeys().Create(ctx, &ContentKey{
		ID:                  ContentKeyIDPrefix + keyID.String(),
		ContentKeyType:      EnvelopeEncryptionKey,
		EncryptedContentKey: encrypted,
		ProtectionKeyID:     pkID,
		Checksum:            checksum,
	})
	require.NoError(t, err)
	assert.Equal(t, ContentKeyIDPrefix+keyID.String(), created.ID)

	_, err = c.ContentKeys().Create(ctx, &ContentKey{ID: "plain"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
