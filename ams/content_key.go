// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"crypto/aes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" // #nosec G505 -- the service mandates RSA-OAEP with SHA-1
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/mediaservices/internal/odata"
)

const (
	contentKeySet = "ContentKeys"
	// ContentKeyIDPrefix prefixes every content key id.
	ContentKeyIDPrefix = "nb:kid:UUID:"
)

// ContentKeyType says what a content key protects.
type ContentKeyType int

const (
	CommonEncryptionKey        ContentKeyType = 0
	StorageEncryptionKey       ContentKeyType = 1
	ConfigurationEncryptionKey ContentKeyType = 2
	EnvelopeEncryptionKey      ContentKeyType = 4
	CommonEncryptionCbcsKey    ContentKeyType = 6
)

// ContentKey is a symmetric key used to encrypt or protect assets.
type ContentKey struct {
	ID                    string
	Name                  string
	ContentKeyType        ContentKeyType
	EncryptedContentKey   string
	ProtectionKeyID       string
	ProtectionKeyType     int
	Checksum              string
	AuthorizationPolicyID string
	Created               time.Time
	LastModified          time.Time
}

type contentKeyWire struct {
	ID                    string      `json:"Id"`
	Name                  string      `json:"Name,omitempty"`
	ContentKeyType        int         `json:"ContentKeyType"`
	EncryptedContentKey   string      `json:"EncryptedContentKey,omitempty"`
	ProtectionKeyID       string      `json:"ProtectionKeyId,omitempty"`
	ProtectionKeyType     int         `json:"ProtectionKeyType"`
	Checksum              string      `json:"Checksum,omitempty"`
	AuthorizationPolicyID *string     `json:"AuthorizationPolicyId,omitempty"`
	Created               *odata.Time `json:"Created,omitempty"`
	LastModified          *odata.Time `json:"LastModified,omitempty"`
}

func (k *ContentKey) toWire() *contentKeyWire {
	return &contentKeyWire{
		ID:                    k.ID,
		Name:                  k.Name,
		ContentKeyType:        int(k.ContentKeyType),
		EncryptedContentKey:   k.EncryptedContentKey,
		ProtectionKeyID:       k.ProtectionKeyID,
		ProtectionKeyType:     k.ProtectionKeyType,
		Checksum:              k.Checksum,
		AuthorizationPolicyID: optionalString(k.AuthorizationPolicyID),
		Created:               timePtr(k.Created),
		LastModified:          timePtr(k.LastModified),
	}
}

func (w *contentKeyWire) fromWire() *ContentKey {
	return &ContentKey{
		ID:                    w.ID,
		Name:                  w.Name,
		ContentKeyType:        ContentKeyType(w.ContentKeyType),
		EncryptedContentKey:   w.EncryptedContentKey,
		ProtectionKeyID:       w.ProtectionKeyID,
		ProtectionKeyType:     w.ProtectionKeyType,
		Checksum:              w.Checksum,
		AuthorizationPolicyID: stringValue(w.AuthorizationPolicyID),
		Created:               timeValue(w.Created),
		LastModified:          timeValue(w.LastModified),
	}
}

// ContentKeyCollection manages content keys.
type ContentKeyCollection struct {
	client *Client
	set    *entitySet[ContentKey, contentKeyWire]
}

func newContentKeyCollection(c *Client) *ContentKeyCollection {
	return &ContentKeyCollection{
		client: c,
		set: &entitySet[ContentKey, contentKeyWire]{
			client:   c,
			name:     contentKeySet,
			toWire:   (*ContentKey).toWire,
			fromWire: (*contentKeyWire).fromWire,
		},
	}
}

// Create registers a content key sealed with SealContentKey.
func (kc *ContentKeyCollection) Create(ctx context.Context, k *ContentKey) (*ContentKey, error) {
	switch {
	case k == nil:
		return nil, invalidArg("content key is nil")
	case !strings.HasPrefix(k.ID, ContentKeyIDPrefix):
		return nil, invalidArg("content key id %q must start with %s", k.ID, ContentKeyIDPrefix)
	case k.EncryptedContentKey == "" || k.ProtectionKeyID == "":
		return nil, invalidArg("content key %s is not sealed", k.ID)
	}
	created, _, err := kc.set.create(ctx, k)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, &ServiceError{Sentinel: ErrBadResponse, Operation: "post ContentKeys/create", Message: "empty create response"}
	}
	return created, nil
}

// Get fetches a content key by id.
func (kc *ContentKeyCollection) Get(ctx context.Context, id string) (*ContentKey, error) {
	return kc.set.get(ctx, id)
}

// List returns content keys matching q.
func (kc *ContentKeyCollection) List(ctx context.Context, q *Query) ([]*ContentKey, error) {
	return kc.set.list(ctx, contentKeySet, q)
}

// Delete deletes a content key.
func (kc *ContentKeyCollection) Delete(ctx context.Context, id string) error {
	_, err := kc.set.remove(ctx, id)
	return err
}

type authorizationPolicyPatch struct {
	AuthorizationPolicyID string `json:"AuthorizationPolicyId"`
}

// SetAuthorizationPolicy binds a key to the policy that governs delivery.
func (kc *ContentKeyCollection) SetAuthorizationPolicy(ctx context.Context, keyID, policyID string) error {
	if keyID == "" {
		return missingID("content key")
	}
	if policyID == "" {
		return missingID("content key authorization policy")
	}
	_, err := kc.client.do(ctx, request{
		method:    odata.MethodMerge,
		path:      odata.EntityPath(contentKeySet, keyID),
		body:      authorizationPolicyPatch{AuthorizationPolicyID: policyID},
		policy:    kc.client.savePolicy,
		entitySet: contentKeySet,
		entityID:  keyID,
		action:    "update",
	})
	return err
}

type keyDeliveryRequest struct {
	KeyDeliveryType int `json:"keyDeliveryType"`
}

// GetKeyDeliveryURL returns the license or key acquisition URL the service
// hands out for keyID.
func (kc *ContentKeyCollection) GetKeyDeliveryURL(ctx context.Context, keyID string, t ContentKeyDeliveryType) (string, error) {
	if keyID == "" {
		return "", missingID("content key")
	}
	if t == KeyDeliveryNone {
		return "", invalidArg("key delivery type must not be None")
	}
	r := request{
		method:    http.MethodPost,
		path:      odata.NavigationPath(contentKeySet, keyID, "GetKeyDeliveryUrl"),
		body:      keyDeliveryRequest{KeyDeliveryType: int(t)},
		policy:    kc.client.savePolicy,
		entitySet: contentKeySet,
		entityID:  keyID,
		action:    "GetKeyDeliveryUrl",
	}
	res, err := kc.client.do(ctx, r)
	if err != nil {
		return "", err
	}
	var out string
	if err := odata.DecodeValue(res.body, &out); err != nil {
		return "", &ServiceError{Sentinel: ErrBadResponse, Operation: r.operation(), Status: res.status, Err: err}
	}
	return out, nil
}

// ProtectionKeyID returns the id of the certificate that seals keys of type t.
func (kc *ContentKeyCollection) ProtectionKeyID(ctx context.Context, t ContentKeyType) (string, error) {
	return kc.function(ctx, "GetProtectionKeyId", url.Values{"contentKeyType": {fmt.Sprint(int(t))}})
}

// ProtectionKey returns the base64 X.509 certificate for a protection key id.
func (kc *ContentKeyCollection) ProtectionKey(ctx context.Context, protectionKeyID string) (string, error) {
	if protectionKeyID == "" {
		return "", missingID("protection key")
	}
	return kc.function(ctx, "GetProtectionKey", url.Values{"ProtectionKeyId": {odata.StringLiteral(protectionKeyID)}})
}

func (kc *ContentKeyCollection) function(ctx context.Context, name string, args url.Values) (string, error) {
	r := request{
		method:    http.MethodGet,
		path:      name,
		query:     args,
		policy:    kc.client.queryPolicy,
		entitySet: contentKeySet,
		action:    name,
	}
	res, err := kc.client.do(ctx, r)
	if err != nil {
		return "", err
	}
	var out string
	if err := odata.DecodeValue(res.body, &out); err != nil {
		return "", &ServiceError{Sentinel: ErrBadResponse, Operation: r.operation(), Status: res.status, Err: err}
	}
	return out, nil
}

// SealContentKey encrypts a 16 byte AES key with the protection certificate
// (base64 DER) and computes the checksum the service verifies on Create.
func SealContentKey(certificate string, key []byte, keyID uuid.UUID) (encrypted, checksum string, err error) {
	if len(key) != 16 {
		return "", "", invalidArg("content key must be 16 bytes, got %d", len(key))
	}
	der, err := base64.StdEncoding.DecodeString(certificate)
	if err != nil {
		return "", "", invalidArg("protection certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return "", "", invalidArg("protection certificate: %v", err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return "", "", invalidArg("protection certificate does not carry an RSA key")
	}
	sealed, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, key, nil) // #nosec G401
	if err != nil {
		return "", "", fmt.Errorf("seal content key: %w", err)
	}
	sum, err := keyChecksum(key, keyID)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), sum, nil
}

// keyChecksum encrypts the key id (in GUID byte order) with the key as a
// single AES block and keeps the first 8 bytes.
func keyChecksum(key []byte, keyID uuid.UUID) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", invalidArg("content key: %v", err)
	}
	src := guidBytes(keyID)
	dst := make([]byte, aes.BlockSize)
	block.Encrypt(dst, src[:])
	return base64.StdEncoding.EncodeToString(dst[:8]), nil
}

// guidBytes reorders a RFC 4122 UUID into the mixed-endian GUID layout.
func guidBytes(id uuid.UUID) [16]byte {
	var b [16]byte
	copy(b[:], id[:])
	b[0], b[1], b[2], b[3] = id[3], id[2], id[1], id[0]
	b[4], b[5] = id[5], id[4]
	b[6], b[7] = id[7], id[6]
	return b
}
