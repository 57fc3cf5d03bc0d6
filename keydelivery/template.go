// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package keydelivery

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/mediaservices/ams"
)

const (
	templateNamespace = "http://schemas.microsoft.com/Azure/MediaServices/KeyDelivery/TokenRestrictionTemplate/v1"
	xsiNamespace      = "http://www.w3.org/2001/XMLSchema-instance"
	symmetricKeyType  = "SymmetricVerificationKey"

	// ContentKeyIdentifierClaimType binds a token to one content key. A
	// required claim of this type with no value matches the key being
	// requested.
	ContentKeyIdentifierClaimType = "urn:microsoft:azure:mediaservices:contentkeyidentifier"

	symmetricKeySize = 64
)

// ErrInvalidTemplate is returned for templates that cannot be serialized
// or were not produced by Serialize.
var ErrInvalidTemplate = errors.New("keydelivery: invalid token restriction template")

// TokenType is the token format the key service accepts.
type TokenType string

const (
	TokenTypeSWT TokenType = "SWT"
	TokenTypeJWT TokenType = "JWT"
)

// TokenClaim is a claim a token must carry. An empty Value accepts any value.
type TokenClaim struct {
	Type  string
	Value string
}

// ContentKeyIdentifierClaim requires the token to name the requested key.
var ContentKeyIdentifierClaim = TokenClaim{Type: ContentKeyIdentifierClaimType}

// TokenRestrictionTemplate describes how the key service validates tokens.
type TokenRestrictionTemplate struct {
	TokenType TokenType
	Issuer    string
	Audience  string
	// PrimaryVerificationKey is the symmetric key tokens are signed with.
	PrimaryVerificationKey    []byte
	AlternateVerificationKeys [][]byte
	RequiredClaims            []TokenClaim
}

// NewSymmetricKey returns a random 64 byte verification key.
func NewSymmetricKey() ([]byte, error) {
	key := make([]byte, symmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("keydelivery: generate key: %w", err)
	}
	return key, nil
}

// NewTokenRestrictionTemplate returns a JWT template with a fresh primary key
// that requires the content key identifier claim.
func NewTokenRestrictionTemplate(issuer, audience string) (*TokenRestrictionTemplate, error) {
	key, err := NewSymmetricKey()
	if err != nil {
		return nil, err
	}
	return &TokenRestrictionTemplate{
		TokenType:              TokenTypeJWT,
		Issuer:                 issuer,
		Audience:               audience,
		PrimaryVerificationKey: key,
		RequiredClaims:         []TokenClaim{ContentKeyIdentifierClaim},
	}, nil
}

func (t *TokenRestrictionTemplate) validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil template", ErrInvalidTemplate)
	}
	if strings.TrimSpace(t.Issuer) == "" || strings.TrimSpace(t.Audience) == "" {
		return fmt.Errorf("%w: issuer and audience are required", ErrInvalidTemplate)
	}
	if len(t.PrimaryVerificationKey) == 0 {
		return fmt.Errorf("%w: primary verification key is required", ErrInvalidTemplate)
	}
	switch t.TokenType {
	case TokenTypeSWT, TokenTypeJWT:
	default:
		return fmt.Errorf("%w: unknown token type %q", ErrInvalidTemplate, t.TokenType)
	}
	for _, c := range t.RequiredClaims {
		if strings.TrimSpace(c.Type) == "" {
			return fmt.Errorf("%w: claim without type", ErrInvalidTemplate)
		}
	}
	return nil
}

// The service expects data contract XML: a default namespace, members in
// alphabetical order and xsi attributes with the "i" prefix. Encoding uses
// literal prefixed attribute names; decoding matches on the local name.

type templateOut struct {
	XMLName    xml.Name      `xml:"http://schemas.microsoft.com/Azure/MediaServices/KeyDelivery/TokenRestrictionTemplate/v1 TokenRestrictionTemplate"`
	XSI        string        `xml:"xmlns:i,attr"`
	Alternates *alternateOut `xml:"AlternateVerificationKeys"`
	Audience   string        `xml:"Audience"`
	Issuer     string        `xml:"Issuer"`
	Primary    keyOut        `xml:"PrimaryVerificationKey"`
	Claims     *claimsOut    `xml:"RequiredClaims"`
	TokenType  TokenType     `xml:"TokenType"`
}

type alternateOut struct {
	Keys []keyOut `xml:"TokenVerificationKey"`
}

type keyOut struct {
	Type  string `xml:"i:type,attr"`
	Value string `xml:"KeyValue"`
}

func newKeyOut(key []byte) keyOut {
	return keyOut{Type: symmetricKeyType, Value: base64.StdEncoding.EncodeToString(key)}
}

type claimsOut struct {
	Claims []claimOut `xml:"TokenClaim"`
}

type claimOut struct {
	Type  string        `xml:"ClaimType"`
	Value claimValueOut `xml:"ClaimValue"`
}

type claimValueOut struct {
	Nil   string `xml:"i:nil,attr,omitempty"`
	Value string `xml:",chardata"`
}

type templateIn struct {
	XMLName    xml.Name `xml:"TokenRestrictionTemplate"`
	Alternates []keyIn  `xml:"AlternateVerificationKeys>TokenVerificationKey"`
	Audience   string   `xml:"Audience"`
	Issuer     string   `xml:"Issuer"`
	Primary    *keyIn   `xml:"PrimaryVerificationKey"`
	Claims     []struct {
		Type  string `xml:"ClaimType"`
		Value struct {
			Nil   string `xml:"nil,attr"`
			Value string `xml:",chardata"`
		} `xml:"ClaimValue"`
	} `xml:"RequiredClaims>TokenClaim"`
	TokenType TokenType `xml:"TokenType"`
}

type keyIn struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"KeyValue"`
}

func (k keyIn) decode() ([]byte, error) {
	if k.Type != "" && k.Type != symmetricKeyType {
		return nil, fmt.Errorf("%w: unsupported key type %q", ErrInvalidTemplate, k.Type)
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(k.Value))
	if err != nil {
		return nil, fmt.Errorf("%w: key value: %v", ErrInvalidTemplate, err)
	}
	return key, nil
}

// Serialize renders the template as the restriction requirements document.
func (t *TokenRestrictionTemplate) Serialize() (string, error) {
	if err := t.validate(); err != nil {
		return "", err
	}
	out := templateOut{
		XSI:       xsiNamespace,
		Audience:  t.Audience,
		Issuer:    t.Issuer,
		Primary:   newKeyOut(t.PrimaryVerificationKey),
		TokenType: t.TokenType,
	}
	if len(t.AlternateVerificationKeys) > 0 {
		out.Alternates = &alternateOut{}
		for _, k := range t.AlternateVerificationKeys {
			out.Alternates.Keys = append(out.Alternates.Keys, newKeyOut(k))
		}
	}
	if len(t.RequiredClaims) > 0 {
		out.Claims = &claimsOut{}
		for _, c := range t.RequiredClaims {
			v := claimValueOut{Value: c.Value}
			if c.Value == "" {
				v.Nil = "true"
			}
			out.Claims.Claims = append(out.Claims.Claims, claimOut{Type: c.Type, Value: v})
		}
	}
	data, err := xml.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("keydelivery: encode template: %w", err)
	}
	return string(data), nil
}

// ParseTokenRestrictionTemplate reads a document produced by Serialize or
// by the service.
func ParseTokenRestrictionTemplate(doc string) (*TokenRestrictionTemplate, error) {
	var in templateIn
	if err := xml.Unmarshal([]byte(doc), &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if in.XMLName.Space != templateNamespace {
		return nil, fmt.Errorf("%w: unexpected namespace %q", ErrInvalidTemplate, in.XMLName.Space)
	}
	if in.Primary == nil {
		return nil, fmt.Errorf("%w: primary verification key is missing", ErrInvalidTemplate)
	}
	primary, err := in.Primary.decode()
	if err != nil {
		return nil, err
	}
	t := &TokenRestrictionTemplate{
		TokenType:              in.TokenType,
		Issuer:                 in.Issuer,
		Audience:               in.Audience,
		PrimaryVerificationKey: primary,
	}
	for _, k := range in.Alternates {
		key, err := k.decode()
		if err != nil {
			return nil, err
		}
		t.AlternateVerificationKeys = append(t.AlternateVerificationKeys, key)
	}
	for _, c := range in.Claims {
		value := strings.TrimSpace(c.Value.Value)
		if c.Value.Nil == "true" {
			value = ""
		}
		t.RequiredClaims = append(t.RequiredClaims, TokenClaim{Type: c.Type, Value: value})
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Restriction wraps the serialized template as a token restriction for a
// content key authorization policy option.
func (t *TokenRestrictionTemplate) Restriction(name string) (ams.ContentKeyAuthorizationPolicyRestriction, error) {
	doc, err := t.Serialize()
	if err != nil {
		return ams.ContentKeyAuthorizationPolicyRestriction{}, err
	}
	if name == "" {
		name = "Token Authorization Template"
	}
	return ams.ContentKeyAuthorizationPolicyRestriction{
		Name:               name,
		KeyRestrictionType: ams.RestrictionTokenRestricted,
		Requirements:       doc,
	}, nil
}
