// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package keydelivery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ManuGH/mediaservices/ams"
)

// DefaultTokenLifetime applies when TokenOptions.Expires is zero.
const DefaultTokenLifetime = time.Hour

const swtSignatureField = "HMACSHA256"

// ErrInvalidToken is returned when a token fails verification.
var ErrInvalidToken = errors.New("keydelivery: invalid token")

// TokenOptions controls test token generation.
type TokenOptions struct {
	// KeyID fills the content key identifier claim. The nb:kid:UUID:
	// prefix is optional.
	KeyID string
	// SigningKey defaults to the template's primary verification key.
	SigningKey []byte
	NotBefore  time.Time
	Expires    time.Time
	// Claims supplies values for required claims the template leaves open.
	Claims map[string]string
}

// GenerateTestToken issues a token that satisfies t. It is meant for
// exercising token restricted policies, not for production issuance.
func GenerateTestToken(t *TokenRestrictionTemplate, opts TokenOptions) (string, error) {
	if err := t.validate(); err != nil {
		return "", err
	}
	key := opts.SigningKey
	if len(key) == 0 {
		key = t.PrimaryVerificationKey
	}
	expires := opts.Expires
	if expires.IsZero() {
		expires = time.Now().Add(DefaultTokenLifetime)
	}
	claims, err := requiredClaimValues(t, opts)
	if err != nil {
		return "", err
	}

	switch t.TokenType {
	case TokenTypeJWT:
		mc := jwt.MapClaims{
			"iss": t.Issuer,
			"aud": t.Audience,
			"exp": jwt.NewNumericDate(expires),
		}
		if !opts.NotBefore.IsZero() {
			mc["nbf"] = jwt.NewNumericDate(opts.NotBefore)
		}
		for _, c := range claims {
			mc[c.Type] = c.Value
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(key)
		if err != nil {
			return "", fmt.Errorf("keydelivery: sign token: %w", err)
		}
		return signed, nil
	default:
		return signSWT(t, claims, expires, key), nil
	}
}

func requiredClaimValues(t *TokenRestrictionTemplate, opts TokenOptions) ([]TokenClaim, error) {
	out := make([]TokenClaim, 0, len(t.RequiredClaims))
	for _, c := range t.RequiredClaims {
		value := c.Value
		if value == "" && c.Type == ContentKeyIdentifierClaimType {
			value = strings.TrimPrefix(opts.KeyID, ams.ContentKeyIDPrefix)
		}
		if value == "" {
			value = opts.Claims[c.Type]
		}
		if value == "" {
			return nil, fmt.Errorf("keydelivery: no value for required claim %q", c.Type)
		}
		out = append(out, TokenClaim{Type: c.Type, Value: value})
	}
	return out, nil
}

func signSWT(t *TokenRestrictionTemplate, claims []TokenClaim, expires time.Time, key []byte) string {
	parts := make([]string, 0, len(claims)+3)
	for _, c := range claims {
		parts = append(parts, url.QueryEscape(c.Type)+"="+url.QueryEscape(c.Value))
	}
	parts = append(parts,
		"Issuer="+url.QueryEscape(t.Issuer),
		"Audience="+url.QueryEscape(t.Audience),
		"ExpiresOn="+strconv.FormatInt(expires.Unix(), 10),
	)
	unsigned := strings.Join(parts, "&")
	return unsigned + "&" + swtSignatureField + "=" + url.QueryEscape(swtSignature(unsigned, key))
}

func swtSignature(unsigned string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(unsigned))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyToken checks token against t the way the key service does and
// returns the required claim values it carried. Any verification key of
// the template may have signed it.
func VerifyToken(t *TokenRestrictionTemplate, token string, now time.Time) (map[string]string, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	keys := append([][]byte{t.PrimaryVerificationKey}, t.AlternateVerificationKeys...)
	if t.TokenType == TokenTypeJWT {
		return verifyJWT(t, token, now, keys)
	}
	return verifySWT(t, token, now, keys)
}

func verifyJWT(t *TokenRestrictionTemplate, token string, now time.Time, keys [][]byte) (map[string]string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.Issuer),
		jwt.WithAudience(t.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	var lastErr error
	for _, key := range keys {
		mc := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(token, mc, func(*jwt.Token) (any, error) { return key, nil })
		if err != nil {
			lastErr = err
			if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
				continue
			}
			break
		}
		values := make(map[string]string, len(t.RequiredClaims))
		for _, c := range t.RequiredClaims {
			v, _ := mc[c.Type].(string)
			values[c.Type] = v
		}
		return values, checkClaims(t, values)
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidToken, lastErr)
}

func verifySWT(t *TokenRestrictionTemplate, token string, now time.Time, keys [][]byte) (map[string]string, error) {
	i := strings.LastIndex(token, "&"+swtSignatureField+"=")
	if i < 0 {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidToken)
	}
	unsigned := token[:i]
	sig, err := url.QueryUnescape(token[i+len(swtSignatureField)+2:])
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrInvalidToken, err)
	}

	matched := false
	for _, key := range keys {
		if hmac.Equal([]byte(sig), []byte(swtSignature(unsigned, key))) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	fields, err := url.ParseQuery(unsigned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if fields.Get("Issuer") != t.Issuer {
		return nil, fmt.Errorf("%w: issuer %q", ErrInvalidToken, fields.Get("Issuer"))
	}
	if fields.Get("Audience") != t.Audience {
		return nil, fmt.Errorf("%w: audience %q", ErrInvalidToken, fields.Get("Audience"))
	}
	exp, err := strconv.ParseInt(fields.Get("ExpiresOn"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: ExpiresOn: %v", ErrInvalidToken, err)
	}
	if !now.Before(time.Unix(exp, 0)) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}

	values := make(map[string]string, len(t.RequiredClaims))
	for _, c := range t.RequiredClaims {
		values[c.Type] = fields.Get(c.Type)
	}
	return values, checkClaims(t, values)
}

func checkClaims(t *TokenRestrictionTemplate, values map[string]string) error {
	for _, c := range t.RequiredClaims {
		got := values[c.Type]
		if got == "" {
			return fmt.Errorf("%w: missing claim %q", ErrInvalidToken, c.Type)
		}
		if c.Value != "" && got != c.Value {
			return fmt.Errorf("%w: claim %q has value %q", ErrInvalidToken, c.Type, got)
		}
	}
	return nil
}
