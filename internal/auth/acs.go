// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultACSEndpoint is the global access control token endpoint.
	DefaultACSEndpoint = "https://wamsprodglobal001acs.accesscontrol.windows.net/v2/OAuth2-13"
	// DefaultACSScope is the scope requested for media services tokens.
	DefaultACSScope = "urn:WindowsAzureMediaServices"

	maxTokenBody = 1 << 20
)

// ACSConfig holds account credentials for the client-credentials grant.
type ACSConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Scope        string
}

// ACSProvider exchanges an account name and key for a bearer token.
type ACSProvider struct {
	cfg  ACSConfig
	http *http.Client
	now  func() time.Time
}

// NewACSProvider validates cfg. A nil hc uses http.DefaultClient.
func NewACSProvider(cfg ACSConfig, hc *http.Client) (*ACSProvider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("%w: acs client id and secret are required", ErrNoCredentials)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultACSEndpoint
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultACSScope
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &ACSProvider{cfg: cfg, http: hc, now: time.Now}, nil
}

// Name implements Provider.
func (p *ACSProvider) Name() string { return "acs" }

type acsResponse struct {
	AccessToken      string          `json:"access_token"`
	TokenType        string          `json:"token_type"`
	ExpiresIn        json.RawMessage `json:"expires_in"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// Fetch implements Provider.
func (p *ACSProvider) Fetch(ctx context.Context) (Token, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"scope":         {p.cfg.Scope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("acs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	issued := p.now()
	resp, err := p.http.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("acs: request token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBody))
	if err != nil {
		return Token{}, fmt.Errorf("acs: read response: %w", err)
	}

	var out acsResponse
	if err := json.Unmarshal(body, &out); err != nil && resp.StatusCode == http.StatusOK {
		return Token{}, fmt.Errorf("%w: acs: decode response: %v", ErrTokenEndpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.ErrorDescription
		if msg == "" {
			msg = out.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Token{}, fmt.Errorf("%w: acs: HTTP %d: %s", ErrTokenEndpoint, resp.StatusCode, msg)
	}
	if out.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: acs: response carries no access_token", ErrTokenEndpoint)
	}

	tok := Token{Value: out.AccessToken}
	secs, err := parseExpiresIn(out.ExpiresIn)
	if err != nil {
		return Token{}, fmt.Errorf("%w: acs: %v", ErrTokenEndpoint, err)
	}
	if secs > 0 {
		tok.ExpiresAt = issued.Add(time.Duration(secs) * time.Second)
	}
	return tok, nil
}

// parseExpiresIn accepts expires_in as a JSON number or a quoted number.
func parseExpiresIn(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid expires_in %q", s)
	}
	return int64(n), nil
}
