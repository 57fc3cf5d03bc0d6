// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// DefaultAADScope is the resource scope for media services REST calls.
const DefaultAADScope = "https://rest.media.azure.net/.default"

// AADConfig selects an Azure AD credential. With ClientID and ClientSecret
// set a service principal is used, otherwise the default credential chain.
type AADConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Scope        string
}

// AADProvider wraps an azcore.TokenCredential.
type AADProvider struct {
	cred  azcore.TokenCredential
	scope string
}

// NewAADProvider builds the credential described by cfg. hc, when set,
// carries the identity traffic.
func NewAADProvider(cfg AADConfig, hc *http.Client) (*AADProvider, error) {
	var opts azcore.ClientOptions
	if hc != nil {
		opts.Transport = hc
	}

	var (
		cred azcore.TokenCredential
		err  error
	)
	switch {
	case cfg.ClientID != "" && cfg.ClientSecret != "":
		if strings.TrimSpace(cfg.TenantID) == "" {
			return nil, fmt.Errorf("%w: aad tenant id is required with a client secret", ErrNoCredentials)
		}
		cred, err = azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret,
			&azidentity.ClientSecretCredentialOptions{ClientOptions: opts})
	default:
		cred, err = azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
			ClientOptions: opts,
			TenantID:      cfg.TenantID,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("aad: build credential: %w", err)
	}
	return NewCredentialProvider(cred, cfg.Scope), nil
}

// NewCredentialProvider adapts any azcore.TokenCredential. An empty scope
// means DefaultAADScope.
func NewCredentialProvider(cred azcore.TokenCredential, scope string) *AADProvider {
	if scope == "" {
		scope = DefaultAADScope
	}
	return &AADProvider{cred: cred, scope: scope}
}

// Name implements Provider.
func (p *AADProvider) Name() string { return "aad" }

// Fetch implements Provider.
func (p *AADProvider) Fetch(ctx context.Context) (Token, error) {
	at, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{p.scope}})
	if err != nil {
		return Token{}, fmt.Errorf("%w: aad: %v", ErrTokenEndpoint, err)
	}
	return Token{Value: at.Token, ExpiresAt: at.ExpiresOn}, nil
}
