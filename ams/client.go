// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	xglog "github.com/ManuGH/mediaservices/internal/log"
	"github.com/ManuGH/mediaservices/internal/platform/httpx"
	"github.com/ManuGH/mediaservices/internal/resilience"
	"github.com/ManuGH/mediaservices/internal/storage"
)

const (
	// DefaultAPIVersion is sent as x-ms-version.
	DefaultAPIVersion = "2.19"
	// DefaultPollInterval is the fixed wait between operation polls.
	DefaultPollInterval = 5 * time.Second

	defaultTimeout          = 60 * time.Second
	defaultRateLimit        = 20
	defaultRateLimitBurst   = 40
	defaultBreakerThreshold = 5
	defaultBreakerReset     = 30 * time.Second
	defaultUserAgent        = "mediaservices-go"
)

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenInvalidator is implemented by token sources that cache. The client
// calls Invalidate when the service rejects a token with 401 and then
// replays the request once with a fresh token.
type TokenInvalidator interface {
	Invalidate(ctx context.Context)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// AccessToken implements TokenSource.
func (t StaticToken) AccessToken(context.Context) (string, error) { return string(t), nil }

// RetryOptions tunes one retry policy. Zero values take the defaults
// (4 retries, 1s doubling to 30s). Set MaxRetries to -1 to disable retries.
type RetryOptions struct {
	MaxRetries int
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://media.windows.net/API/.
	BaseURL     string
	APIVersion  string
	TokenSource TokenSource
	HTTPClient  *http.Client
	Timeout     time.Duration
	UserAgent   string

	// QueryRetry applies to reads, SaveRetry to mutations.
	QueryRetry RetryOptions
	SaveRetry  RetryOptions
	// OnRetry observes every retry before its backoff wait.
	OnRetry func(policy string, retry int, err error)

	PollInterval time.Duration

	RateLimit      rate.Limit
	RateLimitBurst int

	BreakerThreshold int
	BreakerReset     time.Duration

	// BlobUploader writes asset files. Defaults to an azblob uploader.
	BlobUploader BlobUploader
}

// Client is the entry point to the service. It owns the HTTP pipeline and
// hands out one lazily built collection per entity set. A Client is safe
// for concurrent use.
type Client struct {
	mu      sync.RWMutex
	apiRoot *url.URL

	apiVersion   string
	userAgent    string
	http         *http.Client
	tokens       TokenSource
	limiter      *rate.Limiter
	breaker      *resilience.CircuitBreaker
	queryPolicy  *resilience.Policy
	savePolicy   *resilience.Policy
	pollInterval time.Duration
	uploader     BlobUploader
	logger       zerolog.Logger

	channels           lazy[ChannelCollection]
	programs           lazy[ProgramCollection]
	origins            lazy[OriginCollection]
	streamingEndpoints lazy[StreamingEndpointCollection]
	keyPolicies        lazy[ContentKeyAuthorizationPolicyCollection]
	keyPolicyOptions   lazy[ContentKeyAuthorizationPolicyOptionCollection]
	operations         lazy[OperationCollection]
	assets             lazy[AssetCollection]
	accessPolicies     lazy[AccessPolicyCollection]
	locators           lazy[LocatorCollection]
	contentKeys        lazy[ContentKeyCollection]
}

// lazy builds a value once on first use.
type lazy[T any] struct {
	once sync.Once
	v    *T
}

func (l *lazy[T]) get(build func() *T) *T {
	l.once.Do(func() { l.v = build() })
	return l.v
}

// NewClient validates opts and returns a ready Client.
func NewClient(opts Options) (*Client, error) {
	root, err := parseAPIRoot(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	opts = normalizeOptions(opts)

	c := &Client{
		apiRoot:      root,
		apiVersion:   opts.APIVersion,
		userAgent:    opts.UserAgent,
		tokens:       opts.TokenSource,
		limiter:      rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst),
		pollInterval: opts.PollInterval,
		logger:       xglog.WithComponent("ams"),
	}

	c.http = redirectAware(opts.HTTPClient, opts.Timeout)
	c.uploader = opts.BlobUploader
	if c.uploader == nil {
		c.uploader = storage.NewUploader(storage.Options{HTTPClient: httpx.NewClient(opts.Timeout)})
	}
	c.queryPolicy = newPolicy("query", opts.QueryRetry, IsQueryRetryable, opts.OnRetry)
	c.savePolicy = newPolicy("save", opts.SaveRetry, IsSaveRetryable, opts.OnRetry)
	c.breaker = resilience.NewCircuitBreaker("ams", opts.BreakerThreshold, opts.BreakerReset,
		resilience.WithFailureFilter(countsAgainstBreaker))

	c.logger.Debug().
		Str("event", "ams.client.init").
		Str(xglog.FieldBaseURL, root.String()).
		Str("api_version", c.apiVersion).
		Dur("poll_interval", c.pollInterval).
		Msg("media services client ready")
	return c, nil
}

func normalizeOptions(opts Options) Options {
	if strings.TrimSpace(opts.APIVersion) == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = defaultBreakerThreshold
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = defaultBreakerReset
	}
	return opts
}

func newPolicy(name string, o RetryOptions, retryable func(error) bool, onRetry func(string, int, error)) *resilience.Policy {
	maxRetries := o.MaxRetries
	switch {
	case maxRetries < 0:
		maxRetries = 0
	case maxRetries == 0:
		maxRetries = resilience.DefaultMaxRetries
	}
	p := resilience.NewPolicy(name, maxRetries, o.MinBackoff, o.MaxBackoff, retryable)
	if onRetry != nil {
		p.OnRetry = func(retry int, _ time.Duration, err error) { onRetry(name, retry, err) }
	}
	return p
}

func parseAPIRoot(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, invalidArg("base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, invalidArg("base URL %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, invalidArg("base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, invalidArg("base URL %q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawPath = ""
	return u, nil
}

// redirectAware copies hc (or builds a default client) so that 301
// answers reach the pipeline instead of being followed.
func redirectAware(hc *http.Client, timeout time.Duration) *http.Client {
	var out http.Client
	if hc != nil {
		out = *hc
	} else {
		out = *httpx.NewClient(timeout)
	}
	out.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &out
}

// BaseURL returns the current API root. It changes when the service
// redirects the client to another cluster.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiRoot.String()
}

// PollInterval is the wait between operation polls.
func (c *Client) PollInterval() time.Duration { return c.pollInterval }

func (c *Client) root() *url.URL {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u := *c.apiRoot
	return &u
}

// rebase moves the API root after a permanent redirect. relPath is the
// resource path of the redirected request; it is stripped from location
// to recover the new root.
func (c *Client) rebase(location, relPath string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	loc, err := c.apiRoot.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: redirect location %q: %v", ErrBadResponse, location, err)
	}
	next := *loc
	next.RawQuery = ""
	next.Fragment = ""
	next.RawPath = ""
	if rel, err := url.PathUnescape(relPath); err == nil && rel != "" && strings.HasSuffix(next.Path, rel) {
		next.Path = strings.TrimSuffix(next.Path, rel)
	} else if !strings.HasSuffix(next.Path, "/") {
		next.Path = c.apiRoot.Path
	}
	if !strings.HasSuffix(next.Path, "/") {
		next.Path += "/"
	}
	c.apiRoot = &next
	return next.String(), nil
}

// Channels returns the channel collection.
func (c *Client) Channels() *ChannelCollection {
	return c.channels.get(func() *ChannelCollection { return newChannelCollection(c) })
}

// Programs returns the program collection.
func (c *Client) Programs() *ProgramCollection {
	return c.programs.get(func() *ProgramCollection { return newProgramCollection(c) })
}

// Origins returns the origin collection.
func (c *Client) Origins() *OriginCollection {
	return c.origins.get(func() *OriginCollection { return newOriginCollection(c) })
}

// StreamingEndpoints returns the streaming endpoint collection.
func (c *Client) StreamingEndpoints() *StreamingEndpointCollection {
	return c.streamingEndpoints.get(func() *StreamingEndpointCollection { return newStreamingEndpointCollection(c) })
}

// ContentKeyAuthorizationPolicies returns the key authorization policy collection.
func (c *Client) ContentKeyAuthorizationPolicies() *ContentKeyAuthorizationPolicyCollection {
	return c.keyPolicies.get(func() *ContentKeyAuthorizationPolicyCollection {
		return newContentKeyAuthorizationPolicyCollection(c)
	})
}

// ContentKeyAuthorizationPolicyOptions returns the policy option collection.
func (c *Client) ContentKeyAuthorizationPolicyOptions() *ContentKeyAuthorizationPolicyOptionCollection {
	return c.keyPolicyOptions.get(func() *ContentKeyAuthorizationPolicyOptionCollection {
		return newContentKeyAuthorizationPolicyOptionCollection(c)
	})
}

// Operations returns the operation collection used for polling.
func (c *Client) Operations() *OperationCollection {
	return c.operations.get(func() *OperationCollection { return newOperationCollection(c) })
}

// Assets returns the asset collection.
func (c *Client) Assets() *AssetCollection {
	return c.assets.get(func() *AssetCollection { return newAssetCollection(c) })
}

// AccessPolicies returns the access policy collection.
func (c *Client) AccessPolicies() *AccessPolicyCollection {
	return c.accessPolicies.get(func() *AccessPolicyCollection { return newAccessPolicyCollection(c) })
}

// Locators returns the locator collection.
func (c *Client) Locators() *LocatorCollection {
	return c.locators.get(func() *LocatorCollection { return newLocatorCollection(c) })
}

// ContentKeys returns the content key collection.
func (c *Client) ContentKeys() *ContentKeyCollection {
	return c.contentKeys.get(func() *ContentKeyCollection { return newContentKeyCollection(c) })
}
