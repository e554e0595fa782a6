package quickbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/qbridge/internal/cache"
)

// RawPayload returns the raw response body. It may be called any number of times.
type RawPayload func() ([]byte, error)

// Client performs authenticated calls against the QuickBase API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger

	cache    cache.Cache
	cacheTTL time.Duration
	refresh  bool
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithResponseCache caches successful GET responses in store for ttl.
// A zero ttl uses the store's default.
func WithResponseCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// WithRefresh drops any cached response before a cacheable call, so the
// call always reaches QuickBase and its result replaces the entry
func WithRefresh() Option {
	return func(c *Client) {
		c.refresh = true
	}
}

// NewClient creates a new QuickBase client
func NewClient(config Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quickbase config: %w", err)
	}
	config = config.withDefaults()

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Realm returns the realm hostname
func (c *Client) Realm() string {
	return c.config.Realm
}

// String implements fmt.Stringer without exposing the token
func (c *Client) String() string {
	return fmt.Sprintf("Client(qb_host=%s, qb_realm=%s)", c.config.BaseURL, c.config.Realm)
}

// BuildURL builds a full API URL from an endpoint such as "apps/bq8x"
func (c *Client) BuildURL(endpoint string) string {
	return c.config.BaseURL + "/" + endpoint
}

// Headers returns the headers sent with every call made on behalf of operation
func (c *Client) Headers(operation string) http.Header {
	userAgent := c.config.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("qbridge_%s_v1.0-dev", operation)
	}

	h := make(http.Header)
	h.Set("QB-Realm-Hostname", c.config.Realm)
	h.Set("User-Agent", userAgent)
	h.Set("Authorization", "QB-USER-TOKEN "+c.config.Token)
	h.Set("Content-Type", "application/json")
	return h
}

// cachedResponse is the cache representation of a response
type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// Call performs one HTTP exchange and returns its status with an accessor
// for the raw body. The body is read before Call returns, so the accessor
// never touches the network. Non-2xx statuses are not errors.
func (c *Client) Call(ctx context.Context, operation, method, endpoint string, query url.Values, body any) (int, RawPayload, error) {
	req, err := c.newRequest(ctx, operation, method, endpoint, query, body)
	if err != nil {
		return 0, nil, err
	}

	logger := c.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("operation", operation),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
	)

	cacheable := c.cache != nil && method == http.MethodGet
	var key string
	if cacheable {
		key = cache.ResponseKey(c.config.Realm, c.config.Token, method, req.URL.String())
		if c.refresh {
			c.forget(ctx, key, logger)
		} else if status, raw, ok := c.lookup(ctx, key, logger); ok {
			return status, raw, nil
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	logger.Debug("quickbase call completed",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)),
	)

	if cacheable && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.store(ctx, key, cachedResponse{Status: resp.StatusCode, Body: data}, logger)
	}

	return resp.StatusCode, rawPayload(data), nil
}

func (c *Client) newRequest(ctx context.Context, operation, method, endpoint string, query url.Values, body any) (*http.Request, error) {
	target := c.BuildURL(endpoint)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = c.Headers(operation)
	return req, nil
}

// lookup returns a cached response; cache failures count as misses
func (c *Client) lookup(ctx context.Context, key string, logger *zap.Logger) (int, RawPayload, bool) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !cache.IsCacheMiss(err) {
			logger.Warn("response cache read failed", zap.Error(err))
		}
		return 0, nil, false
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		logger.Warn("discarding corrupt cache entry", zap.Error(err))
		return 0, nil, false
	}

	logger.Debug("quickbase call served from cache", zap.Int("status", cached.Status))
	return cached.Status, rawPayload(cached.Body), true
}

// forget drops a cached response; failures are logged and ignored
func (c *Client) forget(ctx context.Context, key string, logger *zap.Logger) {
	if err := c.cache.Delete(ctx, key); err != nil {
		logger.Warn("response cache delete failed", zap.Error(err))
	}
}

// store writes a response to the cache; failures are logged and ignored
func (c *Client) store(ctx context.Context, key string, entry cachedResponse, logger *zap.Logger) {
	data, err := json.Marshal(entry)
	if err != nil {
		logger.Warn("failed to encode cache entry", zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		logger.Warn("response cache write failed", zap.Error(err))
	}
}

// rawPayload returns an accessor handing out copies of data
func rawPayload(data []byte) RawPayload {
	return func() ([]byte, error) {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
}
