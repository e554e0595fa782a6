package quickbase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/qbridge/internal/cache"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "valid",
			config: Config{Token: "t", Realm: "r"},
		},
		{
			name:    "missing token",
			config:  Config{Realm: "r"},
			wantErr: "token is required",
		},
		{
			name:    "missing realm",
			config:  Config{Token: "t"},
			wantErr: "realm is required",
		},
		{
			name:    "negative timeout",
			config:  Config{Token: "t", Realm: "r", Timeout: -time.Second},
			wantErr: "timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewClient(t *testing.T) {
	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := NewClient(Config{Realm: testRealm})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid quickbase config")
	})

	t.Run("applies defaults", func(t *testing.T) {
		c, err := NewClient(Config{Token: testToken, Realm: testRealm})
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL, c.BaseURL())
		assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	})

	t.Run("trims trailing slash", func(t *testing.T) {
		c, err := NewClient(Config{Token: testToken, Realm: testRealm, BaseURL: "http://qb.test/v1/"})
		require.NoError(t, err)
		assert.Equal(t, "http://qb.test/v1/apps/x", c.BuildURL("apps/x"))
	})

	t.Run("custom http client", func(t *testing.T) {
		hc := &http.Client{Timeout: time.Second}
		c, err := NewClient(Config{Token: testToken, Realm: testRealm}, WithHTTPClient(hc))
		require.NoError(t, err)
		assert.Same(t, hc, c.httpClient)
	})
}

func TestClientString(t *testing.T) {
	c, err := NewClient(Config{Token: testToken, Realm: testRealm})
	require.NoError(t, err)

	s := c.String()
	assert.Equal(t, "Client(qb_host=https://api.quickbase.com/v1, qb_realm=example.quickbase.com)", s)
	assert.NotContains(t, s, testToken)
}

func TestClientBuildURL(t *testing.T) {
	c, err := NewClient(Config{Token: testToken, Realm: testRealm})
	require.NoError(t, err)

	assert.Equal(t, "https://api.quickbase.com/v1/apps/bq8x", c.BuildURL("apps/bq8x"))
	assert.Equal(t, "https://api.quickbase.com/v1/records/query", c.BuildURL("records/query"))
}

func TestClientHeaders(t *testing.T) {
	c, err := NewClient(Config{Token: testToken, Realm: testRealm})
	require.NoError(t, err)

	h := c.Headers("GetApp")
	assert.Equal(t, testRealm, h.Get("QB-Realm-Hostname"))
	assert.Equal(t, "qbridge_GetApp_v1.0-dev", h.Get("User-Agent"))
	assert.Equal(t, "QB-USER-TOKEN "+testToken, h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))

	custom, err := NewClient(Config{Token: testToken, Realm: testRealm, UserAgent: "inventory-sync/2.1"})
	require.NoError(t, err)
	assert.Equal(t, "inventory-sync/2.1", custom.Headers("GetApp").Get("User-Agent"))
}

func TestClientCall(t *testing.T) {
	server, fake := newFakeQuickBase(t)

	c, err := NewClient(testConfig(server))
	require.NoError(t, err)

	status, raw, err := c.Call(context.Background(), "GetApp", http.MethodGet, "apps/bq8x", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	headers := fake.LastHeaders()
	assert.Equal(t, testRealm, headers.Get("QB-Realm-Hostname"))
	assert.Equal(t, "qbridge_GetApp_v1.0-dev", headers.Get("User-Agent"))
	assert.Equal(t, "QB-USER-TOKEN "+testToken, headers.Get("Authorization"))

	first, err := raw()
	require.NoError(t, err)
	assert.Contains(t, string(first), `"name":"Inventory"`)

	// Accessor is repeatable and hands out copies
	first[0] = 'X'
	second, err := raw()
	require.NoError(t, err)
	assert.Equal(t, byte('{'), second[0])
	assert.Equal(t, 1, fake.Hits(http.MethodGet, "/v1/apps/bq8x"))
}

func TestClientCallTransportError(t *testing.T) {
	server, _ := newFakeQuickBase(t)
	cfg := testConfig(server)
	server.Close()

	c, err := NewClient(cfg)
	require.NoError(t, err)

	_, raw, err := c.Call(context.Background(), "GetApp", http.MethodGet, "apps/bq8x", nil, nil)
	require.Error(t, err)
	assert.Nil(t, raw)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClientCallCanceledContext(t *testing.T) {
	server, fake := newFakeQuickBase(t)

	c, err := NewClient(testConfig(server))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = c.Call(ctx, "GetApp", http.MethodGet, "apps/bq8x", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, fake.Hits(http.MethodGet, "/v1/apps/bq8x"))
}

func TestClientCallLogsRequest(t *testing.T) {
	server, _ := newFakeQuickBase(t)

	core, logs := observer.New(zap.DebugLevel)
	c, err := NewClient(testConfig(server), WithLogger(zap.New(core)))
	require.NoError(t, err)

	_, _, err = c.Call(context.Background(), "GetApp", http.MethodGet, "apps/bq8x", nil, nil)
	require.NoError(t, err)

	entries := logs.FilterMessage("quickbase call completed").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "GetApp", fields["operation"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
	for _, v := range fields {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, testToken)
		}
	}
}

func TestResponseCacheMemory(t *testing.T) {
	server, fake := newFakeQuickBase(t)

	store := cache.NewMemoryCache()
	t.Cleanup(func() { store.Close() })

	c, err := NewClient(testConfig(server), WithResponseCache(store, time.Minute))
	require.NoError(t, err)

	ctx := context.Background()
	first, err := Execute(ctx, c, GetApp{AppID: "bq8x"})
	require.NoError(t, err)
	second, err := Execute(ctx, c, GetApp{AppID: "bq8x"})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.Hits(http.MethodGet, "/v1/apps/bq8x"))
	assert.NotSame(t, first, second)
	assert.Equal(t, http.StatusOK, second.Status())
	assert.False(t, second.Loaded())

	p1, err := first.Payload()
	require.NoError(t, err)
	p2, err := second.Payload()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	// A different app is a different key
	_, err = Execute(ctx, c, GetApp{AppID: "other"})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Hits(http.MethodGet, "/v1/apps/other"))
}

func TestResponseCacheSkipsErrorsAndWrites(t *testing.T) {
	server, fake := newFakeQuickBase(t)

	store := cache.NewMemoryCache()
	t.Cleanup(func() { store.Close() })

	c, err := NewClient(testConfig(server), WithResponseCache(store, time.Minute))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		resp, err := Execute(ctx, c, GetApp{AppID: "missing"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Status())
	}
	assert.Equal(t, 2, fake.Hits(http.MethodGet, "/v1/apps/missing"))

	req := QueryRequest{From: "bck7gp3q2"}
	for i := 0; i < 2; i++ {
		_, err := Execute(ctx, c, QueryRecords{Request: req})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fake.Hits(http.MethodPost, "/v1/records/query"))
}

func TestResponseCacheKeyedByCredentials(t *testing.T) {
	server, fake := newFakeQuickBase(t)

	store := cache.NewMemoryCache()
	t.Cleanup(func() { store.Close() })

	a, err := NewClient(testConfig(server), WithResponseCache(store, time.Minute))
	require.NoError(t, err)

	cfg := testConfig(server)
	cfg.Token = "another_token"
	b, err := NewClient(cfg, WithResponseCache(store, time.Minute))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = Execute(ctx, a, GetApp{AppID: "bq8x"})
	require.NoError(t, err)
	_, err = Execute(ctx, b, GetApp{AppID: "bq8x"})
	require.NoError(t, err)

	assert.Equal(t, 2, fake.Hits(http.MethodGet, "/v1/apps/bq8x"))
}

func TestResponseCacheRedis(t *testing.T) {
	server, fake := newFakeQuickBase(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cache.DefaultCacheConfig())
	t.Cleanup(func() { store.Close() })

	c, err := NewClient(testConfig(server), WithResponseCache(store, time.Minute))
	require.NoError(t, err)

	ctx := context.Background()
	op := GetTable{AppID: "bq8x", TableID: "bck7gp3q2"}

	_, err = Execute(ctx, c, op)
	require.NoError(t, err)
	resp, err := Execute(ctx, c, op)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Hits(http.MethodGet, "/v1/tables/bck7gp3q2"))

	payload, err := resp.Payload()
	require.NoError(t, err)
	assert.Equal(t, "Parts", payload["name"])

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "qbridge:qb:"))
	assert.NotContains(t, keys[0], testToken)

	// Entries expire with the configured TTL
	mr.FastForward(2 * time.Minute)
	_, err = Execute(ctx, c, op)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Hits(http.MethodGet, "/v1/tables/bck7gp3q2"))
}

func TestResponseCacheRefresh(t *testing.T) {
	server, fake := newFakeQuickBase(t)

	store := cache.NewMemoryCache()
	t.Cleanup(func() { store.Close() })

	c, err := NewClient(testConfig(server), WithResponseCache(store, time.Minute))
	require.NoError(t, err)

	ctx := context.Background()
	key := cache.ResponseKey(testRealm, testToken, http.MethodGet, c.BuildURL("apps/bq8x"))
	stale, err := json.Marshal(cachedResponse{Status: http.StatusOK, Body: []byte(`{"name":"Stale"}`)})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, key, stale, time.Minute))

	resp, err := Execute(ctx, c, GetApp{AppID: "bq8x"})
	require.NoError(t, err)
	payload, err := resp.Payload()
	require.NoError(t, err)
	assert.Equal(t, "Stale", payload["name"])
	assert.Equal(t, 0, fake.Hits(http.MethodGet, "/v1/apps/bq8x"))

	refreshing, err := NewClient(testConfig(server), WithResponseCache(store, time.Minute), WithRefresh())
	require.NoError(t, err)

	resp, err = Execute(ctx, refreshing, GetApp{AppID: "bq8x"})
	require.NoError(t, err)
	payload, err = resp.Payload()
	require.NoError(t, err)
	assert.NotEqual(t, "Stale", payload["name"])
	assert.Equal(t, 1, fake.Hits(http.MethodGet, "/v1/apps/bq8x"))

	// The fresh response replaced the stale entry
	resp, err = Execute(ctx, c, GetApp{AppID: "bq8x"})
	require.NoError(t, err)
	again, err := resp.Payload()
	require.NoError(t, err)
	assert.Equal(t, payload, again)
	assert.Equal(t, 1, fake.Hits(http.MethodGet, "/v1/apps/bq8x"))
}

// brokenCache fails every operation
type brokenCache struct{}

var errBroken = errors.New("backend unavailable")

func (brokenCache) Get(context.Context, string) ([]byte, error)              { return nil, errBroken }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error { return errBroken }
func (brokenCache) Delete(context.Context, string) error                     { return errBroken }
func (brokenCache) Clear(context.Context) error                              { return errBroken }
func (brokenCache) Close() error                                             { return nil }

func TestResponseCacheFailuresIgnored(t *testing.T) {
	server, fake := newFakeQuickBase(t)

	core, logs := observer.New(zap.WarnLevel)
	c, err := NewClient(testConfig(server),
		WithResponseCache(brokenCache{}, time.Minute),
		WithLogger(zap.New(core)),
	)
	require.NoError(t, err)

	resp, err := Execute(context.Background(), c, GetApp{AppID: "bq8x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, 1, fake.Hits(http.MethodGet, "/v1/apps/bq8x"))

	assert.Equal(t, 1, logs.FilterMessage("response cache read failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("response cache write failed").Len())

	refreshing, err := NewClient(testConfig(server),
		WithResponseCache(brokenCache{}, time.Minute),
		WithLogger(zap.New(core)),
		WithRefresh(),
	)
	require.NoError(t, err)

	_, err = Execute(context.Background(), refreshing, GetApp{AppID: "bq8x"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Hits(http.MethodGet, "/v1/apps/bq8x"))
	assert.Equal(t, 1, logs.FilterMessage("response cache delete failed").Len())
}

func TestResponseCacheCorruptEntry(t *testing.T) {
	server, fake := newFakeQuickBase(t)

	store := cache.NewMemoryCache()
	t.Cleanup(func() { store.Close() })

	c, err := NewClient(testConfig(server), WithResponseCache(store, time.Minute))
	require.NoError(t, err)

	key := cache.ResponseKey(testRealm, testToken, http.MethodGet, c.BuildURL("apps/bq8x"))
	require.NoError(t, store.Set(context.Background(), key, []byte("{broken"), time.Minute))

	resp, err := Execute(context.Background(), c, GetApp{AppID: "bq8x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, 1, fake.Hits(http.MethodGet, "/v1/apps/bq8x"))
}
