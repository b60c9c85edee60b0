package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorvalue/vehicle-valuation/internal/api/middleware"
)

// mapCache is an in-memory CacheProvider
type mapCache struct {
	entries map[string][]byte
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found", key)
	}
	return value, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.entries[key] = value
	c.sets++
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func (c *mapCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.entries[key]
	return ok, nil
}

func valuationEcho(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status == http.StatusOK {
			w.Header().Set("Cache-Control", "public, max-age=300, stale-while-revalidate=600")
		} else {
			w.Header().Set("Cache-Control", "no-store")
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

func TestCacheMiddleware(t *testing.T) {
	t.Run("caches GET 200s and serves hits with cache hints", func(t *testing.T) {
		cache := newMapCache()
		handler := middleware.NewCacheMiddleware(cache).Middleware(valuationEcho(http.StatusOK, `{"median":14500}`))

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/valuations?brand=volvo&model=v60", nil))

		require.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
		require.Equal(t, 1, cache.sets)

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/valuations?brand=volvo&model=v60", nil))

		require.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
		assert.Equal(t, first.Body.String(), second.Body.String())
		// A 200 served from cache keeps the transport cache hints
		assert.Equal(t, "public, max-age=300, stale-while-revalidate=600", second.Header().Get("Cache-Control"))
		assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	})

	t.Run("distinct queries get distinct entries", func(t *testing.T) {
		cache := newMapCache()
		handler := middleware.NewCacheMiddleware(cache).Middleware(valuationEcho(http.StatusOK, `{}`))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/valuations?brand=volvo&model=v60", nil))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/valuations?brand=volvo&model=v90", nil))

		assert.Equal(t, 2, cache.sets)
	})

	t.Run("error responses are never stored", func(t *testing.T) {
		cache := newMapCache()
		handler := middleware.NewCacheMiddleware(cache).Middleware(valuationEcho(http.StatusNotFound, `{"error":"no listings"}`))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/valuations?brand=volvo&model=v60", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Zero(t, cache.sets)
	})

	t.Run("POST bypasses the cache", func(t *testing.T) {
		cache := newMapCache()
		handler := middleware.NewCacheMiddleware(cache).Middleware(valuationEcho(http.StatusOK, `{}`))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/valuations", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
		assert.Zero(t, cache.sets)
	})

	t.Run("unconfigured routes pass through", func(t *testing.T) {
		cache := newMapCache()
		handler := middleware.NewCacheMiddleware(cache).Middleware(valuationEcho(http.StatusOK, `{}`))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		assert.Zero(t, cache.sets)
	})
}
