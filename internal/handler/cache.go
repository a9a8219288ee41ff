package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hpn/grok-manifold/internal/ui"
)

// ══════════════════════════════════════════════════════════════════════════════
// MODEL LIST CACHE
// ══════════════════════════════════════════════════════════════════════════════
//
// Data Structure: map guarded by RWMutex
// Key: method + path + raw query
// Value: serialized JSON reply with TTL
//
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultCacheTTL is the default time-to-live for cache entries.
	DefaultCacheTTL = 5 * time.Minute

	// CleanupInterval is how often the cache cleaner runs.
	CleanupInterval = 1 * time.Minute

	// ctxKeyNoCache marks a reply that must not be stored, e.g. an empty listing after a failure.
	ctxKeyNoCache = "no_cache"

	ctxKeyCacheHit = "cache_hit"
)

// CacheEntry is a cached reply with its expiry.
type CacheEntry struct {
	Response    []byte
	ContentType string
	ExpireAt    time.Time
	CreatedAt   time.Time
}

// IsExpired reports whether the entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.ExpireAt)
}

// ResponseCache is a thread-safe in-memory cache for GET replies.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	ttl     time.Duration
	logger  *slog.Logger

	hits   int64
	misses int64

	stop     chan struct{}
	stopOnce sync.Once
}

// ResponseCacheOption is a functional option for configuring ResponseCache.
type ResponseCacheOption func(*ResponseCache)

// WithCacheTTL sets a custom TTL for cache entries.
func WithCacheTTL(ttl time.Duration) ResponseCacheOption {
	return func(c *ResponseCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets a custom logger.
func WithCacheLogger(logger *slog.Logger) ResponseCacheOption {
	return func(c *ResponseCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewResponseCache creates a cache and starts its cleanup goroutine.
// Call Close to stop the goroutine.
func NewResponseCache(opts ...ResponseCacheOption) *ResponseCache {
	c := &ResponseCache{
		entries: make(map[string]*CacheEntry),
		ttl:     DefaultCacheTTL,
		logger:  slog.Default(),
		stop:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.startCleanup()

	return c
}

// CacheKey builds the key of a request.
func CacheKey(r *http.Request) string {
	return r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery
}

// Get returns a live entry for key.
func (c *ResponseCache) Get(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if entry.IsExpired() {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry, true
}

// Set stores a reply with the configured TTL.
func (c *ResponseCache) Set(key string, response []byte, contentType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.entries[key] = &CacheEntry{
		Response:    response,
		ContentType: contentType,
		ExpireAt:    now.Add(c.ttl),
		CreatedAt:   now,
	}
}

// Purge drops every entry.
func (c *ResponseCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *ResponseCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *ResponseCache) startCleanup() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *ResponseCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0

	for key, entry := range c.entries {
		if now.After(entry.ExpireAt) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 {
		c.logger.Debug("cache cleanup",
			slog.Int("expired_entries", expired),
			slog.Int("remaining_entries", len(c.entries)),
		)
	}
}

// Stats returns cache hit/miss statistics.
func (c *ResponseCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// CacheMiddleware serves GET requests for the given paths from the cache.
// On a miss the reply is captured and stored when it is a 200 that the
// handler did not flag with ctxKeyNoCache.
func CacheMiddleware(cache *ResponseCache, logger *slog.Logger, paths ...string) gin.HandlerFunc {
	cached := make(map[string]bool, len(paths))
	for _, p := range paths {
		cached[p] = true
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || !cached[c.Request.URL.Path] {
			c.Next()
			return
		}

		key := CacheKey(c.Request)

		if entry, found := cache.Get(key); found {
			start := time.Now()

			logger.Info("cache hit",
				slog.String("path", c.Request.URL.Path),
				slog.Duration("age", time.Since(entry.CreatedAt)),
			)
			ui.PrintCacheHit(c.Request.URL.Path, time.Since(start))

			c.Set(ctxKeyCacheHit, true)
			c.Data(http.StatusOK, entry.ContentType, entry.Response)
			c.Abort()
			return
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() != http.StatusOK || c.GetBool(ctxKeyNoCache) {
			return
		}

		cache.Set(key, writer.body.Bytes(), c.Writer.Header().Get("Content-Type"))
		logger.Debug("response cached",
			slog.String("path", c.Request.URL.Path),
			slog.Int("size_bytes", writer.body.Len()),
		)
	}
}

// responseWriter wraps gin.ResponseWriter to capture the response body.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write captures the response body while writing to the original writer.
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// WriteString captures string writes, which gin's renderers use.
func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
