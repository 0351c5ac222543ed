package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mbertozzi/storefront/internal/metrics"
)

const (
	ListTTL         = 120 * time.Second
	DetailTTL       = 120 * time.Second
	SearchResultTTL = 60 * time.Second
)

// Catalog centralizes catalog cache keys, reads, and invalidation for one
// shared backend, namespaced per tenant schema. A backend failure on any
// operation degrades to a miss (or a no-op for writes) and never surfaces to
// the caller: the relational store stays the system of record.
type Catalog struct {
	cache   Cache
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewCatalog creates the catalog cache service. timeout bounds every backend
// call so a hung Redis never stalls a request.
func NewCatalog(c Cache, timeout time.Duration, m *metrics.Metrics) *Catalog {
	return &Catalog{cache: c, timeout: timeout, metrics: m}
}

// GetList returns the cached product list payload for the tenant, if any.
func (c *Catalog) GetList(ctx context.Context, schema string) ([]byte, bool) {
	return c.get(ctx, ProductListKey(schema), "list")
}

func (c *Catalog) SetList(ctx context.Context, schema string, payload []byte) {
	c.set(ctx, ProductListKey(schema), payload, ListTTL)
}

func (c *Catalog) GetDetail(ctx context.Context, schema string, id uuid.UUID) ([]byte, bool) {
	return c.get(ctx, ProductDetailKey(schema, id), "detail")
}

func (c *Catalog) SetDetail(ctx context.Context, schema string, id uuid.UUID, payload []byte) {
	c.set(ctx, ProductDetailKey(schema, id), payload, DetailTTL)
}

// SearchVersion returns the tenant's current search-result version,
// initializing it to 1 on first use. Cached search results embed the version
// in their key, so bumping it orphans every stale page at once.
func (c *Catalog) SearchVersion(ctx context.Context, schema string) int64 {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	key := SearchVersionKey(schema)
	raw, found, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Debug("cache unavailable, using version 1", "key", key, "error", err)
		return 1
	}
	if !found {
		// SetNX so a concurrent mutation's Incr is never clobbered back to 1.
		if _, err := c.cache.SetNX(ctx, key, []byte("1"), 0); err != nil {
			slog.Debug("cache unavailable on version init", "key", key, "error", err)
		}
		return 1
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || v < 1 {
		return 1
	}
	return v
}

func (c *Catalog) GetSearchResult(ctx context.Context, schema string, version int64, query string) ([]byte, bool) {
	return c.get(ctx, SearchResultKey(schema, version, queryDigest(query)), "search")
}

func (c *Catalog) SetSearchResult(ctx context.Context, schema string, version int64, query string, payload []byte) {
	c.set(ctx, SearchResultKey(schema, version, queryDigest(query)), payload, SearchResultTTL)
}

// InvalidateProduct removes every key family a product mutation could have
// populated: the list page, the detail entry, and (via the version bump) all
// cached search results for the tenant.
func (c *Catalog) InvalidateProduct(ctx context.Context, schema string, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.cache.Delete(ctx, ProductListKey(schema), ProductDetailKey(schema, id)); err != nil {
		return err
	}
	if _, err := c.cache.Incr(ctx, SearchVersionKey(schema)); err != nil {
		return err
	}
	return nil
}

func (c *Catalog) get(ctx context.Context, key, family string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	val, found, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Debug("cache unavailable, treating as miss", "key", key, "error", err)
		c.metrics.CacheMisses.WithLabelValues(family).Inc()
		return nil, false
	}
	if !found {
		c.metrics.CacheMisses.WithLabelValues(family).Inc()
		return nil, false
	}
	c.metrics.CacheHits.WithLabelValues(family).Inc()
	return val, true
}

func (c *Catalog) set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.cache.Set(ctx, key, payload, ttl); err != nil {
		slog.Debug("cache unavailable, skipping set", "key", key, "error", err)
	}
}

func queryDigest(query string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:])
}
