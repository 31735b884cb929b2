// Package refcache wraps the reference-data repositories with an in-memory
// read-through cache. Reference data (statuses, types, units, tax classes,
// currencies...) changes rarely and is read on every product save.
package refcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/repositories"
)

const (
	// DefaultTTL bounds how stale a cached reference entry may be.
	DefaultTTL = 5 * time.Minute

	cleanupFactor = 2
)

// CachedReference wraps a ReferenceRepository with a TTL cache.
type CachedReference[T any] struct {
	inner repositories.ReferenceRepository[T]
	store *cache.Cache
	name  string
}

// NewCachedReference constructs a read-through cache in front of the inner
// repository. A non-positive ttl falls back to DefaultTTL.
func NewCachedReference[T any](name string, inner repositories.ReferenceRepository[T], ttl time.Duration) (*CachedReference[T], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("refcache: name is required")
	}
	if inner == nil {
		return nil, fmt.Errorf("refcache: %s inner repository is required", name)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedReference[T]{
		inner: inner,
		store: cache.New(ttl, cleanupFactor*ttl),
		name:  name,
	}, nil
}

// Find returns the cached entry or loads it from the inner repository.
func (c *CachedReference[T]) Find(ctx context.Context, id int64) (T, error) {
	var zero T
	if c == nil || c.inner == nil {
		return zero, errors.New("refcache: not initialised")
	}

	key := fmt.Sprintf("%s/%d", c.name, id)
	if cached, ok := c.store.Get(key); ok {
		if entry, ok := cached.(T); ok {
			return entry, nil
		}
	}

	entry, err := c.inner.Find(ctx, id)
	if err != nil {
		return zero, err
	}
	c.store.SetDefault(key, entry)
	return entry, nil
}

// FindAll returns the cached full listing or loads it from the inner repository.
func (c *CachedReference[T]) FindAll(ctx context.Context) ([]T, error) {
	if c == nil || c.inner == nil {
		return nil, errors.New("refcache: not initialised")
	}

	key := c.name + "/all"
	if cached, ok := c.store.Get(key); ok {
		if entries, ok := cached.([]T); ok {
			return entries, nil
		}
	}

	entries, err := c.inner.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(key, entries)
	return entries, nil
}

// Invalidate drops every cached entry.
func (c *CachedReference[T]) Invalidate() {
	if c != nil && c.store != nil {
		c.store.Flush()
	}
}

// CachedCurrencies wraps the currency repository, additionally caching
// by-code lookups.
type CachedCurrencies struct {
	*CachedReference[domain.Currency]
	inner repositories.CurrencyRepository
}

// NewCachedCurrencies constructs a read-through currency cache.
func NewCachedCurrencies(inner repositories.CurrencyRepository, ttl time.Duration) (*CachedCurrencies, error) {
	if inner == nil {
		return nil, errors.New("refcache: currency repository is required")
	}
	ref, err := NewCachedReference[domain.Currency]("currencies", inner, ttl)
	if err != nil {
		return nil, err
	}
	return &CachedCurrencies{CachedReference: ref, inner: inner}, nil
}

// FindByCode resolves a currency by ISO code through the cache.
func (c *CachedCurrencies) FindByCode(ctx context.Context, code string) (domain.Currency, error) {
	if c == nil || c.inner == nil {
		return domain.Currency{}, errors.New("refcache: not initialised")
	}

	key := "currencies/code/" + strings.ToUpper(strings.TrimSpace(code))
	if cached, ok := c.store.Get(key); ok {
		if currency, ok := cached.(domain.Currency); ok {
			return currency, nil
		}
	}

	currency, err := c.inner.FindByCode(ctx, code)
	if err != nil {
		return domain.Currency{}, err
	}
	c.store.SetDefault(key, currency)
	return currency, nil
}
