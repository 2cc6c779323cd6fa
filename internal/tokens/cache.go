package tokens

import (
	"context"
	"sync"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes token metadata per address. It is safe for concurrent use and
// concurrent lookups of the same address share one resolution.
type Cache struct {
	resolver *Resolver

	mu      sync.RWMutex
	entries map[string]Metadata
	group   singleflight.Group
}

// NewCache creates an empty cache backed by resolver.
func NewCache(resolver *Resolver) *Cache {
	return &Cache{
		resolver: resolver,
		entries:  make(map[string]Metadata),
	}
}

// Get returns cached metadata for token, resolving it on first use.
// Defaults substituted after a failed resolution are cached too, so a token the node
// cannot describe is asked about once per run. Lookups cut short by ctx are not cached.
func (c *Cache) Get(ctx context.Context, token string) Metadata {
	key := cacheKey(token)

	c.mu.RLock()
	md, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return md
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		md := c.resolver.Resolve(ctx, token)
		if md.Resolved || ctx.Err() == nil {
			c.mu.Lock()
			c.entries[key] = md
			c.mu.Unlock()
		}

		return md, nil
	})

	return v.(Metadata) //nolint:forcetypeassert
}

// Resolver returns the underlying resolver.
func (c *Cache) Resolver() *Resolver {
	return c.resolver
}

// Len returns the number of cached tokens.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Metadata)
}

func cacheKey(token string) string {
	if addr, err := starknet.NormalizeAddress(token); err == nil {
		return addr
	}
	return token
}
