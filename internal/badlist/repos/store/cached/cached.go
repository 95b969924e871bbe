// Package cached decorates a BlocklistStore with an expiring LRU over
// digest lookups. Hash checks have no local index, so on busy servers
// the same digest (sticker packs, reposted files) would otherwise hit
// the store once per upload.
package cached

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/haukened/badlist/internal/badlist/repos/store"
)

type cachedStore struct {
	store.BlocklistStore

	lru    *expirable.LRU[string, bool]
	hits   uint64
	misses uint64
}

// New wraps inner with a digest decision cache of the given capacity.
// Entries expire after ttl so a digest added to the blocklist is seen
// within the same bounded staleness as the link index. If size <= 0 the
// inner store is returned undecorated.
func New(inner store.BlocklistStore, size int, ttl time.Duration) store.BlocklistStore {
	if size <= 0 {
		return inner
	}
	return &cachedStore{
		BlocklistStore: inner,
		lru:            expirable.NewLRU[string, bool](size, nil, ttl),
	}
}

// LookupHash serves repeated digests from the cache. Only definitive
// answers are cached; errors pass through uncached so the caller's
// fail-open handling sees them every time.
func (c *cachedStore) LookupHash(ctx context.Context, hexDigest string) (bool, error) {
	if bad, ok := c.lru.Get(hexDigest); ok {
		atomic.AddUint64(&c.hits, 1)
		return bad, nil
	}
	atomic.AddUint64(&c.misses, 1)
	bad, err := c.BlocklistStore.LookupHash(ctx, hexDigest)
	if err != nil {
		return false, err
	}
	c.lru.Add(hexDigest, bad)
	return bad, nil
}

func (c *cachedStore) Stats() store.Stats {
	st := c.BlocklistStore.Stats()
	st.CacheHits = atomic.LoadUint64(&c.hits)
	st.CacheMiss = atomic.LoadUint64(&c.misses)
	st.CacheSize = c.lru.Len()
	return st
}

var _ store.BlocklistStore = (*cachedStore)(nil)
