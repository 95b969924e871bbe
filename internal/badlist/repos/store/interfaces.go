// Package store defines the blocklist store contract the checker engine
// consumes, along with stats types shared by the concrete backends.
//
// The engine treats the store as a remote, fallible collaborator: every
// method may fail, and none may block beyond its context deadline. The
// backends (sql, bolt, redis) live in subpackages; cached decorates any
// of them with a digest decision cache.
package store

import "context"

// BlocklistStore supplies the two curated lists: URL substrings and
// content digests.
//
//   - FetchAllLinks returns the full current link list. The list is
//     assumed small enough to hold in memory (10^4..10^6 entries).
//   - ProbeLinks / ProbeHashes are cheap existence checks ("can I read
//     one row of this list"), used by the availability gate.
//   - LookupHash is an exact-match test of one lowercase hex digest.
type BlocklistStore interface {
	FetchAllLinks(ctx context.Context) ([]string, error)
	ProbeLinks(ctx context.Context) error
	LookupHash(ctx context.Context, hexDigest string) (bool, error)
	ProbeHashes(ctx context.Context) error
	Stats() Stats
	Close() error
}

// Stats reports lightweight store metrics. Values are best-effort
// snapshots read without blocking writers.
type Stats struct {
	Backend    string `json:"backend"`
	LinkCount  int64  `json:"link_count"`  // -1 if the backend cannot count cheaply
	HashCount  int64  `json:"hash_count"`  // -1 if the backend cannot count cheaply
	CacheHits  uint64 `json:"cache_hits"`  // digest cache hits, 0 when undecorated
	CacheMiss  uint64 `json:"cache_miss"`  // digest cache misses, 0 when undecorated
	CacheSize  int    `json:"cache_size"`  // digest cache entries, 0 when undecorated
	LastImport int64  `json:"last_import"` // unix seconds of last bulk import, 0 if unknown
}
