// Package redis implements store.BlocklistStore on two Redis sets, for
// deployments that sync the curated feeds into a shared cache.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/haukened/badlist/internal/badlist/repos/store"
)

const (
	// KeyLinks and KeyHashes are the set keys the feed sync writes into.
	KeyLinks  = "badlist:links"
	KeyHashes = "badlist:hashes"
)

type redisStore struct {
	client *redis.Client
}

// New wraps an existing Redis client. The sets are not required to exist
// yet; the availability gate discovers that through the probes.
func New(client *redis.Client) store.BlocklistStore {
	return &redisStore{client: client}
}

func (s *redisStore) FetchAllLinks(ctx context.Context) ([]string, error) {
	links, err := s.client.SMembers(ctx, KeyLinks).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch links: %w", err)
	}
	return links, nil
}

// ProbeLinks requires the links set to be present: an absent key means
// the feed has never been synced, which is indistinguishable from an
// empty blocklist and must not silently allow everything.
func (s *redisStore) ProbeLinks(ctx context.Context) error {
	return s.probe(ctx, KeyLinks)
}

func (s *redisStore) ProbeHashes(ctx context.Context) error {
	return s.probe(ctx, KeyHashes)
}

func (s *redisStore) probe(ctx context.Context, key string) error {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("key %s not present", key)
	}
	return nil
}

func (s *redisStore) LookupHash(ctx context.Context, hexDigest string) (bool, error) {
	found, err := s.client.SIsMember(ctx, KeyHashes, hexDigest).Result()
	if err != nil {
		return false, fmt.Errorf("lookup hash: %w", err)
	}
	return found, nil
}

func (s *redisStore) Stats() store.Stats {
	st := store.Stats{Backend: "redis", LinkCount: -1, HashCount: -1}
	ctx := context.Background()
	if n, err := s.client.SCard(ctx, KeyLinks).Result(); err == nil {
		st.LinkCount = n
	}
	if n, err := s.client.SCard(ctx, KeyHashes).Result(); err == nil {
		st.HashCount = n
	}
	return st
}

func (s *redisStore) Close() error { return s.client.Close() }

var _ store.BlocklistStore = (*redisStore)(nil)
