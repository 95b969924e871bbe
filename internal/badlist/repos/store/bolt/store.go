// Package bolt implements store.BlocklistStore on a local bbolt file,
// for standalone deployments that import the curated feeds directly
// rather than reading homeserver tables.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/badlist/internal/badlist/repos/store"
)

var (
	bucketLinks  = []byte("links")
	bucketHashes = []byte("hashes")
	bucketMeta   = []byte("meta")

	keyImported = []byte("imported")
)

// digestFPRate sizes the digest prefilter. A false positive only costs
// one extra bucket read, so it can be generous.
const digestFPRate = 0.001

// Store keeps each list in its own bucket, with a Bloom filter over
// the digest keys so that the common negative lookup never touches disk.
type Store struct {
	db *bbolt.DB

	mu    sync.RWMutex
	bloom *bitsbloom.BloomFilter
}

// New opens (or creates) the database at path, ensures buckets exist,
// and warms the digest prefilter from the hashes bucket.
func New(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketLinks, bucketHashes, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{db: db}
	if err := s.rebuildBloom(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) FetchAllLinks(ctx context.Context) ([]string, error) {
	var links []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLinks)
		if b == nil {
			return fmt.Errorf("links bucket missing")
		}
		return b.ForEach(func(k, _ []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			links = append(links, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (s *Store) ProbeLinks(ctx context.Context) error {
	return s.probe(ctx, bucketLinks)
}

func (s *Store) ProbeHashes(ctx context.Context) error {
	return s.probe(ctx, bucketHashes)
}

func (s *Store) probe(ctx context.Context, bucket []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return fmt.Errorf("%s bucket missing", bucket)
		}
		// Touch the first key; an empty bucket is still usable.
		c := b.Cursor()
		c.First()
		return nil
	})
}

func (s *Store) LookupHash(ctx context.Context, hexDigest string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	bf := s.bloom
	s.mu.RUnlock()
	if bf != nil && !bf.Test([]byte(hexDigest)) {
		return false, nil
	}
	var present bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketHashes)
		if b == nil {
			return fmt.Errorf("hashes bucket missing")
		}
		present = b.Get([]byte(hexDigest)) != nil
		return nil
	})
	return present, err
}

// ReplaceLinks swaps the full link list in one transaction.
func (s *Store) ReplaceLinks(links []string) error {
	return s.replace(bucketLinks, links, false)
}

// ReplaceHashes swaps the full digest set in one transaction and
// rebuilds the prefilter to match.
func (s *Store) ReplaceHashes(digests []string) error {
	return s.replace(bucketHashes, digests, true)
}

func (s *Store) replace(bucket []byte, keys []string, refilter bool) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucket); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucket)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Put([]byte(k), []byte{1}); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		ts := make([]byte, 8)
		binary.BigEndian.PutUint64(ts, uint64(time.Now().Unix()))
		return meta.Put(keyImported, ts)
	})
	if err != nil {
		return err
	}
	if refilter {
		return s.rebuildBloom()
	}
	return nil
}

// rebuildBloom resizes and refills the digest prefilter from the hashes
// bucket, then swaps it in.
func (s *Store) rebuildBloom() error {
	var n uint
	var keys [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketHashes)
		if b == nil {
			return nil
		}
		n = uint(b.Stats().KeyN)
		return b.ForEach(func(k, _ []byte) error {
			kk := make([]byte, len(k))
			copy(kk, k)
			keys = append(keys, kk)
			return nil
		})
	})
	if err != nil {
		return err
	}
	if n == 0 {
		n = 1
	}
	bf := bitsbloom.NewWithEstimates(n, digestFPRate)
	for _, k := range keys {
		bf.Add(k)
	}
	s.mu.Lock()
	s.bloom = bf
	s.mu.Unlock()
	return nil
}

func (s *Store) Stats() store.Stats {
	st := store.Stats{Backend: "bolt", LinkCount: -1, HashCount: -1}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketLinks); b != nil {
			st.LinkCount = int64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketHashes); b != nil {
			st.HashCount = int64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			if v := b.Get(keyImported); len(v) == 8 {
				st.LastImport = int64(binary.BigEndian.Uint64(v))
			}
		}
		return nil
	})
	return st
}

var _ store.BlocklistStore = (*Store)(nil)
