package cached

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/badlist/internal/badlist/repos/store"
)

type countingStore struct {
	lookups   int
	bad       map[string]bool
	lookupErr error
}

func (s *countingStore) FetchAllLinks(context.Context) ([]string, error) { return nil, nil }
func (s *countingStore) ProbeLinks(context.Context) error               { return nil }
func (s *countingStore) ProbeHashes(context.Context) error              { return nil }
func (s *countingStore) LookupHash(_ context.Context, d string) (bool, error) {
	s.lookups++
	if s.lookupErr != nil {
		return false, s.lookupErr
	}
	return s.bad[d], nil
}
func (s *countingStore) Stats() store.Stats { return store.Stats{Backend: "counting"} }
func (s *countingStore) Close() error       { return nil }

func TestLookupHash_CachesDecisions(t *testing.T) {
	inner := &countingStore{bad: map[string]bool{"aaaa": true}}
	c := New(inner, 16, time.Minute)

	for i := 0; i < 3; i++ {
		bad, err := c.LookupHash(context.Background(), "aaaa")
		require.NoError(t, err)
		assert.True(t, bad)
	}
	// Negative decisions are cached too.
	for i := 0; i < 3; i++ {
		bad, err := c.LookupHash(context.Background(), "bbbb")
		require.NoError(t, err)
		assert.False(t, bad)
	}
	assert.Equal(t, 2, inner.lookups, "one store hit per distinct digest")

	st := c.Stats()
	assert.Equal(t, uint64(4), st.CacheHits)
	assert.Equal(t, uint64(2), st.CacheMiss)
	assert.Equal(t, 2, st.CacheSize)
}

func TestLookupHash_ErrorsNotCached(t *testing.T) {
	inner := &countingStore{lookupErr: errors.New("timeout")}
	c := New(inner, 16, time.Minute)

	_, err := c.LookupHash(context.Background(), "aaaa")
	assert.Error(t, err)
	_, err = c.LookupHash(context.Background(), "aaaa")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.lookups, "errors must pass through every time")
}

func TestNew_DisabledCache(t *testing.T) {
	inner := &countingStore{}
	c := New(inner, 0, time.Minute)
	assert.Equal(t, store.BlocklistStore(inner), c, "size <= 0 returns the store undecorated")
}
