package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAllLinks(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := New(client)

	mock.ExpectSMembers(KeyLinks).SetVal([]string{"evil.example.com", "bad.example.org"})

	links, err := s.FetchAllLinks(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"evil.example.com", "bad.example.org"}, links)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProbeLinks(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		s := New(client)
		mock.ExpectExists(KeyLinks).SetVal(1)
		assert.NoError(t, s.ProbeLinks(context.Background()))
	})

	t.Run("never synced", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		s := New(client)
		mock.ExpectExists(KeyLinks).SetVal(0)
		assert.Error(t, s.ProbeLinks(context.Background()), "absent key must read as unusable, not empty")
	})

	t.Run("connection error", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		s := New(client)
		mock.ExpectExists(KeyLinks).SetErr(errors.New("connection refused"))
		assert.Error(t, s.ProbeLinks(context.Background()))
	})
}

func TestLookupHash(t *testing.T) {
	const digest = "d41d8cd98f00b204e9800998ecf8427e"

	client, mock := redismock.NewClientMock()
	s := New(client)

	mock.ExpectSIsMember(KeyHashes, digest).SetVal(true)
	bad, err := s.LookupHash(context.Background(), digest)
	require.NoError(t, err)
	assert.True(t, bad)

	mock.ExpectSIsMember(KeyHashes, "0000").SetVal(false)
	bad, err = s.LookupHash(context.Background(), "0000")
	require.NoError(t, err)
	assert.False(t, bad)
}

func TestLookupHash_Error(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := New(client)

	mock.ExpectSIsMember(KeyHashes, "abcd").SetErr(errors.New("timeout"))
	_, err := s.LookupHash(context.Background(), "abcd")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := New(client)

	mock.ExpectSCard(KeyLinks).SetVal(10)
	mock.ExpectSCard(KeyHashes).SetVal(20)

	st := s.Stats()
	assert.Equal(t, "redis", st.Backend)
	assert.Equal(t, int64(10), st.LinkCount)
	assert.Equal(t, int64(20), st.HashCount)
}
