package checker

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/badlist/internal/badlist/common/clock"
	"github.com/haukened/badlist/internal/badlist/common/log"
)

// fakeStore is a scriptable BlocklistStore.
type fakeStore struct {
	mu         sync.Mutex
	links      []string
	fetchErr   error
	fetchCalls int
	probeErr   error
	hashes     map[string]bool
	lookupErr  error
	lookups    int
}

func (s *fakeStore) FetchAllLinks(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]string(nil), s.links...), nil
}

func (s *fakeStore) ProbeLinks(context.Context) error  { return s.probeErr }
func (s *fakeStore) ProbeHashes(context.Context) error { return s.probeErr }

func (s *fakeStore) LookupHash(_ context.Context, digest string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.lookupErr != nil {
		return false, s.lookupErr
	}
	return s.hashes[digest], nil
}

func newTestEngine(st *fakeStore) (*Engine, *clock.MockClock) {
	clk := clock.NewMockClock(time.Unix(1000, 0))
	e := New(Options{
		Store:           st,
		Clock:           clk,
		Logger:          log.NewNoopLogger(),
		Metrics:         NewCounterMetrics(),
		RefreshInterval: time.Minute,
	})
	return e, clk
}

func TestCheckMessage_RejectsBlockedLink(t *testing.T) {
	st := &fakeStore{links: []string{"evil.example.com"}}
	e, _ := newTestEngine(st)
	require.NoError(t, e.RefreshLinks(context.Background()))

	bad, err := e.CheckMessage(context.Background(), []string{"click evil.example.com now"})
	require.NoError(t, err)
	assert.True(t, bad)

	bad, err = e.CheckMessage(context.Background(), []string{"click good.example.com now"})
	require.NoError(t, err)
	assert.False(t, bad)
}

func TestCheckMessage_ScansAllCandidates(t *testing.T) {
	// The formatted body may carry a disguised link the plain body lacks.
	st := &fakeStore{links: []string{"evil.example.com"}}
	e, _ := newTestEngine(st)
	require.NoError(t, e.RefreshLinks(context.Background()))

	bad, err := e.CheckMessage(context.Background(), []string{
		"harmless plain body",
		`<a href="https://evil.example.com/x">click</a>`,
	})
	require.NoError(t, err)
	assert.True(t, bad)
}

func TestCheckMessage_GateUnusableAllowsEverything(t *testing.T) {
	st := &fakeStore{links: []string{"evil.example.com"}, probeErr: errors.New("store down")}
	e, _ := newTestEngine(st)

	bad, err := e.CheckMessage(context.Background(), []string{"evil.example.com"})
	require.NoError(t, err)
	assert.False(t, bad, "unusable list must fail open even for matching text")
	assert.Equal(t, 0, st.fetchCalls, "no fetch when the gate is closed")
}

func TestCheckMessage_BootstrapBuildsInline(t *testing.T) {
	st := &fakeStore{links: []string{"evil.example.com"}}
	e, _ := newTestEngine(st)

	// No scheduler has run; the first scan must not see a missing index.
	bad, err := e.CheckMessage(context.Background(), []string{"go to evil.example.com"})
	require.NoError(t, err)
	assert.True(t, bad)
	assert.Equal(t, 1, st.fetchCalls)

	// Subsequent scans reuse the published snapshot.
	_, err = e.CheckMessage(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, 1, st.fetchCalls)
}

func TestCheckMessage_FirstBootstrapFailureSurfaces(t *testing.T) {
	st := &fakeStore{fetchErr: errors.New("fetch failed")}
	e, _ := newTestEngine(st)

	_, err := e.CheckMessage(context.Background(), []string{"text"})
	require.Error(t, err, "the cold-start call surfaces the build failure")

	// Later calls degrade to fail-open.
	bad, err := e.CheckMessage(context.Background(), []string{"text"})
	require.NoError(t, err)
	assert.False(t, bad)
}

func TestRefreshLinks_FailureKeepsPreviousSnapshot(t *testing.T) {
	st := &fakeStore{links: []string{"evil.example.com"}}
	e, _ := newTestEngine(st)
	require.NoError(t, e.RefreshLinks(context.Background()))

	st.mu.Lock()
	st.fetchErr = errors.New("store went away")
	st.mu.Unlock()
	require.Error(t, e.RefreshLinks(context.Background()))

	// Stale-but-serving: the old index still rejects.
	bad, err := e.CheckMessage(context.Background(), []string{"evil.example.com"})
	require.NoError(t, err)
	assert.True(t, bad)
}

func TestRefreshLinks_SwapVisibleToLaterScans(t *testing.T) {
	st := &fakeStore{links: []string{"old.example.com"}}
	e, _ := newTestEngine(st)
	require.NoError(t, e.RefreshLinks(context.Background()))

	st.mu.Lock()
	st.links = []string{"new.example.com"}
	st.mu.Unlock()
	require.NoError(t, e.RefreshLinks(context.Background()))

	bad, _ := e.CheckMessage(context.Background(), []string{"old.example.com"})
	assert.False(t, bad, "replaced snapshot no longer matches old entries")
	bad, _ = e.CheckMessage(context.Background(), []string{"new.example.com"})
	assert.True(t, bad)
}

func TestConcurrentScansDuringRefresh(t *testing.T) {
	st := &fakeStore{links: []string{"evil.example.com"}}
	e, _ := newTestEngine(st)
	require.NoError(t, e.RefreshLinks(context.Background()))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				bad, err := e.CheckMessage(context.Background(), []string{"x evil.example.com y"})
				// Every published snapshot contains the pattern, so the
				// verdict must hold through any number of swaps.
				if err != nil || !bad {
					t.Errorf("scan failed mid-refresh: bad=%v err=%v", bad, err)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		require.NoError(t, e.RefreshLinks(context.Background()))
	}
	close(stop)
	wg.Wait()
}

func TestCheckUpload_RejectsKnownHash(t *testing.T) {
	// MD5 of zero bytes.
	const emptyMD5 = "d41d8cd98f00b204e9800998ecf8427e"
	st := &fakeStore{hashes: map[string]bool{emptyMD5: true}}
	e, _ := newTestEngine(st)

	assert.True(t, e.CheckUpload(context.Background(), strings.NewReader("")))
	assert.False(t, e.CheckUpload(context.Background(), strings.NewReader("some other content")))
	assert.Equal(t, 2, st.lookups)
}

func TestCheckUpload_FailsOpen(t *testing.T) {
	t.Run("gate closed", func(t *testing.T) {
		st := &fakeStore{probeErr: errors.New("store down")}
		e, _ := newTestEngine(st)
		assert.False(t, e.CheckUpload(context.Background(), strings.NewReader("data")))
		assert.Equal(t, 0, st.lookups)
	})

	t.Run("content read error", func(t *testing.T) {
		st := &fakeStore{hashes: map[string]bool{}}
		e, _ := newTestEngine(st)
		r := io.MultiReader(strings.NewReader("partial"), errReader{})
		assert.False(t, e.CheckUpload(context.Background(), r))
		assert.Equal(t, 0, st.lookups, "no lookup for a digest of truncated content")
	})

	t.Run("lookup error", func(t *testing.T) {
		st := &fakeStore{lookupErr: errors.New("timeout")}
		e, _ := newTestEngine(st)
		assert.False(t, e.CheckUpload(context.Background(), strings.NewReader("data")))
	})
}

func TestBothListsDownEverythingAllowed(t *testing.T) {
	st := &fakeStore{
		links:    []string{"evil.example.com"},
		hashes:   map[string]bool{"d41d8cd98f00b204e9800998ecf8427e": true},
		probeErr: errors.New("database gone"),
	}
	e, clk := newTestEngine(st)

	for i := 0; i < 3; i++ {
		bad, err := e.CheckMessage(context.Background(), []string{"evil.example.com"})
		require.NoError(t, err)
		assert.False(t, bad)
		assert.False(t, e.CheckUpload(context.Background(), strings.NewReader("")))
		clk.Advance(10 * time.Second) // stays inside the TTL window
	}
}

func TestStats_ReportsCountersAndPatterns(t *testing.T) {
	st := &fakeStore{links: []string{"evil.example.com"}}
	e, _ := newTestEngine(st)
	require.NoError(t, e.RefreshLinks(context.Background()))

	_, err := e.CheckMessage(context.Background(), []string{"evil.example.com"})
	require.NoError(t, err)

	stats := e.Stats()
	assert.Equal(t, 1, stats.Patterns)
	assert.Equal(t, uint64(1), stats.Metrics.BadLinks)
	assert.Equal(t, uint64(1), stats.Metrics.Scans)
	assert.Equal(t, uint64(1), stats.Metrics.Refreshes)
	assert.Equal(t, "available", stats.LinksList)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("stream reset") }
