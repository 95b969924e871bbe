// Package checker implements the bad-content detection engine: the
// periodically refreshed link index, the per-list availability gates,
// and the two checking pipelines (text-link scan, upload-hash scan).
//
// Policy: every failure the engine can encounter (store unreachable,
// fetch or build failure, unreadable upload content) resolves to allow.
// Moderation being down must never block legitimate traffic. The one
// exception is a build failure on the very first scan before any index
// has ever been published; that single call surfaces the error.
package checker

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/haukened/badlist/internal/badlist/common/clock"
	"github.com/haukened/badlist/internal/badlist/common/log"
	"github.com/haukened/badlist/internal/badlist/domain"
)

// Engine screens message text and upload content against the
// blocklists. All methods are safe for concurrent use; checks never
// block on a refresh in progress.
type Engine struct {
	store    BlocklistStore
	clock    clock.Clock
	logger   log.Logger
	metrics  Metrics
	interval time.Duration

	linksGate  *gate
	hashesGate *gate

	// current is the published link index snapshot. Scans read it with a
	// single atomic load; RefreshLinks replaces it wholesale. nil until
	// the first successful build.
	current atomic.Pointer[linkIndex]

	// bootstrap collapses concurrent first-scan builds into one fetch.
	bootstrap singleflight.Group

	// bootstrapTried flips after the first inline build attempt. Only
	// that first attempt may surface an error to the caller; later
	// attempts degrade to fail-open.
	bootstrapTried atomic.Bool
}

// Options configures a new Engine.
type Options struct {
	Store           BlocklistStore
	Clock           clock.Clock
	Logger          log.Logger
	Metrics         Metrics
	RefreshInterval time.Duration
}

func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics{}
	}
	e := &Engine{
		store:    opts.Store,
		clock:    opts.Clock,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		interval: opts.RefreshInterval,
	}
	e.linksGate = newGate(domain.ListLinks, opts.Store.ProbeLinks, opts.Clock, opts.RefreshInterval, opts.Logger)
	e.hashesGate = newGate(domain.ListHashes, opts.Store.ProbeHashes, opts.Clock, opts.RefreshInterval, opts.Logger)
	return e
}

// RefreshLinks fetches the full link list and publishes a freshly built
// index. On failure the previous snapshot keeps serving and the error is
// returned for the scheduler to log and retry on its next tick.
//
// Construction happens entirely off to the side: no lock is held that
// concurrent scans against the previous snapshot could contend on, and
// the swap is a single atomic store.
func (e *Engine) RefreshLinks(ctx context.Context) error {
	links, err := e.store.FetchAllLinks(ctx)
	if err != nil {
		e.metrics.IncRefresh(false)
		return fmt.Errorf("fetch blocked links: %w", err)
	}
	idx, err := buildIndex(links)
	if err != nil {
		e.metrics.IncRefresh(false)
		return err
	}
	e.current.Store(idx)
	e.metrics.IncRefresh(true)
	e.logger.Info(map[string]any{"patterns": idx.Patterns()}, "link index published")
	return nil
}

// CheckMessage scans each candidate text for blocked substrings and
// reports true when the message should be rejected. Candidates are
// scanned in order and the first hit wins.
//
// The returned error is non-nil only when no index has ever been built
// and the very first inline bootstrap build fails; every later failure
// degrades to (false, nil).
func (e *Engine) CheckMessage(ctx context.Context, texts []string) (bool, error) {
	start := e.clock.Now()
	defer func() { e.metrics.ObserveScan(e.clock.Now().Sub(start)) }()

	if !e.linksGate.Usable(ctx) {
		return false, nil
	}

	idx := e.current.Load()
	if idx == nil {
		// First scan before the scheduler has produced a snapshot: build
		// inline so messages are never scanned against a missing index.
		// Concurrent first scans share one build.
		_, err, _ := e.bootstrap.Do("links", func() (any, error) {
			if e.current.Load() != nil {
				return nil, nil
			}
			return nil, e.RefreshLinks(ctx)
		})
		if err != nil {
			if e.bootstrapTried.CompareAndSwap(false, true) {
				return false, err
			}
			e.logger.Warn(map[string]any{"error": err.Error()}, "link index still unavailable, assuming it's not spam")
			return false, nil
		}
		e.bootstrapTried.Store(true)
		if idx = e.current.Load(); idx == nil {
			return false, nil
		}
	}

	for _, text := range texts {
		if idx.Match(text) {
			e.metrics.IncBadLink()
			e.logger.Info(nil, "rejected message containing blocked link")
			return true, nil
		}
	}
	return false, nil
}

// CheckUpload streams the upload content through MD5 in constant memory
// and performs one exact-match digest lookup. Any failure along the way
// (gate, read, lookup) allows the upload.
func (e *Engine) CheckUpload(ctx context.Context, content io.Reader) bool {
	start := e.clock.Now()
	defer func() { e.metrics.ObserveUpload(e.clock.Now().Sub(start)) }()

	if !e.hashesGate.Usable(ctx) {
		return false
	}

	h := md5.New()
	if _, err := io.Copy(h, content); err != nil {
		e.logger.Warn(map[string]any{"error": err.Error()}, "could not read upload content, assuming it's not spam")
		return false
	}
	digest := hex.EncodeToString(h.Sum(nil))

	bad, err := e.store.LookupHash(ctx, digest)
	if err != nil {
		e.logger.Warn(map[string]any{"error": err.Error()}, "hash lookup failed, assuming it's not spam")
		return false
	}
	if bad {
		e.metrics.IncBadUpload()
		e.logger.Info(nil, "rejected upload matching blocked hash")
	}
	return bad
}

// Run drives the periodic refresh until ctx is cancelled. It refreshes
// once immediately so a healthy store yields an index before the first
// tick; a failure here is logged and retried on schedule, with the first
// scan falling back to its inline build.
func (e *Engine) Run(ctx context.Context) {
	if err := e.RefreshLinks(ctx); err != nil {
		e.logger.Warn(map[string]any{"error": err.Error()}, "initial link refresh failed")
	}
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.RefreshLinks(ctx); err != nil {
				e.logger.Warn(map[string]any{"error": err.Error()}, "link refresh failed, serving previous index")
			}
		}
	}
}

// Stats describes the engine's current posture for the stats endpoint.
type Stats struct {
	LinksList  string          `json:"links_list"`
	HashesList string          `json:"hashes_list"`
	Patterns   int             `json:"patterns"`
	Metrics    MetricsSnapshot `json:"metrics"`
}

// Stats reports gate states, the size of the published index, and the
// counter snapshot when the engine was built with CounterMetrics.
func (e *Engine) Stats() Stats {
	st := Stats{
		LinksList:  e.linksGate.State(),
		HashesList: e.hashesGate.State(),
	}
	if idx := e.current.Load(); idx != nil {
		st.Patterns = idx.Patterns()
	}
	if cm, ok := e.metrics.(*CounterMetrics); ok {
		st.Metrics = cm.Snapshot()
	}
	return st
}
