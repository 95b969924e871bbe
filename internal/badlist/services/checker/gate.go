package checker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/haukened/badlist/internal/badlist/common/clock"
	"github.com/haukened/badlist/internal/badlist/common/log"
	"github.com/haukened/badlist/internal/badlist/domain"
)

// listState is the cached availability of one blocklist.
type listState uint8

const (
	stateUnknown listState = iota
	stateAvailable
	stateUnavailable
)

func (s listState) String() string {
	switch s {
	case stateAvailable:
		return "available"
	case stateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// availability is an immutable (state, checkedAt) pair. The gate swaps
// whole values so readers never see a torn update.
type availability struct {
	state     listState
	checkedAt time.Time
}

// gate answers "is this list currently usable" with a cached verdict
// recomputed at most once per interval. A failed probe is cached just
// like a successful one, so a down store is probed no more often than
// once per interval instead of once per message.
//
// Concurrent callers hitting an expired state may race to probe; that
// only duplicates a cheap read and both racers store an equivalent
// result, so no lock is held across the probe.
type gate struct {
	list     domain.ListID
	probe    func(ctx context.Context) error
	clock    clock.Clock
	interval time.Duration
	logger   log.Logger

	cur atomic.Pointer[availability]
}

func newGate(list domain.ListID, probe func(ctx context.Context) error, clk clock.Clock, interval time.Duration, logger log.Logger) *gate {
	g := &gate{list: list, probe: probe, clock: clk, interval: interval, logger: logger}
	g.cur.Store(&availability{state: stateUnknown})
	return g
}

// Usable reports whether the list can be checked right now. Probe
// failures are absorbed here: an unusable blocklist must not block
// message delivery.
func (g *gate) Usable(ctx context.Context) bool {
	now := g.clock.Now()
	a := g.cur.Load()
	if a.state != stateUnknown && now.Sub(a.checkedAt) < g.interval {
		return a.state == stateAvailable
	}

	next := &availability{state: stateAvailable, checkedAt: now}
	if err := g.probe(ctx); err != nil {
		g.logger.Warn(map[string]any{
			"list":  g.list.String(),
			"error": err.Error(),
		}, "blocklist probe failed, list disabled until next interval")
		next.state = stateUnavailable
	}
	g.cur.Store(next)
	return next.state == stateAvailable
}

// State returns the cached state without probing, for stats reporting.
func (g *gate) State() string {
	return g.cur.Load().state.String()
}
