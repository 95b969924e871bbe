package checker

import (
	"context"
	"time"
)

// BlocklistStore is the slice of the store contract the engine consumes.
// Every call may fail and is bounded by its context; the engine treats
// any error as "cannot determine" and fails open.
type BlocklistStore interface {
	// FetchAllLinks returns the full current list of blocked URL
	// substrings, used to rebuild the link index.
	FetchAllLinks(ctx context.Context) ([]string, error)

	// ProbeLinks and ProbeHashes are cheap existence checks used by the
	// availability gates.
	ProbeLinks(ctx context.Context) error
	ProbeHashes(ctx context.Context) error

	// LookupHash tests one lowercase hex digest for an exact match.
	LookupHash(ctx context.Context, hexDigest string) (bool, error)
}

// Metrics receives the engine's counters and timings. Implementations
// must be safe for concurrent use; the engine calls them on every check.
type Metrics interface {
	IncBadLink()
	IncBadUpload()
	ObserveScan(d time.Duration)
	ObserveUpload(d time.Duration)
	IncRefresh(ok bool)
}
