package checker

import (
	"sync/atomic"
	"time"
)

// MetricsSnapshot is a point-in-time copy of the engine counters.
type MetricsSnapshot struct {
	BadLinks        uint64 `json:"bad_links"`
	BadUploads      uint64 `json:"bad_uploads"`
	Scans           uint64 `json:"scans"`
	Uploads         uint64 `json:"uploads"`
	ScanNanos       uint64 `json:"scan_nanos"`
	UploadNanos     uint64 `json:"upload_nanos"`
	Refreshes       uint64 `json:"refreshes"`
	RefreshFailures uint64 `json:"refresh_failures"`
}

// CounterMetrics is an atomic in-memory Metrics implementation, exposed
// through the stats endpoint.
type CounterMetrics struct {
	badLinks        uint64
	badUploads      uint64
	scans           uint64
	uploads         uint64
	scanNanos       uint64
	uploadNanos     uint64
	refreshes       uint64
	refreshFailures uint64
}

func NewCounterMetrics() *CounterMetrics { return &CounterMetrics{} }

func (m *CounterMetrics) IncBadLink()   { atomic.AddUint64(&m.badLinks, 1) }
func (m *CounterMetrics) IncBadUpload() { atomic.AddUint64(&m.badUploads, 1) }

func (m *CounterMetrics) ObserveScan(d time.Duration) {
	atomic.AddUint64(&m.scans, 1)
	atomic.AddUint64(&m.scanNanos, uint64(d.Nanoseconds()))
}

func (m *CounterMetrics) ObserveUpload(d time.Duration) {
	atomic.AddUint64(&m.uploads, 1)
	atomic.AddUint64(&m.uploadNanos, uint64(d.Nanoseconds()))
}

func (m *CounterMetrics) IncRefresh(ok bool) {
	if ok {
		atomic.AddUint64(&m.refreshes, 1)
	} else {
		atomic.AddUint64(&m.refreshFailures, 1)
	}
}

// Snapshot returns a consistent-enough copy for reporting.
func (m *CounterMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		BadLinks:        atomic.LoadUint64(&m.badLinks),
		BadUploads:      atomic.LoadUint64(&m.badUploads),
		Scans:           atomic.LoadUint64(&m.scans),
		Uploads:         atomic.LoadUint64(&m.uploads),
		ScanNanos:       atomic.LoadUint64(&m.scanNanos),
		UploadNanos:     atomic.LoadUint64(&m.uploadNanos),
		Refreshes:       atomic.LoadUint64(&m.refreshes),
		RefreshFailures: atomic.LoadUint64(&m.refreshFailures),
	}
}

// NopMetrics discards everything. Useful for tests.
type NopMetrics struct{}

func (NopMetrics) IncBadLink()                 {}
func (NopMetrics) IncBadUpload()               {}
func (NopMetrics) ObserveScan(time.Duration)   {}
func (NopMetrics) ObserveUpload(time.Duration) {}
func (NopMetrics) IncRefresh(bool)             {}

var _ Metrics = (*CounterMetrics)(nil)
var _ Metrics = NopMetrics{}
