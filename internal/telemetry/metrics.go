// Package telemetry records in-process retrieval metrics: query latency
// histograms, per-mode counters, and a ring of recent zero-result
// queries. All data stays local; nothing is reported externally.
package telemetry

import (
	"sync"
	"time"
)

// Mode classifies how a query was served.
type Mode string

const (
	ModeLexicalOnly Mode = "lexical_only"
	ModeHybrid      Mode = "hybrid"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one retrieval for metrics recording.
type QueryEvent struct {
	EntityID    string
	Query       string
	Mode        Mode
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// defaultZeroResultCapacity bounds the zero-result ring buffer.
const defaultZeroResultCapacity = 100

// QueryMetrics aggregates retrieval telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu          sync.RWMutex
	total       int64
	zeroResults int64
	byMode      map[Mode]int64
	byLatency   map[LatencyBucket]int64
	recentZero  *ring[QueryEvent]
}

// NewQueryMetrics creates an empty metrics collector.
func NewQueryMetrics() *QueryMetrics {
	return &QueryMetrics{
		byMode:     make(map[Mode]int64),
		byLatency:  make(map[LatencyBucket]int64),
		recentZero: newRing[QueryEvent](defaultZeroResultCapacity),
	}
}

// Record adds one query event.
func (m *QueryMetrics) Record(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.byMode[event.Mode]++
	m.byLatency[LatencyToBucket(event.Latency)]++
	if event.ResultCount == 0 {
		m.zeroResults++
		m.recentZero.add(event)
	}
}

// Snapshot is a point-in-time copy of the aggregates.
type Snapshot struct {
	Total           int64
	ZeroResults     int64
	ByMode          map[Mode]int64
	ByLatencyBucket map[LatencyBucket]int64
	RecentZero      []QueryEvent
}

// Snapshot returns a copy of the current aggregates.
func (m *QueryMetrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Total:           m.total,
		ZeroResults:     m.zeroResults,
		ByMode:          make(map[Mode]int64, len(m.byMode)),
		ByLatencyBucket: make(map[LatencyBucket]int64, len(m.byLatency)),
		RecentZero:      m.recentZero.items(),
	}
	for mode, n := range m.byMode {
		snap.ByMode[mode] = n
	}
	for bucket, n := range m.byLatency {
		snap.ByLatencyBucket[bucket] = n
	}
	return snap
}

// ring is a fixed-capacity FIFO buffer. Callers hold the metrics lock.
type ring[T any] struct {
	buf  []T
	head int
	size int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = defaultZeroResultCapacity
	}
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) add(item T) {
	r.buf[r.head] = item
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// items returns the contents oldest first.
func (r *ring[T]) items() []T {
	out := make([]T, 0, r.size)
	start := r.head - r.size
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
