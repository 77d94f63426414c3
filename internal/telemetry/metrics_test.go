package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{30 * time.Millisecond, BucketP50},
		{80 * time.Millisecond, BucketP100},
		{300 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.latency), "latency %v", tt.latency)
	}
}

func TestQueryMetricsAggregation(t *testing.T) {
	m := NewQueryMetrics()

	m.Record(QueryEvent{EntityID: "P1", Query: "cardiac", Mode: ModeHybrid, ResultCount: 3, Latency: 5 * time.Millisecond})
	m.Record(QueryEvent{EntityID: "P1", Query: "nothing", Mode: ModeLexicalOnly, ResultCount: 0, Latency: 30 * time.Millisecond})
	m.Record(QueryEvent{EntityID: "P2", Query: "rehab", Mode: ModeLexicalOnly, ResultCount: 1, Latency: 5 * time.Millisecond})

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.Total)
	assert.Equal(t, int64(1), snap.ZeroResults)
	assert.Equal(t, int64(1), snap.ByMode[ModeHybrid])
	assert.Equal(t, int64(2), snap.ByMode[ModeLexicalOnly])
	assert.Equal(t, int64(2), snap.ByLatencyBucket[BucketP10])
	assert.Equal(t, int64(1), snap.ByLatencyBucket[BucketP50])

	require.Len(t, snap.RecentZero, 1)
	assert.Equal(t, "nothing", snap.RecentZero[0].Query)
	assert.False(t, snap.RecentZero[0].Timestamp.IsZero(), "timestamp is filled in when absent")
}

func TestZeroResultRingEvictsOldest(t *testing.T) {
	m := NewQueryMetrics()
	for i := 0; i < defaultZeroResultCapacity+10; i++ {
		m.Record(QueryEvent{Query: fmt.Sprintf("q%d", i), ResultCount: 0})
	}

	snap := m.Snapshot()
	require.Len(t, snap.RecentZero, defaultZeroResultCapacity)
	assert.Equal(t, "q10", snap.RecentZero[0].Query, "oldest entries are evicted first")
	assert.Equal(t, fmt.Sprintf("q%d", defaultZeroResultCapacity+9),
		snap.RecentZero[len(snap.RecentZero)-1].Query)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewQueryMetrics()
	m.Record(QueryEvent{Mode: ModeHybrid, ResultCount: 1})

	snap := m.Snapshot()
	snap.ByMode[ModeHybrid] = 99

	assert.Equal(t, int64(1), m.Snapshot().ByMode[ModeHybrid])
}
