package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/config"
)

func TestRecordCallAggregates(t *testing.T) {
	c := NewCollector()

	c.RecordCall(config.RoleResearch, 2*time.Second, 100, 50)
	c.RecordCall(config.RoleResearch, 4*time.Second, 200, 100)

	snap, ok := c.SnapshotFor(config.RoleResearch)
	require.True(t, ok)
	assert.Equal(t, int64(2), snap.Calls)
	assert.Equal(t, int64(6000), snap.TotalTimeMs)
	assert.Equal(t, int64(3000), snap.AvgTimeMs)
	assert.Equal(t, int64(300), snap.InputTokens)
	assert.Equal(t, int64(150), snap.OutputTokens)

	assert.InDelta(t, 2.0, testutil.ToFloat64(c.calls.WithLabelValues("research")), 0.001)
	assert.InDelta(t, 300.0, testutil.ToFloat64(c.inputTokens.WithLabelValues("research")), 0.001)
}

func TestCacheHitRate(t *testing.T) {
	c := NewCollector()

	c.RecordCacheHit(config.RoleIdeation)
	c.RecordCacheHit(config.RoleIdeation)
	c.RecordCacheMiss(config.RoleIdeation)

	snap, ok := c.SnapshotFor(config.RoleIdeation)
	require.True(t, ok)
	assert.Equal(t, int64(2), snap.CacheHits)
	assert.Equal(t, int64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRate, 0.001)
}

func TestRecordToolCalls(t *testing.T) {
	c := NewCollector()

	c.RecordToolCalls(config.RoleIntegration, 3)
	c.RecordToolCalls(config.RoleIntegration, 0)
	c.RecordToolCalls(config.RoleIntegration, -1)

	snap, ok := c.SnapshotFor(config.RoleIntegration)
	require.True(t, ok)
	assert.Equal(t, int64(3), snap.ToolCalls)
}

func TestSnapshotSortedByRole(t *testing.T) {
	c := NewCollector()

	c.RecordCall(config.RoleResearch, time.Second, 0, 0)
	c.RecordCall(config.RoleAnalysis, time.Second, 0, 0)
	c.RecordCall(config.RoleIdeation, time.Second, 0, 0)

	snaps := c.Snapshot()
	require.Len(t, snaps, 3)
	assert.Equal(t, config.RoleAnalysis, snaps[0].Role)
	assert.Equal(t, config.RoleIdeation, snaps[1].Role)
	assert.Equal(t, config.RoleResearch, snaps[2].Role)
}

func TestSnapshotForUnknownRole(t *testing.T) {
	c := NewCollector()

	_, ok := c.SnapshotFor(config.RoleExport)
	assert.False(t, ok)
	assert.Empty(t, c.Snapshot())
}

func TestConcurrentRecording(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordCall(config.RoleStrategy, 10*time.Millisecond, 10, 5)
			c.RecordCacheMiss(config.RoleStrategy)
			c.RecordToolCalls(config.RoleStrategy, 1)
		}()
	}
	wg.Wait()

	snap, ok := c.SnapshotFor(config.RoleStrategy)
	require.True(t, ok)
	assert.Equal(t, int64(20), snap.Calls)
	assert.Equal(t, int64(20), snap.CacheMisses)
	assert.Equal(t, int64(20), snap.ToolCalls)
	assert.Equal(t, int64(200), snap.InputTokens)
}

func TestSeparateRegistries(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.RecordCall(config.RoleSummary, time.Second, 1, 1)

	assert.InDelta(t, 1.0, testutil.ToFloat64(a.calls.WithLabelValues("summary")), 0.001)
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.calls.WithLabelValues("summary")), 0.001)
	assert.NotSame(t, a.Registry(), b.Registry())
}
