package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mihika12345b/log-distributor/internal/registry"
)

func TestStats_SnapshotReflectsCounts(t *testing.T) {
	s := New()
	s.IncReceived()
	s.IncReceived()
	s.IncAccepted()
	s.IncRejectedOverload()
	s.IncFailedExhausted()
	s.IncNoTargets()

	snap := s.Snapshot(3, 10, []registry.TargetCounters{
		{Name: "a", Delivered: 1, Failed: 0, Healthy: true},
	})

	assert.Equal(t, int64(2), snap.Received)
	assert.Equal(t, int64(1), snap.Accepted)
	assert.Equal(t, int64(1), snap.RejectedOverload)
	assert.Equal(t, int64(1), snap.FailedExhausted)
	assert.Equal(t, int64(1), snap.NoTargets)
	assert.Equal(t, 3, snap.Depth)
	assert.Equal(t, 10, snap.Capacity)
	assert.Equal(t, 0.3, snap.Utilization)
	assert.Len(t, snap.PerTarget, 1)
	assert.Equal(t, "a", snap.PerTarget[0].Name)
}

func TestStats_ConcurrentIncrements(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncReceived()
			s.IncAccepted()
		}()
	}
	wg.Wait()

	snap := s.Snapshot(0, 1, nil)
	assert.Equal(t, int64(100), snap.Received)
	assert.Equal(t, int64(100), snap.Accepted)
}

func TestUtilization(t *testing.T) {
	assert.Equal(t, 0.5, Utilization(5, 10))
	assert.Equal(t, 0.0, Utilization(5, 0))
}
