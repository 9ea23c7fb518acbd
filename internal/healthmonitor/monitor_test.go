package healthmonitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihika12345b/log-distributor/internal/registry"
	"github.com/mihika12345b/log-distributor/internal/transport"
)

type scriptedProbe struct {
	mu      sync.Mutex
	healthy map[string]bool
}

func (s *scriptedProbe) Send(context.Context, string, []byte, time.Duration) (transport.Outcome, error) {
	return transport.OutcomeSuccess, nil
}

func (s *scriptedProbe) Probe(_ context.Context, url string, _ time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy[url]
}

func TestMonitor_MarksUnhealthyTargetHealthy(t *testing.T) {
	reg, err := registry.New([]registry.TargetConfig{{Name: "a", URL: "a", Weight: 1}})
	require.NoError(t, err)
	require.NoError(t, reg.SetHealth("a", false))

	sp := &scriptedProbe{healthy: map[string]bool{"a": true}}
	mon := New(reg, sp, Config{Interval: 10 * time.Millisecond, ProbeTimeout: time.Second}, nil, nil)

	mon.Start(context.Background())
	defer mon.Stop()

	require.Eventually(t, func() bool {
		snap := reg.Snapshot()
		return snap.Targets[0].Healthy
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_MarksHealthyTargetUnhealthy(t *testing.T) {
	reg, err := registry.New([]registry.TargetConfig{{Name: "a", URL: "a", Weight: 1}})
	require.NoError(t, err)

	sp := &scriptedProbe{healthy: map[string]bool{"a": false}}
	mon := New(reg, sp, Config{Interval: 10 * time.Millisecond, ProbeTimeout: time.Second}, nil, nil)

	mon.Start(context.Background())
	defer mon.Stop()

	require.Eventually(t, func() bool {
		snap := reg.Snapshot()
		return !snap.Targets[0].Healthy
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_StopTerminatesCleanly(t *testing.T) {
	reg, err := registry.New([]registry.TargetConfig{{Name: "a", URL: "a", Weight: 1}})
	require.NoError(t, err)

	sp := &scriptedProbe{healthy: map[string]bool{"a": true}}
	mon := New(reg, sp, Config{Interval: 5 * time.Millisecond, ProbeTimeout: time.Second}, nil, nil)

	mon.Start(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.True(t, true)
}
