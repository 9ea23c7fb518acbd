package selector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihika12345b/log-distributor/internal/registry"
)

func snapshotOf(views ...registry.TargetView) registry.Snapshot {
	var healthyWeight float64
	for _, v := range views {
		if v.Healthy && v.Weight > 0 {
			healthyWeight += v.Weight
		}
	}
	return registry.Snapshot{Targets: views, HealthyWeight: healthyWeight}
}

func TestSelect_NoHealthyTarget_EmptySnapshot(t *testing.T) {
	snap := snapshotOf()
	_, err := Select(snap, nil, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNoHealthyTarget)
}

func TestSelect_NoHealthyTarget_AllUnhealthy(t *testing.T) {
	snap := snapshotOf(
		registry.TargetView{Name: "a", Weight: 1, Healthy: false},
		registry.TargetView{Name: "b", Weight: 1, Healthy: false},
	)
	_, err := Select(snap, nil, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNoHealthyTarget)
}

func TestSelect_SkipsZeroWeightTarget(t *testing.T) {
	snap := snapshotOf(
		registry.TargetView{Name: "zero", Weight: 0, Healthy: true},
	)
	_, err := Select(snap, nil, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNoHealthyTarget)
}

func TestSelect_ExcludesGivenNames(t *testing.T) {
	snap := snapshotOf(
		registry.TargetView{Name: "a", Weight: 1, Healthy: true},
		registry.TargetView{Name: "b", Weight: 1, Healthy: true},
	)
	excluded := map[string]struct{}{"a": {}}

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		chosen, err := Select(snap, excluded, r)
		require.NoError(t, err)
		assert.Equal(t, "b", chosen.Name)
	}
}

func TestSelect_ExcludingAllCandidates_ReturnsNoHealthyTarget(t *testing.T) {
	snap := snapshotOf(registry.TargetView{Name: "a", Weight: 1, Healthy: true})
	excluded := map[string]struct{}{"a": {}}

	_, err := Select(snap, excluded, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNoHealthyTarget)
}

// TestSelect_WeightedConvergence exercises the scenario from spec §8:
// four targets with weights 0.4/0.3/0.2/0.1, all healthy, over 10,000
// draws should converge to within +/-2% of the configured proportions.
func TestSelect_WeightedConvergence(t *testing.T) {
	snap := snapshotOf(
		registry.TargetView{Name: "A", Weight: 0.4, Healthy: true},
		registry.TargetView{Name: "B", Weight: 0.3, Healthy: true},
		registry.TargetView{Name: "C", Weight: 0.2, Healthy: true},
		registry.TargetView{Name: "D", Weight: 0.1, Healthy: true},
	)

	const n = 10000
	counts := map[string]int{}
	r := rand.New(rand.NewSource(42))
	for i := 0; i < n; i++ {
		chosen, err := Select(snap, nil, r)
		require.NoError(t, err)
		counts[chosen.Name]++
	}

	expect := map[string]float64{"A": 0.4, "B": 0.3, "C": 0.2, "D": 0.1}
	for name, want := range expect {
		got := float64(counts[name]) / float64(n)
		assert.InDelta(t, want, got, 0.02, "share of %s", name)
	}
}

func TestSelect_DeterministicTieBreak_LastCandidateCatchesResidual(t *testing.T) {
	snap := snapshotOf(
		registry.TargetView{Name: "a", Weight: 1, Healthy: true},
		registry.TargetView{Name: "b", Weight: 1, Healthy: true},
	)
	// A draw that returns exactly 1.0 (== total weight) lands past the
	// last candidate's cumulative sum; the implementation must still
	// return a candidate rather than failing.
	chosen, err := Select(snap, nil, constRand{v: 1.0})
	require.NoError(t, err)
	assert.Equal(t, "b", chosen.Name)
}

type constRand struct{ v float64 }

func (c constRand) Float64() float64 { return c.v }
