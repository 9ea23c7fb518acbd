// Package selector implements the weighted-random target selection
// described in spec §4.2: a stateless draw over a registry snapshot,
// excluding targets already tried for the current packet.
package selector

import (
	"math/rand"

	"github.com/mihika12345b/log-distributor/internal/registry"
)

// ErrNoHealthyTarget is returned when no candidate target remains after
// filtering to healthy, positive-weight, non-excluded targets.
var ErrNoHealthyTarget = noHealthyTargetError{}

type noHealthyTargetError struct{}

func (noHealthyTargetError) Error() string { return "no healthy target available" }

// Rand is the source of randomness used for the weighted draw. Tests
// inject a seeded *rand.Rand for determinism; production code can pass
// nil to draw from a fresh source seeded from the package-level one.
type Rand interface {
	Float64() float64
}

// Select performs one weighted-random draw over snap, restricted to
// targets that are healthy, have a positive weight, and are not present
// in excluded. Candidates are walked in registration order (as stored
// in snap.Targets); the cumulative-weight walk is a strict "<" test, so
// the last candidate absorbs any residual floating-point mass.
//
// Returns ErrNoHealthyTarget if no candidate remains.
func Select(snap registry.Snapshot, excluded map[string]struct{}, r Rand) (registry.TargetView, error) {
	if r == nil {
		r = rand.New(rand.NewSource(rand.Int63()))
	}

	var total float64
	candidates := make([]registry.TargetView, 0, len(snap.Targets))
	for _, t := range snap.Targets {
		if !t.Healthy || t.Weight <= 0 {
			continue
		}
		if _, skip := excluded[t.Name]; skip {
			continue
		}
		candidates = append(candidates, t)
		total += t.Weight
	}

	if len(candidates) == 0 {
		return registry.TargetView{}, ErrNoHealthyTarget
	}

	draw := r.Float64() * total

	var cumulative float64
	for i, c := range candidates {
		cumulative += c.Weight
		if draw < cumulative || i == len(candidates)-1 {
			return c, nil
		}
	}

	// Unreachable: the loop always returns on its last iteration.
	return candidates[len(candidates)-1], nil
}
