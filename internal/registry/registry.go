// Package registry implements the Target Registry: the authoritative,
// concurrently-readable set of downstream analyzer targets.
//
// Health flags are mutated only by the health monitor; configured
// targets (name, url, weight) are written once at construction and are
// immutable thereafter. Selection always operates on a Snapshot, a
// cheap immutable copy, so no lock is ever held across a network call.
package registry

import (
	"sync"
	"sync/atomic"
)

// TargetConfig is the static, immutable-at-steady-state configuration
// for one analyzer target, supplied at construction.
type TargetConfig struct {
	Name   string
	URL    string
	Weight float64
}

// target is the registry's internal representation of one analyzer.
// Weight and URL never change after registration; Healthy is the only
// field the health monitor mutates.
type target struct {
	url    string
	weight float64

	mu      sync.RWMutex
	healthy bool

	delivered atomic.Int64
	failed    atomic.Int64
}

// TargetView is an immutable, point-in-time view of one target as it
// appears in a Snapshot.
type TargetView struct {
	Name    string
	URL     string
	Weight  float64
	Healthy bool
}

// Snapshot is an immutable copy of the registry's state, safe to read
// without any further synchronization. Selector draws are made against
// a Snapshot, never against the live registry.
type Snapshot struct {
	Targets []TargetView
	// HealthyWeight is the sum of Weight across targets with
	// Healthy == true && Weight > 0.
	HealthyWeight float64
}

// Registry is the Target Registry described in spec §4.1. All methods
// are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	targets map[string]*target
}

// New constructs a Registry from a list of target configurations.
// Returns a *ConfigError if any name is duplicated, any weight is
// negative, or the total weight across all targets is not positive.
func New(configs []TargetConfig) (*Registry, error) {
	if len(configs) == 0 {
		return nil, &ConfigError{Message: "at least one target is required"}
	}

	r := &Registry{
		targets: make(map[string]*target, len(configs)),
	}

	var totalWeight float64
	for _, cfg := range configs {
		if cfg.Name == "" {
			return nil, &ConfigError{Message: "target name cannot be empty"}
		}
		if _, exists := r.targets[cfg.Name]; exists {
			return nil, &ConfigError{Message: "duplicate target name: " + cfg.Name}
		}
		if cfg.Weight < 0 {
			return nil, &ConfigError{Message: "target " + cfg.Name + " has negative weight"}
		}

		t := &target{url: cfg.URL, weight: cfg.Weight, healthy: true}
		r.targets[cfg.Name] = t
		r.order = append(r.order, cfg.Name)
		totalWeight += cfg.Weight
	}

	if totalWeight <= 0 {
		return nil, &ConfigError{Message: "sum of target weights must be positive"}
	}

	return r, nil
}

// Snapshot returns an immutable view of every registered target in
// registration order, along with the summed weight of targets that are
// currently healthy and have a positive weight.
//
// Snapshot is cheap (a small slice copy under a read lock) and holds no
// lock across I/O — callers select and send against the returned value.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	order := r.order
	r.mu.RUnlock()

	views := make([]TargetView, 0, len(order))
	var healthyWeight float64

	for _, name := range order {
		r.mu.RLock()
		t := r.targets[name]
		r.mu.RUnlock()

		t.mu.RLock()
		healthy := t.healthy
		t.mu.RUnlock()

		views = append(views, TargetView{
			Name:    name,
			URL:     t.url,
			Weight:  t.weight,
			Healthy: healthy,
		})

		if healthy && t.weight > 0 {
			healthyWeight += t.weight
		}
	}

	return Snapshot{Targets: views, HealthyWeight: healthyWeight}
}

// SetHealth updates a target's health flag. It is the only mutation the
// health monitor performs against the registry. Returns
// *UnknownTargetError if name was never registered.
func (r *Registry) SetHealth(name string, healthy bool) error {
	r.mu.RLock()
	t, ok := r.targets[name]
	r.mu.RUnlock()
	if !ok {
		return &UnknownTargetError{Name: name}
	}

	t.mu.Lock()
	t.healthy = healthy
	t.mu.Unlock()
	return nil
}

// RecordDelivered increments the delivered counter for name. Returns
// *UnknownTargetError if name was never registered.
func (r *Registry) RecordDelivered(name string) error {
	r.mu.RLock()
	t, ok := r.targets[name]
	r.mu.RUnlock()
	if !ok {
		return &UnknownTargetError{Name: name}
	}
	t.delivered.Add(1)
	return nil
}

// RecordFailed increments the failed counter for name. Returns
// *UnknownTargetError if name was never registered.
func (r *Registry) RecordFailed(name string) error {
	r.mu.RLock()
	t, ok := r.targets[name]
	r.mu.RUnlock()
	if !ok {
		return &UnknownTargetError{Name: name}
	}
	t.failed.Add(1)
	return nil
}

// TargetCounters is a read-only view of one target's monotonic
// counters, used by the statistics snapshot.
type TargetCounters struct {
	Name      string
	Delivered int64
	Failed    int64
	Healthy   bool
}

// Counters returns the current delivered/failed/healthy state for
// every registered target, in registration order.
func (r *Registry) Counters() []TargetCounters {
	r.mu.RLock()
	order := r.order
	r.mu.RUnlock()

	out := make([]TargetCounters, 0, len(order))
	for _, name := range order {
		r.mu.RLock()
		t := r.targets[name]
		r.mu.RUnlock()

		t.mu.RLock()
		healthy := t.healthy
		t.mu.RUnlock()

		out = append(out, TargetCounters{
			Name:      name,
			Delivered: t.delivered.Load(),
			Failed:    t.failed.Load(),
			Healthy:   healthy,
		})
	}
	return out
}
