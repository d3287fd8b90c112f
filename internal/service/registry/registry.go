// Package registry maintains the catalog of candidate (provider, model)
// pairs and their live availability state. The registry's ordering is the
// single source of truth for "which model to try next"; nothing else in the
// service hard-codes a model name.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"content-compliance-service/internal/service/llm"
)

// Status is the observed health of a candidate model.
type Status int32

const (
	StatusUnknown Status = iota
	StatusAvailable
	StatusUnavailable
	StatusRateLimited
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusAvailable:
		return "AVAILABLE"
	case StatusUnavailable:
		return "UNAVAILABLE"
	case StatusRateLimited:
		return "RATE_LIMITED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(s))
	}
}

// demoteThreshold is the number of consecutive transient failures after
// which a candidate drops to the back of its priority tier.
const demoteThreshold = 3

// Candidate is one (provider, model) pair. All mutable state is held in
// atomics: two requests racing to demote or promote the same model must not
// corrupt counters. Lost updates are acceptable, torn states are not.
type Candidate struct {
	Provider string
	Model    string
	Priority int
	Client   llm.Client

	status              atomic.Int32
	consecutiveFailures atomic.Int32
	demoted             atomic.Bool
	lastProbedAt        atomic.Int64 // unix nanos, 0 = never
	lastSuccess         atomic.Int64 // unix nanos, 0 = never
	unavailableUntil    atomic.Int64 // unix nanos, 0 = not in cool-down
}

// Key returns the provider/model identifier used in logs and metrics.
func (c *Candidate) Key() string {
	return c.Provider + "/" + c.Model
}

// Status returns the current health state.
func (c *Candidate) Status() Status {
	return Status(c.status.Load())
}

// ConsecutiveFailures returns the current transient failure streak.
func (c *Candidate) ConsecutiveFailures() int {
	return int(c.consecutiveFailures.Load())
}

// Demoted reports whether the candidate sits at the back of its tier.
func (c *Candidate) Demoted() bool {
	return c.demoted.Load()
}

// LastProbedAt returns the time of the last probe, zero if never probed.
func (c *Candidate) LastProbedAt() time.Time {
	return nanosToTime(c.lastProbedAt.Load())
}

// LastSuccess returns the time of the last successful generation or probe.
func (c *Candidate) LastSuccess() time.Time {
	return nanosToTime(c.lastSuccess.Load())
}

// InCooldown reports whether the candidate was marked unavailable recently
// enough that it should not be re-tried or re-probed yet.
func (c *Candidate) InCooldown(now time.Time) bool {
	until := c.unavailableUntil.Load()
	return until != 0 && now.UnixNano() < until
}

// RecordSuccess resets the failure streak and promotes the candidate back
// into its tier.
func (c *Candidate) RecordSuccess(now time.Time) {
	c.consecutiveFailures.Store(0)
	c.demoted.Store(false)
	c.unavailableUntil.Store(0)
	c.lastSuccess.Store(now.UnixNano())
	c.status.Store(int32(StatusAvailable))
}

// RecordTransientFailure counts one transient failure. Reaching the streak
// threshold demotes the candidate within its tier without marking it
// unavailable. Returns the new streak length.
func (c *Candidate) RecordTransientFailure() int {
	n := c.consecutiveFailures.Add(1)
	if n >= demoteThreshold {
		c.demoted.Store(true)
	}
	return int(n)
}

// MarkUnavailable records that the model endpoint is gone. The candidate is
// skipped until the cool-down expires.
func (c *Candidate) MarkUnavailable(now time.Time, cooldown time.Duration) {
	c.status.Store(int32(StatusUnavailable))
	c.unavailableUntil.Store(now.Add(cooldown).UnixNano())
}

// MarkRateLimited records a rate-limit response.
func (c *Candidate) MarkRateLimited() {
	c.status.Store(int32(StatusRateLimited))
}

// MarkProbed records the time of a probe attempt.
func (c *Candidate) MarkProbed(now time.Time) {
	c.lastProbedAt.Store(now.UnixNano())
}

func nanosToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Capability names a classification task (e.g. "copyright-check") that maps
// to acceptable candidates.
type Capability string

// CapabilityCompliance is the default classification capability.
const CapabilityCompliance Capability = "compliance-check"

// Registry is the candidate catalog. The candidate set is fixed at
// construction; only per-candidate health state mutates afterwards.
type Registry struct {
	mu         sync.RWMutex
	candidates []*Candidate
	byCap      map[Capability][]*Candidate
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byCap: make(map[Capability][]*Candidate)}
}

// Add registers a candidate for the given capabilities. A candidate with no
// capabilities serves every capability.
func (r *Registry) Add(c *Candidate, caps ...Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = append(r.candidates, c)
	for _, cap := range caps {
		r.byCap[cap] = append(r.byCap[cap], c)
	}
}

// All returns every registered candidate, unordered.
func (r *Registry) All() []*Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// ListCandidates returns the candidates for a capability sorted by priority
// ascending, demoted candidates last within their tier, then by last
// success recency descending. Candidates in cool-down are included; callers
// decide whether to skip them.
func (r *Registry) ListCandidates(cap Capability) []*Candidate {
	r.mu.RLock()
	pool := r.byCap[cap]
	if len(pool) == 0 {
		pool = r.candidates
	}
	out := make([]*Candidate, len(pool))
	copy(out, pool)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		di, dj := out[i].Demoted(), out[j].Demoted()
		if di != dj {
			return !di
		}
		return out[i].LastSuccess().After(out[j].LastSuccess())
	})
	return out
}
