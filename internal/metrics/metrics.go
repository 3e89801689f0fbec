// Package metrics provides process-local operation counters. Counters are
// plain atomics; the registry never shares mutable state beyond them and
// is exposed through a pull endpoint.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Registry holds named monotonic counters.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
}

// NewRegistry creates an empty counter registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*atomic.Int64),
	}
}

// Inc increments the named counter, creating it on first use.
func (r *Registry) Inc(name string) {
	r.counter(name).Add(1)
}

// Get returns the current value of the named counter.
func (r *Registry) Get(name string) int64 {
	return r.counter(name).Load()
}

// Snapshot returns a stable copy of all counters for the pull endpoint.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]int64, len(r.counters))
	for name, counter := range r.counters {
		snapshot[name] = counter.Load()
	}
	return snapshot
}

// Names returns all counter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.counters))
	for name := range r.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) counter(name string) *atomic.Int64 {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; ok {
		return c
	}
	c = new(atomic.Int64)
	r.counters[name] = c
	return c
}

// Counter names used by the orchestrator
const (
	DepositsCompleted         = "deposits_completed_total"
	TransfersCompleted        = "transfers_completed_total"
	TransfersFailed           = "transfers_failed_total"
	P2PTransfersCompleted     = "p2p_transfers_completed_total"
	ContributionsCompleted    = "contributions_completed_total"
	GroupWithdrawalsCompleted = "group_withdrawals_completed_total"
	InboundTransfersCompleted = "inbound_transfers_completed_total"
	LoansDisbursed            = "loans_disbursed_total"
	LoansPaid                 = "loans_paid_total"
	IdempotentReplays         = "idempotent_replays_total"
	Escalations               = "escalations_total"
)
