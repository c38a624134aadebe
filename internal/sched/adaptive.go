package sched

import (
	"sync"
	"time"
)

// Stats aggregates scheduling decisions across runs.
type Stats struct {
	TasksScheduled uint64
	TasksCPU       uint64
	TasksGPU       uint64
	TotalTime      time.Duration
}

// AvgTime returns the mean observed task duration.
func (s Stats) AvgTime() time.Duration {
	if s.TasksScheduled == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.TasksScheduled)
}

// Adaptive picks backends from observed throughput. Each Observe feeds an
// exponential moving average of time per rewrite; Choose sends work to
// whichever backend currently runs cheaper. Safe for concurrent use.
type Adaptive struct {
	mu         sync.Mutex
	cost       [2]float64 // EWMA seconds per rewrite, indexed by Backend
	seen       [2]bool
	avail      [2]bool
	registered bool
	stats      Stats
}

// ewmaAlpha weights fresh observations; older runs decay quickly enough to
// track phase changes in the workload.
const ewmaAlpha = 0.3

// Register marks a backend as present on this host. Choose never returns an
// unregistered backend; with no registrations every backend is assumed.
func (a *Adaptive) Register(b Backend) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.avail[b] = true
	a.registered = true
}

// has reports whether b is selectable. Callers hold a.mu.
func (a *Adaptive) has(b Backend) bool {
	return !a.registered || a.avail[b]
}

// Choose returns the backend for a task. Until every selectable backend has
// been observed, the unobserved one is tried so the average has data for both.
func (a *Adaptive) Choose(t Task) Backend {
	a.mu.Lock()
	defer a.mu.Unlock()
	var b Backend
	switch {
	case a.has(BackendCPU) && !a.seen[BackendCPU]:
		b = BackendCPU
	case a.has(BackendGPU) && !a.seen[BackendGPU]:
		b = BackendGPU
	case a.has(BackendGPU) && (!a.has(BackendCPU) || a.cost[BackendGPU] < a.cost[BackendCPU]):
		b = BackendGPU
	default:
		b = BackendCPU
	}
	a.stats.TasksScheduled++
	if b == BackendGPU {
		a.stats.TasksGPU++
	} else {
		a.stats.TasksCPU++
	}
	return b
}

// Observe records a completed run on a backend. Zero rewrites are counted as
// one so a degenerate run cannot divide by zero.
func (a *Adaptive) Observe(b Backend, d time.Duration, rewrites uint64) {
	if rewrites == 0 {
		rewrites = 1
	}
	perRewrite := d.Seconds() / float64(rewrites)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.seen[b] {
		a.cost[b] = perRewrite
		a.seen[b] = true
	} else {
		a.cost[b] = ewmaAlpha*perRewrite + (1-ewmaAlpha)*a.cost[b]
	}
	a.stats.TotalTime += d
}

// Snapshot returns a copy of the accumulated stats.
func (a *Adaptive) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
