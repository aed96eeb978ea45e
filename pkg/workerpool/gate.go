package workerpool

import (
	"context"
	"sync/atomic"
	"time"
)

// pollInterval is the spin-wait granularity for CPUGate.Acquire, matching
// the 10µs poll the core's concurrency model allows (spec §4.3).
const pollInterval = 10 * time.Microsecond

// CPUGate is the exclusive "cpu_busy" arbitration gate from spec §4.3: only
// one batch kernel dispatch may hold the gate at a time. Unlike Pool above
// (which spreads many independent tasks across a fixed worker count),
// CPUGate hands the *whole* CPU budget to a single caller for the duration
// of one batch; the join driver runs that batch across the Pool's workers
// while holding it.
type CPUGate struct {
	busy atomic.Bool
}

// NewCPUGate returns an unheld gate.
func NewCPUGate() *CPUGate {
	return &CPUGate{}
}

// Acquire blocks, polling at pollInterval, until the gate is free, then
// claims it. It returns ctx.Err() if ctx is canceled first.
func (g *CPUGate) Acquire(ctx context.Context) error {
	for {
		if g.busy.CompareAndSwap(false, true) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release frees the gate. Releasing an unheld gate is a programmer error
// but is tolerated (no-op) rather than panicking, since the core never
// surfaces arbitration bugs to the caller (spec §7).
func (g *CPUGate) Release() {
	g.busy.Store(false)
}

// TryAcquire claims the gate without blocking, reporting whether it
// succeeded.
func (g *CPUGate) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}
