package workerpool

import (
	"sync"
	"time"
)

// DeviceSlot describes one accelerator slot's capacity. FreeMemory is
// advisory bookkeeping supplied by the caller (or the accelerator's own
// reporting); the broker does not validate it beyond the min_bytes
// comparison spec'd in §4.3.
type DeviceSlot struct {
	ID         int
	FreeMemory int64
	busy       bool
}

// DeviceBroker arbitrates a fixed set of accelerator slots, grounded on
// the teacher's ConnectionPool.Get: a mutex-guarded linear scan for a slot
// that is both idle and large enough, with metrics kept alongside.
type DeviceBroker struct {
	mu      sync.Mutex
	slots   []*DeviceSlot
	metrics DeviceMetrics
}

// DeviceMetrics mirrors the teacher's PoolMetrics shape.
type DeviceMetrics struct {
	Requested int64
	Granted   int64
	Denied    int64
	Released  int64
}

// NewDeviceBroker creates a broker over the given slot capacities. An
// empty set is valid — every RequestDevice(force=false) call then
// returns (nil, false) immediately, and the engine's distance policy
// (ResourceBroker.GetDistance) falls back to CPU.
func NewDeviceBroker(freeMemory ...int64) *DeviceBroker {
	slots := make([]*DeviceSlot, len(freeMemory))
	for i, fm := range freeMemory {
		slots[i] = &DeviceSlot{ID: i, FreeMemory: fm}
	}
	return &DeviceBroker{slots: slots}
}

// RequestDevice scans for an idle slot with FreeMemory > minBytes. If
// force is true and none is currently available, it polls at
// pollInterval until one frees. Otherwise it returns (nil, false)
// immediately — the caller decides the CPU fallback (spec §4.3, §7).
func (b *DeviceBroker) RequestDevice(minBytes int64, force bool) (*DeviceSlot, bool) {
	b.mu.Lock()
	b.metrics.Requested++
	b.mu.Unlock()

	for {
		if slot, ok := b.tryClaim(minBytes); ok {
			return slot, true
		}
		if !force {
			b.mu.Lock()
			b.metrics.Denied++
			b.mu.Unlock()
			return nil, false
		}
		time.Sleep(pollInterval)
	}
}

func (b *DeviceBroker) tryClaim(minBytes int64) (*DeviceSlot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.slots {
		if !s.busy && s.FreeMemory > minBytes {
			s.busy = true
			b.metrics.Granted++
			return s, true
		}
	}
	return nil, false
}

// ReleaseDevice marks slot idle again.
func (b *DeviceBroker) ReleaseDevice(slot *DeviceSlot) {
	if slot == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	slot.busy = false
	b.metrics.Released++
}

// Metrics returns a snapshot of broker activity.
func (b *DeviceBroker) Metrics() DeviceMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// SlotCount reports how many accelerator slots the broker manages.
func (b *DeviceBroker) SlotCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}
