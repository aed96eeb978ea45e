package workerpool

import "context"

// ResourceHandle is what GetDistance/GetIntersect hand back: either a
// claimed accelerator slot, or (Device == nil) the CPU gate.
type ResourceHandle struct {
	Device *DeviceSlot
}

// ResourceBroker harmonizes CPU and accelerator arbitration behind one
// interface, resolving the Open Question in spec §9 ("the intersection
// path uses num_threads parameterization but the distance path uses a
// pool-based request_cpu gate; harmonize on a single resource
// interface"). Both GetDistance and GetIntersect hand back a
// ResourceHandle; the caller always pairs it with a Release call.
type ResourceBroker struct {
	CPU     *CPUGate
	Devices *DeviceBroker
}

// NewResourceBroker wires a CPU gate and an (optionally empty) device
// broker together.
func NewResourceBroker(devices *DeviceBroker) *ResourceBroker {
	if devices == nil {
		devices = NewDeviceBroker()
	}
	return &ResourceBroker{CPU: NewCPUGate(), Devices: devices}
}

// GetDistance implements spec §4.3's distance-join policy: prefer an
// accelerator slot that fits minBytes; otherwise fall back to the CPU
// gate. Resource exhaustion on the accelerator side is never an error
// here — it is absorbed by the CPU fallback (spec §7).
func (rb *ResourceBroker) GetDistance(ctx context.Context, minBytes int64) (*ResourceHandle, error) {
	if rb.Devices.SlotCount() > 0 {
		if slot, ok := rb.Devices.RequestDevice(minBytes, false); ok {
			return &ResourceHandle{Device: slot}, nil
		}
	}
	if err := rb.CPU.Acquire(ctx); err != nil {
		return nil, err
	}
	return &ResourceHandle{}, nil
}

// GetIntersect implements spec §4.3's intersect-join policy: CPU only.
func (rb *ResourceBroker) GetIntersect(ctx context.Context) (*ResourceHandle, error) {
	if err := rb.CPU.Acquire(ctx); err != nil {
		return nil, err
	}
	return &ResourceHandle{}, nil
}

// Release returns a handle obtained from GetDistance/GetIntersect to
// whichever pool it came from.
func (rb *ResourceBroker) Release(h *ResourceHandle) {
	if h == nil {
		return
	}
	if h.Device != nil {
		rb.Devices.ReleaseDevice(h.Device)
		return
	}
	rb.CPU.Release()
}
