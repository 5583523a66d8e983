// Package metrics provides per-store metrics collection.
//
// The Collector accumulates counters during the lifetime of a single Store.
// It is a leaf package with no internal dependencies. Sampler counters are
// absorbed from sampler.Stats at snapshot time rather than mirrored live,
// avoiding double-counting between the two packages.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all observability counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Ingestion
	EventsReceived int64

	// Sampler (absorbed from sampler.Stats at snapshot time)
	SamplerDecisions           int64
	SamplerAdmitted            int64
	SamplerDropped             int64
	SamplerCriticalBypasses    int64
	SamplerFingerprintFailures int64

	// Store
	EventsSanitizationFailures int64
	EventsEvicted              int64
	CriticalEventsRetained     int64
	CapacityOverflow           int64

	// Adapters
	AdapterMisuseDrops int64

	// Snapshotter
	SnapshotSuccess int64
	SnapshotFailure int64
	RestoreSuccess  int64
	RestoreFailure  int64

	// Dimensions (informational, set at construction)
	StoreName string
}

// Collector accumulates metrics during the lifetime of a Store.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	eventsReceived int64

	eventsSanitizationFailures int64
	eventsEvicted              int64
	criticalEventsRetained     int64
	capacityOverflow           int64

	adapterMisuseDrops int64

	snapshotSuccess int64
	snapshotFailure int64
	restoreSuccess  int64
	restoreFailure  int64

	samplerDecisions           int64
	samplerAdmitted            int64
	samplerDropped             int64
	samplerCriticalBypasses    int64
	samplerFingerprintFailures int64

	storeName string
}

// NewCollector creates a Collector labeled with the owning store's name.
func NewCollector(storeName string) *Collector {
	return &Collector{storeName: storeName}
}

// --- Ingestion ---

// IncEventsReceived records one event reaching the store's ingestion path,
// prior to sampling.
func (c *Collector) IncEventsReceived() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsReceived++
	c.mu.Unlock()
}

// --- Store ---

// IncSanitizationFailure records a per-event sanitization failure; the
// event is dropped and the store otherwise remains healthy.
func (c *Collector) IncSanitizationFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsSanitizationFailures++
	c.mu.Unlock()
}

// IncEvicted records the eviction of one non-critical event.
func (c *Collector) IncEvicted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsEvicted++
	c.mu.Unlock()
}

// SetCriticalRetained overwrites the current count of critical events held
// past the configured max_events budget.
func (c *Collector) SetCriticalRetained(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.criticalEventsRetained = n
	c.mu.Unlock()
}

// IncCapacityOverflow records the fatal exhaustion of the id counter.
func (c *Collector) IncCapacityOverflow() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.capacityOverflow++
	c.mu.Unlock()
}

// --- Adapters ---

// IncAdapterMisuse records an adapter forwarding an event of a kind
// disallowed by its configured tracing level.
func (c *Collector) IncAdapterMisuse() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.adapterMisuseDrops++
	c.mu.Unlock()
}

// --- Snapshotter ---

// IncSnapshotSuccess records a successful Snapshot() call.
func (c *Collector) IncSnapshotSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.snapshotSuccess++
	c.mu.Unlock()
}

// IncSnapshotFailure records a failed Snapshot() call.
func (c *Collector) IncSnapshotFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.snapshotFailure++
	c.mu.Unlock()
}

// IncRestoreSuccess records a successful Restore() call.
func (c *Collector) IncRestoreSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.restoreSuccess++
	c.mu.Unlock()
}

// IncRestoreFailure records a failed Restore() call.
func (c *Collector) IncRestoreFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.restoreFailure++
	c.mu.Unlock()
}

// --- Sampler (absorbed from sampler.Stats) ---

// AbsorbSamplerStats copies counters from a sampler.Stats snapshot into the
// collector. Called whenever a caller wants the store's metrics snapshot to
// reflect current sampler activity; the sampler package is not imported
// here to keep this package a dependency-free leaf.
func (c *Collector) AbsorbSamplerStats(decisions, admitted, dropped, criticalBypasses, fingerprintFailures int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.samplerDecisions = decisions
	c.samplerAdmitted = admitted
	c.samplerDropped = dropped
	c.samplerCriticalBypasses = criticalBypasses
	c.samplerFingerprintFailures = fingerprintFailures
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		EventsReceived: c.eventsReceived,

		SamplerDecisions:           c.samplerDecisions,
		SamplerAdmitted:            c.samplerAdmitted,
		SamplerDropped:             c.samplerDropped,
		SamplerCriticalBypasses:    c.samplerCriticalBypasses,
		SamplerFingerprintFailures: c.samplerFingerprintFailures,

		EventsSanitizationFailures: c.eventsSanitizationFailures,
		EventsEvicted:              c.eventsEvicted,
		CriticalEventsRetained:     c.criticalEventsRetained,
		CapacityOverflow:           c.capacityOverflow,

		AdapterMisuseDrops: c.adapterMisuseDrops,

		SnapshotSuccess: c.snapshotSuccess,
		SnapshotFailure: c.snapshotFailure,
		RestoreSuccess:  c.restoreSuccess,
		RestoreFailure:  c.restoreFailure,

		StoreName: c.storeName,
	}
}
