package store

import (
	"fmt"
	"time"

	"github.com/justapithecus/tracewatch/event"
)

// Config is the construction-time configuration surface for a Store.
type Config struct {
	// Name identifies this Store instance (the monitored node/run name).
	// The Store is deliberately not a module-level singleton; multiple
	// named Stores may coexist, e.g. one per isolated test run.
	Name string

	// MaxEvents bounds retained non-critical events (default 10,000).
	MaxEvents int

	// SampleRate is the default admission rate passed to the sampler for
	// events that arrive without a per-call override (default 1.0).
	SampleRate float64

	// SanitizationLimits bounds per-field payload size (defaults defined
	// by event.DefaultSanitizationLimits).
	SanitizationLimits event.SanitizationLimits

	// SnapshotEnabled gates whether this Store may be targeted by a
	// Snapshotter (default false).
	SnapshotEnabled bool

	// PrecursorWindow is the time.Duration used by state_evolution to
	// bound "recent events before a state change" (default 100ms).
	PrecursorWindow time.Duration

	// PrecursorCount is the max number of precursor events state_evolution
	// reports per state change (default 5).
	PrecursorCount int
}

// DefaultConfig returns the documented default Store configuration.
func DefaultConfig(name string) Config {
	return Config{
		Name:               name,
		MaxEvents:          10_000,
		SampleRate:         1.0,
		SanitizationLimits: event.DefaultSanitizationLimits(),
		SnapshotEnabled:    false,
		PrecursorWindow:    100 * time.Millisecond,
		PrecursorCount:     5,
	}
}

// Validate rejects configurations outside the documented ranges.
func (c Config) Validate() error {
	if c.Name == "" {
		return newStoreError(ErrInvalidConfiguration, "validate", fmt.Errorf("name must not be empty"))
	}
	if c.MaxEvents <= 0 {
		return newStoreError(ErrInvalidConfiguration, "validate", fmt.Errorf("max_events must be positive, got %d", c.MaxEvents))
	}
	if c.SampleRate < 0.0 || c.SampleRate > 1.0 {
		return newStoreError(ErrInvalidConfiguration, "validate", fmt.Errorf("sample_rate must be in [0.0, 1.0], got %f", c.SampleRate))
	}
	if c.PrecursorWindow < 0 {
		return newStoreError(ErrInvalidConfiguration, "validate", fmt.Errorf("precursor_window must be non-negative, got %s", c.PrecursorWindow))
	}
	if c.PrecursorCount < 0 {
		return newStoreError(ErrInvalidConfiguration, "validate", fmt.Errorf("precursor_count must be non-negative, got %d", c.PrecursorCount))
	}
	return nil
}
