package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/justapithecus/tracewatch/store"
)

// Config represents a tracewatch.yaml configuration file: a store.Config
// plus the per-adapter tracing-level table (adapters live outside the
// Store and are registered at start-up). All values are optional; zero
// values fall back to the documented defaults via StoreConfig().
type Config struct {
	Name               string                   `yaml:"name"`
	MaxEvents          int                      `yaml:"max_events"`
	SampleRate         *float64                 `yaml:"sample_rate"`
	SanitizationLimits SanitizationLimitsConfig `yaml:"sanitization_limits"`
	SnapshotEnabled    bool                     `yaml:"snapshot_enabled"`
	Precursor          PrecursorConfig          `yaml:"precursor_window_for_state_evolution"`
	Adapters           map[string]AdapterConfig `yaml:"adapters"`
	Archival           ArchivalConfig           `yaml:"archival"`
}

// SanitizationLimitsConfig mirrors event.SanitizationLimits for YAML
// unmarshaling; zero fields fall back to event.DefaultSanitizationLimits.
type SanitizationLimitsConfig struct {
	MaxContentBytes int `yaml:"max_content_bytes"`
	MaxStateBytes   int `yaml:"max_state_bytes"`
	MaxFields       int `yaml:"max_fields"`
}

// PrecursorConfig holds the state_evolution precursor-window defaults:
// duration (default 100 ms) and count (default 5).
type PrecursorConfig struct {
	Window Duration `yaml:"window"`
	Count  int      `yaml:"count"`
}

// AdapterConfig holds per-adapter configuration keyed by adapter name in
// Config.Adapters: each adapter is registered at start-up with a
// configuration including its tracing level.
type AdapterConfig struct {
	Type         string            `yaml:"type"` // "redischan", "httpingest", "ipcbridge"
	TracingLevel string            `yaml:"tracing_level"`
	URL          string            `yaml:"url"`
	Channel      string            `yaml:"channel,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	Timeout      Duration          `yaml:"timeout,omitempty"`
	Retries      *int              `yaml:"retries,omitempty"`
}

// ArchivalConfig holds settings for the optional Lode-backed snapshot
// archival sink. It is parsed but not read by the serve command, which
// writes its snapshot to a file only.
type ArchivalConfig struct {
	Dataset string `yaml:"dataset"`
	Root    string `yaml:"root"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "100ms", "5s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "100ms" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// StoreConfig converts the loaded file into a store.Config, applying the
// documented defaults for any field left at its zero value.
func (c *Config) StoreConfig() store.Config {
	cfg := store.DefaultConfig(c.Name)
	if c.MaxEvents > 0 {
		cfg.MaxEvents = c.MaxEvents
	}
	// SampleRate is a pointer so an explicit 0.0 ("drop all non-critical")
	// survives the unset-means-default rule. Out-of-range values map
	// through untouched and are rejected by store.Config.Validate at
	// construction rather than silently replaced here.
	if c.SampleRate != nil {
		cfg.SampleRate = *c.SampleRate
	}
	if c.SanitizationLimits.MaxContentBytes > 0 {
		cfg.SanitizationLimits.MaxContentBytes = c.SanitizationLimits.MaxContentBytes
	}
	if c.SanitizationLimits.MaxStateBytes > 0 {
		cfg.SanitizationLimits.MaxStateBytes = c.SanitizationLimits.MaxStateBytes
	}
	if c.SanitizationLimits.MaxFields > 0 {
		cfg.SanitizationLimits.MaxFields = c.SanitizationLimits.MaxFields
	}
	cfg.SnapshotEnabled = c.SnapshotEnabled
	if c.Precursor.Window.Duration > 0 {
		cfg.PrecursorWindow = c.Precursor.Window.Duration
	}
	if c.Precursor.Count > 0 {
		cfg.PrecursorCount = c.Precursor.Count
	}
	return cfg
}

// AdapterNames returns the configured adapter names in sorted order, for
// deterministic registration at start-up.
func (c *Config) AdapterNames() []string {
	if len(c.Adapters) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.Adapters))
	for name := range c.Adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
