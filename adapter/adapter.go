// Package adapter defines the Ingestion Adapter boundary: normalizing
// diverse producer inputs into event.Event values, gating them by tracing
// level, sanitizing them, and forwarding them into a store.Store.
//
// Concrete adapters (adapter/redischan, adapter/httpingest,
// adapter/ipcbridge) are one per producer style: the adapter isolates
// the producer-specific wiring so the core is pure data.
package adapter

import (
	"errors"

	"github.com/google/uuid"

	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/metrics"
)

// ErrAdapterMisuse is returned by Forward when an adapter's tracing level
// disallows the event's kind. The event is dropped silently from the
// Store's perspective; this sentinel is only observable by the adapter's
// own caller.
var ErrAdapterMisuse = errors.New("adapter: event kind disallowed by tracing level")

// TracingLevel gates which event kinds an adapter forwards.
type TracingLevel string

// TracingLevel constants.
const (
	Full         TracingLevel = "full"
	MessagesOnly TracingLevel = "messages_only"
	StatesOnly   TracingLevel = "states_only"
	Minimal      TracingLevel = "minimal"
	Off          TracingLevel = "off"
)

// ParseTracingLevel parses a config string into a TracingLevel, defaulting
// to Full for an empty string (no explicit gating configured).
func ParseTracingLevel(s string) (TracingLevel, bool) {
	switch TracingLevel(s) {
	case Full, MessagesOnly, StatesOnly, Minimal, Off:
		return TracingLevel(s), true
	case "":
		return Full, true
	default:
		return "", false
	}
}

// Accepts reports whether level allows forwarding e:
//
//	Full         -> all kinds
//	MessagesOnly -> Message, Process
//	StatesOnly   -> State, GenServer, Process
//	Minimal      -> Process, and any event with critical:true
//	Off          -> nothing
func (level TracingLevel) Accepts(e *event.Event) bool {
	if e == nil {
		return false
	}
	switch level {
	case Full:
		return true
	case MessagesOnly:
		return e.Kind == event.KindMessage || e.Kind == event.KindProcess
	case StatesOnly:
		return e.Kind == event.KindState || e.Kind == event.KindGenServer || e.Kind == event.KindProcess
	case Minimal:
		return e.Kind == event.KindProcess || e.Critical
	case Off:
		return false
	default:
		return false
	}
}

// Adapter normalizes producer inputs into event.Event values and forwards
// admitted ones into a store.Store, gated by its configured TracingLevel.
// Implementations must perform no blocking I/O on the ingestion path
// beyond what store.Store.Put itself requires, and hold no shared state
// beyond their own configuration.
type Adapter interface {
	// Name identifies this adapter instance for logging and metrics.
	Name() string
	// TracingLevel returns the adapter's configured gating level.
	TracingLevel() TracingLevel
	// Close releases adapter resources (connections, listeners, goroutines).
	Close() error
}

// Record is the upstream producer input shape: (kind_tag, payload_map,
// source_identity). Concrete adapters parse their transport-specific wire
// format into a Record, then Normalize it into an event.Event.
type Record struct {
	KindTag        string
	Payload        map[string]any
	SourceIdentity string
	// Correlation is an optional small map the adapter may attach; the
	// Store stores it verbatim and only ever compares it for equality.
	Correlation map[string]string
}

// StampSourceIdentity records a producer's source identity on e's
// Correlation map under "source_identity". When the producer didn't
// supply one, a fresh UUID is minted so every admitted event is
// traceable back to a single ingestion call even across adapter
// restarts, without the adapter holding any state of its own.
func StampSourceIdentity(e *event.Event, sourceIdentity string) {
	if e == nil {
		return
	}
	if sourceIdentity == "" {
		sourceIdentity = uuid.NewString()
	}
	if e.Correlation == nil {
		e.Correlation = make(map[string]string, 1)
	}
	e.Correlation["source_identity"] = sourceIdentity
}

// Forward gates e by level and, if accepted, calls put. If level rejects
// e's kind, the event is dropped silently and an AdapterMisuse counter is
// recorded on collector.
func Forward(level TracingLevel, e *event.Event, collector *metrics.Collector, put func(*event.Event) (int64, error)) (int64, error) {
	if !level.Accepts(e) {
		collector.IncAdapterMisuse()
		return 0, ErrAdapterMisuse
	}
	return put(e)
}
