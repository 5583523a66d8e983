// Package event defines the canonical event shape captured from a target
// actor runtime.
package event

import (
	"fmt"
	"time"
)

// Kind discriminates the top-level shape of an Event's payload.
type Kind string

// Kind constants.
const (
	KindProcess   Kind = "process"
	KindMessage   Kind = "message"
	KindState     Kind = "state"
	KindGenServer Kind = "genserver"
	KindFunction  Kind = "function"
	KindFramework Kind = "framework"
	KindCustom    Kind = "custom"
)

// ProcessSubEvent discriminates Process payloads.
type ProcessSubEvent string

// ProcessSubEvent constants.
const (
	ProcessSpawn   ProcessSubEvent = "spawn"
	ProcessExit    ProcessSubEvent = "exit"
	ProcessCrash   ProcessSubEvent = "crash"
	ProcessMonitor ProcessSubEvent = "monitor"
)

// MessageDirection discriminates Message payloads.
type MessageDirection string

// MessageDirection constants.
const (
	MessageSend    MessageDirection = "send"
	MessageReceive MessageDirection = "receive"
)

// GenServerCallback discriminates GenServer payloads.
type GenServerCallback string

// GenServerCallback constants.
const (
	GenServerInit      GenServerCallback = "init"
	GenServerCall      GenServerCallback = "call"
	GenServerCast      GenServerCallback = "cast"
	GenServerInfo      GenServerCallback = "info"
	GenServerTerminate GenServerCallback = "terminate"
)

// FunctionDirection discriminates Function payloads.
type FunctionDirection string

// FunctionDirection constants.
const (
	FunctionEnter  FunctionDirection = "enter"
	FunctionReturn FunctionDirection = "return"
)

// ActorHandle is the opaque identity of a unit of concurrency in the target
// runtime. Equality is total (comparable struct); handles are not proof of
// continuity — the target may reuse an identity across unrelated actors.
type ActorHandle struct {
	id string
}

// NewActorHandle wraps an opaque producer-supplied identity string.
func NewActorHandle(id string) ActorHandle { return ActorHandle{id: id} }

// String returns the underlying identity, for logging and display only.
func (h ActorHandle) String() string { return h.id }

// IsZero reports whether h is the zero handle (no actor present).
func (h ActorHandle) IsZero() bool { return h.id == "" }

// GobEncode implements gob.GobEncoder; id is unexported so gob would
// otherwise silently drop it (needed for snapshot.Snapshotter's blob format).
func (h ActorHandle) GobEncode() ([]byte, error) { return []byte(h.id), nil }

// GobDecode implements gob.GobDecoder.
func (h *ActorHandle) GobDecode(data []byte) error {
	h.id = string(data)
	return nil
}

// ProcessPayload is the kind-specific payload for KindProcess events.
type ProcessPayload struct {
	SubEvent ProcessSubEvent
	Reason   string
	Info     map[string]any
}

// MessagePayload is the kind-specific payload for KindMessage events.
type MessagePayload struct {
	Direction   MessageDirection
	From        ActorHandle
	To          ActorHandle
	Content     string
	Correlation map[string]string
}

// StatePayload is the kind-specific payload for KindState events.
type StatePayload struct {
	Module   string
	Callback string
	State    string
}

// GenServerPayload is the kind-specific payload for KindGenServer events.
type GenServerPayload struct {
	Module     string
	Callback   GenServerCallback
	PreStateID int64
	Message    string
}

// FunctionPayload is the kind-specific payload for KindFunction events.
type FunctionPayload struct {
	Module    string
	Function  string
	Arity     int
	Direction FunctionDirection
	Summary   string
}

// FrameworkPayload is the kind-specific payload for KindFramework events.
type FrameworkPayload struct {
	Subtype string
	Fields  map[string]any
}

// CustomPayload is the escape hatch for adapter-defined events.
type CustomPayload struct {
	Tag    string
	Fields map[string]any
}

// Event is the atomic record captured from the target runtime. Exactly one
// of the Payload* fields is populated, selected by Kind.
type Event struct {
	// ID is assigned by the Store; zero until admitted.
	ID int64
	// Timestamp is a monotonic clock reading, assigned or confirmed by the Store.
	Timestamp time.Time
	Kind      Kind

	// Actor is present for Process/State/GenServer/Function/Framework events
	// describing a single actor. Message events use From/To instead/in addition.
	Actor ActorHandle

	// Critical, when explicitly set true by the producer, forces classification
	// as Critical regardless of Kind/SubEvent.
	Critical bool

	// Correlation is an adapter-supplied, opaque tag map. The Store stores it
	// verbatim and only ever compares it for equality; it never interprets it.
	Correlation map[string]string

	Process   *ProcessPayload
	Message   *MessagePayload
	State     *StatePayload
	GenServer *GenServerPayload
	Function  *FunctionPayload
	Framework *FrameworkPayload
	Custom    *CustomPayload
}

// reservedCriticalCustomTags are Custom tags treated as critical.
var reservedCriticalCustomTags = map[string]bool{
	"error":      true,
	"panic":      true,
	"oom":        true,
	"supervisor": true,
}

// Classification is the result of Classify.
type Classification string

// Classification values.
const (
	Normal   Classification = "normal"
	Critical Classification = "critical"
)

// Classify labels the events that bypass sampling and eviction: Critical iff
// kind=Process with sub-event in {Spawn, Exit, Crash}, or kind=Custom with a
// reserved error tag, or an explicit Critical marker on the event.
func Classify(e *Event) Classification {
	if e == nil {
		return Normal
	}
	if e.Critical {
		return Critical
	}
	if e.Kind == KindProcess && e.Process != nil {
		switch e.Process.SubEvent {
		case ProcessSpawn, ProcessExit, ProcessCrash:
			return Critical
		}
	}
	if e.Kind == KindCustom && e.Custom != nil && reservedCriticalCustomTags[e.Custom.Tag] {
		return Critical
	}
	return Normal
}

// ActorsReferenced returns every actor this event references (actor,
// from, to), de-duplicated, in a stable order (actor, from, to).
func ActorsReferenced(e *Event) []ActorHandle {
	if e == nil {
		return nil
	}
	seen := make(map[ActorHandle]bool, 2)
	var out []ActorHandle
	add := func(h ActorHandle) {
		if h.IsZero() || seen[h] {
			return
		}
		seen[h] = true
		out = append(out, h)
	}
	add(e.Actor)
	if e.Message != nil {
		add(e.Message.From)
		add(e.Message.To)
	}
	return out
}

// String renders an Event for logging; never the full payload, just enough
// to identify it (id, kind, actor).
func (e *Event) String() string {
	if e == nil {
		return "<nil event>"
	}
	return fmt.Sprintf("event{id=%d kind=%s actor=%s ts=%s}", e.ID, e.Kind, e.Actor, e.Timestamp.Format(time.RFC3339Nano))
}
