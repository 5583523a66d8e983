package ipc

import (
	"fmt"
	"time"

	"github.com/justapithecus/tracewatch/event"
)

// eventWire is the wire-format mirror of event.Event. All fields use
// msgpack tags; ActorHandle values cross the wire as their opaque string
// identity, and the timestamp as RFC3339Nano to stay human-readable on
// the pipe.
type eventWire struct {
	Type        string            `msgpack:"type"`
	ID          int64             `msgpack:"id"`
	Timestamp   string            `msgpack:"ts"`
	Kind        string            `msgpack:"kind"`
	Actor       string            `msgpack:"actor,omitempty"`
	Critical    bool              `msgpack:"critical,omitempty"`
	Correlation map[string]string `msgpack:"correlation,omitempty"`

	Process   *processWire   `msgpack:"process,omitempty"`
	Message   *messageWire   `msgpack:"message,omitempty"`
	State     *stateWire     `msgpack:"state,omitempty"`
	GenServer *genServerWire `msgpack:"genserver,omitempty"`
	Function  *functionWire  `msgpack:"function,omitempty"`
	Framework *frameworkWire `msgpack:"framework,omitempty"`
	Custom    *customWire    `msgpack:"custom,omitempty"`
}

type processWire struct {
	SubEvent string         `msgpack:"sub_event"`
	Reason   string         `msgpack:"reason,omitempty"`
	Info     map[string]any `msgpack:"info,omitempty"`
}

type messageWire struct {
	Direction   string            `msgpack:"direction"`
	From        string            `msgpack:"from,omitempty"`
	To          string            `msgpack:"to,omitempty"`
	Content     string            `msgpack:"content"`
	Correlation map[string]string `msgpack:"correlation,omitempty"`
}

type stateWire struct {
	Module   string `msgpack:"module"`
	Callback string `msgpack:"callback"`
	State    string `msgpack:"state"`
}

type genServerWire struct {
	Module     string `msgpack:"module"`
	Callback   string `msgpack:"callback"`
	PreStateID int64  `msgpack:"pre_state_id,omitempty"`
	Message    string `msgpack:"message,omitempty"`
}

type functionWire struct {
	Module    string `msgpack:"module"`
	Function  string `msgpack:"function"`
	Arity     int    `msgpack:"arity"`
	Direction string `msgpack:"direction"`
	Summary   string `msgpack:"summary,omitempty"`
}

type frameworkWire struct {
	Subtype string         `msgpack:"subtype"`
	Fields  map[string]any `msgpack:"fields,omitempty"`
}

type customWire struct {
	Tag    string         `msgpack:"tag"`
	Fields map[string]any `msgpack:"fields,omitempty"`
}

// ackWire is the wire-format mirror of Ack.
type ackWire struct {
	Type    string `msgpack:"type"`
	EventID int64  `msgpack:"event_id"`
	Status  string `msgpack:"status"`
	Error   string `msgpack:"error,omitempty"`
}

// AckStatus discriminates the outcome an Ack reports for one event frame.
type AckStatus string

// AckStatus values.
const (
	AckAdmitted AckStatus = "admitted"
	AckDropped  AckStatus = "dropped"
	AckError    AckStatus = "error"
)

// Ack is the control frame an ipcbridge adapter's reader sends back to
// the producer after the engine has processed one event frame.
type Ack struct {
	EventID int64
	Status  AckStatus
	Err     string
}

func toAckWire(a *Ack) ackWire {
	return ackWire{
		Type:    AckFrameType,
		EventID: a.EventID,
		Status:  string(a.Status),
		Error:   a.Err,
	}
}

func (w ackWire) toAck() *Ack {
	return &Ack{
		EventID: w.EventID,
		Status:  AckStatus(w.Status),
		Err:     w.Error,
	}
}

func toEventWire(e *event.Event) eventWire {
	w := eventWire{
		Type:        EventFrameType,
		ID:          e.ID,
		Timestamp:   e.Timestamp.Format(time.RFC3339Nano),
		Kind:        string(e.Kind),
		Actor:       e.Actor.String(),
		Critical:    e.Critical,
		Correlation: e.Correlation,
	}

	if e.Process != nil {
		w.Process = &processWire{
			SubEvent: string(e.Process.SubEvent),
			Reason:   e.Process.Reason,
			Info:     e.Process.Info,
		}
	}
	if e.Message != nil {
		w.Message = &messageWire{
			Direction:   string(e.Message.Direction),
			From:        e.Message.From.String(),
			To:          e.Message.To.String(),
			Content:     e.Message.Content,
			Correlation: e.Message.Correlation,
		}
	}
	if e.State != nil {
		w.State = &stateWire{
			Module:   e.State.Module,
			Callback: e.State.Callback,
			State:    e.State.State,
		}
	}
	if e.GenServer != nil {
		w.GenServer = &genServerWire{
			Module:     e.GenServer.Module,
			Callback:   string(e.GenServer.Callback),
			PreStateID: e.GenServer.PreStateID,
			Message:    e.GenServer.Message,
		}
	}
	if e.Function != nil {
		w.Function = &functionWire{
			Module:    e.Function.Module,
			Function:  e.Function.Function,
			Arity:     e.Function.Arity,
			Direction: string(e.Function.Direction),
			Summary:   e.Function.Summary,
		}
	}
	if e.Framework != nil {
		w.Framework = &frameworkWire{
			Subtype: e.Framework.Subtype,
			Fields:  e.Framework.Fields,
		}
	}
	if e.Custom != nil {
		w.Custom = &customWire{
			Tag:    e.Custom.Tag,
			Fields: e.Custom.Fields,
		}
	}
	return w
}

func (w eventWire) toEvent() (*event.Event, error) {
	var ts time.Time
	if w.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, w.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", w.Timestamp, err)
		}
		ts = parsed
	}

	e := &event.Event{
		ID:          w.ID,
		Timestamp:   ts,
		Kind:        event.Kind(w.Kind),
		Actor:       event.NewActorHandle(w.Actor),
		Critical:    w.Critical,
		Correlation: w.Correlation,
	}

	if w.Process != nil {
		e.Process = &event.ProcessPayload{
			SubEvent: event.ProcessSubEvent(w.Process.SubEvent),
			Reason:   w.Process.Reason,
			Info:     w.Process.Info,
		}
	}
	if w.Message != nil {
		e.Message = &event.MessagePayload{
			Direction:   event.MessageDirection(w.Message.Direction),
			From:        event.NewActorHandle(w.Message.From),
			To:          event.NewActorHandle(w.Message.To),
			Content:     w.Message.Content,
			Correlation: w.Message.Correlation,
		}
	}
	if w.State != nil {
		e.State = &event.StatePayload{
			Module:   w.State.Module,
			Callback: w.State.Callback,
			State:    w.State.State,
		}
	}
	if w.GenServer != nil {
		e.GenServer = &event.GenServerPayload{
			Module:     w.GenServer.Module,
			Callback:   event.GenServerCallback(w.GenServer.Callback),
			PreStateID: w.GenServer.PreStateID,
			Message:    w.GenServer.Message,
		}
	}
	if w.Function != nil {
		e.Function = &event.FunctionPayload{
			Module:    w.Function.Module,
			Function:  w.Function.Function,
			Arity:     w.Function.Arity,
			Direction: event.FunctionDirection(w.Function.Direction),
			Summary:   w.Function.Summary,
		}
	}
	if w.Framework != nil {
		e.Framework = &event.FrameworkPayload{
			Subtype: w.Framework.Subtype,
			Fields:  w.Framework.Fields,
		}
	}
	if w.Custom != nil {
		e.Custom = &event.CustomPayload{
			Tag:    w.Custom.Tag,
			Fields: w.Custom.Fields,
		}
	}
	return e, nil
}
