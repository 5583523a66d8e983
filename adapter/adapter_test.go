package adapter

import (
	"errors"
	"testing"

	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/metrics"
)

func TestTracingLevel_Accepts(t *testing.T) {
	process := &event.Event{Kind: event.KindProcess, Process: &event.ProcessPayload{SubEvent: event.ProcessSpawn}}
	message := &event.Event{Kind: event.KindMessage, Message: &event.MessagePayload{}}
	state := &event.Event{Kind: event.KindState, State: &event.StatePayload{}}
	function := &event.Event{Kind: event.KindFunction, Function: &event.FunctionPayload{}}
	criticalCustom := &event.Event{Kind: event.KindCustom, Custom: &event.CustomPayload{}, Critical: true}

	cases := []struct {
		level TracingLevel
		e     *event.Event
		want  bool
	}{
		{Full, function, true},
		{MessagesOnly, message, true},
		{MessagesOnly, process, true},
		{MessagesOnly, state, false},
		{StatesOnly, state, true},
		{StatesOnly, process, true},
		{StatesOnly, message, false},
		{Minimal, process, true},
		{Minimal, criticalCustom, true},
		{Minimal, function, false},
		{Off, process, false},
		{Off, criticalCustom, false},
	}
	for _, c := range cases {
		if got := c.level.Accepts(c.e); got != c.want {
			t.Errorf("%s.Accepts(%v) = %v, want %v", c.level, c.e.Kind, got, c.want)
		}
	}
}

func TestParseTracingLevel(t *testing.T) {
	if lvl, ok := ParseTracingLevel(""); !ok || lvl != Full {
		t.Errorf("expected empty string to default to Full, got %v ok=%v", lvl, ok)
	}
	if lvl, ok := ParseTracingLevel("states_only"); !ok || lvl != StatesOnly {
		t.Errorf("expected states_only, got %v ok=%v", lvl, ok)
	}
	if _, ok := ParseTracingLevel("bogus"); ok {
		t.Error("expected bogus tracing level to be rejected")
	}
}

func TestForward_AdmitsWhenAccepted(t *testing.T) {
	e := &event.Event{Kind: event.KindProcess, Process: &event.ProcessPayload{SubEvent: event.ProcessSpawn}}
	collector := metrics.NewCollector("test")
	id, err := Forward(Full, e, collector, func(*event.Event) (int64, error) { return 7, nil })
	if err != nil || id != 7 {
		t.Errorf("expected (7, nil), got (%d, %v)", id, err)
	}
}

func TestForward_DropsWhenRejectedByLevel(t *testing.T) {
	e := &event.Event{Kind: event.KindFunction, Function: &event.FunctionPayload{}}
	collector := metrics.NewCollector("test")
	called := false
	_, err := Forward(Minimal, e, collector, func(*event.Event) (int64, error) {
		called = true
		return 1, nil
	})
	if !errors.Is(err, ErrAdapterMisuse) {
		t.Errorf("expected ErrAdapterMisuse, got %v", err)
	}
	if called {
		t.Error("expected put not to be called")
	}
	if collector.Snapshot().AdapterMisuseDrops != 1 {
		t.Errorf("expected 1 adapter misuse drop recorded")
	}
}
