package query_test

import (
	"testing"
	"time"

	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/query"
	"github.com/justapithecus/tracewatch/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.DefaultConfig("query-test"), nil)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s
}

func putState(t *testing.T, s *store.Store, actor string, ts time.Time, state string) {
	t.Helper()
	_, err := s.Put(&event.Event{
		Kind:      event.KindState,
		Actor:     event.NewActorHandle(actor),
		Timestamp: ts,
		State:     &event.StatePayload{Module: "M", Callback: "handle_call", State: state},
	})
	if err != nil {
		t.Fatalf("put state: %v", err)
	}
}

func putProcess(t *testing.T, s *store.Store, actor string, ts time.Time, sub event.ProcessSubEvent) {
	t.Helper()
	_, err := s.Put(&event.Event{
		Kind:      event.KindProcess,
		Actor:     event.NewActorHandle(actor),
		Timestamp: ts,
		Process:   &event.ProcessPayload{SubEvent: sub},
	})
	if err != nil {
		t.Fatalf("put process: %v", err)
	}
}

func TestStateAt_PointInTime(t *testing.T) {
	s := newTestStore(t)
	a := event.NewActorHandle("A")

	putState(t, s, "A", time.Unix(100, 0), "count:1")
	putState(t, s, "A", time.Unix(200, 0), "count:2")
	putState(t, s, "A", time.Unix(300, 0), "count:3")

	check := func(at int64, want string, wantOK bool) {
		e, ok := query.StateAt(s, a, time.Unix(at, 0))
		if ok != wantOK {
			t.Fatalf("state_at(A, %d) ok = %v, want %v", at, ok, wantOK)
		}
		if ok && e.State.State != want {
			t.Fatalf("state_at(A, %d) = %q, want %q", at, e.State.State, want)
		}
	}

	check(150, "count:1", true)
	check(250, "count:2", true)
	check(99, "", false)
	check(1000, "count:3", true)
}

func TestLiveActorsAt_SpawnExitReconstruction(t *testing.T) {
	s := newTestStore(t)

	putProcess(t, s, "A", time.Unix(10, 0), event.ProcessSpawn)
	putProcess(t, s, "B", time.Unix(20, 0), event.ProcessSpawn)
	putProcess(t, s, "A", time.Unix(30, 0), event.ProcessExit)
	putProcess(t, s, "C", time.Unix(40, 0), event.ProcessSpawn)

	namesAt := func(at int64) map[string]bool {
		out := map[string]bool{}
		for _, a := range query.LiveActorsAt(s, time.Unix(at, 0)) {
			out[a.String()] = true
		}
		return out
	}

	if got := namesAt(5); len(got) != 0 {
		t.Errorf("live_actors_at(5) = %v, want {}", got)
	}
	if got := namesAt(15); len(got) != 1 || !got["A"] {
		t.Errorf("live_actors_at(15) = %v, want {A}", got)
	}
	if got := namesAt(25); len(got) != 2 || !got["A"] || !got["B"] {
		t.Errorf("live_actors_at(25) = %v, want {A,B}", got)
	}
	if got := namesAt(35); len(got) != 1 || !got["B"] {
		t.Errorf("live_actors_at(35) = %v, want {B}", got)
	}
	if got := namesAt(45); len(got) != 2 || !got["B"] || !got["C"] {
		t.Errorf("live_actors_at(45) = %v, want {B,C}", got)
	}
}

func TestPendingMessagesAt_UnmatchedSendSurvives(t *testing.T) {
	s := newTestStore(t)
	send := func(from, to, content string, ts int64) {
		_, err := s.Put(&event.Event{
			Kind:      event.KindMessage,
			Timestamp: time.Unix(ts, 0),
			Message: &event.MessagePayload{
				Direction: event.MessageSend,
				From:      event.NewActorHandle(from),
				To:        event.NewActorHandle(to),
				Content:   content,
			},
		})
		if err != nil {
			t.Fatalf("put send: %v", err)
		}
	}
	receive := func(from, to, content string, ts int64) {
		_, err := s.Put(&event.Event{
			Kind:      event.KindMessage,
			Timestamp: time.Unix(ts, 0),
			Message: &event.MessagePayload{
				Direction: event.MessageReceive,
				From:      event.NewActorHandle(from),
				To:        event.NewActorHandle(to),
				Content:   content,
			},
		})
		if err != nil {
			t.Fatalf("put receive: %v", err)
		}
	}

	send("A", "B", "ping", 10)
	receive("A", "B", "ping", 11)
	send("A", "B", "pong", 12) // unmatched

	pending := query.PendingMessagesAt(s, time.Unix(100, 0))
	b := event.NewActorHandle("B")
	if len(pending[b]) != 1 {
		t.Fatalf("pending messages for B = %d, want 1", len(pending[b]))
	}
	if pending[b][0].Message.Content != "pong" {
		t.Errorf("pending message content = %q, want %q", pending[b][0].Message.Content, "pong")
	}
}

func TestEventsAround_EmptyForUnknownID(t *testing.T) {
	s := newTestStore(t)
	if got := query.EventsAround(s, 9999, time.Second); len(got) != 0 {
		t.Errorf("EventsAround(unknown id) = %v, want empty", got)
	}
}

func TestCompareStates_MapDiff(t *testing.T) {
	before := map[string]any{"count": 1, "name": "a"}
	after := map[string]any{"count": 2, "extra": true}

	diff := query.CompareStates(before, after)
	if diff.Equal {
		t.Fatal("expected diff to report inequality")
	}
	if len(diff.Changed) != 1 || diff.Changed[0].Key != "count" {
		t.Errorf("Changed = %v, want one entry for count", diff.Changed)
	}
	if len(diff.Removed) != 1 || diff.Removed[0] != "name" {
		t.Errorf("Removed = %v, want [name]", diff.Removed)
	}
	if len(diff.Added) != 1 || diff.Added[0] != "extra" {
		t.Errorf("Added = %v, want [extra]", diff.Added)
	}
}

func TestCompareStates_ScalarEquality(t *testing.T) {
	if !query.CompareStates("idle", "idle").Equal {
		t.Error("expected equal scalars to compare equal")
	}
	if query.CompareStates("idle", "running").Equal {
		t.Error("expected different scalars to compare unequal")
	}
}

func TestQuery_TotalityOnEmptyStore(t *testing.T) {
	s := newTestStore(t)
	a := event.NewActorHandle("ghost")

	if got := query.EventsForActor(s, a); len(got) != 0 {
		t.Errorf("EventsForActor on empty store = %v, want empty", got)
	}
	if _, ok := query.StateAt(s, a, time.Now()); ok {
		t.Error("StateAt on empty store should report not-found")
	}
	if got := query.LiveActorsAt(s, time.Now()); len(got) != 0 {
		t.Errorf("LiveActorsAt on empty store = %v, want empty", got)
	}
	if got := query.StateEvolution(s, a, time.Time{}, time.Now()); len(got) != 0 {
		t.Errorf("StateEvolution on empty store = %v, want empty", got)
	}
}
