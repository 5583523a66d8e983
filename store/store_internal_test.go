package store

import (
	"math"
	"testing"
	"time"

	"github.com/justapithecus/tracewatch/event"
)

func TestCapacityOverflow_RefusesFurtherWrites(t *testing.T) {
	cfg := DefaultConfig("overflow")
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.nextID = math.MaxInt64

	e := &event.Event{
		Kind:      event.KindFunction,
		Actor:     event.NewActorHandle("a"),
		Timestamp: time.Unix(1, 0),
		Function:  &event.FunctionPayload{Module: "M", Function: "f"},
	}
	_, err = s.Put(e)
	if err == nil {
		t.Fatal("expected capacity overflow error")
	}

	_, err = s.Put(e)
	if err == nil {
		t.Fatal("expected subsequent puts to keep failing once fatal")
	}
}

func TestRebuild_PreservesIDsAndContinuesCounter(t *testing.T) {
	cfg := DefaultConfig("rebuild")
	events := []*event.Event{
		{ID: 1, Kind: event.KindFunction, Timestamp: time.Unix(1, 0), Function: &event.FunctionPayload{Module: "M", Function: "f"}},
		{ID: 5, Kind: event.KindFunction, Timestamp: time.Unix(2, 0), Function: &event.FunctionPayload{Module: "M", Function: "g"}},
	}
	s, err := Rebuild(cfg, nil, events)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	id, err := s.Put(&event.Event{
		Kind: event.KindFunction, Timestamp: time.Unix(3, 0),
		Function: &event.FunctionPayload{Module: "M", Function: "h"},
	})
	if err != nil {
		t.Fatalf("put after rebuild: %v", err)
	}
	if id != 6 {
		t.Errorf("id after rebuild = %d, want 6 (max existing id + 1)", id)
	}
}

func TestNextTimestampLocked_PreservesForwardTimestamps(t *testing.T) {
	s, err := New(DefaultConfig("ts"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	base := time.Unix(100, 0)
	s.lastTS = base

	got := s.nextTimestampLocked(base.Add(time.Second))
	if !got.Equal(base.Add(time.Second)) {
		t.Errorf("forward timestamp should be preserved, got %v", got)
	}

	got2 := s.nextTimestampLocked(base.Add(-time.Second))
	if !got2.After(base) {
		t.Errorf("backward timestamp must be bumped past lastTS, got %v", got2)
	}
}
