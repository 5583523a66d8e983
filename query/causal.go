package query

import (
	"reflect"
	"time"

	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/store"
)

// EventsAround returns events whose timestamps lie within
// [e.ts-halfWindow, e.ts+halfWindow] where e = event_by_id(eventID). If e
// does not exist, returns an empty sequence.
func EventsAround(s *store.Store, eventID int64, halfWindow time.Duration) []*event.Event {
	if s == nil {
		return nil
	}
	e, ok := s.EventByID(eventID)
	if !ok {
		return nil
	}
	return s.Query(Filter{
		TimestampStart: e.Timestamp.Add(-halfWindow),
		TimestampEnd:   e.Timestamp.Add(halfWindow),
	})
}

// StateTransition pairs a state event with the actor's immediately prior
// state (possibly from before the query window) and a bounded list of
// recent events on the actor preceding the change.
type StateTransition struct {
	Event           *event.Event
	PreviousState   *event.Event
	PotentialCauses []*event.Event
}

// StateEvolution returns, for every state event of actor a within
// [t1, t2], its StateTransition. The precursor window (how far back and
// how many events) is read from the Store's configuration
// (PrecursorWindow, PrecursorCount), defaulting to 100ms / 5 events.
func StateEvolution(s *store.Store, a event.ActorHandle, t1, t2 time.Time) []StateTransition {
	if s == nil {
		return nil
	}
	cfg := s.Config()
	timeline := s.IterState(a)
	allForActor := s.IterByActor(a)

	out := make([]StateTransition, 0)
	for i, e := range timeline {
		if e.Timestamp.Before(t1) || e.Timestamp.After(t2) {
			continue
		}
		var prev *event.Event
		if i > 0 {
			prev = timeline[i-1]
		}
		out = append(out, StateTransition{
			Event:           e,
			PreviousState:   prev,
			PotentialCauses: precursorsFor(e, allForActor, cfg.PrecursorWindow, cfg.PrecursorCount),
		})
	}
	return out
}

// precursorsFor returns up to maxCount events from candidates that
// strictly precede e.Timestamp and fall within window before it, ordered
// ascending and truncated to the most recent maxCount.
func precursorsFor(e *event.Event, candidates []*event.Event, window time.Duration, maxCount int) []*event.Event {
	if window <= 0 || maxCount <= 0 {
		return nil
	}
	lowerBound := e.Timestamp.Add(-window)
	causes := make([]*event.Event, 0)
	for _, c := range candidates {
		if c.ID == e.ID {
			continue
		}
		if c.Timestamp.Before(lowerBound) || !c.Timestamp.Before(e.Timestamp) {
			continue
		}
		causes = append(causes, c)
	}
	if len(causes) > maxCount {
		causes = causes[len(causes)-maxCount:]
	}
	return causes
}

// StateDiff is the result of CompareStates: a structured diff when both
// inputs are map-like, or a scalar equality result otherwise. Order
// within Added/Removed/Changed is unspecified but stable within a call.
type StateDiff struct {
	Equal   bool
	Added   []string
	Removed []string
	Changed []ChangedField
}

// ChangedField describes one key present in both states with differing
// values.
type ChangedField struct {
	Key    string
	Before any
	After  any
}

// CompareStates diffs two state values. If both are map[string]any, it
// returns a structured diff of added/removed/changed keys; otherwise it
// falls back to a scalar equality comparison.
func CompareStates(a, b any) StateDiff {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if !aok || !bok {
		return StateDiff{Equal: reflect.DeepEqual(a, b)}
	}

	diff := StateDiff{}
	for k, av := range am {
		bv, ok := bm[k]
		if !ok {
			diff.Removed = append(diff.Removed, k)
			continue
		}
		if !reflect.DeepEqual(av, bv) {
			diff.Changed = append(diff.Changed, ChangedField{Key: k, Before: av, After: bv})
		}
	}
	for k := range bm {
		if _, ok := am[k]; !ok {
			diff.Added = append(diff.Added, k)
		}
	}
	diff.Equal = len(diff.Added) == 0 && len(diff.Removed) == 0 && len(diff.Changed) == 0
	return diff
}
