// Package query implements stateless read operations over a store.Store.
// Every function here is a pure read: no function mutates the Store, all
// are total (they return empty results rather than failing on missing
// data), and all are restartable — reissuing the same query against an
// unchanged Store yields identical results.
package query

import (
	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/store"
)

// Filter is re-exported from store so callers of this package do not need
// to import store directly for basic retrieval.
type Filter = store.Filter

// Query applies f over s's event log.
func Query(s *store.Store, f Filter) []*event.Event {
	if s == nil {
		return nil
	}
	return s.Query(f)
}

// EventsForActor returns every event referencing actor a.
func EventsForActor(s *store.Store, a event.ActorHandle) []*event.Event {
	if s == nil {
		return nil
	}
	return s.IterByActor(a)
}

// StateTimeline returns every kind=State event for actor a, ordered by
// timestamp.
func StateTimeline(s *store.Store, a event.ActorHandle) []*event.Event {
	if s == nil {
		return nil
	}
	return s.IterState(a)
}

// MessagesBetween returns Message events where (from=x, to=y) or
// (from=y, to=x), merged into a single ascending-(timestamp, id) sequence.
func MessagesBetween(s *store.Store, x, y event.ActorHandle) []*event.Event {
	if s == nil {
		return nil
	}
	forward := s.Query(Filter{FromActor: &x, ToActor: &y})
	backward := s.Query(Filter{FromActor: &y, ToActor: &x})
	return mergeByID(forward, backward)
}

// FunctionCallsFor returns Function events for module, optionally narrowed
// to a single function name. An empty function name matches every
// function in module.
func FunctionCallsFor(s *store.Store, module, function string) []*event.Event {
	if s == nil {
		return nil
	}
	return s.Query(Filter{
		Kind: event.KindFunction,
		SubKind: func(e *event.Event) bool {
			return e.Function != nil && e.Function.Module == module &&
				(function == "" || e.Function.Function == function)
		},
	})
}

// mergeByID merges two id-ascending slices into one id-ascending slice.
// Both store.Query results are already ordered, so this is a linear merge.
func mergeByID(a, b []*event.Event) []*event.Event {
	out := make([]*event.Event, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].ID <= b[j].ID {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
