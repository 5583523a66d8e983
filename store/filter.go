package store

import (
	"time"

	"github.com/justapithecus/tracewatch/event"
)

// SubKindPredicate further narrows a Filter beyond event.Kind — e.g.
// matching only Process events whose SubEvent is Spawn.
type SubKindPredicate func(*event.Event) bool

// Filter expresses a query over the Store's primitives. The zero value
// matches every retained event. Tie-break among events with equal
// timestamps is by ascending id, which Store already guarantees by
// construction.
type Filter struct {
	// Kind restricts to a single event kind. Empty matches any kind.
	Kind event.Kind
	// SubKind, if non-nil, must return true for an event to match.
	SubKind SubKindPredicate
	// Actor restricts to events referencing this actor as e.Actor, From, or To.
	Actor *event.ActorHandle
	// FromActor restricts to Message events with this From handle.
	FromActor *event.ActorHandle
	// ToActor restricts to Message events with this To handle.
	ToActor *event.ActorHandle
	// TimestampStart is the inclusive lower bound. Zero means unbounded.
	TimestampStart time.Time
	// TimestampEnd is the inclusive upper bound. Zero means unbounded.
	TimestampEnd time.Time
	// Limit caps the number of results. Zero means unbounded.
	Limit int
}

// Query applies f over the Store's event log. Actor-filtered queries use
// the actor index instead of a full scan whenever Actor, FromActor, or
// ToActor is specified.
func (s *Store) Query(f Filter) []*event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.candidateIDsLocked(f)

	out := make([]*event.Event, 0)
	for _, id := range candidates {
		elem, ok := s.byID[id]
		if !ok {
			continue
		}
		e := elem.Value.(*event.Event)
		if matchesFilter(e, f) {
			out = append(out, e)
			if f.Limit > 0 && len(out) >= f.Limit {
				break
			}
		}
	}
	return out
}

// candidateIDsLocked returns the narrowest available id sequence for f,
// in ascending order. Caller must hold mu for reading.
func (s *Store) candidateIDsLocked(f Filter) []int64 {
	switch {
	case f.Actor != nil:
		return s.actorIndex[*f.Actor]
	case f.FromActor != nil:
		return s.actorIndex[*f.FromActor]
	case f.ToActor != nil:
		return s.actorIndex[*f.ToActor]
	default:
		ids := make([]int64, 0, s.events.Len())
		for elem := s.events.Front(); elem != nil; elem = elem.Next() {
			ids = append(ids, elem.Value.(*event.Event).ID)
		}
		return ids
	}
}

func matchesFilter(e *event.Event, f Filter) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.SubKind != nil && !f.SubKind(e) {
		return false
	}
	if f.Actor != nil && !eventHasActor(e, *f.Actor) {
		return false
	}
	if f.FromActor != nil && (e.Message == nil || e.Message.From != *f.FromActor) {
		return false
	}
	if f.ToActor != nil && (e.Message == nil || e.Message.To != *f.ToActor) {
		return false
	}
	if !f.TimestampStart.IsZero() && e.Timestamp.Before(f.TimestampStart) {
		return false
	}
	if !f.TimestampEnd.IsZero() && e.Timestamp.After(f.TimestampEnd) {
		return false
	}
	return true
}

func eventHasActor(e *event.Event, a event.ActorHandle) bool {
	for _, ref := range event.ActorsReferenced(e) {
		if ref == a {
			return true
		}
	}
	return false
}
