package query

import (
	"sort"
	"time"

	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/store"
)

// StateAt returns the most recent kind=State event for actor a with
// timestamp <= t: "the state the actor was known to be in immediately at
// or before t." Returns (nil, false) if no such event exists.
func StateAt(s *store.Store, a event.ActorHandle, t time.Time) (*event.Event, bool) {
	if s == nil {
		return nil, false
	}
	var best *event.Event
	for _, e := range s.IterState(a) {
		if e.Timestamp.After(t) {
			break
		}
		best = e
	}
	return best, best != nil
}

// LiveActorsAt returns {a | spawn(a) at ts<=t} \ {a | exit/crash(a) at
// ts<=t}. This is an approximation: it is only as correct as the
// lifecycle events the producer actually emitted.
func LiveActorsAt(s *store.Store, t time.Time) []event.ActorHandle {
	if s == nil {
		return nil
	}
	alive := make(map[event.ActorHandle]bool)
	for _, e := range s.Query(Filter{Kind: event.KindProcess, TimestampEnd: t}) {
		if e.Process == nil {
			continue
		}
		switch e.Process.SubEvent {
		case event.ProcessSpawn:
			alive[e.Actor] = true
		case event.ProcessExit, event.ProcessCrash:
			delete(alive, e.Actor)
		}
	}
	return sortedActors(alive)
}

func sortedActors(set map[event.ActorHandle]bool) []event.ActorHandle {
	out := make([]event.ActorHandle, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Snapshot is the tuple produced by SnapshotAt: a point-in-time
// reconstruction of the actor universe.
type Snapshot struct {
	Timestamp       time.Time
	LiveActors      []event.ActorHandle
	States          map[event.ActorHandle]*event.Event
	PendingMessages map[event.ActorHandle][]*event.Event
	Supervision     []SupervisionEdge
}

// SnapshotAt composes live_actors_at, state_at, pending_messages_at, and
// supervision_view_at into a single point-in-time view.
func SnapshotAt(s *store.Store, t time.Time) Snapshot {
	snap := Snapshot{
		Timestamp:       t,
		LiveActors:      LiveActorsAt(s, t),
		States:          make(map[event.ActorHandle]*event.Event),
		PendingMessages: PendingMessagesAt(s, t),
		Supervision:     SupervisionViewAt(s, t),
	}
	for _, a := range snap.LiveActors {
		if e, ok := StateAt(s, a, t); ok {
			snap.States[a] = e
		}
	}
	return snap
}

// pendingKey groups Send/Receive events by (recipient, sanitized content)
// for content-equality matching.
type pendingKey struct {
	to      event.ActorHandle
	content string
}

// PendingMessagesAt returns, for each recipient actor, the Send events
// with ts<=t that cannot be matched to a same-recipient Receive event of
// equal content with send_ts < receive_ts <= t. Matching is FIFO per
// (recipient, content): when identical messages are in flight they are
// indistinguishable, and the earliest unmatched Send is preferred.
func PendingMessagesAt(s *store.Store, t time.Time) map[event.ActorHandle][]*event.Event {
	if s == nil {
		return nil
	}
	queues := make(map[pendingKey][]*event.Event)

	for _, e := range s.Query(Filter{Kind: event.KindMessage, TimestampEnd: t}) {
		if e.Message == nil {
			continue
		}
		key := pendingKey{to: e.Message.To, content: e.Message.Content}
		switch e.Message.Direction {
		case event.MessageSend:
			queues[key] = append(queues[key], e)
		case event.MessageReceive:
			if pending := queues[key]; len(pending) > 0 && e.Timestamp.After(pending[0].Timestamp) {
				queues[key] = pending[1:]
			}
		}
	}

	out := make(map[event.ActorHandle][]*event.Event)
	for key, sends := range queues {
		if len(sends) == 0 {
			continue
		}
		out[key.to] = append(out[key.to], sends...)
	}
	for to := range out {
		sort.Slice(out[to], func(i, j int) bool { return out[to][i].ID < out[to][j].ID })
	}
	return out
}

// SupervisionEdge is one (supervisor, child, strategy) triple recovered
// from Framework events. Supervision structures are graphs with shared
// children; consumers reconstruct any tree view on demand from these flat
// edges rather than the engine owning an authoritative tree.
type SupervisionEdge struct {
	Supervisor event.ActorHandle
	Child      event.ActorHandle
	Strategy   string
}

// SupervisionViewAt returns a best-effort, deduplicated set of supervision
// edges derivable from kind=Framework events with subtype "supervision"
// and ts<=t. This is explicitly approximate: it cannot recover structures
// the producer never exposed as events.
func SupervisionViewAt(s *store.Store, t time.Time) []SupervisionEdge {
	if s == nil {
		return nil
	}
	seen := make(map[SupervisionEdge]bool)
	out := make([]SupervisionEdge, 0)

	events := s.Query(Filter{
		Kind:         event.KindFramework,
		TimestampEnd: t,
		SubKind: func(e *event.Event) bool {
			return e.Framework != nil && e.Framework.Subtype == "supervision"
		},
	})
	for _, e := range events {
		supervisor, _ := e.Framework.Fields["supervisor"].(string)
		child, _ := e.Framework.Fields["child"].(string)
		if supervisor == "" || child == "" {
			continue
		}
		strategy, _ := e.Framework.Fields["strategy"].(string)
		edge := SupervisionEdge{
			Supervisor: event.NewActorHandle(supervisor),
			Child:      event.NewActorHandle(child),
			Strategy:   strategy,
		}
		if !seen[edge] {
			seen[edge] = true
			out = append(out, edge)
		}
	}
	return out
}
