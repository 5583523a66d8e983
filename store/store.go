package store

import (
	"container/list"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/log"
	"github.com/justapithecus/tracewatch/metrics"
	"github.com/justapithecus/tracewatch/sampler"
)

// epsilon is the minimum timestamp advance the Store imposes when an
// incoming event's own timestamp would violate per-Store monotonicity.
const epsilon = time.Nanosecond

// Store owns the event log, state log, and per-actor index for a single
// named instance. It assigns ids and timestamps, enforces bounded memory,
// and exposes the read primitives the query package composes.
//
// A Store is the only stateful singleton in the core; all mutation flows
// through its exported operations. It is safe for concurrent use: many
// producers may call Put/PutCritical concurrently with many readers.
type Store struct {
	cfg     Config
	sampler *sampler.Sampler
	logger  *log.Logger
	metrics *metrics.Collector

	mu          sync.RWMutex
	nextID      int64
	lastTS      time.Time
	events      *list.List // of *event.Event, strictly ascending (timestamp, id) order
	byID        map[int64]*list.Element
	actorIndex  map[event.ActorHandle][]int64
	stateLog    []int64
	criticalIDs map[int64]struct{}
	fatal       error
}

// New constructs a Store with its own Sampler and metrics Collector.
func New(cfg Config, logger *log.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		cfg:         cfg,
		sampler:     sampler.New(logger),
		logger:      logger,
		metrics:     metrics.NewCollector(cfg.Name),
		nextID:      1,
		events:      list.New(),
		byID:        make(map[int64]*list.Element),
		actorIndex:  make(map[event.ActorHandle][]int64),
		criticalIDs: make(map[int64]struct{}),
	}, nil
}

// Rebuild reconstructs a Store from a sequence of already-assigned events
// (ascending by id), as used by Snapshotter.Restore. Ids and timestamps are
// preserved verbatim; subsequent id assignment begins at max(existing_ids)+1.
func Rebuild(cfg Config, logger *log.Logger, events []*event.Event) (*Store, error) {
	s, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if e == nil {
			continue
		}
		s.insertLocked(e)
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
		if e.Timestamp.After(s.lastTS) {
			s.lastTS = e.Timestamp
		}
	}
	s.mu.Lock()
	s.evictLocked()
	s.mu.Unlock()
	return s, nil
}

// Put invokes the sampler; on Admit it assigns the next id, stamps the
// final timestamp if the event lacks one, appends to the event log,
// appends to the state log if kind=State, updates the actor index, and may
// trigger eviction. Returns the assigned id, or ErrDropped if the sampler
// declined the event, or a fatal error if the id counter is exhausted.
func (s *Store) Put(e *event.Event) (int64, error) {
	return s.put(e, false)
}

// PutCritical is as Put, but forces admission: the producer asserts
// criticality for an event that classify() would not otherwise flag. It
// remains subject to sanitization and ordering.
func (s *Store) PutCritical(e *event.Event) (int64, error) {
	return s.put(e, true)
}

func (s *Store) put(e *event.Event, forceCritical bool) (int64, error) {
	if e == nil {
		return 0, newStoreError(ErrSanitizationFailure, "put", fmt.Errorf("nil event"))
	}
	s.metrics.IncEventsReceived()

	if forceCritical {
		e.Critical = true
	}

	if err := validatePayload(e); err != nil {
		s.metrics.IncSanitizationFailure()
		return 0, newStoreError(ErrSanitizationFailure, "put", err)
	}
	event.Sanitize(e, s.cfg.SanitizationLimits)

	if !forceCritical {
		if s.sampler.Decide(e, s.cfg.SampleRate) == sampler.Drop {
			return 0, newStoreError(ErrDropped, "put", nil)
		}
	}

	s.mu.Lock()
	if s.fatal != nil {
		s.mu.Unlock()
		return 0, s.fatal
	}
	if s.nextID == math.MaxInt64 {
		s.fatal = newStoreError(ErrCapacityOverflow, "put", nil)
		s.mu.Unlock()
		s.metrics.IncCapacityOverflow()
		return 0, s.fatal
	}

	id := s.nextID
	s.nextID++
	e.ID = id
	e.Timestamp = s.nextTimestampLocked(e.Timestamp)
	s.lastTS = e.Timestamp

	s.insertLocked(e)
	s.evictLocked()
	s.mu.Unlock()

	return id, nil
}

// nextTimestampLocked returns the timestamp to assign given the incoming
// value, preserving it when doing so does not violate per-Store
// monotonicity. Caller must hold mu.
func (s *Store) nextTimestampLocked(incoming time.Time) time.Time {
	if incoming.IsZero() {
		incoming = time.Now()
	}
	if !s.lastTS.IsZero() && incoming.Before(s.lastTS) {
		return s.lastTS.Add(epsilon)
	}
	if incoming.Equal(s.lastTS) {
		return s.lastTS.Add(epsilon)
	}
	return incoming
}

// insertLocked appends e to the log, state log, actor index, and critical
// set. Caller must hold mu for writing.
func (s *Store) insertLocked(e *event.Event) {
	elem := s.events.PushBack(e)
	s.byID[e.ID] = elem

	if e.Kind == event.KindState {
		s.stateLog = append(s.stateLog, e.ID)
	}

	for _, a := range event.ActorsReferenced(e) {
		s.actorIndex[a] = append(s.actorIndex[a], e.ID)
	}

	if event.Classify(e) == event.Critical {
		s.criticalIDs[e.ID] = struct{}{}
	}
}

// evictLocked removes the oldest non-critical events until len() is within
// max_events, or no non-critical events remain. Caller must hold mu.
func (s *Store) evictLocked() {
	nonCritical := s.events.Len() - len(s.criticalIDs)
	for nonCritical > s.cfg.MaxEvents {
		victim := s.oldestNonCriticalLocked()
		if victim == nil {
			break // only criticals remain; permitted to exceed max_events
		}
		s.removeLocked(victim)
		s.metrics.IncEvicted()
		nonCritical--
	}
	s.metrics.SetCriticalRetained(int64(len(s.criticalIDs)))
}

func (s *Store) oldestNonCriticalLocked() *list.Element {
	for elem := s.events.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*event.Event)
		if _, critical := s.criticalIDs[e.ID]; !critical {
			return elem
		}
	}
	return nil
}

// removeLocked atomically removes elem from the log, state log, actor
// index, and critical set. Caller must hold mu.
func (s *Store) removeLocked(elem *list.Element) {
	e := elem.Value.(*event.Event)
	s.events.Remove(elem)
	delete(s.byID, e.ID)
	delete(s.criticalIDs, e.ID)

	if e.Kind == event.KindState {
		s.stateLog = removeID(s.stateLog, e.ID)
	}
	for _, a := range event.ActorsReferenced(e) {
		s.actorIndex[a] = removeID(s.actorIndex[a], e.ID)
	}
}

func removeID(ids []int64, target int64) []int64 {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// validatePayload reports a sanitization failure when an event's
// kind-specific payload is missing or the kind is unrecognized.
func validatePayload(e *event.Event) error {
	switch e.Kind {
	case event.KindProcess:
		if e.Process == nil {
			return fmt.Errorf("missing process payload")
		}
	case event.KindMessage:
		if e.Message == nil {
			return fmt.Errorf("missing message payload")
		}
	case event.KindState:
		if e.State == nil {
			return fmt.Errorf("missing state payload")
		}
	case event.KindGenServer:
		if e.GenServer == nil {
			return fmt.Errorf("missing genserver payload")
		}
	case event.KindFunction:
		if e.Function == nil {
			return fmt.Errorf("missing function payload")
		}
	case event.KindFramework:
		if e.Framework == nil {
			return fmt.Errorf("missing framework payload")
		}
	case event.KindCustom:
		if e.Custom == nil {
			return fmt.Errorf("missing custom payload")
		}
	default:
		return fmt.Errorf("unrecognized event kind %q", e.Kind)
	}
	return nil
}

// Clear atomically resets ids, timestamps, logs, and indices. In-flight
// queries observe either the full pre-clear state or empty, never a mix,
// because the reset happens entirely under the write lock.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = 1
	s.lastTS = time.Time{}
	s.events = list.New()
	s.byID = make(map[int64]*list.Element)
	s.actorIndex = make(map[event.ActorHandle][]int64)
	s.stateLog = nil
	s.criticalIDs = make(map[int64]struct{})
	s.fatal = nil
}

// Len returns the number of retained events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.Len()
}

// Config returns the Store's construction-time configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Stats returns an observability snapshot combining store, sampler, and
// (where applicable) snapshotter/adapter counters.
func (s *Store) Stats() metrics.Snapshot {
	ss := s.sampler.Stats()
	s.metrics.AbsorbSamplerStats(ss.Decisions, ss.Admitted, ss.Dropped, ss.CriticalBypasses, ss.FingerprintFailures)
	return s.metrics.Snapshot()
}

// Metrics exposes the Store's metrics.Collector so ingestion adapters and
// the Snapshotter can record activity against the same dimensioned
// counters the Store itself reports through Stats().
func (s *Store) Metrics() *metrics.Collector {
	return s.metrics
}

// IterAll returns all retained events in (timestamp, id) order. The result
// is a point-in-time copy; it does not update live and is safe to range
// over without holding any Store lock.
func (s *Store) IterAll() []*event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*event.Event, 0, s.events.Len())
	for elem := s.events.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*event.Event))
	}
	return out
}

// IterByActor returns all events referencing actor a, in (timestamp, id)
// order, using the actor index rather than a full scan.
func (s *Store) IterByActor(a event.ActorHandle) []*event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.actorIndex[a]
	out := make([]*event.Event, 0, len(ids))
	for _, id := range ids {
		if elem, ok := s.byID[id]; ok {
			out = append(out, elem.Value.(*event.Event))
		}
	}
	return out
}

// IterState returns all kind=State events for actor a, ordered by
// timestamp.
func (s *Store) IterState(a event.ActorHandle) []*event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*event.Event, 0)
	for _, id := range s.stateLog {
		elem, ok := s.byID[id]
		if !ok {
			continue
		}
		e := elem.Value.(*event.Event)
		if e.Actor == a {
			out = append(out, e)
		}
	}
	return out
}

// EventByID returns the event with the given id, if it is still retained.
func (s *Store) EventByID(id int64) (*event.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	elem, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return elem.Value.(*event.Event), true
}
