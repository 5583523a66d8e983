// Package sampler implements deterministic, per-actor-fair admission
// control over the event stream.
//
// Admission is a pure function of (kind, payload, actor, timestamp,
// sample_rate) via event.Fingerprint — the same logical event always gets
// the same decision for a given rate, which is what makes sampled queries
// reproducible across independent Store instances.
package sampler

import (
	"math/rand/v2"
	"sync"

	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/log"
)

// Decision is the outcome of Sampler.Decide.
type Decision int

// Decision values.
const (
	Admit Decision = iota
	Drop
)

// String renders a Decision for logging.
func (d Decision) String() string {
	if d == Admit {
		return "admit"
	}
	return "drop"
}

// Stats is an atomic snapshot of Sampler observability counters.
type Stats struct {
	Decisions           int64
	Admitted            int64
	Dropped             int64
	CriticalBypasses    int64
	FingerprintFailures int64 // fell back to the uniform random source
}

// Sampler decides event admission. It holds no event data — only
// counters — and is safe for concurrent use from many producer goroutines.
type Sampler struct {
	logger *log.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Sampler. logger may be nil (no anomaly logging).
func New(logger *log.Logger) *Sampler {
	return &Sampler{logger: logger}
}

// Decide returns Admit or Drop for e at the given sample_rate. Rules, in
// order:
//  1. classify(event) == Critical -> Admit unconditionally.
//  2. rate == 1.0 -> Admit.
//  3. rate == 0.0 -> Drop.
//  4. otherwise: Admit iff fingerprint(event)/2^64 < rate.
//
// If fingerprinting fails (malformed payload), a uniform random source is
// used instead and the fallback is logged as an internal anomaly — this is
// the one place admission is not deterministic, and it is surfaced via
// Stats.FingerprintFailures so callers can notice it happening.
func (s *Sampler) Decide(e *event.Event, rate float64) Decision {
	s.mu.Lock()
	s.stats.Decisions++
	s.mu.Unlock()

	if event.Classify(e) == event.Critical {
		s.record(Admit, true)
		return Admit
	}

	if rate >= 1.0 {
		s.record(Admit, false)
		return Admit
	}
	if rate <= 0.0 {
		s.record(Drop, false)
		return Drop
	}

	fp, ok := event.Fingerprint(e)
	if !ok {
		s.mu.Lock()
		s.stats.FingerprintFailures++
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Warn("sampler: fingerprint failed, falling back to uniform random source", map[string]any{
				"event": e.String(),
			})
		}
		if rand.Float64() < rate {
			s.record(Admit, false)
			return Admit
		}
		s.record(Drop, false)
		return Drop
	}

	// h / 2^64 < rate, computed without overflow via float64 division.
	threshold := float64(fp) / (1 << 64)
	if threshold < rate {
		s.record(Admit, false)
		return Admit
	}
	s.record(Drop, false)
	return Drop
}

func (s *Sampler) record(d Decision, critical bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if critical {
		s.stats.CriticalBypasses++
	}
	if d == Admit {
		s.stats.Admitted++
	} else {
		s.stats.Dropped++
	}
}

// Stats returns an atomic snapshot of sampler counters.
func (s *Sampler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
