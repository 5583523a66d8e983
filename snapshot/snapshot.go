package snapshot

import (
	"errors"
	"time"

	"github.com/justapithecus/tracewatch/log"
	"github.com/justapithecus/tracewatch/metrics"
	"github.com/justapithecus/tracewatch/store"
)

// ErrUnsupportedVersion is returned by Restore when a blob was produced by
// an incompatible Snapshotter version.
var ErrUnsupportedVersion = errors.New("snapshot: unsupported blob version")

// ErrSnapshotDisabled is returned by Snapshot when the target store was
// constructed with SnapshotEnabled=false.
var ErrSnapshotDisabled = errors.New("snapshot: target store has snapshotting disabled")

// Snapshotter serializes a store.Store to an opaque byte blob and restores
// a Store from one. It holds no state of its own beyond an
// optional metrics collector and logger; a single Snapshotter may be used
// against any number of Stores.
type Snapshotter struct {
	logger  *log.Logger
	metrics *metrics.Collector
}

// New creates a Snapshotter. logger and collector may be nil.
func New(logger *log.Logger, collector *metrics.Collector) *Snapshotter {
	return &Snapshotter{logger: logger, metrics: collector}
}

// Snapshot captures a consistent read of s's event log and returns it as an
// opaque blob. Consistent here means no event id appears in the blob's
// derived indices but not in its log and vice versa — trivially true here
// since the blob carries only the log, and indices are always rebuilt from
// it on Restore.
func (sn *Snapshotter) Snapshot(s *store.Store) ([]byte, error) {
	if !s.Config().SnapshotEnabled {
		sn.recordFailure()
		return nil, ErrSnapshotDisabled
	}

	b := blob{
		Version:   blobVersion,
		StoreName: s.Config().Name,
		TakenAt:   time.Now(),
		Events:    s.IterAll(),
	}
	data, err := b.encode()
	if err != nil {
		sn.recordFailure()
		return nil, err
	}
	sn.recordSuccess()
	if sn.logger != nil {
		sn.logger.Info("snapshot taken", map[string]any{
			"store":  b.StoreName,
			"events": len(b.Events),
			"bytes":  len(data),
		})
	}
	return data, nil
}

// Restore rebuilds a Store from data, a blob previously produced by
// Snapshot. The returned Store resumes id assignment from
// max(existing_ids)+1, via store.Rebuild. cfg controls the
// restored Store's own construction-time settings (max_events, sample_rate,
// etc.); only its Name is overridden by the blob's recorded store name when
// cfg.Name is empty.
//
// On failure, Restore returns a freshly constructed empty Store built
// from cfg alongside the error.
func (sn *Snapshotter) Restore(data []byte, cfg store.Config, logger *log.Logger) (*store.Store, error) {
	b, err := decodeBlob(data)
	if err != nil {
		sn.recordRestoreFailure()
		return sn.emptyStore(cfg, logger), err
	}
	if cfg.Name == "" {
		cfg.Name = b.StoreName
	}

	s, err := store.Rebuild(cfg, logger, b.Events)
	if err != nil {
		sn.recordRestoreFailure()
		return sn.emptyStore(cfg, logger), err
	}
	sn.recordRestoreSuccess()
	if sn.logger != nil {
		sn.logger.Info("snapshot restored", map[string]any{
			"store":  cfg.Name,
			"events": len(b.Events),
		})
	}
	return s, nil
}

func (sn *Snapshotter) emptyStore(cfg store.Config, logger *log.Logger) *store.Store {
	s, err := store.New(cfg, logger)
	if err != nil {
		// cfg is invalid in a way store.New itself rejects; fall back to a
		// minimally valid config so Restore always returns a non-nil Store
		// even when the caller's cfg is itself invalid.
		name := cfg.Name
		if name == "" {
			name = "restored"
		}
		s, _ = store.New(store.DefaultConfig(name), logger)
	}
	return s
}

func (sn *Snapshotter) recordSuccess() {
	if sn.metrics != nil {
		sn.metrics.IncSnapshotSuccess()
	}
}

func (sn *Snapshotter) recordFailure() {
	if sn.metrics != nil {
		sn.metrics.IncSnapshotFailure()
	}
}

func (sn *Snapshotter) recordRestoreSuccess() {
	if sn.metrics != nil {
		sn.metrics.IncRestoreSuccess()
	}
}

func (sn *Snapshotter) recordRestoreFailure() {
	if sn.metrics != nil {
		sn.metrics.IncRestoreFailure()
	}
}
