package main

import (
	"fmt"
	"os"

	"github.com/justapithecus/tracewatch/log"
	"github.com/justapithecus/tracewatch/snapshot"
	"github.com/justapithecus/tracewatch/store"
)

// loadStore restores a Store from a snapshot blob on disk. The
// demonstrator CLI never talks to a running tracewatch process directly:
// query results are snapshots in time and do not update live, so every
// read-only subcommand here operates over a blob a `serve` run previously
// wrote.
func loadStore(path string) (*store.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", path, err)
	}

	logger := log.NewLogger(log.StoreMeta{StoreName: "cli", Component: "snapshot"})
	sn := snapshot.New(logger, nil)

	// The restored Store's own config only governs further writes, which
	// the CLI never performs; max_events large enough to hold the restored
	// set without immediately evicting anything back out.
	cfg := store.DefaultConfig("")
	cfg.MaxEvents = 1 << 30

	s, err := sn.Restore(data, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot %q: %w", path, err)
	}
	return s, nil
}
