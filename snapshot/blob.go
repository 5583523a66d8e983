// Package snapshot implements the Snapshotter: periodic or on-demand
// serialization of a store.Store to an opaque byte blob, and restoration
// of a Store from one.
package snapshot

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/justapithecus/tracewatch/event"
)

// blobVersion is bumped whenever the encoded shape changes in a way that
// isn't forward-compatible with gob's own field-level tolerance. The check
// happens after the envelope decodes: decodeBlob reads the whole struct,
// then refuses a mismatched version.
const blobVersion = 1

// Free-form payload maps (Framework.Fields, Custom.Fields, Process.Info)
// hold arbitrary decoded JSON/msgpack values. gob transmits interface
// values by concrete type, and the composite ones are not pre-registered
// the way scalars are — without these an event carrying a nested map or
// array fails to encode.
func init() {
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// blob is the gob-encoded wire shape of a snapshot. Only the event log is
// carried: the state log and actor index are both derived views over it
// (the state log is a subset, the index maps actors to log ids), so restoring the log alone
// and rebuilding the rest via store.Rebuild reconstructs every invariant.
type blob struct {
	Version   int
	StoreName string
	TakenAt   time.Time
	Events    []*event.Event
}

// encode gob-encodes b. gob is used rather than a cross-language codec
// (json/msgpack) because a snapshot is never read by anything other than
// this package: it is an opaque blob, not a wire contract.
func (b blob) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeBlob(data []byte) (blob, error) {
	var b blob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return blob{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	if b.Version != blobVersion {
		return blob{}, fmt.Errorf("%w: got version %d, want %d", ErrUnsupportedVersion, b.Version, blobVersion)
	}
	return b, nil
}
