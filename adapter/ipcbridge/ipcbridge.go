// Package ipcbridge implements a subprocess IPC ingestion adapter: a
// producer subprocess writes length-prefixed msgpack frames (ipc.Frame*)
// to a pipe; the bridge decodes each frame into an event.Event and
// forwards it through the adapter tracing-level gate into a store.Store.
//
// The bridge isolates runtime-specific hook plumbing (whatever produced the
// frames on the other end of the pipe) behind a pure-data boundary.
package ipcbridge

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/justapithecus/tracewatch/adapter"
	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/ipc"
	"github.com/justapithecus/tracewatch/log"
	"github.com/justapithecus/tracewatch/metrics"
)

// IngestionErrorKind classifies Run's terminal error.
type IngestionErrorKind int

// IngestionErrorKind values.
const (
	// ErrKindStream indicates a frame/stream decoding error (fatal; no resync).
	ErrKindStream IngestionErrorKind = iota
	// ErrKindCanceled indicates context cancellation.
	ErrKindCanceled
)

// IngestionError is Run's terminal error type.
type IngestionError struct {
	Kind IngestionErrorKind
	Err  error
}

func (e *IngestionError) Error() string { return e.Err.Error() }
func (e *IngestionError) Unwrap() error { return e.Err }

// IsStreamError reports whether err is a fatal stream/frame error.
func IsStreamError(err error) bool {
	var ie *IngestionError
	return errors.As(err, &ie) && ie.Kind == ErrKindStream
}

// Config configures the ipcbridge adapter.
type Config struct {
	// Name identifies this adapter instance.
	Name string
	// Level gates which forwarded event kinds are admitted.
	Level adapter.TracingLevel
}

// Bridge reads length-prefixed event frames from a subprocess pipe and
// forwards admitted events into a Store via put.
type Bridge struct {
	cfg       Config
	decoder   *ipc.FrameDecoder
	closer    io.Closer
	logger    *log.Logger
	collector *metrics.Collector
	put       func(*event.Event) (int64, error)
}

// New creates a Bridge reading frames from r. If r also implements
// io.Closer, Close releases it.
func New(cfg Config, r io.Reader, logger *log.Logger, collector *metrics.Collector, put func(*event.Event) (int64, error)) *Bridge {
	if cfg.Level == "" {
		cfg.Level = adapter.Full
	}
	closer, _ := r.(io.Closer)
	return &Bridge{
		cfg:       cfg,
		decoder:   ipc.NewFrameDecoder(r),
		closer:    closer,
		logger:    logger,
		collector: collector,
		put:       put,
	}
}

// Name implements adapter.Adapter.
func (b *Bridge) Name() string { return b.cfg.Name }

// TracingLevel implements adapter.Adapter.
func (b *Bridge) TracingLevel() adapter.TracingLevel { return b.cfg.Level }

// Close implements adapter.Adapter.
func (b *Bridge) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Run decodes frames until EOF, context cancellation, or a fatal frame
// error. Ack control frames are skipped and do not reach the Store. A
// truncated frame is a fatal stream error, not a clean end. Non-fatal per-event put failures (sanitization
// failure, sampler drop) are logged and do not terminate the loop —
// only frame-level stream errors are fatal (no resync is attempted on a
// desynced stream).
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return &IngestionError{Kind: ErrKindCanceled, Err: ctx.Err()}
		default:
		}

		payload, err := b.decoder.ReadFrame()
		if err != nil {
			// ReadFrame returns a bare io.EOF only on a clean end; a
			// partial frame arrives as a FrameError wrapping io.EOF.
			if err == io.EOF {
				return nil
			}
			return &IngestionError{Kind: ErrKindStream, Err: fmt.Errorf("ipcbridge: frame error: %w", err)}
		}

		decoded, err := ipc.DecodeFrame(payload)
		if err != nil {
			return &IngestionError{Kind: ErrKindStream, Err: fmt.Errorf("ipcbridge: decode error: %w", err)}
		}

		e, ok := decoded.(*event.Event)
		if !ok {
			// Ack control frames are skipped; the bridge only forwards
			// events.
			continue
		}

		if _, err := adapter.Forward(b.cfg.Level, e, b.collector, b.put); err != nil {
			if b.logger != nil {
				b.logger.Debug("ipcbridge: event not admitted", map[string]any{
					"error": err.Error(),
					"event": e.String(),
				})
			}
		}
	}
}

var _ adapter.Adapter = (*Bridge)(nil)
