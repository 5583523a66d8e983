// Package httpingest implements an HTTP POST ingestion adapter: an
// http.Handler that accepts JSON-encoded producer records, normalizes
// each into an event.Event, and forwards it through the tracing-level
// gate into a store.Store.
//
// Inverted from "POST out to a downstream webhook" into "accept inbound
// POSTs": same request/response shape, minus the retry/backoff loop a
// receiver has no use for.
package httpingest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/justapithecus/tracewatch/adapter"
	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/log"
	"github.com/justapithecus/tracewatch/metrics"
)

// DefaultMaxBodyBytes bounds a single ingest request body.
const DefaultMaxBodyBytes = 1 << 20 // 1 MiB

// Config configures the httpingest adapter.
type Config struct {
	// Name identifies this adapter instance.
	Name string
	// Level gates which forwarded event kinds are admitted.
	Level adapter.TracingLevel
	// MaxBodyBytes bounds a single request body (default 1 MiB).
	MaxBodyBytes int64
}

// wireRecord is the JSON body shape this adapter accepts: a producer
// record of (kind_tag, payload_map, source_identity).
type wireRecord struct {
	KindTag        string            `json:"kind_tag"`
	Actor          string            `json:"actor,omitempty"`
	From           string            `json:"from,omitempty"`
	To             string            `json:"to,omitempty"`
	Payload        map[string]any    `json:"payload"`
	SourceIdentity string            `json:"source_identity,omitempty"`
	Critical       bool              `json:"critical,omitempty"`
	Correlation    map[string]string `json:"correlation,omitempty"`
}

// Adapter is an http.Handler accepting ingestion POSTs.
type Adapter struct {
	config  Config
	logger  *log.Logger
	metrics *metrics.Collector
	put     func(*event.Event) (int64, error)
}

// New creates an httpingest adapter. put is typically store.Store.Put or
// store.Store.PutCritical wrapped to match the put func(*event.Event)(int64,error) shape.
func New(cfg Config, logger *log.Logger, collector *metrics.Collector, put func(*event.Event) (int64, error)) *Adapter {
	if cfg.Level == "" {
		cfg.Level = adapter.Full
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Adapter{config: cfg, logger: logger, metrics: collector, put: put}
}

// Name implements adapter.Adapter.
func (a *Adapter) Name() string { return a.config.Name }

// TracingLevel implements adapter.Adapter.
func (a *Adapter) TracingLevel() adapter.TracingLevel { return a.config.Level }

// Close implements adapter.Adapter; httpingest holds no resources of its
// own (the http.Server it's mounted on owns the listener).
func (a *Adapter) Close() error { return nil }

// ServeHTTP accepts a single JSON-encoded wireRecord per POST request and
// forwards it through the tracing-level gate.
//
// The ingestion path performs no blocking I/O beyond what the Store's
// put requires: the only I/O here is reading the bounded
// request body; there is no outbound call.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodyBytes)
	var rec wireRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		a.metrics.IncSanitizationFailure()
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	e := Normalize(rec)
	id, err := adapter.Forward(a.config.Level, e, a.metrics, a.put)
	if err != nil {
		// Drop (sampler or tracing-level gate) is not a client error; the
		// producer sent a well-formed record that simply wasn't admitted.
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"admitted":false}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"admitted": true, "id": id})
}

// Normalize converts a wireRecord into an event.Event.
func Normalize(rec wireRecord) *event.Event {
	e := &event.Event{
		Kind:        event.Kind(rec.KindTag),
		Critical:    rec.Critical,
		Correlation: rec.Correlation,
		Timestamp:   time.Time{},
	}
	if rec.Actor != "" {
		e.Actor = event.NewActorHandle(rec.Actor)
	}

	switch e.Kind {
	case event.KindProcess:
		e.Process = &event.ProcessPayload{
			SubEvent: event.ProcessSubEvent(stringField(rec.Payload, "sub_event")),
			Reason:   stringField(rec.Payload, "reason"),
			Info:     mapField(rec.Payload, "info"),
		}
	case event.KindMessage:
		e.Message = &event.MessagePayload{
			Direction: event.MessageDirection(stringField(rec.Payload, "direction")),
			From:      event.NewActorHandle(rec.From),
			To:        event.NewActorHandle(rec.To),
			Content:   stringField(rec.Payload, "content"),
		}
	case event.KindState:
		e.State = &event.StatePayload{
			Module:   stringField(rec.Payload, "module"),
			Callback: stringField(rec.Payload, "callback"),
			State:    stringField(rec.Payload, "state"),
		}
	case event.KindGenServer:
		e.GenServer = &event.GenServerPayload{
			Module:   stringField(rec.Payload, "module"),
			Callback: event.GenServerCallback(stringField(rec.Payload, "callback")),
			Message:  stringField(rec.Payload, "message"),
		}
	case event.KindFunction:
		e.Function = &event.FunctionPayload{
			Module:    stringField(rec.Payload, "module"),
			Function:  stringField(rec.Payload, "function"),
			Arity:     intField(rec.Payload, "arity"),
			Direction: event.FunctionDirection(stringField(rec.Payload, "direction")),
			Summary:   stringField(rec.Payload, "summary"),
		}
	case event.KindFramework:
		e.Framework = &event.FrameworkPayload{
			Subtype: stringField(rec.Payload, "subtype"),
			Fields:  rec.Payload,
		}
	default:
		e.Kind = event.KindCustom
		e.Custom = &event.CustomPayload{Tag: rec.KindTag, Fields: rec.Payload}
	}
	adapter.StampSourceIdentity(e, rec.SourceIdentity)
	return e
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func mapField(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}
// intField reads a numeric payload field; JSON numbers arrive as float64
// and msgpack ones as sized ints, so all three shapes are accepted.
func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}


var _ adapter.Adapter = (*Adapter)(nil)
var _ http.Handler = (*Adapter)(nil)
