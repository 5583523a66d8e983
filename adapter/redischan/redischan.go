// Package redischan implements a Redis Pub/Sub ingestion adapter: it
// subscribes to a channel a producer publishes framework/message
// telemetry to, normalizes each message into an event.Event, and forwards
// it through the tracing-level gate into a store.Store.
//
// Inverted from an egress adapter that PUBLISHes outward into an ingress
// one, keeping the same config/retry-backoff shape.
package redischan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/tracewatch/adapter"
	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/iox"
	"github.com/justapithecus/tracewatch/log"
	"github.com/justapithecus/tracewatch/metrics"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "tracewatch:events"

// DefaultReconnectDelay is the base delay between resubscribe attempts.
const DefaultReconnectDelay = 500 * time.Millisecond

// DefaultMaxReconnectAttempts bounds the resubscribe retry loop.
const DefaultMaxReconnectAttempts = 5

// Config configures the redischan adapter.
type Config struct {
	// Name identifies this adapter instance.
	Name string
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel to subscribe to (default: tracewatch:events).
	Channel string
	// Level gates which forwarded event kinds are admitted.
	Level adapter.TracingLevel
	// ReconnectDelay is the base backoff between resubscribe attempts.
	ReconnectDelay time.Duration
	// MaxReconnectAttempts bounds the resubscribe retry loop.
	MaxReconnectAttempts int
}

// wireMessage is the JSON shape a producer publishes to the channel: a
// record of (kind_tag, payload_map, source_identity).
type wireMessage struct {
	KindTag           string            `json:"kind_tag"`
	Actor             string            `json:"actor,omitempty"`
	From              string            `json:"from,omitempty"`
	To                string            `json:"to,omitempty"`
	Payload           map[string]any    `json:"payload"`
	SourceIdentity    string            `json:"source_identity,omitempty"`
	Critical          bool              `json:"critical,omitempty"`
	Correlation       map[string]string `json:"correlation,omitempty"`
	TimestampUnixNano int64             `json:"timestamp_unix_nano,omitempty"`
}

// Adapter subscribes to a Redis channel and forwards normalized events.
type Adapter struct {
	config  Config
	client  *goredis.Client
	logger  *log.Logger
	metrics *metrics.Collector
	put     func(*event.Event) (int64, error)
}

// New creates a redischan adapter from the given config.
func New(cfg Config, logger *log.Logger, collector *metrics.Collector, put func(*event.Event) (int64, error)) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redischan adapter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redischan adapter: invalid URL: %w", err)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Level == "" {
		cfg.Level = adapter.Full
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}

	return &Adapter{
		config:  cfg,
		client:  goredis.NewClient(opts),
		logger:  logger,
		metrics: collector,
		put:     put,
	}, nil
}

// Name implements adapter.Adapter.
func (a *Adapter) Name() string { return a.config.Name }

// TracingLevel implements adapter.Adapter.
func (a *Adapter) TracingLevel() adapter.TracingLevel { return a.config.Level }

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Run subscribes to the configured channel and forwards normalized
// events until ctx is canceled or the subscription fails irrecoverably.
// On a dropped subscription it resubscribes with exponential backoff, up
// to MaxReconnectAttempts, before giving up.
func (a *Adapter) Run(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < a.config.MaxReconnectAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * a.config.ReconnectDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = a.subscribeOnce(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if a.logger != nil {
			a.logger.Warn("redischan: subscription dropped, reconnecting", map[string]any{
				"error":   lastErr.Error(),
				"attempt": attempt + 1,
			})
		}
	}
	return fmt.Errorf("redischan: failed after %d attempts: %w", a.config.MaxReconnectAttempts, lastErr)
}

func (a *Adapter) subscribeOnce(ctx context.Context) error {
	sub := a.client.Subscribe(ctx, a.config.Channel)
	defer iox.DiscardClose(sub)

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redischan: subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redischan: channel closed")
			}
			a.handleMessage(msg.Payload)
		}
	}
}

func (a *Adapter) handleMessage(payload string) {
	var wm wireMessage
	if err := json.Unmarshal([]byte(payload), &wm); err != nil {
		a.metrics.IncSanitizationFailure()
		if a.logger != nil {
			a.logger.Warn("redischan: malformed message", map[string]any{"error": err.Error()})
		}
		return
	}

	e := Normalize(wm)
	if _, err := adapter.Forward(a.config.Level, e, a.metrics, a.put); err != nil && a.logger != nil {
		a.logger.Debug("redischan: event not admitted", map[string]any{"error": err.Error()})
	}
}

// Normalize converts a wireMessage into an event.Event.
func Normalize(wm wireMessage) *event.Event {
	e := &event.Event{
		Kind:        event.Kind(wm.KindTag),
		Critical:    wm.Critical,
		Correlation: wm.Correlation,
	}
	if wm.TimestampUnixNano > 0 {
		e.Timestamp = time.Unix(0, wm.TimestampUnixNano)
	}
	if wm.Actor != "" {
		e.Actor = event.NewActorHandle(wm.Actor)
	}

	switch e.Kind {
	case event.KindProcess:
		e.Process = &event.ProcessPayload{
			SubEvent: event.ProcessSubEvent(stringField(wm.Payload, "sub_event")),
			Reason:   stringField(wm.Payload, "reason"),
			Info:     mapField(wm.Payload, "info"),
		}
	case event.KindMessage:
		e.Message = &event.MessagePayload{
			Direction: event.MessageDirection(stringField(wm.Payload, "direction")),
			From:      event.NewActorHandle(wm.From),
			To:        event.NewActorHandle(wm.To),
			Content:   stringField(wm.Payload, "content"),
		}
	case event.KindState:
		e.State = &event.StatePayload{
			Module:   stringField(wm.Payload, "module"),
			Callback: stringField(wm.Payload, "callback"),
			State:    stringField(wm.Payload, "state"),
		}
	case event.KindGenServer:
		e.GenServer = &event.GenServerPayload{
			Module:   stringField(wm.Payload, "module"),
			Callback: event.GenServerCallback(stringField(wm.Payload, "callback")),
			Message:  stringField(wm.Payload, "message"),
		}
	case event.KindFunction:
		e.Function = &event.FunctionPayload{
			Module:    stringField(wm.Payload, "module"),
			Function:  stringField(wm.Payload, "function"),
			Arity:     intField(wm.Payload, "arity"),
			Direction: event.FunctionDirection(stringField(wm.Payload, "direction")),
			Summary:   stringField(wm.Payload, "summary"),
		}
	case event.KindFramework:
		e.Framework = &event.FrameworkPayload{
			Subtype: stringField(wm.Payload, "subtype"),
			Fields:  wm.Payload,
		}
	default:
		e.Kind = event.KindCustom
		e.Custom = &event.CustomPayload{Tag: wm.KindTag, Fields: wm.Payload}
	}
	adapter.StampSourceIdentity(e, wm.SourceIdentity)
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
