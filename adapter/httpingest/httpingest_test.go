package httpingest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/justapithecus/tracewatch/adapter"
	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/metrics"
)

func postJSON(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTP_AdmitsValidEvent(t *testing.T) {
	var received *event.Event
	put := func(e *event.Event) (int64, error) {
		received = e
		return 1, nil
	}
	a := New(Config{Level: adapter.Full}, nil, metrics.NewCollector("test"), put)

	rec := postJSON(t, a, wireRecord{
		KindTag: "process",
		Actor:   "pid-1",
		Payload: map[string]any{"sub_event": "spawn"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if received == nil || received.Kind != event.KindProcess {
		t.Fatalf("expected forwarded process event, got %+v", received)
	}
}

func TestServeHTTP_RejectsNonPost(t *testing.T) {
	a := New(Config{}, nil, metrics.NewCollector("test"), func(*event.Event) (int64, error) { return 1, nil })
	req := httptest.NewRequest(http.MethodGet, "/ingest", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestServeHTTP_RejectsInvalidJSON(t *testing.T) {
	a := New(Config{}, nil, metrics.NewCollector("test"), func(*event.Event) (int64, error) { return 1, nil })
	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServeHTTP_TracingLevelGatesWithoutError(t *testing.T) {
	var calls int
	put := func(e *event.Event) (int64, error) {
		calls++
		return int64(calls), nil
	}
	a := New(Config{Level: adapter.Minimal}, nil, metrics.NewCollector("test"), put)

	rec := postJSON(t, a, wireRecord{KindTag: "function", Payload: map[string]any{"direction": "enter"}})

	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202 (accepted, not admitted), got %d", rec.Code)
	}
	if calls != 0 {
		t.Errorf("expected 0 forwarded calls, got %d", calls)
	}
}

func TestNormalize_Message(t *testing.T) {
	rec := wireRecord{
		KindTag: "message",
		From:    "a",
		To:      "b",
		Payload: map[string]any{"direction": "send", "content": "hi"},
	}
	e := Normalize(rec)
	if e.Kind != event.KindMessage {
		t.Fatalf("expected KindMessage, got %v", e.Kind)
	}
	if e.Message.From.String() != "a" || e.Message.To.String() != "b" || e.Message.Content != "hi" {
		t.Errorf("unexpected message payload: %+v", e.Message)
	}
}

func TestNormalize_FunctionArity(t *testing.T) {
	// encoding/json decodes every number to float64.
	rec := wireRecord{
		KindTag: "function",
		Actor:   "pid-1",
		Payload: map[string]any{"module": "Enum", "function": "map", "arity": float64(2), "direction": "enter"},
	}
	e := Normalize(rec)
	if e.Function == nil || e.Function.Arity != 2 {
		t.Fatalf("expected arity=2, got %+v", e.Function)
	}
}
