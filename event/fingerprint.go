package event

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// fingerprintBucket is the width of the "logical timestamp bucket" folded
// into the fingerprint: two events that differ only by a few
// nanoseconds of scheduling jitter around the same logical moment must
// still fingerprint identically, so the timestamp is quantized rather than
// used at full precision.
const fingerprintBucket = 10 * time.Millisecond

// Fingerprint computes a stable 64-bit hash over an event's semantic
// identity: (kind, actor-if-any, content-identity, logical-timestamp-bucket).
// Two events with identical semantic identity always yield the same
// fingerprint, which is what lets the Sampler make the same admit/drop
// decision for "the same logical event" across independent Store instances.
func Fingerprint(e *Event) (uint64, bool) {
	if e == nil {
		return 0, false
	}

	d := xxhash.New()
	ok := true
	writeString := func(s string) {
		if _, err := d.WriteString(s); err != nil {
			ok = false
		}
	}

	writeString(string(e.Kind))
	writeString(e.Actor.String())
	writeString(strconv.FormatInt(e.Timestamp.Truncate(fingerprintBucket).UnixNano(), 10))
	writeString(contentIdentity(e))

	if !ok {
		return 0, false
	}
	return d.Sum64(), true
}

// contentIdentity extracts the part of an event's payload that defines its
// semantic identity for sampling purposes — not the whole payload, just
// enough that two independently-produced copies of "the same logical
// event" collide and two distinct events don't.
func contentIdentity(e *Event) string {
	switch e.Kind {
	case KindProcess:
		if e.Process == nil {
			return ""
		}
		return string(e.Process.SubEvent)
	case KindMessage:
		if e.Message == nil {
			return ""
		}
		return string(e.Message.Direction) + "|" + e.Message.From.String() + "|" + e.Message.To.String() + "|" + e.Message.Content
	case KindState:
		if e.State == nil {
			return ""
		}
		return e.State.Module + "|" + e.State.Callback
	case KindGenServer:
		if e.GenServer == nil {
			return ""
		}
		return e.GenServer.Module + "|" + string(e.GenServer.Callback)
	case KindFunction:
		if e.Function == nil {
			return ""
		}
		return e.Function.Module + "." + e.Function.Function + "/" + strconv.Itoa(e.Function.Arity) + "|" + string(e.Function.Direction)
	case KindFramework:
		if e.Framework == nil {
			return ""
		}
		return e.Framework.Subtype
	case KindCustom:
		if e.Custom == nil {
			return ""
		}
		return e.Custom.Tag
	default:
		return ""
	}
}
