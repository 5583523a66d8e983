package event

import (
	"fmt"
	"sort"
)

// SanitizationLimits bounds the size of fields reduced by Sanitize: message
// content, function summaries, actor state, and free-form payload maps are
// all cut down before storage; the original value is not retained.
type SanitizationLimits struct {
	// MaxContentBytes bounds MessagePayload.Content and FunctionPayload.Summary.
	MaxContentBytes int
	// MaxStateBytes bounds StatePayload.State.
	MaxStateBytes int
	// MaxFields bounds the number of keys retained in a free-form map
	// (FrameworkPayload.Fields, CustomPayload.Fields, Process.Info).
	MaxFields int
}

// DefaultSanitizationLimits returns the documented default soft caps.
func DefaultSanitizationLimits() SanitizationLimits {
	return SanitizationLimits{
		MaxContentBytes: 2048,
		MaxStateBytes:   4096,
		MaxFields:       32,
	}
}

// Sanitize reduces e's payload in place to the given limits. It is
// idempotent: calling it twice with the same limits yields the same
// result as calling it once, since truncation is a pure function of the
// already-bounded value on the second pass.
func Sanitize(e *Event, limits SanitizationLimits) {
	if e == nil {
		return
	}
	switch e.Kind {
	case KindMessage:
		if e.Message != nil {
			e.Message.Content = truncateString(e.Message.Content, limits.MaxContentBytes)
		}
	case KindState:
		if e.State != nil {
			e.State.State = truncateString(e.State.State, limits.MaxStateBytes)
		}
	case KindFunction:
		if e.Function != nil {
			e.Function.Summary = truncateString(e.Function.Summary, limits.MaxContentBytes)
		}
	case KindFramework:
		if e.Framework != nil {
			e.Framework.Fields = truncateMap(e.Framework.Fields, limits.MaxFields)
		}
	case KindCustom:
		if e.Custom != nil {
			e.Custom.Fields = truncateMap(e.Custom.Fields, limits.MaxFields)
		}
	case KindProcess:
		if e.Process != nil {
			e.Process.Info = truncateMap(e.Process.Info, limits.MaxFields)
		}
	}
}

// truncateString reduces s to at most max bytes, embedding a size
// descriptor when it fits so the drop is visible to a reader rather than
// silently losing the tail. The result never exceeds max bytes, which is
// what keeps a second pass a no-op.
func truncateString(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	marker := fmt.Sprintf("...<%d bytes>", len(s))
	if len(marker) >= max {
		return s[:max]
	}
	return s[:max-len(marker)] + marker
}

// truncatedFieldsKey marks a map that has already been bounded; its value
// is the number of fields dropped.
const truncatedFieldsKey = "_truncated_fields"

// truncateMap bounds a free-form map to at most maxFields entries plus the
// drop marker, chosen deterministically (lexical key order) so repeated
// sanitization of the same map produces the same surviving keys.
func truncateMap(m map[string]any, maxFields int) map[string]any {
	if m == nil || maxFields <= 0 || len(m) <= maxFields {
		return m
	}
	if _, ok := m[truncatedFieldsKey]; ok && len(m) <= maxFields+1 {
		return m
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, maxFields+1)
	for _, k := range keys[:maxFields] {
		out[k] = m[k]
	}
	out[truncatedFieldsKey] = len(m) - maxFields
	return out
}
