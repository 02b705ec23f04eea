// Package tokens implements the deterministic, reproducible token-cost
// proxy the Agent uses to enforce its budget (spec.md §4.2). It is
// explicitly not an exact token counter: the estimate is the code-point
// count of the value's canonical textual serialization.
package tokens

import (
	"unicode/utf8"

	"github.com/corewave/agentcore/value"
)

// minStructural is the small constant charged for an empty mapping or
// sequence, keeping Estimate(x) >= 0 and giving structurally-empty values a
// nonzero but bounded cost (spec.md §4.2: "empty mapping and empty sequence
// both yield a small constant (<= 4)").
const minStructural = 2

// Estimate returns a nonnegative integer proxy for the token cost of v: the
// number of Unicode code points in v's canonical JSON serialization. A
// string is counted as its raw code points, without JSON quotes or escapes.
// Equal inputs always yield equal estimates (required for budget
// determinism and for ReasoningPolicy, which scores inputs with Estimate).
func Estimate(v value.Value) int {
	if v == nil {
		return 0
	}
	if s, ok := v.(string); ok {
		return codepoints(s)
	}
	canon, err := value.Canonical(v)
	if err != nil {
		// A value that cannot be serialized is treated as empty rather than
		// panicking; providers must never crash the Agent on hostile input.
		return minStructural
	}
	switch t := canon.(type) {
	case map[string]any:
		if len(t) == 0 {
			return minStructural
		}
	case []any:
		if len(t) == 0 {
			return minStructural
		}
	case nil:
		return 0
	}
	raw, err := value.MarshalCanonicalJSON(canon)
	if err != nil {
		return minStructural
	}
	return codepoints(string(raw))
}

// codepoints counts Unicode code points (not bytes) in s, so multi-byte
// UTF-8 content is not over-counted relative to single-byte ASCII content.
func codepoints(s string) int {
	return utf8.RuneCountInString(s)
}
