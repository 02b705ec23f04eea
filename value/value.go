// Package value defines the structured request/reply carriers that flow
// between the Agent and every provider it drives: Ask, Reply, and the
// small set of supporting enums (ProviderKind, ReasoningMode).
//
// Tool and model payloads are represented as a generic JSON-shaped tree
// (null, bool, number, string, sequence, mapping) rather than a bespoke
// sum type. Using the same shape encoding/json already produces keeps
// conversion to/from wire formats (HTTP bodies, JSON-RPC params, config
// files) free of adapter code.
package value

import (
	"encoding/json"
	"sort"
)

// Value is a structured tree: nil, bool, float64/int/json.Number, string,
// []Value (sequence), or map[string]Value (mapping). It is intentionally an
// alias for any rather than a closed sum type so callers can build values
// with plain Go literals (map[string]any{...}) the way they would build
// JSON payloads by hand.
type Value = any

// Map is a convenience constructor for a mapping value.
func Map(kv ...any) map[string]Value {
	m := make(map[string]Value, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		m[k] = kv[i+1]
	}
	return m
}

// AsMap returns v as a mapping, or an empty mapping if v is not one.
func AsMap(v Value) map[string]Value {
	if m, ok := v.(map[string]Value); ok {
		return m
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]Value{}
}

// AsSlice returns v as a sequence, or an empty sequence if v is not one.
func AsSlice(v Value) []Value {
	if s, ok := v.([]Value); ok {
		return s
	}
	if s, ok := v.([]any); ok {
		return s
	}
	return []Value{}
}

// AsString returns v as a string, or "" if v is not a string.
func AsString(v Value) string {
	s, _ := v.(string)
	return s
}

// ErrorField builds the canonical {"error": reason, ...extra} failure
// output shape used throughout §6.4 of the spec.
func ErrorField(reason string, extra ...any) map[string]Value {
	m := Map(extra...)
	m["error"] = reason
	return m
}

// sortedKeys returns the keys of m sorted lexically, used by the canonical
// serializer so that token estimation (and any test fixture comparing
// serialized bytes) is deterministic regardless of map iteration order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Canonical returns v normalized into plain encoding/json-compatible types
// (map[string]any, []any, string, float64, bool, nil) with map keys sorted
// when marshaled. It round-trips v through JSON once so that callers who
// built v with typed Go maps (map[string]Value) or structs get a uniform
// shape before estimation or transport.
func Canonical(v Value) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarshalCanonicalJSON serializes v with mapping keys sorted, giving a
// deterministic byte representation used by the token estimator.
func MarshalCanonicalJSON(v Value) ([]byte, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := sortedKeys(t)
		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := MarshalCanonicalJSON(t[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	case []any:
		buf := []byte{'['}
		for i, e := range t {
			if i > 0 {
				buf = append(buf, ',')
			}
			eb, err := MarshalCanonicalJSON(e)
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		buf = append(buf, ']')
		return buf, nil
	default:
		return json.Marshal(v)
	}
}
