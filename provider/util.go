package provider

import "encoding/json"

// jsonUnmarshalLenient decodes raw into dst, ignoring malformed input rather
// than propagating an error: a model that returns malformed tool-call
// arguments should degrade to an empty input, not crash the adapter.
func jsonUnmarshalLenient(raw string, dst any) error {
	if raw == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(raw), dst)
	return nil
}
