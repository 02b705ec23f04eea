package rpctool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/corewave/agentcore/value"
)

// SchemaCache backs a Provider's schema cache with Redis, for callers that
// share one remote tool's schema lookups across multiple Agent instances
// or process restarts. Provider falls back to its own in-process map when
// no SchemaCache is configured.
type SchemaCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSchemaCache builds a SchemaCache from an existing Redis client.
// ttl is the expiry applied to each cached schema entry; a non-positive
// ttl disables expiry.
func NewRedisSchemaCache(client *redis.Client, ttl time.Duration) *SchemaCache {
	return &SchemaCache{client: client, ttl: ttl}
}

func (c *SchemaCache) key(endpoint, tool string) string {
	return "agentcore:schema:" + endpoint + ":" + tool
}

func (c *SchemaCache) get(ctx context.Context, endpoint, tool string) (value.Value, bool) {
	raw, err := c.client.Get(ctx, c.key(endpoint, tool)).Bytes()
	if err != nil {
		return nil, false
	}
	var v value.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

func (c *SchemaCache) put(ctx context.Context, endpoint, tool string, schema value.Value) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(endpoint, tool), raw, c.ttl)
}

// validateSchema performs best-effort structural validation of a
// server-declared tool schema: it never rejects a call, it only reports
// whether the document compiles as a JSON Schema. Provider.Schema discards
// the result.
func validateSchema(schema value.Value) bool {
	raw, err := json.Marshal(schema)
	if err != nil {
		return false
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", doc); err != nil {
		return false
	}
	_, err = compiler.Compile("schema.json")
	return err == nil
}
