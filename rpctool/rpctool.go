// Package rpctool implements the remote tool transport described by
// spec.md §6.2: a JSON-RPC-shaped request/reply exchanged over HTTP POST
// with a registered endpoint, exposed as a provider.Provider so the Agent
// dispatches remote tools exactly like any other provider.
package rpctool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/corewave/agentcore/value"
)

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  value.Value `json:"params"`
}

type rpcReply struct {
	Result value.Value `json:"result"`
	Error  value.Value `json:"error"`
}

// Provider is a remote tool reached over the §6.2 JSON-RPC transport. It
// keeps a per-instance monotonic request ID counter and a schema cache
// (§5's "only mutable shared state in the core"), backed by an in-process
// mutex-guarded map by default or by SchemaCache when Redis is configured.
type Provider struct {
	client   *resty.Client
	endpoint string
	nextID   int64

	mu     sync.Mutex
	schema map[string]value.Value
	cache  *SchemaCache
}

// New constructs a Provider and performs the required handshake; handshake
// failure is returned so register_tool can propagate it as a registration
// error instead of leaving the tool half-registered.
func New(endpoint string, timeout time.Duration) (*Provider, error) {
	return newProvider(endpoint, timeout, nil)
}

// NewWithSharedCache is New, but backs the schema cache with a shared
// SchemaCache (e.g. Redis-backed) instead of the default in-process map.
func NewWithSharedCache(endpoint string, timeout time.Duration, cache *SchemaCache) (*Provider, error) {
	return newProvider(endpoint, timeout, cache)
}

func newProvider(endpoint string, timeout time.Duration, cache *SchemaCache) (*Provider, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	p := &Provider{
		client:   resty.New().SetTimeout(timeout).SetHeader("Content-Type", "application/json"),
		endpoint: endpoint,
		schema:   make(map[string]value.Value),
		cache:    cache,
	}
	if _, err := p.call(context.Background(), "handshake", value.Map()); err != nil {
		return nil, fmt.Errorf("rpctool: handshake with %s failed: %w", endpoint, err)
	}
	return p, nil
}

// Kind implements provider.Provider.
func (p *Provider) Kind() value.ProviderKind { return value.RemoteGRPC }

// Ask implements provider.Provider by invoking the remote tool's "invoke"
// method with {tool, input}. On the first ask for a given op, it also
// fetches (and caches) the server-declared schema; a schema-fetch failure
// is swallowed, since a missing schema must not block a tool call.
func (p *Provider) Ask(ctx context.Context, req value.Ask) value.Reply {
	start := time.Now()
	_, _ = p.Schema(ctx, req.Op)

	result, err := p.call(ctx, "invoke", value.Map("tool", req.Op, "input", req.Input))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return value.Reply{OK: false, Output: value.ErrorField(err.Error()), LatencyMS: latency}
	}
	return value.Reply{OK: true, Output: result, LatencyMS: latency}
}

// Schema fetches (and caches) the remote tool's schema via the "schema"
// method, keyed by tool name. The cached schema is validated as a
// structurally sound JSON Schema document on first fetch (best-effort: the
// validation result is not reported, and an invalid schema is still cached
// and returned, since tool *input* validation stays a non-goal here).
func (p *Provider) Schema(ctx context.Context, tool string) (value.Value, error) {
	if p.cache != nil {
		if cached, ok := p.cache.get(ctx, p.endpoint, tool); ok {
			return cached, nil
		}
	} else {
		p.mu.Lock()
		if cached, ok := p.schema[tool]; ok {
			p.mu.Unlock()
			return cached, nil
		}
		p.mu.Unlock()
	}

	result, err := p.call(ctx, "schema", value.Map("tool", tool))
	if err != nil {
		return nil, err
	}
	validateSchema(result)

	if p.cache != nil {
		p.cache.put(ctx, p.endpoint, tool, result)
	} else {
		p.mu.Lock()
		p.schema[tool] = result
		p.mu.Unlock()
	}
	return result, nil
}

// call issues a single JSON-RPC request, tagging it with a per-call
// correlation ID (carried as both the request header and embedded in any
// error) so a remote endpoint's logs can be joined back to this call.
func (p *Provider) call(ctx context.Context, method string, params value.Value) (value.Value, error) {
	id := atomic.AddInt64(&p.nextID, 1)
	correlationID := uuid.NewString()
	var reply rpcReply
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("X-Correlation-ID", correlationID).
		SetBody(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}).
		SetResult(&reply).
		Post(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("rpctool: %s (correlation %s): %w", method, correlationID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rpctool: %s returned status %d (correlation %s)", method, resp.StatusCode(), correlationID)
	}
	if reply.Error != nil {
		return nil, fmt.Errorf("rpctool: %v (correlation %s)", reply.Error, correlationID)
	}
	return reply.Result, nil
}
