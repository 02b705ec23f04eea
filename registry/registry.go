// Package registry implements the Agent's tool registry (spec.md §4.7):
// a name-to-provider map that accepts inline providers, remote endpoint
// URLs, and config files listing many remote endpoints at once.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/corewave/agentcore/provider"
	"github.com/corewave/agentcore/rpctool"
	"github.com/corewave/agentcore/value"
)

// SpecKind discriminates the three ToolSpec variants register_tool
// accepts.
type SpecKind int

const (
	// SpecInline wraps an already-constructed provider.Provider.
	SpecInline SpecKind = iota
	// SpecRemoteURL constructs a remote tool provider at the given URL.
	SpecRemoteURL
	// SpecConfigFile reads a JSON name→URL mapping from disk and registers
	// every entry under its own file-declared key.
	SpecConfigFile
)

// ToolSpec is the tagged argument to Register.
type ToolSpec struct {
	Kind     SpecKind
	Provider provider.Provider // used when Kind == SpecInline
	URL      string            // used when Kind == SpecRemoteURL
	Path     string            // used when Kind == SpecConfigFile
	Timeout  time.Duration     // remote dial timeout, shared by URL and config-file variants
}

// Inline builds a ToolSpec around an already-constructed provider.
func Inline(p provider.Provider) ToolSpec {
	return ToolSpec{Kind: SpecInline, Provider: p}
}

// RemoteURL builds a ToolSpec that constructs a remote provider at url.
func RemoteURL(url string, timeout time.Duration) ToolSpec {
	return ToolSpec{Kind: SpecRemoteURL, URL: url, Timeout: timeout}
}

// ConfigFile builds a ToolSpec that reads a JSON name→URL mapping from
// path, registering every entry under its own key.
func ConfigFile(path string, timeout time.Duration) ToolSpec {
	return ToolSpec{Kind: SpecConfigFile, Path: path, Timeout: timeout}
}

// Registry is read-only during an Agent run (spec.md §5); its map is only
// mutated by Register, which callers are expected to finish before
// starting any run.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]provider.Provider

	schemaCache *rpctool.SchemaCache
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{tools: make(map[string]provider.Provider)}
}

// NewWithSchemaCache is New, but every SpecRemoteURL/SpecConfigFile tool
// registered through it shares the given SchemaCache (e.g. Redis-backed)
// instead of each getting its own in-process schema map.
func NewWithSchemaCache(cache *rpctool.SchemaCache) *Registry {
	return &Registry{tools: make(map[string]provider.Provider), schemaCache: cache}
}

// Register interprets spec per spec.md §4.7. name is used verbatim for
// SpecInline and SpecRemoteURL; for SpecConfigFile, name is ignored in
// favor of each entry's own key in the file.
func (r *Registry) Register(name string, spec ToolSpec) error {
	switch spec.Kind {
	case SpecInline:
		r.put(name, spec.Provider)
		return nil
	case SpecRemoteURL:
		p, err := r.newRemote(spec.URL, spec.Timeout)
		if err != nil {
			return fmt.Errorf("registry: register %q: %w", name, err)
		}
		r.put(name, p)
		return nil
	case SpecConfigFile:
		return r.registerConfigFile(spec.Path, spec.Timeout)
	default:
		return fmt.Errorf("registry: unknown ToolSpec kind %d", spec.Kind)
	}
}

func (r *Registry) registerConfigFile(path string, timeout time.Duration) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("registry: read config %q: %w", path, err)
	}
	var mapping map[string]string
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return fmt.Errorf("registry: parse config %q: %w", path, err)
	}
	for toolName, url := range mapping {
		p, err := r.newRemote(url, timeout)
		if err != nil {
			return fmt.Errorf("registry: register %q from %q: %w", toolName, path, err)
		}
		r.put(toolName, p)
	}
	return nil
}

// newRemote constructs a remote tool provider at url, backing its schema
// cache with r.schemaCache when one is configured.
func (r *Registry) newRemote(url string, timeout time.Duration) (*rpctool.Provider, error) {
	if r.schemaCache != nil {
		return rpctool.NewWithSharedCache(url, timeout, r.schemaCache)
	}
	return rpctool.New(url, timeout)
}

func (r *Registry) put(name string, p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = p
}

// HasTool reports whether name is registered.
func (r *Registry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// ToolCount returns the number of registered tools, used by the Agent's
// mode-selection step (spec.md §4.3's tool count term).
func (r *Registry) ToolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// CallTool invokes the named tool directly, bypassing the Agent's step
// loop, for testing and direct-invocation callers. It reports ok=false
// when name is not registered.
func (r *Registry) CallTool(ctx context.Context, name string, ask value.Ask) (reply value.Reply, ok bool) {
	r.mu.RLock()
	p, found := r.tools[name]
	r.mu.RUnlock()
	if !found {
		return value.Reply{}, false
	}
	return p.Ask(ctx, ask), true
}

// get returns the provider registered under name, used internally by the
// Agent's dispatch path.
func (r *Registry) get(name string) (provider.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.tools[name]
	return p, ok
}

// Get exports get for the agent package: the Agent's dispatch path needs
// the raw provider to run it through the retry wrapper itself, which
// CallTool does not do.
func (r *Registry) Get(name string) (provider.Provider, bool) {
	return r.get(name)
}
