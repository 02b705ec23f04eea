// Package provider defines the uniform "ask -> reply" capability every
// primary and tool provider implements (spec.md §4.1), plus concrete
// deployment variants: an inline SDK-backed provider for each of the major
// model APIs represented in the retrieval pack, and a dialect-aware HTTP
// chat-completion backend (spec.md §6.1).
package provider

import (
	"context"

	"github.com/corewave/agentcore/value"
)

// Provider is the capability every primary and tool provider implements.
//
// Contract:
//   - Ask must always return a Reply; it must not panic or otherwise fail
//     outside the Reply structure. Failures are encoded as OK=false with an
//     Output mapping carrying at least an "error" string.
//   - Implementations must be safe to invoke repeatedly without external
//     synchronization; the Agent never locks around a call, so any internal
//     mutable state (e.g. a schema cache) must own its own mutex.
//   - Implementations must not modify the incoming Ask.
type Provider interface {
	// Kind reports the provider's deployment variant. Informational only.
	Kind() value.ProviderKind

	// Ask synchronously executes req and returns the resulting Reply.
	Ask(ctx context.Context, req value.Ask) value.Reply
}

// Func adapts a plain function into a Provider, for tests and small inline
// tools that don't need a dedicated type.
type Func struct {
	KindValue value.ProviderKind
	AskFunc   func(ctx context.Context, req value.Ask) value.Reply
}

// Kind implements Provider.
func (f Func) Kind() value.ProviderKind { return f.KindValue }

// Ask implements Provider.
func (f Func) Ask(ctx context.Context, req value.Ask) value.Reply { return f.AskFunc(ctx, req) }
