package agent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/corewave/agentcore/retry"
	"github.com/corewave/agentcore/tokens"
	"github.com/corewave/agentcore/value"
)

// unknownTool is the canonical failure reply for a tool_calls entry whose
// op has no registered provider (spec.md §6.4).
func unknownTool(name string) value.Reply {
	return value.Reply{OK: false, Output: value.ErrorField("unknown tool", "tool", name)}
}

func toolInvocationFailed(name string, sub value.Reply) value.Reply {
	return value.Reply{
		OK:        false,
		Output:    value.ErrorField("tool invocation failed", "tool", name, "detail", sub.Output),
		LatencyMS: sub.LatencyMS,
		Cost:      sub.Cost,
	}
}

// debit subtracts n from *remaining, returning false (without mutating
// *remaining) if that would take it negative.
func debit(remaining *int, n int) bool {
	if n > *remaining {
		return false
	}
	*remaining -= n
	return true
}

// dispatch implements spec.md §4.6. It returns (reply, ok=false) when the
// run must terminate with reply, or (newCurrent, ok=true) when the loop
// should continue with newCurrent as the next ask.
func (a *Agent) dispatch(ctx context.Context, calls []value.ToolCall, current value.Ask, mode value.ReasoningMode, remaining *int) (value.Reply, value.Ask, bool) {
	for _, c := range calls {
		if !a.registry.HasTool(c.Op) {
			return unknownTool(c.Op), value.Ask{}, false
		}
	}

	if len(calls) == 1 {
		return a.dispatchSingle(ctx, calls[0], current, mode, remaining)
	}
	return a.dispatchParallel(ctx, calls, current, mode, remaining)
}

func (a *Agent) dispatchSingle(ctx context.Context, call value.ToolCall, current value.Ask, mode value.ReasoningMode, remaining *int) (value.Reply, value.Ask, bool) {
	if !debit(remaining, tokens.Estimate(call.Input)) {
		return budgetExceeded(0, value.Map()), value.Ask{}, false
	}

	reply := a.invokeTool(ctx, call.Op, call.Input)
	if isCancelled(ctx) {
		return reply, value.Ask{}, false
	}
	if !reply.OK {
		return toolInvocationFailed(call.Op, reply), value.Ask{}, false
	}
	if !debit(remaining, tokens.Estimate(reply.Output)) {
		return budgetExceeded(reply.LatencyMS, reply.Cost), value.Ask{}, false
	}

	// The invariant in spec.md §5 bounds a dispatch to the inputs and
	// outputs actually charged above; the context wrapper is the only
	// additional debit here (current.Input reuses the already-charged
	// tool.Output, it is not charged a second time).
	nextCtx := value.Map("reasoning", mode.String(), "tool", call.Op)
	if !debit(remaining, tokens.Estimate(nextCtx)) {
		return budgetExceeded(reply.LatencyMS, reply.Cost), value.Ask{}, false
	}
	return value.Reply{}, value.Ask{Op: current.Op, Input: reply.Output, Context: nextCtx}, true
}

func (a *Agent) dispatchParallel(ctx context.Context, calls []value.ToolCall, current value.Ask, mode value.ReasoningMode, remaining *int) (value.Reply, value.Ask, bool) {
	for _, c := range calls {
		if !debit(remaining, tokens.Estimate(c.Input)) {
			return budgetExceeded(0, value.Map()), value.Ask{}, false
		}
	}

	replies := make([]value.Reply, len(calls))
	g, gCtx := errgroup.WithContext(ctx)
	for i, c := range calls {
		i, c := i, c
		g.Go(func() error {
			replies[i] = a.invokeTool(gCtx, c.Op, c.Input)
			return nil
		})
	}
	_ = g.Wait()

	if isCancelled(ctx) {
		return value.CancelledReply(), value.Ask{}, false
	}

	outputs := make([]value.Value, 0, len(calls))
	names := make([]value.Value, 0, len(calls))
	for i, reply := range replies {
		if !reply.OK {
			return toolInvocationFailed(calls[i].Op, reply), value.Ask{}, false
		}
		if !debit(remaining, tokens.Estimate(reply.Output)) {
			return budgetExceeded(reply.LatencyMS, reply.Cost), value.Ask{}, false
		}
		outputs = append(outputs, reply.Output)
		names = append(names, calls[i].Op)
	}

	// Per spec.md §5's invariant, a fan-out of N calls debits tokens for N
	// inputs and up to N outputs only; outputs is the already-charged
	// sequence reused as current.Input, so only the context wrapper is
	// charged here.
	nextCtx := value.Map("reasoning", mode.String(), "tools", names)
	if !debit(remaining, tokens.Estimate(nextCtx)) {
		return budgetExceeded(0, value.Map()), value.Ask{}, false
	}
	return value.Reply{}, value.Ask{Op: current.Op, Input: outputs, Context: nextCtx}, true
}

func (a *Agent) invokeTool(ctx context.Context, name string, input value.Value) value.Reply {
	p, _ := a.registry.Get(name)
	return retry.Do(ctx, a.maxRetries, func() value.Reply {
		return p.Ask(ctx, value.Ask{Op: name, Input: input, Context: value.Map()})
	})
}
