// Package agent implements the bounded step loop that drives a primary
// provider and, through the registry, whatever tools it calls back into
// (spec.md §4.5, §4.6). It is the component every other package in this
// module exists to serve.
package agent

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/corewave/agentcore/policy"
	"github.com/corewave/agentcore/provider"
	"github.com/corewave/agentcore/registry"
	"github.com/corewave/agentcore/retry"
	"github.com/corewave/agentcore/rpctool"
	"github.com/corewave/agentcore/telemetry"
	"github.com/corewave/agentcore/tokens"
	"github.com/corewave/agentcore/value"
)

// Config holds the construction parameters named in spec.md §4.5.
type Config struct {
	Primary    provider.Provider
	MaxSteps   int
	MaxTokens  int
	MaxRetries int
	Policy     policy.ReasoningPolicy // zero value is replaced with policy.Default()

	// Limiter, when non-nil, bounds how fast the Agent issues primary
	// provider calls. Unset (nil) means unlimited, which is the default
	// and keeps the documented budget/step semantics unchanged.
	Limiter *rate.Limiter

	// SchemaCache, when non-nil, backs every SpecRemoteURL/SpecConfigFile
	// tool this Agent registers with a shared (e.g. Redis-backed) schema
	// cache instead of each tool keeping its own in-process map.
	SchemaCache *rpctool.SchemaCache

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Tracer  telemetry.Tracer
}

// Agent is the bounded step loop. The registry is built once via
// RegisterTool calls before the first Run and is immutable thereafter.
type Agent struct {
	primary    provider.Provider
	maxSteps   int
	maxTokens  int
	maxRetries int
	reasoning  policy.ReasoningPolicy
	limiter    *rate.Limiter
	logger     telemetry.Logger
	metrics    telemetry.Metrics
	tracer     telemetry.Tracer

	registry *registry.Registry
}

// New constructs an Agent. A zero-value cfg.Policy is replaced with
// policy.Default(); nil Logger/Metrics fall back to no-op implementations.
func New(cfg Config) *Agent {
	reasoning := cfg.Policy
	if reasoning == (policy.ReasoningPolicy{}) {
		reasoning = policy.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	reg := registry.New()
	if cfg.SchemaCache != nil {
		reg = registry.NewWithSchemaCache(cfg.SchemaCache)
	}
	return &Agent{
		primary:    cfg.Primary,
		maxSteps:   cfg.MaxSteps,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		reasoning:  reasoning,
		limiter:    cfg.Limiter,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		registry:   reg,
	}
}

// RegisterTool interprets spec per spec.md §4.7; see registry.Registry.Register.
func (a *Agent) RegisterTool(name string, spec registry.ToolSpec) error {
	return a.registry.Register(name, spec)
}

// HasTool reports whether name is registered.
func (a *Agent) HasTool(name string) bool {
	return a.registry.HasTool(name)
}

// CallTool invokes a registered tool directly, bypassing the step loop.
func (a *Agent) CallTool(ctx context.Context, name string, ask value.Ask) (value.Reply, bool) {
	return a.registry.CallTool(ctx, name, ask)
}

// budgetExceeded is the canonical failure reply for any debit that would
// push the running total past maxTokens (spec.md §6.4).
func budgetExceeded(latencyMS int64, cost value.Value) value.Reply {
	if cost == nil {
		cost = value.Map()
	}
	return value.Reply{OK: false, Output: value.ErrorField("token budget exceeded"), LatencyMS: latencyMS, Cost: cost}
}

func stepLimitExceeded() value.Reply {
	return value.Reply{OK: false, Output: value.ErrorField("step limit exceeded"), LatencyMS: 0, Cost: value.Map()}
}

// Run executes the step loop described by spec.md §4.5 against the given
// initial ask, returning the first terminal Reply.
func (a *Agent) Run(ctx context.Context, ask value.Ask) value.Reply {
	runID := uuid.NewString()
	ctx, span := a.tracer.Start(ctx, "agent.run")
	span.AddEvent("run started", "run_id", runID, "op", ask.Op)
	defer span.End()

	remaining := a.maxTokens

	// Budget prelude.
	initial := tokens.Estimate(ask.Input) + tokens.Estimate(ask.Context)
	if initial > remaining {
		a.logger.Warn(ctx, "run rejected: initial ask over budget", "run_id", runID, "initial", initial, "max_tokens", a.maxTokens)
		span.SetStatus(codes.Error, "token budget exceeded")
		return budgetExceeded(0, value.Map())
	}
	remaining -= initial

	// Mode selection, with the budget override.
	toolCount := a.registry.ToolCount()
	mode := a.reasoning.Decide(ask.Input, toolCount)
	mode = policy.WithBudgetOverride(mode, initial, a.maxTokens)

	current := value.Ask{
		Op:      ask.Op,
		Input:   ask.Input,
		Context: value.Map("reasoning", mode.String()),
	}

	for step := 0; step < a.maxSteps; step++ {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				span.SetStatus(codes.Error, "cancelled")
				return value.CancelledReply()
			}
		}

		reply := a.callPrimary(ctx, current)
		if isCancelled(ctx) {
			span.SetStatus(codes.Error, "cancelled")
			return reply
		}

		outDebit := tokens.Estimate(reply.Output)
		if outDebit > remaining {
			span.SetStatus(codes.Error, "token budget exceeded")
			return budgetExceeded(reply.LatencyMS, reply.Cost)
		}
		remaining -= outDebit

		if reply.OK {
			a.metrics.IncCounter("agent.run_ok", 1)
			span.AddEvent("run completed", "run_id", runID, "step", step)
			span.SetStatus(codes.Ok, "")
			return reply
		}

		if calls, ok := value.ToolCalls(reply.Output); ok {
			dispatchReply, newCurrent, handled := a.dispatch(ctx, calls, current, mode, &remaining)
			if !handled {
				span.SetStatus(codes.Error, value.AsString(value.AsMap(dispatchReply.Output)["error"]))
				return dispatchReply
			}
			current = newCurrent
			continue
		}

		// Non-OK, no tool calls: fold into the next ask.
		nextCtx := value.Map("reasoning", mode.String(), "retry", step+1)
		nextDebit := tokens.Estimate(reply.Output) + tokens.Estimate(nextCtx)
		if nextDebit > remaining {
			span.SetStatus(codes.Error, "token budget exceeded")
			return budgetExceeded(reply.LatencyMS, reply.Cost)
		}
		remaining -= nextDebit
		current = value.Ask{Op: current.Op, Input: reply.Output, Context: nextCtx}
	}

	a.metrics.IncCounter("agent.step_limit_exceeded", 1)
	span.SetStatus(codes.Error, "step limit exceeded")
	return stepLimitExceeded()
}

func (a *Agent) callPrimary(ctx context.Context, ask value.Ask) value.Reply {
	return retry.Do(ctx, a.maxRetries, func() value.Reply {
		return a.primary.Ask(ctx, ask.Clone())
	})
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
