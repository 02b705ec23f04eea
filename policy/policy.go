// Package policy implements the pure reasoning-mode decision function
// (spec.md §4.3): given an input and a tool count, choose between Direct
// and Reasoned execution.
package policy

import (
	"github.com/corewave/agentcore/tokens"
	"github.com/corewave/agentcore/value"
)

// DefaultThreshold and DefaultToolWeight are the policy defaults from
// spec.md §4.3.
const (
	DefaultThreshold  = 200
	DefaultToolWeight = 50
)

// ReasoningPolicy is a pure value: threshold and tool_weight control when
// Decide escalates from Direct to Reasoned.
type ReasoningPolicy struct {
	Threshold  int
	ToolWeight int
}

// Default returns the policy's documented defaults.
func Default() ReasoningPolicy {
	return ReasoningPolicy{Threshold: DefaultThreshold, ToolWeight: DefaultToolWeight}
}

// Decide computes score = codepoints(input_as_text) + toolCount*ToolWeight
// and returns Reasoned when score exceeds Threshold, Direct otherwise.
// input_as_text is the raw string when input is a string, otherwise its
// canonical serialization. Decide is a pure function: equal (input,
// toolCount) pairs under the same policy always yield the same mode.
func (p ReasoningPolicy) Decide(input value.Value, toolCount int) value.ReasoningMode {
	score := p.score(input, toolCount)
	if score > p.Threshold {
		return value.Reasoned
	}
	return value.Direct
}

func (p ReasoningPolicy) score(input value.Value, toolCount int) int {
	var base int
	if s, ok := input.(string); ok {
		base = tokens.Estimate(s)
	} else {
		base = tokens.Estimate(input)
	}
	return base + toolCount*p.ToolWeight
}

// WithBudgetOverride is the rule applied by the Agent, not the policy
// itself: Reasoned is demoted to Direct when the initial ask already
// consumes more than 85% of the token budget. It lives here (rather than in
// package agent) so both the Agent and tests documenting the override in
// isolation can call it without importing the agent package.
func WithBudgetOverride(mode value.ReasoningMode, initialTokens, maxTokens int) value.ReasoningMode {
	if maxTokens <= 0 {
		return mode
	}
	if initialTokens*100/maxTokens > 85 {
		return value.Direct
	}
	return mode
}
