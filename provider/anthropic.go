package provider

import (
	"context"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/corewave/agentcore/value"
)

// MessagesClient captures the subset of the Anthropic SDK client the
// adapter needs, so tests can substitute a fake without a live API key.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicConfig configures AnthropicProvider.
type AnthropicConfig struct {
	// DefaultModel is used when Ask.Context["model"] is absent.
	DefaultModel string
	// MaxTokens is used when Ask.Context["max_tokens"] is absent or <= 0.
	MaxTokens int
	// ThinkingBudget is the token budget applied when Ask.Context["reasoning"]
	// equals "reasoned". A zero value disables extended thinking entirely.
	ThinkingBudget int64
}

// AnthropicProvider implements Provider on top of the Anthropic Messages
// API. Tool calls issued by the model are surfaced as the standard
// {tool_calls:[{op,input}]} directive (spec.md §3) so the Agent's dispatch
// path (spec.md §4.6) handles them the same way regardless of which
// primary provider produced them.
type AnthropicProvider struct {
	client MessagesClient
	cfg    AnthropicConfig
}

// NewAnthropicProvider constructs a provider from an API key.
func NewAnthropicProvider(apiKey string, cfg AnthropicConfig) *AnthropicProvider {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &c.Messages, cfg: cfg}
}

// NewAnthropicProviderWithClient constructs a provider from a pre-built
// client, primarily for tests.
func NewAnthropicProviderWithClient(client MessagesClient, cfg AnthropicConfig) *AnthropicProvider {
	return &AnthropicProvider{client: client, cfg: cfg}
}

// Kind implements Provider.
func (p *AnthropicProvider) Kind() value.ProviderKind { return value.Embedded }

// Ask implements Provider.
func (p *AnthropicProvider) Ask(ctx context.Context, req value.Ask) value.Reply {
	start := time.Now()
	params, err := p.buildParams(req)
	if err != nil {
		return value.Reply{OK: false, Output: (&Error{Provider: "anthropic", Kind: ErrorKindInvalidRequest, Cause: err}).AsOutput()}
	}
	msg, err := p.client.New(ctx, params)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return value.Reply{
			OK:        false,
			Output:    (&Error{Provider: "anthropic", Kind: classifyAnthropicErr(err), Retryable: true, Cause: err}).AsOutput(),
			LatencyMS: latency,
		}
	}
	return translateAnthropicMessage(msg, latency)
}

func (p *AnthropicProvider) buildParams(req value.Ask) (sdk.MessageNewParams, error) {
	ctxMap := value.AsMap(req.Context)
	model := p.cfg.DefaultModel
	if m := value.AsString(ctxMap["model"]); m != "" {
		model = m
	}
	maxTokens := p.cfg.MaxTokens
	if mt, ok := ctxMap["max_tokens"].(float64); ok && mt > 0 {
		maxTokens = int(mt)
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	msgs := make([]sdk.MessageParam, 0, len(value.AsSlice(req.Input)))
	for _, raw := range value.AsSlice(req.Input) {
		m := value.AsMap(raw)
		role := value.AsString(m["role"])
		content := value.AsString(m["content"])
		if content == "" {
			continue
		}
		switch role {
		case "assistant":
			msgs = append(msgs, sdk.NewAssistantMessage(sdk.NewTextBlock(content)))
		default:
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(content)))
		}
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if system := value.AsString(ctxMap["system"]); system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if value.AsString(ctxMap["reasoning"]) == "reasoned" && p.cfg.ThinkingBudget > 0 {
		params.Thinking = sdk.ThinkingConfigParamOfEnabled(p.cfg.ThinkingBudget)
	}
	return params, nil
}

func translateAnthropicMessage(msg *sdk.Message, latency int64) value.Reply {
	var text string
	var calls []value.Value
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case sdk.TextBlock:
			text += b.Text
		case sdk.ToolUseBlock:
			calls = append(calls, value.Map("op", b.Name, "input", b.Input))
		}
	}
	cost := value.Map(
		"input_tokens", float64(msg.Usage.InputTokens),
		"output_tokens", float64(msg.Usage.OutputTokens),
	)
	if len(calls) > 0 {
		return value.Reply{OK: false, Output: value.Map("tool_calls", calls), LatencyMS: latency, Cost: cost}
	}
	return value.Reply{OK: true, Output: value.Map("text", text), LatencyMS: latency, Cost: cost}
}

func classifyAnthropicErr(err error) ErrorKind {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return ErrorKindAuth
		case 429:
			return ErrorKindRateLimited
		case 400, 404, 422:
			return ErrorKindInvalidRequest
		}
		if apiErr.StatusCode >= 500 {
			return ErrorKindUnavailable
		}
	}
	return ErrorKindUnknown
}
