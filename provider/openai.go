package provider

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/corewave/agentcore/value"
)

// ChatClient captures the subset of the OpenAI SDK client the adapter
// needs, mirroring the narrow-interface-for-testability shape the teacher
// uses for its own model-provider adapters.
type ChatClient interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIConfig configures OpenAIProvider.
type OpenAIConfig struct {
	DefaultModel shared.ChatModel
	MaxTokens    int64
}

// OpenAIProvider implements Provider on top of the OpenAI Chat Completions
// API.
type OpenAIProvider struct {
	client ChatClient
	cfg    OpenAIConfig
}

// NewOpenAIProvider constructs a provider from an API key.
func NewOpenAIProvider(apiKey string, cfg OpenAIConfig) *OpenAIProvider {
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: c.Chat.Completions, cfg: cfg}
}

// NewOpenAIProviderWithClient constructs a provider from a pre-built
// client, primarily for tests.
func NewOpenAIProviderWithClient(client ChatClient, cfg OpenAIConfig) *OpenAIProvider {
	return &OpenAIProvider{client: client, cfg: cfg}
}

// Kind implements Provider.
func (p *OpenAIProvider) Kind() value.ProviderKind { return value.Embedded }

// Ask implements Provider.
func (p *OpenAIProvider) Ask(ctx context.Context, req value.Ask) value.Reply {
	start := time.Now()
	ctxMap := value.AsMap(req.Context)

	model := p.cfg.DefaultModel
	if m := value.AsString(ctxMap["model"]); m != "" {
		model = shared.ChatModel(m)
	}
	params := openai.ChatCompletionNewParams{Model: model}
	for _, raw := range value.AsSlice(req.Input) {
		m := value.AsMap(raw)
		content := value.AsString(m["content"])
		if content == "" {
			continue
		}
		switch value.AsString(m["role"]) {
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(content))
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(content))
		}
	}
	if p.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(p.cfg.MaxTokens)
	}

	resp, err := p.client.New(ctx, params)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return value.Reply{
			OK:        false,
			Output:    (&Error{Provider: "openai", Kind: classifyOpenAIErr(err), Retryable: true, Cause: err}).AsOutput(),
			LatencyMS: latency,
		}
	}
	return translateOpenAIResponse(resp, latency)
}

func translateOpenAIResponse(resp *openai.ChatCompletion, latency int64) value.Reply {
	cost := value.Map(
		"input_tokens", float64(resp.Usage.PromptTokens),
		"output_tokens", float64(resp.Usage.CompletionTokens),
	)
	if len(resp.Choices) == 0 {
		return value.Reply{OK: false, Output: value.ErrorField("empty response"), LatencyMS: latency, Cost: cost}
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) > 0 {
		calls := make([]value.Value, 0, len(choice.Message.ToolCalls))
		for _, tc := range choice.Message.ToolCalls {
			var input value.Value
			_ = jsonUnmarshalLenient(tc.Function.Arguments, &input)
			calls = append(calls, value.Map("op", tc.Function.Name, "input", input))
		}
		return value.Reply{OK: false, Output: value.Map("tool_calls", calls), LatencyMS: latency, Cost: cost}
	}
	return value.Reply{OK: true, Output: value.Map("text", choice.Message.Content), LatencyMS: latency, Cost: cost}
}

func classifyOpenAIErr(err error) ErrorKind {
	var apiErr *openai.Error
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
