package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/corewave/agentcore/value"
)

// Dialect selects the wire-shape variant the chat-completion backend
// speaks, per spec.md §6.1.
type Dialect string

const (
	// DialectOpenAI is the default dialect.
	DialectOpenAI Dialect = "openai"
	// DialectDashscope speaks Alibaba's DashScope-compatible shape.
	DialectDashscope Dialect = "dashscope"
)

// ChatCompletionConfig configures ChatCompletionProvider.
type ChatCompletionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Dialect Dialect
	Timeout time.Duration
}

// ChatCompletionProvider is the external HTTP chat-completion backend
// described by spec.md §6.1: it is not part of the core (the core only
// knows about the Provider interface) but is the concrete inline provider
// callers plug in to drive a remote chat-completion endpoint.
//
// Ask{Input: messages[], Context: {dialect?, tools?, tool_choice?, reasoning?}}
// is POSTed to <base>/v1/chat/completions with Authorization: Bearer <key>.
type ChatCompletionProvider struct {
	client *resty.Client
	cfg    ChatCompletionConfig
}

// NewChatCompletionProvider builds the HTTP backend, defaulting Dialect to
// openai and Timeout to 30s when unset.
func NewChatCompletionProvider(cfg ChatCompletionConfig) *ChatCompletionProvider {
	if cfg.Dialect == "" {
		cfg.Dialect = DialectOpenAI
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &ChatCompletionProvider{client: client, cfg: cfg}
}

// Kind implements Provider.
func (p *ChatCompletionProvider) Kind() value.ProviderKind { return value.Embedded }

// Ask implements Provider.
func (p *ChatCompletionProvider) Ask(ctx context.Context, req value.Ask) value.Reply {
	start := time.Now()
	ctxMap := value.AsMap(req.Context)
	dialect := p.cfg.Dialect
	if d := value.AsString(ctxMap["dialect"]); d != "" {
		dialect = Dialect(d)
	}
	model := p.cfg.Model
	if m := value.AsString(ctxMap["model"]); m != "" {
		model = m
	}

	body := buildChatCompletionBody(dialect, model, req.Input, ctxMap)

	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.cfg.APIKey).
		SetBody(body).
		Post(p.cfg.BaseURL + "/v1/chat/completions")
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return value.Reply{
			OK:        false,
			Output:    (&Error{Provider: "chatcompletion", Kind: ErrorKindUnavailable, Retryable: true, Cause: err}).AsOutput(),
			LatencyMS: latency,
		}
	}

	var parsed map[string]value.Value
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return value.Reply{
			OK:        !resp.IsError(),
			Output:    value.ErrorField(fmt.Sprintf("malformed response body: %v", err)),
			LatencyMS: latency,
		}
	}
	cost := value.Map()
	if usage, ok := parsed["usage"]; ok {
		cost = value.AsMap(usage)
	}
	return value.Reply{OK: resp.IsSuccess(), Output: parsed, LatencyMS: latency, Cost: cost}
}

func buildChatCompletionBody(dialect Dialect, model string, messages value.Value, ctxMap map[string]value.Value) map[string]value.Value {
	body := value.Map("model", model, "messages", messages)
	tools := ctxMap["tools"]
	toolChoice := ctxMap["tool_choice"]
	reasoning := value.AsString(ctxMap["reasoning"]) == "reasoned"

	switch dialect {
	case DialectDashscope:
		if tools != nil {
			body["functions"] = tools
		}
		if toolChoice != nil {
			body["function_call"] = toolChoice
		}
		if reasoning {
			body["enable_chain_of_thought"] = true
		}
	default: // DialectOpenAI
		if seq := value.AsSlice(tools); len(seq) > 0 {
			wrapped := make([]value.Value, 0, len(seq))
			for _, t := range seq {
				wrapped = append(wrapped, value.Map("type", "function", "function", t))
			}
			body["tools"] = wrapped
		}
		if toolChoice != nil {
			body["tool_choice"] = toolChoice
		}
		if reasoning {
			body["reasoning"] = value.Map("effort", "medium")
		}
	}
	return body
}
