package provider

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/corewave/agentcore/value"
)

// ConverseClient mirrors the subset of the AWS Bedrock runtime client the
// adapter needs, matching *bedrockruntime.Client so tests can substitute a
// fake.
type ConverseClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockConfig configures BedrockProvider.
type BedrockConfig struct {
	DefaultModel string
	MaxTokens    int32
	Temperature  float32
}

// BedrockProvider implements Provider on top of the AWS Bedrock Converse
// API.
type BedrockProvider struct {
	runtime ConverseClient
	cfg     BedrockConfig
}

// NewBedrockProvider constructs a provider from an AWS config.
func NewBedrockProvider(awsCfg aws.Config, cfg BedrockConfig) *BedrockProvider {
	return &BedrockProvider{runtime: bedrockruntime.NewFromConfig(awsCfg), cfg: cfg}
}

// NewBedrockProviderWithClient constructs a provider from a pre-built
// client, primarily for tests.
func NewBedrockProviderWithClient(client ConverseClient, cfg BedrockConfig) *BedrockProvider {
	return &BedrockProvider{runtime: client, cfg: cfg}
}

// Kind implements Provider.
func (p *BedrockProvider) Kind() value.ProviderKind { return value.Embedded }

// Ask implements Provider.
func (p *BedrockProvider) Ask(ctx context.Context, req value.Ask) value.Reply {
	start := time.Now()
	ctxMap := value.AsMap(req.Context)
	model := p.cfg.DefaultModel
	if m := value.AsString(ctxMap["model"]); m != "" {
		model = m
	}

	var messages []brtypes.Message
	for _, raw := range value.AsSlice(req.Input) {
		m := value.AsMap(raw)
		content := value.AsString(m["content"])
		if content == "" {
			continue
		}
		role := brtypes.ConversationRoleUser
		if value.AsString(m["role"]) == "assistant" {
			role = brtypes.ConversationRoleAssistant
		}
		messages = append(messages, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: content}},
		})
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: messages,
	}
	if system := value.AsString(ctxMap["system"]); system != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: system}}
	}
	cfg := &brtypes.InferenceConfiguration{}
	if p.cfg.MaxTokens > 0 {
		cfg.MaxTokens = aws.Int32(p.cfg.MaxTokens)
	}
	if p.cfg.Temperature > 0 {
		cfg.Temperature = aws.Float32(p.cfg.Temperature)
	}
	input.InferenceConfig = cfg

	out, err := p.runtime.Converse(ctx, input)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return value.Reply{
			OK:        false,
			Output:    (&Error{Provider: "bedrock", Kind: classifyBedrockErr(err), Retryable: true, Cause: err}).AsOutput(),
			LatencyMS: latency,
		}
	}
	return translateBedrockOutput(out, latency)
}

func translateBedrockOutput(out *bedrockruntime.ConverseOutput, latency int64) value.Reply {
	cost := value.Map()
	if out.Usage != nil {
		cost = value.Map(
			"input_tokens", float64(aws.ToInt32(out.Usage.InputTokens)),
			"output_tokens", float64(aws.ToInt32(out.Usage.OutputTokens)),
		)
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return value.Reply{OK: false, Output: value.ErrorField("empty response"), LatencyMS: latency, Cost: cost}
	}
	var text string
	var calls []value.Value
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *brtypes.ContentBlockMemberText:
			text += b.Value
		case *brtypes.ContentBlockMemberToolUse:
			calls = append(calls, value.Map("op", aws.ToString(b.Value.Name), "input", b.Value.Input))
		}
	}
	if len(calls) > 0 {
		return value.Reply{OK: false, Output: value.Map("tool_calls", calls), LatencyMS: latency, Cost: cost}
	}
	return value.Reply{OK: true, Output: value.Map("text", text), LatencyMS: latency, Cost: cost}
}

func classifyBedrockErr(err error) ErrorKind {
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		switch {
		case re.Response.StatusCode == 401 || re.Response.StatusCode == 403:
			return ErrorKindAuth
		case re.Response.StatusCode == 429:
			return ErrorKindRateLimited
		case re.Response.StatusCode >= 500:
			return ErrorKindUnavailable
		case re.Response.StatusCode >= 400:
			return ErrorKindInvalidRequest
		}
	}
	return ErrorKindUnknown
}
