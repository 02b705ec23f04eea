package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"

	"github.com/corewave/agentcore/value"
)

type stubConverseClient struct {
	resp *bedrockruntime.ConverseOutput
	err  error
}

func (s *stubConverseClient) Converse(_ context.Context, _ *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	return s.resp, s.err
}

func TestBedrockAskTextReply(t *testing.T) {
	stub := &stubConverseClient{
		resp: &bedrockruntime.ConverseOutput{
			Output: &brtypes.ConverseOutputMemberMessage{
				Value: brtypes.Message{
					Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "hello"}},
				},
			},
			Usage: &brtypes.TokenUsage{InputTokens: aws.Int32(7), OutputTokens: aws.Int32(3)},
		},
	}
	p := NewBedrockProviderWithClient(stub, BedrockConfig{DefaultModel: "anthropic.claude-3", MaxTokens: 256})

	reply := p.Ask(context.Background(), value.Ask{
		Input:   []any{map[string]any{"role": "user", "content": "hi"}},
		Context: value.Map(),
	})

	require.True(t, reply.OK)
	require.Equal(t, "hello", value.AsMap(reply.Output)["text"])
	require.Equal(t, float64(7), value.AsMap(reply.Cost)["input_tokens"])
}

func TestBedrockAskToolUseReply(t *testing.T) {
	stub := &stubConverseClient{
		resp: &bedrockruntime.ConverseOutput{
			Output: &brtypes.ConverseOutputMemberMessage{
				Value: brtypes.Message{
					Content: []brtypes.ContentBlock{
						&brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
							Name:  aws.String("adder"),
							Input: nil,
						}},
					},
				},
			},
		},
	}
	p := NewBedrockProviderWithClient(stub, BedrockConfig{DefaultModel: "anthropic.claude-3"})

	reply := p.Ask(context.Background(), value.Ask{Input: []any{}, Context: value.Map()})

	require.False(t, reply.OK)
	calls, ok := value.ToolCalls(reply.Output)
	require.True(t, ok)
	require.Equal(t, "adder", calls[0].Op)
}

func TestBedrockAskErrorSurfacesAsReply(t *testing.T) {
	stub := &stubConverseClient{err: errors.New("boom")}
	p := NewBedrockProviderWithClient(stub, BedrockConfig{DefaultModel: "m"})

	reply := p.Ask(context.Background(), value.Ask{Input: []any{}, Context: value.Map()})

	require.False(t, reply.OK)
	require.Equal(t, "bedrock", value.AsMap(reply.Output)["provider"])
}
