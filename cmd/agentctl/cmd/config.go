package cmd

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/corewave/agentcore/agent"
	"github.com/corewave/agentcore/policy"
	"github.com/corewave/agentcore/provider"
	"github.com/corewave/agentcore/registry"
	"github.com/corewave/agentcore/rpctool"
	"github.com/corewave/agentcore/telemetry"
)

// toolConfig is one entry of the run config's "tools" list.
type toolConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url" yaml:"url,omitempty"`
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// providerConfig selects and configures the primary provider.
type providerConfig struct {
	Kind    string `mapstructure:"kind" yaml:"kind"` // anthropic | openai | bedrock | chatcompletion
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model   string `mapstructure:"model" yaml:"model,omitempty"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Dialect string `mapstructure:"dialect" yaml:"dialect,omitempty"`
	Region  string `mapstructure:"region" yaml:"region,omitempty"`
}

// schemaCacheConfig configures a Redis-backed shared schema cache for every
// remote tool this run registers. Empty Addr leaves tools on their own
// in-process schema maps.
type schemaCacheConfig struct {
	Addr string        `mapstructure:"addr" yaml:"addr,omitempty"`
	DB   int           `mapstructure:"db" yaml:"db,omitempty"`
	TTL  time.Duration `mapstructure:"ttl" yaml:"ttl,omitempty"`
}

type runConfig struct {
	Provider    providerConfig    `mapstructure:"provider" yaml:"provider"`
	MaxSteps    int               `mapstructure:"max_steps" yaml:"max_steps"`
	MaxTokens   int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxRetries  int               `mapstructure:"max_retries" yaml:"max_retries"`
	Threshold   int               `mapstructure:"threshold" yaml:"threshold,omitempty"`
	ToolWeight  int               `mapstructure:"tool_weight" yaml:"tool_weight,omitempty"`
	Tools       []toolConfig      `mapstructure:"tools" yaml:"tools,omitempty"`
	SchemaCache schemaCacheConfig `mapstructure:"schema_cache" yaml:"schema_cache,omitempty"`
}

func loadRunConfig() (runConfig, error) {
	cfg := runConfig{MaxSteps: 8, MaxTokens: 4000, MaxRetries: 3}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("agentctl: parse config: %w", err)
	}
	return cfg, nil
}

func buildPrimaryProvider(pc providerConfig) (provider.Provider, error) {
	switch pc.Kind {
	case "anthropic":
		return provider.NewAnthropicProvider(pc.APIKey, provider.AnthropicConfig{DefaultModel: pc.Model, MaxTokens: 1024}), nil
	case "openai":
		return provider.NewOpenAIProvider(pc.APIKey, provider.OpenAIConfig{DefaultModel: openAIModel(pc.Model)}), nil
	case "bedrock":
		opts := []func(*awsconfig.LoadOptions) error{}
		if pc.Region != "" {
			opts = append(opts, awsconfig.WithRegion(pc.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("agentctl: load aws config: %w", err)
		}
		return provider.NewBedrockProvider(awsCfg, provider.BedrockConfig{DefaultModel: pc.Model, MaxTokens: 1024}), nil
	case "chatcompletion", "":
		return provider.NewChatCompletionProvider(provider.ChatCompletionConfig{
			BaseURL: pc.BaseURL,
			APIKey:  pc.APIKey,
			Model:   pc.Model,
			Dialect: provider.Dialect(pc.Dialect),
		}), nil
	default:
		return nil, fmt.Errorf("agentctl: unknown provider kind %q", pc.Kind)
	}
}

func buildAgent(cfg runConfig) (*agent.Agent, error) {
	primary, err := buildPrimaryProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	reasoningPolicy := policy.Default()
	if cfg.Threshold > 0 {
		reasoningPolicy.Threshold = cfg.Threshold
	}
	if cfg.ToolWeight > 0 {
		reasoningPolicy.ToolWeight = cfg.ToolWeight
	}

	zapLog, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("agentctl: build logger: %w", err)
	}

	var schemaCache *rpctool.SchemaCache
	if cfg.SchemaCache.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.SchemaCache.Addr, DB: cfg.SchemaCache.DB})
		schemaCache = rpctool.NewRedisSchemaCache(redisClient, cfg.SchemaCache.TTL)
	}

	a := agent.New(agent.Config{
		Primary:     primary,
		MaxSteps:    cfg.MaxSteps,
		MaxTokens:   cfg.MaxTokens,
		MaxRetries:  cfg.MaxRetries,
		Policy:      reasoningPolicy,
		SchemaCache: schemaCache,
		Logger:      telemetry.NewZapLogger(zapLog),
		Metrics:     telemetry.NewOTELMetrics("agentctl"),
		Tracer:      telemetry.NewOTELTracer("agentctl"),
	})

	for _, t := range cfg.Tools {
		var spec registry.ToolSpec
		switch {
		case t.Path != "":
			spec = registry.ConfigFile(t.Path, 10*time.Second)
		case t.URL != "":
			spec = registry.RemoteURL(t.URL, 10*time.Second)
		default:
			return nil, fmt.Errorf("agentctl: tool %q has neither url nor path", t.Name)
		}
		if err := a.RegisterTool(t.Name, spec); err != nil {
			return nil, fmt.Errorf("agentctl: register tool %q: %w", t.Name, err)
		}
	}
	return a, nil
}
