package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/kelseyhightower/envconfig"
)

// Provider converts text to a feature vector. Implementations may fail; the
// Generator recovers by falling back to the deterministic offline embedding.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EnvSettings is the environment-driven provider configuration
// (ADMEM_API_KEY, ADMEM_MODEL, ADMEM_TIMEOUT_MS).
type EnvSettings struct {
	APIKey    string `envconfig:"API_KEY"`
	Model     string `envconfig:"MODEL" default:"claude-3-5-haiku-latest"`
	TimeoutMs int    `envconfig:"TIMEOUT_MS" default:"10000"`
}

// LoadEnvSettings reads provider settings from the environment, falling back
// to ANTHROPIC_API_KEY for the credential.
func LoadEnvSettings() (*EnvSettings, error) {
	var settings EnvSettings
	if err := envconfig.Process("admem", &settings); err != nil {
		return nil, fmt.Errorf("read embedding env settings: %w", err)
	}
	if settings.APIKey == "" {
		settings.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return &settings, nil
}

const extractorSystemPrompt = "You are a semantic feature extractor. Given a text, " +
	"respond with only a JSON array of exactly 20 numbers between -1 and 1 that " +
	"capture its semantic content: topic, technology domain, sentiment, specificity, " +
	"and abstraction level. No prose, no markdown, just the array."

// ClaudeProvider asks the Anthropic Messages API to emit exactly FeatureCount
// floating-point features as a JSON array.
type ClaudeProvider struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewClaudeProvider builds a provider from environment settings. Returns nil
// when no API key is configured; callers treat a nil provider as
// fallback-only operation.
func NewClaudeProvider(settings *EnvSettings) *ClaudeProvider {
	if settings == nil || settings.APIKey == "" {
		return nil
	}
	return &ClaudeProvider{
		client:  anthropic.NewClient(option.WithAPIKey(settings.APIKey)),
		model:   settings.Model,
		timeout: time.Duration(settings.TimeoutMs) * time.Millisecond,
	}
}

// Embed requests features for the text. The call is bounded by the configured
// timeout; a slow provider is a failed provider, never a hung write path.
func (p *ClaudeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 512,
		System: []anthropic.TextBlockParam{
			{Text: extractorSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		reply.WriteString(block.Text)
	}

	features, err := parseFeatures(reply.String())
	if err != nil {
		return nil, err
	}

	return Pad(features), nil
}

// parseFeatures validates the provider payload: parseable JSON, an array,
// exactly FeatureCount numeric elements. Any violation is a failure, not a
// partial success.
func parseFeatures(payload string) ([]float32, error) {
	trimmed := strings.TrimSpace(payload)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var raw []float64
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("malformed embedding payload: %w", err)
	}
	if len(raw) != FeatureCount {
		return nil, fmt.Errorf("expected %d features, got %d", FeatureCount, len(raw))
	}

	features := make([]float32, FeatureCount)
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite feature at position %d", i)
		}
		features[i] = float32(v)
	}
	return features, nil
}
