package embedding

import (
	"context"

	"github.com/dgraph-io/ristretto"

	"admem/internal/logging"
)

// Generator is the embedding entry point used by the decision service. It
// caches vectors by composed text and recovers every provider failure with
// the deterministic fallback: Embed never fails.
type Generator struct {
	provider Provider // nil means fallback-only
	cache    *ristretto.Cache
	logger   *logging.Logger
}

// NewGenerator creates a generator over an optional provider
func NewGenerator(provider Provider, logger *logging.Logger) (*Generator, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14,
		MaxCost:     1 << 24, // ~16MB of cached vectors
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Generator{
		provider: provider,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Embed produces the vector for a text. Provider timeouts and malformed
// responses degrade to the offline fallback; they are never surfaced.
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	if cached, ok := g.cache.Get(text); ok {
		if vec, ok := cached.([]float32); ok {
			return vec
		}
	}

	var vec []float32
	if g.provider != nil {
		generated, err := g.provider.Embed(ctx, text)
		if err != nil {
			g.logger.Warn("Embedding provider failed, using fallback", map[string]interface{}{
				"error":      err.Error(),
				"textLength": len(text),
			})
		} else {
			vec = generated
		}
	}
	if vec == nil {
		vec = Fallback(text)
	}

	g.cache.Set(text, vec, int64(len(vec)*4))
	return vec
}

// EmbedDecision embeds the canonical composed form of a decision
func (g *Generator) EmbedDecision(ctx context.Context, decision, reasoning, decisionType string) []float32 {
	return g.Embed(ctx, ComposeDecisionText(decision, reasoning, decisionType))
}

// EmbedQuery embeds a free-text search query
func (g *Generator) EmbedQuery(ctx context.Context, query string) []float32 {
	return g.Embed(ctx, query)
}

// Close releases the cache
func (g *Generator) Close() {
	g.cache.Close()
}
