package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admem/internal/logging"
)

func TestFallback_Deterministic(t *testing.T) {
	a := Fallback("Use PostgreSQL for persistence")
	b := Fallback("Use PostgreSQL for persistence")
	assert.Equal(t, a, b, "identical text must yield a bit-identical vector")

	c := Fallback("Use MongoDB for persistence")
	assert.NotEqual(t, a, c)
}

func TestFallback_Shape(t *testing.T) {
	vec := Fallback("short text")
	require.Len(t, vec, Dimensions)

	for i := 0; i < FeatureCount; i++ {
		assert.GreaterOrEqual(t, vec[i], float32(-1), "feature %d below range", i)
		assert.LessOrEqual(t, vec[i], float32(1), "feature %d above range", i)
	}
	for i := FeatureCount; i < Dimensions; i++ {
		require.Zero(t, vec[i], "padding must be zero at %d", i)
	}
}

func TestFallback_LengthFeaturesSaturate(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}
	vec := Fallback(string(long))
	assert.Equal(t, float32(1), vec[2], "length feature caps at 1")
}

func TestPad(t *testing.T) {
	padded := Pad([]float32{1, 2, 3})
	require.Len(t, padded, Dimensions)
	assert.Equal(t, float32(1), padded[0])
	assert.Zero(t, padded[3])
}

func TestSimilarity(t *testing.T) {
	vec := Fallback("some decision text")

	self, err := Similarity(vec, vec)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self, 1e-6)

	_, err = Similarity(vec, []float32{1, 2})
	require.Error(t, err)

	zero := make([]float32, Dimensions)
	score, err := Similarity(vec, zero)
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestComposeDecisionText(t *testing.T) {
	text := ComposeDecisionText("Use PostgreSQL", "relational constraints", "tech_stack")
	assert.Equal(t, "tech_stack: Use PostgreSQL\nrelational constraints", text)
}

func TestParseFeatures(t *testing.T) {
	valid := "[0.1, -0.2, 0.3, 0.4, -0.5, 0.6, 0.7, -0.8, 0.9, 0.0, " +
		"0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0]"

	features, err := parseFeatures(valid)
	require.NoError(t, err)
	require.Len(t, features, FeatureCount)
	assert.InDelta(t, 0.1, features[0], 1e-6)

	fenced := "```json\n" + valid + "\n```"
	features, err = parseFeatures(fenced)
	require.NoError(t, err)
	assert.Len(t, features, FeatureCount)

	cases := map[string]string{
		"prose":       "here are your numbers: 0.1, 0.2",
		"wrong count": "[0.1, 0.2, 0.3]",
		"empty":       "",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseFeatures(payload)
			require.Error(t, err)
		})
	}
}

// failingProvider always errors, standing in for timeouts and malformed
// responses
type failingProvider struct{ calls int }

func (p *failingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	return nil, errors.New("provider unavailable")
}

func TestGenerator_FallsBackOnProviderFailure(t *testing.T) {
	provider := &failingProvider{}
	gen, err := NewGenerator(provider, logging.Discard())
	require.NoError(t, err)
	defer gen.Close()

	vec := gen.Embed(context.Background(), "some decision")
	require.Len(t, vec, Dimensions)
	assert.Equal(t, Fallback("some decision"), vec, "failure degrades to the offline embedding")
	assert.Equal(t, 1, provider.calls)
}

type fixedProvider struct {
	vec   []float32
	calls int
}

func (p *fixedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	return p.vec, nil
}

func TestGenerator_CachesByText(t *testing.T) {
	provider := &fixedProvider{vec: Pad([]float32{0.5})}
	gen, err := NewGenerator(provider, logging.Discard())
	require.NoError(t, err)
	defer gen.Close()

	ctx := context.Background()
	first := gen.Embed(ctx, "cached text")
	gen.cache.Wait()
	second := gen.Embed(ctx, "cached text")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls, "second call must come from the cache")
}

func TestGenerator_NilProviderUsesFallback(t *testing.T) {
	gen, err := NewGenerator(nil, logging.Discard())
	require.NoError(t, err)
	defer gen.Close()

	vec := gen.EmbedDecision(context.Background(), "Use PostgreSQL", "relational constraints", "tech_stack")
	expected := Fallback(ComposeDecisionText("Use PostgreSQL", "relational constraints", "tech_stack"))
	assert.Equal(t, expected, vec)
}
