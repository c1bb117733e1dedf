package llmservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"document-chatbot/internal/config"
	"document-chatbot/internal/llmtest"
	"document-chatbot/internal/models"
)

func newTestGenerator(m *llmtest.Model) *Generator {
	cfg := config.Default().InferLLM
	return NewGenerator(&cfg, WithModelFactory(m.Factory()))
}

func TestGenerator_AnswerWithContext_PromptHoldsChunksVerbatim(t *testing.T) {
	m := &llmtest.Model{Reply: func(string) (string, error) { return "Paris.\nANSWERED: YES", nil }}
	g := newTestGenerator(m)

	chunks := []string{"Paris is the capital of France.", "  indented\nmulti-line chunk  "}
	out, err := g.AnswerWithContext(context.Background(), "What is the capital of France?", chunks, "key")
	require.NoError(t, err)
	assert.Equal(t, "Paris.\nANSWERED: YES", out)

	prompts := m.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], chunks[0]+models.ContextSeparator+chunks[1])
	assert.Contains(t, prompts[0], "What is the capital of France?")
	assert.Contains(t, prompts[0], "The provided context does not mention")
	assert.Contains(t, prompts[0], "ANSWERED: NO")
	assert.Equal(t, []float64{0.3}, m.Temperatures())
}

func TestGenerator_AnswerWithoutContext(t *testing.T) {
	m := &llmtest.Model{Reply: func(string) (string, error) { return "General answer", nil }}
	g := newTestGenerator(m)

	out, err := g.AnswerWithoutContext(context.Background(), "Why is the sky blue?", "key")
	require.NoError(t, err)
	assert.Equal(t, "General answer", out)

	prompts := m.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Why is the sky blue?")
	assert.NotContains(t, prompts[0], "Context:")
}

func TestGenerator_StripsThinkBlock(t *testing.T) {
	m := &llmtest.Model{Reply: func(string) (string, error) {
		return "<think>\nlet me reason\n</think>\nFinal answer", nil
	}}
	out, err := newTestGenerator(m).AnswerWithoutContext(context.Background(), "q", "key")
	require.NoError(t, err)
	assert.Equal(t, "Final answer", out)
}

func TestGenerator_MissingKey(t *testing.T) {
	m := &llmtest.Model{}
	_, err := newTestGenerator(m).AnswerWithoutContext(context.Background(), "q", "  ")
	assert.ErrorIs(t, err, models.ErrAuthentication)
	assert.Empty(t, m.Prompts(), "no call without a key")
}

func TestGenerator_OllamaNeedsNoKey(t *testing.T) {
	m := &llmtest.Model{}
	cfg := config.LLMConfig{Provider: config.ProviderOllama, Model: "llama3.2"}
	g := NewGenerator(&cfg, WithModelFactory(m.Factory()))

	out, err := g.AnswerWithoutContext(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestGenerator_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		model *llmtest.Model
		want  error
	}{
		{"rejected key", &llmtest.Model{ValidKey: "good"}, models.ErrAuthentication},
		{"rate limited", &llmtest.Model{Reply: func(string) (string, error) {
			return "", errors.New("status code: 429")
		}}, models.ErrTransient},
		{"provider error", &llmtest.Model{Reply: func(string) (string, error) {
			return "", errors.New("safety filter blocked the response")
		}}, models.ErrModelInvocation},
		{"no choices", &llmtest.Model{Response: &llms.ContentResponse{}}, models.ErrModelInvocation},
		{"blank answer", &llmtest.Model{Reply: func(string) (string, error) { return "  \n", nil }}, models.ErrModelInvocation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestGenerator(tc.model).AnswerWithContext(context.Background(), "q", []string{"c"}, "bad")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGenerator_FactoryError(t *testing.T) {
	cfg := config.Default().InferLLM
	g := NewGenerator(&cfg, WithModelFactory(func(ctx context.Context, _ *config.LLMConfig, _ string) (llms.Model, error) {
		return nil, errors.New("dial tcp: connection refused")
	}))

	_, err := g.AnswerWithoutContext(context.Background(), "q", "key")
	assert.ErrorIs(t, err, models.ErrTransient)
}

func TestGenerator_CanceledContext(t *testing.T) {
	m := &llmtest.Model{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestGenerator(m).AnswerWithoutContext(ctx, "q", "key")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &config.LLMConfig{Provider: "nope"}, "key")
	assert.Error(t, err)
}

func TestGenerator_ReusesClientPerKey(t *testing.T) {
	m := &llmtest.Model{}
	g := newTestGenerator(m)

	for i := 0; i < 3; i++ {
		_, err := g.AnswerWithoutContext(context.Background(), "q", "key")
		require.NoError(t, err)
	}
	_, err := g.AnswerWithContext(context.Background(), "q", []string{"c"}, "key")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Created())

	_, err = g.AnswerWithoutContext(context.Background(), "q", "other-key")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Created())
}

func TestGenerator_FailedClientIsNotCached(t *testing.T) {
	calls := 0
	cfg := config.Default().InferLLM
	g := NewGenerator(&cfg, WithModelFactory(func(ctx context.Context, _ *config.LLMConfig, apiKey string) (llms.Model, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return (&llmtest.Model{}).Factory()(ctx, nil, apiKey)
	}))

	_, err := g.AnswerWithoutContext(context.Background(), "q", "key")
	require.Error(t, err)
	_, err = g.AnswerWithoutContext(context.Background(), "q", "key")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGenerator_TimeoutBoundsCall(t *testing.T) {
	m := &llmtest.Model{Block: true}
	cfg := config.Default().InferLLM
	cfg.TimeoutSecs = 1
	g := NewGenerator(&cfg, WithModelFactory(m.Factory()))

	start := time.Now()
	_, err := g.AnswerWithoutContext(context.Background(), "q", "key")
	assert.ErrorIs(t, err, models.ErrTransient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)

	// the cached client is still usable once the model answers again
	m.Block = false
	out, err := g.AnswerWithoutContext(context.Background(), "q", "key")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestGenerator_ZeroTemperature(t *testing.T) {
	m := &llmtest.Model{}
	cfg := config.Default().InferLLM
	zero := 0.0
	cfg.Temperature = &zero
	g := NewGenerator(&cfg, WithModelFactory(m.Factory()))

	_, err := g.AnswerWithoutContext(context.Background(), "q", "key")
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, m.Temperatures())
}
