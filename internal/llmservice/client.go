package llmservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-chatbot/internal/config"
)

// Client is what every supported provider offers: text generation and
// embeddings.
type Client interface {
	llms.Model
	embeddings.EmbedderClient
}

// NewClient creates a provider client for one call. The API key comes from the
// session and is never logged.
func NewClient(ctx context.Context, llmConfig *config.LLMConfig, apiKey string) (Client, error) {
	log.Debug().
		Str("provider", llmConfig.Provider).
		Str("model", llmConfig.Model).
		Str("base_url", llmConfig.BaseURL).
		Msg("Creating model client")

	switch llmConfig.Provider {
	case config.ProviderGoogleAI:
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(apiKey),
			googleai.WithDefaultModel(llmConfig.Model),
			googleai.WithDefaultEmbeddingModel(llmConfig.Model),
		)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case config.ProviderOpenAI:
		llm, err := openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
			openai.WithModel(llmConfig.Model),
			openai.WithEmbeddingModel(llmConfig.Model),
		)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, err
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", llmConfig.Provider)
	}
}

// WithTimeout bounds ctx by the configured number of seconds. Zero means no
// extra bound beyond ctx itself.
func WithTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}
