package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-chatbot/internal/config"
	"document-chatbot/internal/llmservice"
	"document-chatbot/internal/models"
)

// ClientFactory builds the embedding client, once per API key
type ClientFactory func(ctx context.Context, llmConfig *config.LLMConfig, apiKey string) (embeddings.EmbedderClient, error)

// Provider turns chunks and questions into vectors through the configured
// embedding model.
type Provider struct {
	cfg       *config.LLMConfig
	newClient ClientFactory
	clients   llmservice.ClientCache[embeddings.EmbedderClient]
}

type Option func(*Provider)

// WithClientFactory replaces the provider client, mainly for tests
func WithClientFactory(f ClientFactory) Option {
	return func(p *Provider) {
		p.newClient = f
	}
}

func NewProvider(llmConfig *config.LLMConfig, opts ...Option) *Provider {
	p := &Provider{
		cfg: llmConfig,
		newClient: func(ctx context.Context, llmConfig *config.LLMConfig, apiKey string) (embeddings.EmbedderClient, error) {
			return llmservice.NewClient(ctx, llmConfig, apiKey)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed returns one vector per text, in order, using a single batched call
// when the batch size allows it.
func (p *Provider) Embed(ctx context.Context, texts []string, apiKey string) ([][]float32, error) {
	if err := p.checkKey(apiKey); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	ctx, cancel := llmservice.WithTimeout(ctx, p.cfg.TimeoutSecs)
	defer cancel()

	embedder, err := p.embedder(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, llmservice.ClassifyError(err, models.ErrEmbedding)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", models.ErrEmbedding, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector for text %d", models.ErrEmbedding, i)
		}
	}

	log.Debug().Int("texts", len(texts)).Int("dimensions", len(vectors[0])).Msg("Generated embeddings")
	return vectors, nil
}

// EmbedQuery returns the vector of a single question
func (p *Provider) EmbedQuery(ctx context.Context, text string, apiKey string) ([]float32, error) {
	if err := p.checkKey(apiKey); err != nil {
		return nil, err
	}

	ctx, cancel := llmservice.WithTimeout(ctx, p.cfg.TimeoutSecs)
	defer cancel()

	embedder, err := p.embedder(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	vector, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, llmservice.ClassifyError(err, models.ErrEmbedding)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", models.ErrEmbedding)
	}
	return vector, nil
}

func (p *Provider) checkKey(apiKey string) error {
	if p.cfg.RequiresKey() && strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%w: missing API key", models.ErrAuthentication)
	}
	return nil
}

func (p *Provider) embedder(ctx context.Context, apiKey string) (*embeddings.EmbedderImpl, error) {
	client, err := p.clients.Get(apiKey, func() (embeddings.EmbedderClient, error) {
		return p.newClient(context.WithoutCancel(ctx), p.cfg, apiKey)
	})
	if err != nil {
		return nil, llmservice.ClassifyError(err, models.ErrEmbedding)
	}
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(p.cfg.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}
