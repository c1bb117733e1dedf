package llmservice

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"document-chatbot/internal/config"
	"document-chatbot/internal/models"
)

// ModelFactory builds the generation model, once per API key
type ModelFactory func(ctx context.Context, llmConfig *config.LLMConfig, apiKey string) (llms.Model, error)

// Generator asks the language model for answers, with or without document
// context.
type Generator struct {
	cfg      *config.LLMConfig
	newModel ModelFactory
	clients  ClientCache[llms.Model]
	thinkRe  *regexp.Regexp
}

type GeneratorOption func(*Generator)

// WithModelFactory replaces the provider client, mainly for tests
func WithModelFactory(f ModelFactory) GeneratorOption {
	return func(g *Generator) {
		g.newModel = f
	}
}

func NewGenerator(llmConfig *config.LLMConfig, opts ...GeneratorOption) *Generator {
	g := &Generator{
		cfg: llmConfig,
		newModel: func(ctx context.Context, llmConfig *config.LLMConfig, apiKey string) (llms.Model, error) {
			return NewClient(ctx, llmConfig, apiKey)
		},
		thinkRe: regexp.MustCompile(models.ThinkTag),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AnswerWithContext answers from the supplied chunks, which are placed in the
// prompt verbatim. The model may reply that the context is insufficient.
func (g *Generator) AnswerWithContext(ctx context.Context, question string, chunks []string, apiKey string) (string, error) {
	prompt := fmt.Sprintf(models.ContextPromptTemplate, strings.Join(chunks, models.ContextSeparator), question)
	log.Debug().Int("chunks", len(chunks)).Msg("Generating answer from context")
	return g.GenerateContent(ctx, prompt, apiKey)
}

// AnswerWithoutContext answers from the model's general knowledge
func (g *Generator) AnswerWithoutContext(ctx context.Context, question string, apiKey string) (string, error) {
	prompt := fmt.Sprintf(models.GeneralPromptTemplate, question)
	log.Debug().Msg("Generating answer from general knowledge")
	return g.GenerateContent(ctx, prompt, apiKey)
}

// GenerateContent sends a single prompt and returns the model's text with any
// reasoning block removed.
func (g *Generator) GenerateContent(ctx context.Context, prompt string, apiKey string) (string, error) {
	if g.cfg.RequiresKey() && strings.TrimSpace(apiKey) == "" {
		return "", fmt.Errorf("%w: missing API key", models.ErrAuthentication)
	}

	ctx, cancel := WithTimeout(ctx, g.cfg.TimeoutSecs)
	defer cancel()

	// the client outlives this call, so it must not inherit its deadline
	llm, err := g.clients.Get(apiKey, func() (llms.Model, error) {
		return g.newModel(context.WithoutCancel(ctx), g.cfg, apiKey)
	})
	if err != nil {
		return "", ClassifyError(err, models.ErrModelInvocation)
	}

	msgContent := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	res, err := llm.GenerateContent(ctx, msgContent, llms.WithTemperature(g.cfg.GetTemperature()))
	if err != nil {
		return "", ClassifyError(err, models.ErrModelInvocation)
	}
	if res == nil || len(res.Choices) == 0 || res.Choices[0] == nil {
		return "", fmt.Errorf("%w: response has no choices", models.ErrModelInvocation)
	}

	text := strings.TrimSpace(g.thinkRe.ReplaceAllString(res.Choices[0].Content, ""))
	if text == "" {
		return "", fmt.Errorf("%w: empty answer", models.ErrModelInvocation)
	}
	return text, nil
}
