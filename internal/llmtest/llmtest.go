// Package llmtest provides scripted langchaingo models and deterministic
// embedders for tests.
package llmtest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"document-chatbot/internal/config"
)

// ErrBadKey mimics a provider rejecting the API key
var ErrBadKey = errors.New("API returned unexpected status code: 401: API key not valid")

// Model is an llms.Model whose replies come from Reply.
type Model struct {
	// ValidKey, when set, makes every call with another key fail with ErrBadKey
	ValidKey string
	Reply    func(prompt string) (string, error)
	// Response, when set, is returned as is
	Response *llms.ContentResponse
	// Block makes every call wait until its context is done
	Block bool

	mu           sync.Mutex
	created      int
	prompts      []string
	temperatures []float64
}

// Factory returns a model factory bound to m
func (m *Model) Factory() func(ctx context.Context, cfg *config.LLMConfig, apiKey string) (llms.Model, error) {
	return func(ctx context.Context, cfg *config.LLMConfig, apiKey string) (llms.Model, error) {
		m.mu.Lock()
		m.created++
		m.mu.Unlock()
		return &boundModel{Model: m, apiKey: apiKey}, nil
	}
}

// Created returns how many clients the factory has built
func (m *Model) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// Prompts returns every prompt received so far
func (m *Model) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Temperatures returns the temperature of every call so far
func (m *Model) Temperatures() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.temperatures...)
}

type boundModel struct {
	*Model
	apiKey string
}

func (b *boundModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	var prompt strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				prompt.WriteString(tc.Text)
			}
		}
	}

	b.mu.Lock()
	b.prompts = append(b.prompts, prompt.String())
	b.temperatures = append(b.temperatures, opts.Temperature)
	b.mu.Unlock()

	if b.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.ValidKey != "" && b.apiKey != b.ValidKey {
		return nil, ErrBadKey
	}
	if b.Response != nil {
		return b.Response, nil
	}
	reply := "ok"
	if b.Reply != nil {
		var err error
		reply, err = b.Reply(prompt.String())
		if err != nil {
			return nil, err
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (b *boundModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, b, prompt, options...)
}

// Embedder hashes words into Dim buckets, so texts sharing words get similar
// vectors.
type Embedder struct {
	Dim int
	// ValidKey, when set, makes every call with another key fail with ErrBadKey
	ValidKey string
	// Err, when set, is returned from every call
	Err error
	// Vectors, when set, replaces the computed vectors
	Vectors [][]float32
	// Block makes every call wait until its context is done
	Block bool

	mu      sync.Mutex
	created int
	batches [][]string
}

// Factory returns an embedder client factory bound to e
func (e *Embedder) Factory() func(ctx context.Context, cfg *config.LLMConfig, apiKey string) (embeddings.EmbedderClient, error) {
	return func(ctx context.Context, cfg *config.LLMConfig, apiKey string) (embeddings.EmbedderClient, error) {
		e.mu.Lock()
		e.created++
		e.mu.Unlock()
		return &boundEmbedder{Embedder: e, apiKey: apiKey}, nil
	}
}

// Created returns how many clients the factory has built
func (e *Embedder) Created() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.created
}

// Calls returns how many network calls were made
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.batches)
}

// Batches returns the texts of every call
func (e *Embedder) Batches() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.batches...)
}

type boundEmbedder struct {
	*Embedder
	apiKey string
}

func (b *boundEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	b.mu.Lock()
	b.batches = append(b.batches, append([]string(nil), texts...))
	b.mu.Unlock()

	if b.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.ValidKey != "" && b.apiKey != b.ValidKey {
		return nil, ErrBadKey
	}
	if b.Err != nil {
		return nil, b.Err
	}
	if b.Vectors != nil {
		return b.Vectors, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = HashVector(text, b.Dim)
	}
	return out, nil
}

// HashVector is the bag-of-words vector the fake embedder produces
func HashVector(text string, dim int) []float32 {
	if dim <= 0 {
		dim = 64
	}
	v := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(dim)]++
	}
	// keep the vector non-zero so cosine similarity is defined
	v[dim-1] += 0.01
	return v
}
