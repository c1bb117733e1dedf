package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"document-chatbot/internal/chromemdb"
	"document-chatbot/internal/config"
	"document-chatbot/internal/embedding"
	"document-chatbot/internal/llmservice"
	"document-chatbot/internal/models"
	"document-chatbot/internal/parser"
)

// RAG runs the ingest and answer flows against a single index directory.
type RAG struct {
	cfg       *config.Config
	chunker   parser.Chunker
	embedder  *embedding.Provider
	generator *llmservice.Generator
	detector  *Detector
	indexOpts chromemdb.Options
}

func NewRAG(cfg *config.Config, embedder *embedding.Provider, generator *llmservice.Generator) (*RAG, error) {
	chunker, err := parser.NewChunker(cfg.RAG)
	if err != nil {
		return nil, err
	}
	return &RAG{
		cfg:       cfg,
		chunker:   chunker,
		embedder:  embedder,
		generator: generator,
		detector:  NewDetector(cfg.RAG),
		indexOpts: chromemdb.OptionsFromConfig(cfg.RAG),
	}, nil
}

// Ingest extracts, chunks and embeds files and replaces the persisted index
// with the result. On failure the previous index is left as it was.
func (r *RAG) Ingest(ctx context.Context, files []models.File, apiKey string) (result *models.IngestResult, err error) {
	stage := StageExtracting
	defer recoverStage(&stage, &err)
	start := time.Now()

	fail := func(err error) (*models.IngestResult, error) {
		log.Error().Err(err).Str("stage", string(stage)).Msg("Ingest failed")
		return nil, &StageError{Stage: stage, Err: err}
	}

	text, warnings, err := extract(files)
	if err != nil {
		return fail(err)
	}

	stage = StageChunking
	chunks, err := r.chunker.Split(text)
	if err != nil {
		return fail(err)
	}
	log.Info().Int("characters", len([]rune(text))).Int("chunks", len(chunks)).Msg("Split text")

	stage = StageEmbedding
	vectors, err := r.embedder.Embed(ctx, chunks, apiKey)
	if err != nil {
		return fail(err)
	}

	stage = StageIndexing
	idx, err := chromemdb.Build(ctx, chunks, vectors, r.indexOpts)
	if err != nil {
		return fail(err)
	}
	if err := idx.Save(r.cfg.RAG.IndexPath); err != nil {
		return fail(err)
	}

	log.Info().Int("chunks", len(chunks)).Str("location", r.cfg.RAG.IndexPath).
		Dur("took", time.Since(start)).Msg("Documents processed")

	return &models.IngestResult{
		Documents:  len(files),
		Characters: len([]rune(text)),
		Chunks:     len(chunks),
		Location:   r.cfg.RAG.IndexPath,
		Warnings:   warnings,
	}, nil
}

// Preview extracts and chunks files without embedding or saving anything.
func (r *RAG) Preview(files []models.File) (result *models.IngestResult, chunks []string, err error) {
	stage := StageExtracting
	defer recoverStage(&stage, &err)

	text, warnings, err := extract(files)
	if err != nil {
		return nil, nil, &StageError{Stage: stage, Err: err}
	}
	stage = StageChunking
	chunks, err = r.chunker.Split(text)
	if err != nil {
		return nil, nil, &StageError{Stage: stage, Err: err}
	}
	return &models.IngestResult{
		Documents:  len(files),
		Characters: len([]rune(text)),
		Chunks:     len(chunks),
		Warnings:   warnings,
	}, chunks, nil
}

// extract fails only when no file yielded any text
func extract(files []models.File) (string, []string, error) {
	log.Info().Int("documents", len(files)).Msg("Extracting text")
	text, issues := parser.ExtractText(files)
	warnings := make([]string, 0, len(issues))
	for _, issue := range issues {
		log.Warn().Err(issue).Msg("Skipped unreadable content")
		warnings = append(warnings, issue.Error())
	}
	if strings.TrimSpace(text) == "" {
		cause := errors.Join(append([]error{errors.New("no text found")}, issues...)...)
		return "", warnings, fmt.Errorf("%w: %w", models.ErrExtraction, cause)
	}
	return text, warnings, nil
}

// Ask answers question from the persisted index, falling back to the model's
// general knowledge when the retrieved context does not cover it. The exchange
// is appended to session, which may be nil.
func (r *RAG) Ask(ctx context.Context, session *models.Session, question string, apiKey string) (answer *models.Answer, err error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.ErrEmptyQuestion
	}

	defer func() {
		if session == nil {
			return
		}
		entry := models.ConversationEntry{Question: question}
		if err != nil {
			entry.Err = UserMessage(err)
		} else {
			entry.Answer = answer.Label()
		}
		session.Append(entry)
	}()

	stage := StageLoading
	defer recoverStage(&stage, &err)

	fail := func(err error) (*models.Answer, error) {
		log.Error().Err(err).Str("stage", string(stage)).Msg("Answer failed")
		return nil, &StageError{Stage: stage, Err: err}
	}

	idx, err := chromemdb.Load(ctx, r.cfg.RAG.IndexPath, r.indexOpts)
	if err != nil {
		return fail(err)
	}

	stage = StageEmbeddingQuery
	vector, err := r.embedder.EmbedQuery(ctx, question, apiKey)
	if err != nil {
		return fail(err)
	}

	stage = StageRetrieving
	results, err := idx.Search(ctx, vector, r.cfg.RAG.TopK)
	if err != nil {
		return fail(err)
	}
	chunks := make([]string, len(results))
	for i, res := range results {
		chunks[i] = res.Text
	}
	log.Debug().Int("results", len(results)).Msg("Retrieved context")

	stage = StageGenerating
	raw, err := r.generator.AnswerWithContext(ctx, question, chunks, apiKey)
	if err != nil {
		return fail(err)
	}

	answered, text := r.detector.Detect(raw)
	if answered {
		return &models.Answer{Question: question, Text: text, Source: models.SourceDocument, Sources: results}, nil
	}

	log.Info().Msg("Context does not cover the question, asking without it")
	text, err = r.generator.AnswerWithoutContext(ctx, question, apiKey)
	if err != nil {
		return fail(err)
	}
	return &models.Answer{Question: question, Text: text, Source: models.SourceExternal, Sources: results}, nil
}
