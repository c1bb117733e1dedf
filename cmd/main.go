package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-chatbot/internal/config"
	"document-chatbot/internal/embedding"
	"document-chatbot/internal/helper"
	"document-chatbot/internal/llmservice"
	"document-chatbot/internal/models"
	"document-chatbot/internal/rag"
)

const configFilePath = "./configs/config.yaml"

type fileList []string

func (f *fileList) String() string {
	return strings.Join(*f, ",")
}

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	var files fileList
	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Var(&files, "file", "PDF file to process (repeatable)")
	query := flag.String("query", "", "Question to be answered")
	apiKeyFlag := flag.String("api-key", "", "API key (defaults to the env var named by api_key_env)")
	interactive := flag.Bool("interactive", false, "Start an interactive chat session")
	transcript := flag.String("transcript", "", "Write the conversation as HTML to this file on exit")
	dryRun := flag.Bool("dry-run", false, "Extract and chunk only, do not embed or save the index")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(cfg.Log)
	log.Debug().Str("embed_provider", cfg.EmbedLLM.Provider).Str("infer_provider", cfg.InferLLM.Provider).
		Int("chunk_size", cfg.RAG.ChunkSize).Int("chunk_overlap", cfg.RAG.ChunkOverlap).
		Str("index_path", cfg.RAG.IndexPath).Msg("Loaded config")

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Could not load .env file")
	}
	apiKey := *apiKeyFlag
	if apiKey == "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r, err := rag.NewRAG(cfg,
		embedding.NewProvider(&cfg.EmbedLLM),
		llmservice.NewGenerator(&cfg.InferLLM),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing pipeline")
	}

	session, err := models.NewSession()
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}

	if len(files) > 0 {
		if *dryRun {
			previewFiles(r, files)
			return
		}
		if !ingestFiles(ctx, r, files, apiKey) && !*interactive {
			os.Exit(1)
		}
	}

	if *query != "" {
		askQuestion(ctx, r, session, *query, apiKey)
	}

	if *interactive {
		runInteractive(ctx, r, session, apiKey)
	}

	if len(files) == 0 && *query == "" && !*interactive {
		flag.Usage()
		os.Exit(2)
	}

	if *transcript != "" {
		if err := writeTranscript(session, *transcript); err != nil {
			log.Fatal().Err(err).Msg("Error writing transcript")
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
}

func readFiles(paths []string) []models.File {
	var out []models.File
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Error reading file")
			continue
		}
		out = append(out, models.File{Name: filepath.Base(path), Data: data})
	}
	return out
}

func previewFiles(r *rag.RAG, paths []string) {
	result, chunks, err := r.Preview(readFiles(paths))
	if err != nil {
		fmt.Println(rag.UserMessage(err))
		return
	}
	helper.PrettyPrint(result)
	helper.PrettyPrint(chunks)
}

func ingestFiles(ctx context.Context, r *rag.RAG, paths []string, apiKey string) bool {
	result, err := r.Ingest(ctx, readFiles(paths), apiKey)
	if err != nil {
		fmt.Println(rag.UserMessage(err))
		return false
	}
	fmt.Printf("Processed %d document(s) into %d chunks.\n", result.Documents, result.Chunks)
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return true
}

func askQuestion(ctx context.Context, r *rag.RAG, session *models.Session, question, apiKey string) {
	answer, err := r.Ask(ctx, session, question, apiKey)
	if err != nil {
		fmt.Println(rag.UserMessage(err))
		return
	}
	fmt.Printf("%s\n\n", answer.Label())
}

// runInteractive reads one question per line. ":ingest a.pdf b.pdf" rebuilds
// the index, ":history" prints the conversation and ":quit" ends the session.
func runInteractive(ctx context.Context, r *rag.RAG, session *models.Session, apiKey string) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Ask a question about your documents (:ingest <files>, :history, :quit)")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ":quit" || line == ":q":
			return
		case line == ":history":
			fmt.Println(session.Transcript())
		case strings.HasPrefix(line, ":ingest"):
			paths := strings.Fields(strings.TrimPrefix(line, ":ingest"))
			if len(paths) == 0 {
				fmt.Println("usage: :ingest <file.pdf> [more.pdf ...]")
				continue
			}
			ingestFiles(ctx, r, paths, apiKey)
		default:
			askQuestion(ctx, r, session, line, apiKey)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func writeTranscript(session *models.Session, path string) error {
	body, err := helper.RenderHTML(session.Transcript())
	if err != nil {
		return err
	}
	page := fmt.Sprintf("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Conversation %s</title></head><body>\n%s</body></html>\n", session.ID, body)
	if dir := filepath.Dir(path); dir != "." {
		if err := helper.CreateFolder(dir); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	log.Info().Str("path", path).Int("entries", session.Len()).Msg("Wrote transcript")
	return nil
}
