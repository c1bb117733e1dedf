package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"document-chatbot/internal/models"
)

const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"

	ChunkerWindow    = "window"
	ChunkerRecursive = "recursive"

	DetectionMarker = "marker"
	DetectionPhrase = "phrase"
)

const (
	defaultChunkSize      = 1000 // characters
	defaultChunkOverlap   = 200  // characters
	defaultTopK           = 4
	defaultIndexPath      = "./doc_index"
	defaultCollectionName = "documents"
	defaultTimeoutSecs    = 60
	defaultBatchSize      = 512
	defaultTemperature    = 0.3
	defaultAPIKeyEnv      = "GOOGLE_API_KEY"
)

// LLMConfig selects a model provider. The API key is never part of the config;
// it is supplied per session.
type LLMConfig struct {
	Provider    string   `yaml:"provider"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	TimeoutSecs int      `yaml:"timeout_secs"`
	BatchSize   int      `yaml:"batch_size"`
}

// GetTemperature returns the sampling temperature; unset means the default
func (c *LLMConfig) GetTemperature() float64 {
	if c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

// RequiresKey reports whether calls to this provider need an API key
func (c *LLMConfig) RequiresKey() bool {
	return c.Provider != ProviderOllama
}

// RAGConfig covers chunking, indexing and retrieval
type RAGConfig struct {
	ChunkSize       int      `yaml:"chunk_size"`
	ChunkOverlap    int      `yaml:"chunk_overlap"`
	Chunker         string   `yaml:"chunker"`
	TopK            int      `yaml:"top_k"`
	IndexPath       string   `yaml:"index_path"`
	CollectionName  string   `yaml:"collection_name"`
	EncryptionKey   string   `yaml:"encryption_key"`
	Compress        bool     `yaml:"compress"`
	Detection       string   `yaml:"detection"`
	FallbackPhrases []string `yaml:"fallback_phrases"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	EmbedLLM  LLMConfig `yaml:"embed_llm"`
	InferLLM  LLMConfig `yaml:"infer_llm"`
	RAG       RAGConfig `yaml:"rag"`
	Log       LogConfig `yaml:"log"`
	APIKeyEnv string    `yaml:"api_key_env"`
}

// LoadConfig reads the YAML config at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = ProviderGoogleAI
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = defaultEmbeddingModel(cfg.EmbedLLM.Provider)
	}
	applyLLMDefaults(&cfg.EmbedLLM)

	if cfg.InferLLM.Provider == "" {
		cfg.InferLLM.Provider = ProviderGoogleAI
	}
	if cfg.InferLLM.Model == "" {
		cfg.InferLLM.Model = defaultInferenceModel(cfg.InferLLM.Provider)
	}
	applyLLMDefaults(&cfg.InferLLM)

	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
		if cfg.RAG.ChunkOverlap == 0 {
			cfg.RAG.ChunkOverlap = defaultChunkOverlap
		}
	}
	if cfg.RAG.Chunker == "" {
		cfg.RAG.Chunker = ChunkerWindow
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.IndexPath == "" {
		cfg.RAG.IndexPath = defaultIndexPath
	}
	if cfg.RAG.CollectionName == "" {
		cfg.RAG.CollectionName = defaultCollectionName
	}
	if cfg.RAG.Detection == "" {
		cfg.RAG.Detection = DetectionMarker
	}
	if len(cfg.RAG.FallbackPhrases) == 0 {
		cfg.RAG.FallbackPhrases = append([]string(nil), models.DefaultFallbackPhrases...)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = defaultAPIKeyEnv
	}
}

func applyLLMDefaults(c *LLMConfig) {
	if c.BaseURL == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.BaseURL = "https://api.openai.com/v1"
		case ProviderOllama:
			c.BaseURL = "http://localhost:11434"
		}
	}
	if c.Temperature == nil {
		t := defaultTemperature
		c.Temperature = &t
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = defaultTimeoutSecs
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
}

func defaultEmbeddingModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "text-embedding-3-small"
	case ProviderOllama:
		return "nomic-embed-text"
	default:
		return "text-embedding-004"
	}
}

func defaultInferenceModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderOllama:
		return "llama3.2"
	default:
		return "gemini-2.0-flash"
	}
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	for name, llm := range map[string]LLMConfig{"embed_llm": c.EmbedLLM, "infer_llm": c.InferLLM} {
		switch llm.Provider {
		case ProviderGoogleAI, ProviderOpenAI, ProviderOllama:
		default:
			return fmt.Errorf("%s: unknown provider %q", name, llm.Provider)
		}
		if llm.TimeoutSecs < 0 || llm.BatchSize < 0 {
			return fmt.Errorf("%s: timeout_secs and batch_size must not be negative", name)
		}
		if llm.GetTemperature() < 0 {
			return fmt.Errorf("%s: temperature must not be negative", name)
		}
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag: chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag: chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap)
	}
	switch c.RAG.Chunker {
	case ChunkerWindow, ChunkerRecursive:
	default:
		return fmt.Errorf("rag: unknown chunker %q", c.RAG.Chunker)
	}
	switch c.RAG.Detection {
	case DetectionMarker, DetectionPhrase:
	default:
		return fmt.Errorf("rag: unknown detection mode %q", c.RAG.Detection)
	}
	if c.RAG.TopK < 0 {
		return fmt.Errorf("rag: top_k must not be negative, got %d", c.RAG.TopK)
	}
	if c.RAG.EncryptionKey != "" && len(c.RAG.EncryptionKey) != 32 {
		return fmt.Errorf("rag: encryption_key must be 32 bytes long")
	}
	return nil
}
