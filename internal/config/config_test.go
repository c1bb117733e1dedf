package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.Equal(t, ChunkerWindow, cfg.RAG.Chunker)
	assert.Equal(t, DetectionMarker, cfg.RAG.Detection)
	assert.Equal(t, ProviderGoogleAI, cfg.EmbedLLM.Provider)
	assert.Equal(t, ProviderGoogleAI, cfg.InferLLM.Provider)
	assert.Equal(t, 0.3, cfg.InferLLM.GetTemperature())
	assert.Equal(t, "GOOGLE_API_KEY", cfg.APIKeyEnv)
	assert.NotEmpty(t, cfg.RAG.FallbackPhrases)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileOverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
embed_llm:
  provider: ollama
infer_llm:
  provider: openai
  model: gpt-test
  timeout_secs: 5
rag:
  chunk_size: 500
  chunk_overlap: 50
  chunker: recursive
  index_path: /tmp/idx
log:
  level: debug
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.EmbedLLM.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.EmbedLLM.Model)
	assert.Equal(t, "http://localhost:11434", cfg.EmbedLLM.BaseURL)
	assert.False(t, cfg.EmbedLLM.RequiresKey())

	assert.Equal(t, "gpt-test", cfg.InferLLM.Model)
	assert.Equal(t, 5, cfg.InferLLM.TimeoutSecs)
	assert.Equal(t, "https://api.openai.com/v1", cfg.InferLLM.BaseURL)
	assert.True(t, cfg.InferLLM.RequiresKey())

	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, ChunkerRecursive, cfg.RAG.Chunker)
	assert.Equal(t, "/tmp/idx", cfg.RAG.IndexPath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_ZeroOverlapIsKept(t *testing.T) {
	path := writeConfig(t, "rag:\n  chunk_size: 300\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.RAG.ChunkSize)
	assert.Equal(t, 0, cfg.RAG.ChunkOverlap)
}

func TestLoadConfig_ZeroTemperatureIsKept(t *testing.T) {
	path := writeConfig(t, "infer_llm:\n  temperature: 0\nembed_llm:\n  temperature: 0.7\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.InferLLM.Temperature)
	assert.Equal(t, 0.0, cfg.InferLLM.GetTemperature())
	assert.Equal(t, 0.7, cfg.EmbedLLM.GetTemperature())

	unset := LLMConfig{}
	assert.Equal(t, 0.3, unset.GetTemperature())
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"overlap not below size", "rag:\n  chunk_size: 100\n  chunk_overlap: 100\n"},
		{"unknown provider", "infer_llm:\n  provider: nope\n"},
		{"unknown chunker", "rag:\n  chunker: sentences\n"},
		{"unknown detection", "rag:\n  detection: vibes\n"},
		{"short encryption key", "rag:\n  encryption_key: short\n"},
		{"malformed yaml", "rag: [\n"},
		{"negative temperature", "infer_llm:\n  temperature: -1\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
