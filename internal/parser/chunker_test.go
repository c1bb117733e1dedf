package parser

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chatbot/internal/config"
)

func sampleText(n int) string {
	words := []string{"alpha", "beta", "gamma.", "delta", "epsilon!", "zeta\n", "eta", "theta?", "iota\n\n", "kappa"}
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		b.WriteString(words[i%len(words)])
		b.WriteString(" ")
	}
	return b.String()[:n]
}

func assertChunkInvariants(t *testing.T, text string, chunks []string, size, overlap int) {
	t.Helper()
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), size, "chunk %d too long", i)
		if i == 0 {
			continue
		}
		prev := []rune(chunks[i-1])
		cur := []rune(c)
		require.GreaterOrEqual(t, len(prev), overlap)
		require.GreaterOrEqual(t, len(cur), overlap)
		assert.Equal(t, string(prev[len(prev)-overlap:]), string(cur[:overlap]), "overlap between %d and %d", i-1, i)
	}
	assert.Equal(t, text, Reassemble(chunks, overlap))
}

func TestWindowChunker_Properties(t *testing.T) {
	testCases := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"defaults long text", sampleText(5000), 1000, 200},
		{"no overlap", sampleText(2500), 300, 0},
		{"large overlap", sampleText(3000), 100, 95},
		{"shorter than one chunk", "Paris is the capital of France.", 1000, 200},
		{"exactly one chunk", strings.Repeat("x", 1000), 1000, 200},
		{"no natural breaks", strings.Repeat("abcdefghij", 250), 1000, 200},
		{"multibyte runes", strings.Repeat("héllo wörld ünïcode ", 120), 250, 50},
		{"tiny windows", "a b c d e f g h i j k l m n o p", 3, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chunks, err := WindowChunker{Size: tc.size, Overlap: tc.overlap}.Split(tc.text)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)
			assertChunkInvariants(t, tc.text, chunks, tc.size, tc.overlap)
		})
	}
}

func TestWindowChunker_EmptyInput(t *testing.T) {
	chunks, err := WindowChunker{Size: 1000, Overlap: 200}.Split("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestWindowChunker_HardCutWithoutBreaks(t *testing.T) {
	text := strings.Repeat("a", 2500)
	chunks, err := WindowChunker{Size: 1000, Overlap: 200}.Split(text)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 900)
}

func TestWindowChunker_PrefersParagraphBreak(t *testing.T) {
	// a paragraph break and a later space both fall in the look-back window
	text := strings.Repeat("a", 92) + "\n\n" + "bb cc" + strings.Repeat("d", 200)
	chunks, err := WindowChunker{Size: 100, Overlap: 10}.Split(text)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"), "got %q", chunks[0])
	assert.Equal(t, text, Reassemble(chunks, 10))
}

func TestWindowChunker_PrefersSentenceOverSpace(t *testing.T) {
	text := strings.Repeat("a", 90) + ". bb cc" + strings.Repeat("d", 200)
	chunks, err := WindowChunker{Size: 100, Overlap: 10}.Split(text)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(chunks[0], ". "), "got %q", chunks[0])
}

func TestWindowChunker_InvalidParameters(t *testing.T) {
	_, err := WindowChunker{Size: 100, Overlap: 100}.Split("text")
	assert.Error(t, err)

	_, err = WindowChunker{Size: 0}.Split("text")
	assert.Error(t, err)
}

func TestRecursiveChunker_RespectsSize(t *testing.T) {
	text := sampleText(4000)
	chunks, err := NewRecursiveChunker(500, 100).Split(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 500)
	}

	empty, err := NewRecursiveChunker(500, 100).Split("   ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNewChunker(t *testing.T) {
	c, err := NewChunker(config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, Chunker: config.ChunkerWindow})
	require.NoError(t, err)
	assert.Equal(t, WindowChunker{Size: 1000, Overlap: 200}, c)

	c, err = NewChunker(config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, Chunker: config.ChunkerRecursive})
	require.NoError(t, err)
	assert.IsType(t, RecursiveChunker{}, c)

	_, err = NewChunker(config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, Chunker: "nope"})
	assert.Error(t, err)

	_, err = NewChunker(config.RAGConfig{ChunkSize: 100, ChunkOverlap: 200})
	assert.Error(t, err)
}
