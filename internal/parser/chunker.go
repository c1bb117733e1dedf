package parser

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"document-chatbot/internal/config"
)

// Chunker splits a document into overlapping chunks for embedding.
type Chunker interface {
	Split(text string) ([]string, error)
}

// NewChunker builds the chunker selected in the config
func NewChunker(cfg config.RAGConfig) (Chunker, error) {
	if cfg.ChunkSize <= 0 || cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("invalid chunk size %d with overlap %d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	switch cfg.Chunker {
	case config.ChunkerWindow, "":
		return WindowChunker{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}, nil
	case config.ChunkerRecursive:
		return NewRecursiveChunker(cfg.ChunkSize, cfg.ChunkOverlap), nil
	default:
		return nil, fmt.Errorf("unsupported chunker: %s", cfg.Chunker)
	}
}

// WindowChunker cuts fixed windows of Size characters that overlap by exactly
// Overlap characters. A window may end early at a natural break found in its
// last tenth, so every chunk is at most Size long and Reassemble(chunks,
// Overlap) gives back the input.
type WindowChunker struct {
	Size    int
	Overlap int
}

func (c WindowChunker) Split(text string) ([]string, error) {
	if c.Size <= 0 || c.Overlap < 0 || c.Overlap >= c.Size {
		return nil, fmt.Errorf("invalid chunk size %d with overlap %d", c.Size, c.Overlap)
	}

	runes := []rune(text)
	contentLen := len(runes)
	if contentLen == 0 {
		return nil, nil
	}

	// a chunk must stay longer than the overlap or the window would not advance
	lookBack := min(c.Size/10, c.Size-c.Overlap-1)

	var chunks []string
	start := 0
	for {
		end := min(start+c.Size, contentLen)
		if end < contentLen {
			end = breakPoint(runes, start, end, lookBack)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end >= contentLen {
			break
		}
		start = end - c.Overlap
	}
	return chunks, nil
}

// breakPoint returns the best place at or before end to cut, searching at most
// lookBack characters back. Paragraph breaks beat line breaks, which beat
// sentence ends, which beat plain spaces.
func breakPoint(runes []rune, start, end, lookBack int) int {
	if lookBack <= 0 {
		return end
	}
	lowest := max(end-lookBack, start+1)

	isParagraph := func(p int) bool {
		return p-2 >= start && runes[p-1] == '\n' && runes[p-2] == '\n'
	}
	isLine := func(p int) bool {
		return runes[p-1] == '\n'
	}
	isSentence := func(p int) bool {
		if p-2 < start || (runes[p-1] != ' ' && runes[p-1] != '\n') {
			return false
		}
		switch runes[p-2] {
		case '.', '!', '?':
			return true
		}
		return false
	}
	isSpace := func(p int) bool {
		return runes[p-1] == ' ' || runes[p-1] == '\t'
	}

	for _, accept := range []func(int) bool{isParagraph, isLine, isSentence, isSpace} {
		for p := end; p >= lowest; p-- {
			if accept(p) {
				return p
			}
		}
	}
	return end
}

// Reassemble joins chunks produced with the given overlap back into the
// original text.
func Reassemble(chunks []string, overlap int) string {
	var content strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			content.WriteString(chunk)
			continue
		}
		runes := []rune(chunk)
		if len(runes) > overlap {
			content.WriteString(string(runes[overlap:]))
		}
	}
	return content.String()
}

// RecursiveChunker splits on paragraph, line and word separators the way the
// original splitter did. Chunks are trimmed, so Reassemble does not apply.
type RecursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursiveChunker(size, overlap int) RecursiveChunker {
	return RecursiveChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

func (c RecursiveChunker) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	chunks, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	return chunks, nil
}
