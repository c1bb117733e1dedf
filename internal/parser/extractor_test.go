package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chatbot/internal/models"
	"document-chatbot/internal/pdftest"
)

func TestExtractText_ConcatenatesInOrder(t *testing.T) {
	files := []models.File{
		{Name: "a.pdf", Data: pdftest.Build("Paris is the capital of France.", "Second page of the first file.")},
		{Name: "b.pdf", Data: pdftest.Build("Berlin is the capital of Germany.")},
	}

	text, issues := ExtractText(files)
	require.Empty(t, issues)

	first := strings.Index(text, "Paris is the capital of France.")
	second := strings.Index(text, "Second page of the first file.")
	third := strings.Index(text, "Berlin is the capital of Germany.")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	require.NotEqual(t, -1, third)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestExtractText_InvalidStreamDoesNotAbortBatch(t *testing.T) {
	files := []models.File{
		{Name: "broken.pdf", Data: []byte("definitely not a pdf")},
		{Name: "good.pdf", Data: pdftest.Build("Readable text survives.")},
		{Name: "empty.pdf", Data: nil},
	}

	text, issues := ExtractText(files)

	assert.Contains(t, text, "Readable text survives.")
	require.Len(t, issues, 2)
	for _, err := range issues {
		assert.True(t, errors.Is(err, models.ErrExtraction), "got %v", err)
	}
	assert.Contains(t, issues[0].Error(), "broken.pdf")
	assert.Contains(t, issues[1].Error(), "empty.pdf")
}

func TestExtractText_BrokenPageKeepsOtherPages(t *testing.T) {
	files := []models.File{{Name: "mixed.pdf", Data: pdftest.BuildPages(
		pdftest.Page{Text: "First page survives."},
		pdftest.Page{Text: "Undecodable page.", Filter: "NoSuchDecode"},
		pdftest.Page{Text: "Third page survives."},
	)}}

	text, issues := ExtractText(files)

	assert.Contains(t, text, "First page survives.")
	assert.Contains(t, text, "Third page survives.")
	assert.NotContains(t, text, "Undecodable page.")
	assert.Less(t, strings.Index(text, "First"), strings.Index(text, "Third"))

	require.Len(t, issues, 1)
	assert.ErrorIs(t, issues[0], models.ErrExtraction)
	assert.Contains(t, issues[0].Error(), "mixed.pdf page 2")
}

func TestExtractText_NoFiles(t *testing.T) {
	text, issues := ExtractText(nil)
	assert.Empty(t, text)
	assert.Empty(t, issues)
}
