package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"document-chatbot/internal/models"
)

// ExtractText concatenates the text of every page of every PDF, in input
// order, with no separator. Streams or pages that cannot be read contribute an
// empty string and are reported as errors wrapping models.ErrExtraction; the
// rest of the batch is still extracted.
func ExtractText(files []models.File) (string, []error) {
	var text strings.Builder
	var issues []error
	for _, f := range files {
		issues = append(issues, extractPDF(&text, f)...)
	}
	return text.String(), issues
}

func extractPDF(text *strings.Builder, f models.File) (issues []error) {
	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			issues = append(issues, fmt.Errorf("%w: %s: %v", models.ErrExtraction, f.Name, r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(f.Data), int64(len(f.Data)))
	if err != nil {
		return []error{fmt.Errorf("%w: %s: %w", models.ErrExtraction, f.Name, err)}
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		pageText, err := readPage(reader, i)
		if err != nil {
			issues = append(issues, fmt.Errorf("%w: %s page %d: %w", models.ErrExtraction, f.Name, i, err))
			continue
		}
		text.WriteString(pageText)
	}
	return issues
}

func readPage(reader *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%v", r)
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
