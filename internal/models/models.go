package models

import "fmt"

// File is one uploaded document
type File struct {
	Name string
	Data []byte
}

// SearchResult is a retrieved chunk with its similarity score
type SearchResult struct {
	ID    string
	Text  string
	Score float64
}

// IngestResult summarises a successful ingest
type IngestResult struct {
	Documents  int
	Characters int
	Chunks     int
	Location   string
	Warnings   []string
}

// AnswerSource tells where an answer came from
type AnswerSource int

const (
	SourceDocument AnswerSource = iota
	SourceExternal
)

func (s AnswerSource) String() string {
	switch s {
	case SourceDocument:
		return "document"
	case SourceExternal:
		return "external"
	default:
		return fmt.Sprintf("AnswerSource(%d)", int(s))
	}
}

// Answer is the result of one ask
type Answer struct {
	Question string
	Text     string
	Source   AnswerSource
	Sources  []SearchResult
}

// Label returns the answer text prefixed with where it came from
func (a *Answer) Label() string {
	if a.Source == SourceExternal {
		return fmt.Sprintf("**Answer based on external knowledge:** %s", a.Text)
	}
	return fmt.Sprintf("**Answer from document context:** %s", a.Text)
}
