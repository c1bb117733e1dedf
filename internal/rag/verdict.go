package rag

import (
	"regexp"
	"strings"

	"document-chatbot/internal/config"
)

// markerRe matches the ANSWERED line, tolerating markdown emphasis around it
var markerRe = regexp.MustCompile(`(?im)^[ \t*_]*ANSWERED:[ \t*_]*(YES|NO)\b[^\n]*\n?`)

// Detector decides whether a context answer actually came from the context.
type Detector struct {
	mode    string
	phrases []string
}

func NewDetector(cfg config.RAGConfig) *Detector {
	phrases := make([]string, 0, len(cfg.FallbackPhrases))
	for _, p := range cfg.FallbackPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return &Detector{mode: cfg.Detection, phrases: phrases}
}

// Detect reports whether raw answers the question from the context and
// returns the text to show, without the ANSWERED line. In marker mode the last
// ANSWERED line decides; without one, or in phrase mode, the answer counts as
// unanswered when it contains an insufficiency phrase. A reply that is empty
// without the ANSWERED line is never an answer.
func (d *Detector) Detect(raw string) (bool, string) {
	matches := markerRe.FindAllStringSubmatch(raw, -1)
	text := strings.TrimSpace(markerRe.ReplaceAllString(raw, ""))
	if text == "" {
		return false, ""
	}

	if d.mode != config.DetectionPhrase && len(matches) > 0 {
		last := matches[len(matches)-1]
		return strings.EqualFold(last[1], "YES"), text
	}

	lower := strings.ToLower(text)
	for _, p := range d.phrases {
		if strings.Contains(lower, p) {
			return false, text
		}
	}
	return true, text
}
