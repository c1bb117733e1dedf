package models

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"document-chatbot/internal/helper"
)

// ConversationEntry is one question with its displayed answer. Err holds the
// user-visible message when the ask failed.
type ConversationEntry struct {
	Question string
	Answer   string
	Err      string
	At       time.Time
}

// Session holds the conversation of one interactive run. The host creates it
// at session start and drops it at the end; nothing here is persisted.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	entries []ConversationEntry
}

// NewSession starts an empty session with a random ID
func NewSession() (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, CreatedAt: time.Now()}, nil
}

// Append records an entry at the end of the conversation
func (s *Session) Append(e ConversationEntry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// Entries returns a copy of the conversation in order
func (s *Session) Entries() []ConversationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConversationEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of recorded entries
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Transcript renders the conversation as Markdown
func (s *Session) Transcript() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation %s\n", s.ID)
	for _, e := range s.Entries() {
		fmt.Fprintf(&b, "\n**Question:** %s\n\n", e.Question)
		if e.Err != "" {
			fmt.Fprintf(&b, "**Error:** %s\n", e.Err)
			continue
		}
		fmt.Fprintf(&b, "**Answer:** %s\n", e.Answer)
	}
	return b.String()
}
