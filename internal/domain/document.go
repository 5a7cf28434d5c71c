// Package domain defines the core entities stored and served by the
// ReadAlong server.
package domain

import "time"

// DocumentSource identifies how a document entered the library.
type DocumentSource string

const (
	SourceAPI   DocumentSource = "api"   // imported through the HTTP API
	SourceInbox DocumentSource = "inbox" // picked up from the watched inbox directory
)

// Document is a piece of readable text split into paragraphs. Paragraph
// order is the reading order; paragraph index is the unit the sync engine
// highlights.
type Document struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Paragraphs []string       `json:"paragraphs"`
	Markdown   string         `json:"markdown,omitempty"` // readable-text rendition, kept when the import asked for one
	Source     DocumentSource `json:"source"`
	WordCount  int            `json:"word_count"`
	AddedAt    time.Time      `json:"added_at"`
}

// ReadingPosition is the resume point for a document. One per document;
// updated whenever a session stops or completes.
type ReadingPosition struct {
	DocumentID     string    `json:"document_id"`
	PositionMs     int64     `json:"position_ms"`
	ParagraphIndex int       `json:"paragraph_index"`
	ProgressPct    float64   `json:"progress_pct"`
	LastReadAt     time.Time `json:"last_read_at"`
}

// Settings holds server-wide defaults applied when a session request leaves
// a field empty.
type Settings struct {
	DefaultProvider string `json:"default_provider"`
	DefaultVoice    string `json:"default_voice"`
	WordsPerMinute  int    `json:"words_per_minute"`
}
