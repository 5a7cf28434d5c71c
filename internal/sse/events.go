// Package sse implements Server-Sent Events for pushing highlight
// transitions and library changes to connected clients.
package sse

import (
	"time"

	"github.com/readalongapp/readalong-server/internal/domain"
)

// EventType represents the type of SSE event.
type EventType string

const (
	// EventSessionStarted announces a new reading session.
	EventSessionStarted EventType = "session.started"
	// EventSessionParagraph announces the highlight moving to a new paragraph.
	EventSessionParagraph EventType = "session.paragraph"
	// EventSessionWord announces the highlight moving to a new word.
	EventSessionWord EventType = "session.word"
	// EventSessionProgress carries periodic progress updates.
	EventSessionProgress EventType = "session.progress"
	// EventSessionCompleted announces the session reaching the end of the
	// document or being stopped.
	EventSessionCompleted EventType = "session.completed"

	// EventDocumentAdded announces a document entering the library.
	EventDocumentAdded EventType = "document.added"
	// EventDocumentDeleted announces a document removal.
	EventDocumentDeleted EventType = "document.deleted"

	// EventHeartbeat is a connection keepalive.
	EventHeartbeat EventType = "heartbeat"
)

// Event is an SSE event to be sent to clients.
// SessionID filters delivery: when set, only clients subscribed to that
// session receive the event. Empty means broadcast to all.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	SessionID string `json:"session_id,omitempty"`
}

// SessionStartedData is the payload for session.started events.
type SessionStartedData struct {
	SessionID      string `json:"session_id"`
	DocumentID     string `json:"document_id,omitempty"`
	ParagraphCount int    `json:"paragraph_count"`
	TotalMs        int64  `json:"total_ms"`
}

// ParagraphChangedData is the payload for session.paragraph events.
type ParagraphChangedData struct {
	PrevIndex int   `json:"prev_index"`
	NewIndex  int   `json:"new_index"`
	AtMs      int64 `json:"at_ms"`
}

// WordChangedData is the payload for session.word events.
type WordChangedData struct {
	PrevIndex  int    `json:"prev_index"`
	NewIndex   int    `json:"new_index"`
	Word       string `json:"word,omitempty"`
	CharOffset int    `json:"char_offset"`
	CharLength int    `json:"char_length"`
	AtMs       int64  `json:"at_ms"`
}

// ProgressData is the payload for session.progress events.
type ProgressData struct {
	TimeMs        int64   `json:"time_ms"`
	TotalMs       int64   `json:"total_ms"`
	ProgressPct   float64 `json:"progress_pct"`
	TimeRemaining string  `json:"time_remaining"`
}

// SessionCompletedData is the payload for session.completed events.
type SessionCompletedData struct {
	SessionID   string  `json:"session_id"`
	DocumentID  string  `json:"document_id,omitempty"`
	ProgressPct float64 `json:"progress_pct"`
}

// DocumentData is the payload for document events.
type DocumentData struct {
	Document *domain.Document `json:"document,omitempty"`
	ID       string           `json:"id"`
}

// HeartbeatData is the payload for heartbeat events.
type HeartbeatData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewSessionStartedEvent creates a session.started event.
func NewSessionStartedEvent(sessionID, documentID string, paragraphCount int, totalMs int64) Event {
	return Event{
		Type:      EventSessionStarted,
		SessionID: sessionID,
		Data: SessionStartedData{
			SessionID:      sessionID,
			DocumentID:     documentID,
			ParagraphCount: paragraphCount,
			TotalMs:        totalMs,
		},
		Timestamp: time.Now(),
	}
}

// NewParagraphChangedEvent creates a session.paragraph event.
func NewParagraphChangedEvent(sessionID string, prev, next int, atMs int64) Event {
	return Event{
		Type:      EventSessionParagraph,
		SessionID: sessionID,
		Data: ParagraphChangedData{
			PrevIndex: prev,
			NewIndex:  next,
			AtMs:      atMs,
		},
		Timestamp: time.Now(),
	}
}

// NewWordChangedEvent creates a session.word event.
func NewWordChangedEvent(sessionID string, data WordChangedData) Event {
	return Event{
		Type:      EventSessionWord,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewProgressEvent creates a session.progress event.
func NewProgressEvent(sessionID string, data ProgressData) Event {
	return Event{
		Type:      EventSessionProgress,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewSessionCompletedEvent creates a session.completed event.
func NewSessionCompletedEvent(sessionID, documentID string, progressPct float64) Event {
	return Event{
		Type:      EventSessionCompleted,
		SessionID: sessionID,
		Data: SessionCompletedData{
			SessionID:   sessionID,
			DocumentID:  documentID,
			ProgressPct: progressPct,
		},
		Timestamp: time.Now(),
	}
}

// NewDocumentAddedEvent creates a document.added event.
func NewDocumentAddedEvent(doc *domain.Document) Event {
	return Event{
		Type:      EventDocumentAdded,
		Data:      DocumentData{Document: doc, ID: doc.ID},
		Timestamp: time.Now(),
	}
}

// NewDocumentDeletedEvent creates a document.deleted event.
func NewDocumentDeletedEvent(documentID string) Event {
	return Event{
		Type:      EventDocumentDeleted,
		Data:      DocumentData{ID: documentID},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatData{ServerTime: time.Now()},
		Timestamp: time.Now(),
	}
}
