package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalongapp/readalong-server/internal/domain"
	apperrors "github.com/readalongapp/readalong-server/internal/errors"
)

// captureEmitter records emitted events for assertions.
type captureEmitter struct {
	events []any
}

func (c *captureEmitter) Emit(event any) {
	c.events = append(c.events, event)
}

func newTestStore(t *testing.T) (*Store, *captureEmitter) {
	t.Helper()
	emitter := &captureEmitter{}
	s, err := NewInMemory(emitter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, emitter
}

func testDocument(id string) *domain.Document {
	return &domain.Document{
		ID:         id,
		Title:      "Test Document",
		Paragraphs: []string{"First paragraph.", "Second paragraph."},
		Source:     domain.SourceAPI,
		WordCount:  4,
		AddedAt:    time.Now().UTC(),
	}
}

func TestDocument_SaveAndGet(t *testing.T) {
	s, emitter := newTestStore(t)

	doc := testDocument("doc-1")
	require.NoError(t, s.SaveDocument(doc))

	got, err := s.GetDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Paragraphs, got.Paragraphs)

	require.Len(t, emitter.events, 1)
	added, ok := emitter.events[0].(DocumentAddedEvent)
	require.True(t, ok)
	assert.Equal(t, "doc-1", added.Document.ID)
}

func TestDocument_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetDocument("doc-nope")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestDocument_SaveRequiresID(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.SaveDocument(&domain.Document{Title: "no id"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestDocument_ListNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)

	older := testDocument("doc-old")
	older.AddedAt = time.Now().Add(-time.Hour)
	newer := testDocument("doc-new")

	require.NoError(t, s.SaveDocument(older))
	require.NoError(t, s.SaveDocument(newer))

	docs, err := s.ListDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-new", docs[0].ID)
	assert.Equal(t, "doc-old", docs[1].ID)
}

func TestDocument_DeleteRemovesPosition(t *testing.T) {
	s, emitter := newTestStore(t)

	require.NoError(t, s.SaveDocument(testDocument("doc-1")))
	require.NoError(t, s.SavePosition(&domain.ReadingPosition{
		DocumentID: "doc-1",
		PositionMs: 5000,
		LastReadAt: time.Now(),
	}))

	require.NoError(t, s.DeleteDocument("doc-1"))

	_, err := s.GetDocument("doc-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	_, err = s.GetPosition("doc-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	var sawDelete bool
	for _, ev := range emitter.events {
		if _, ok := ev.(DocumentDeletedEvent); ok {
			sawDelete = true
		}
	}
	assert.True(t, sawDelete, "expected a delete event")
}

func TestDocument_DeleteMissing(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.DeleteDocument("doc-nope")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestPosition_SaveAndGet(t *testing.T) {
	s, _ := newTestStore(t)

	pos := &domain.ReadingPosition{
		DocumentID:     "doc-1",
		PositionMs:     42000,
		ParagraphIndex: 3,
		ProgressPct:    35.5,
		LastReadAt:     time.Now().UTC(),
	}
	require.NoError(t, s.SavePosition(pos))

	got, err := s.GetPosition("doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42000), got.PositionMs)
	assert.Equal(t, 3, got.ParagraphIndex)
}

func TestPosition_Upsert(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SavePosition(&domain.ReadingPosition{DocumentID: "doc-1", PositionMs: 1000}))
	require.NoError(t, s.SavePosition(&domain.ReadingPosition{DocumentID: "doc-1", PositionMs: 2000}))

	got, err := s.GetPosition("doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.PositionMs)
}

func TestPosition_ListMostRecentFirst(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SavePosition(&domain.ReadingPosition{
		DocumentID: "doc-a", LastReadAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, s.SavePosition(&domain.ReadingPosition{
		DocumentID: "doc-b", LastReadAt: time.Now(),
	}))

	positions, err := s.ListPositions()
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "doc-b", positions[0].DocumentID)
}

func TestSettings_DefaultsWhenUnset(t *testing.T) {
	s, _ := newTestStore(t)

	settings, err := s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "mock", settings.DefaultProvider)
	assert.Equal(t, 165, settings.WordsPerMinute)
}

func TestSettings_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SaveSettings(&domain.Settings{
		DefaultProvider: "elevenlabs",
		DefaultVoice:    "voice-1",
		WordsPerMinute:  180,
	}))

	settings, err := s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "elevenlabs", settings.DefaultProvider)
	assert.Equal(t, 180, settings.WordsPerMinute)
}

func TestSettings_RejectsBadRate(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.SaveSettings(&domain.Settings{WordsPerMinute: 0})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}
