package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/errors"
	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewInMemory(store.NoopEmitter{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, logger.Discard())
}

func TestImport_PlainText(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.Import(context.Background(), ImportRequest{
		Title:   "Two Paragraphs",
		Content: "First paragraph here.\n\nSecond paragraph follows.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Two Paragraphs", doc.Title)
	assert.Equal(t, domain.SourceAPI, doc.Source)
	assert.Equal(t, []string{"First paragraph here.", "Second paragraph follows."}, doc.Paragraphs)
	assert.Equal(t, 6, doc.WordCount)

	stored, err := svc.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, stored.ID)
}

func TestImport_HTML(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.Import(context.Background(), ImportRequest{
		Title:   "From HTML",
		Content: "<html><body><p>Hello there, reader.</p><p>Another paragraph.</p></body></html>",
		Format:  FormatHTML,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello there, reader.", "Another paragraph."}, doc.Paragraphs)
}

func TestImport_HTMLWithMarkdownRendition(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.Import(context.Background(), ImportRequest{
		Title:         "With Markdown",
		Content:       "<html><body><h1>A Fable</h1><p>Hello there, reader.</p></body></html>",
		Format:        FormatHTML,
		StoreMarkdown: true,
	})
	require.NoError(t, err)
	assert.Contains(t, doc.Markdown, "# A Fable")
	assert.Contains(t, doc.Markdown, "Hello there, reader.")

	// The rendition survives the round trip through the store.
	stored, err := svc.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Markdown, stored.Markdown)

	// Without the flag, and for non-HTML formats, nothing is stored.
	plain, err := svc.Import(context.Background(), ImportRequest{
		Title:         "Plain",
		Content:       "Just text.",
		StoreMarkdown: true,
	})
	require.NoError(t, err)
	assert.Empty(t, plain.Markdown)
}

func TestImport_CanceledContext(t *testing.T) {
	svc := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Import(ctx, ImportRequest{Title: "T", Content: "Some text."})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImport_Validation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Import(context.Background(), ImportRequest{Content: "no title"})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = svc.Import(context.Background(), ImportRequest{Title: "no content"})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestImport_NoReadableParagraphs(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Import(context.Background(), ImportRequest{
		Title:   "Empty",
		Content: "   \n\n  \n",
	})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestImportFile_FormatFromExtension(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.ImportFile("/inbox/short_story.md", []byte("# Title\n\nBody paragraph with enough text."))
	require.NoError(t, err)
	assert.Equal(t, "short story", doc.Title)
	assert.Equal(t, domain.SourceInbox, doc.Source)

	_, err = svc.ImportFile("/inbox/audio.mp3", []byte("binary"))
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestDelete_RemovesDocument(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.Import(context.Background(), ImportRequest{Title: "T", Content: "Some text."})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(doc.ID))
	_, err = svc.Get(doc.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(doc.ID), errors.ErrNotFound)
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/inbox/my_great_story.txt", "my great story"},
		{"/inbox/the-fall.md", "the fall"},
		{"essay.html", "essay"},
		{"/inbox/Plain Name.txt", "Plain Name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, titleFromFilename(tt.path), tt.path)
	}
}

func TestFormatForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want Format
		ok   bool
	}{
		{".html", FormatHTML, true},
		{".HTM", FormatHTML, true},
		{".md", FormatMarkdown, true},
		{".markdown", FormatMarkdown, true},
		{".txt", FormatText, true},
		{".pdf", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := formatForExtension(tt.ext)
		assert.Equal(t, tt.ok, ok, tt.ext)
		assert.Equal(t, tt.want, got, tt.ext)
	}
}
