package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/logger"
)

func startTestWatcher(t *testing.T, svc *Service) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w := NewWatcher(svc, dir, 50*time.Millisecond, logger.Discard())
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Stop() })
	return w, dir
}

func waitForDocuments(t *testing.T, svc *Service, n int) []domain.Document {
	t.Helper()
	var docs []domain.Document
	require.Eventually(t, func() bool {
		var err error
		docs, err = svc.List()
		return err == nil && len(docs) == n
	}, 5*time.Second, 25*time.Millisecond)
	return docs
}

func TestWatcher_ImportsDroppedFile(t *testing.T) {
	svc := newTestService(t)
	_, dir := startTestWatcher(t, svc)

	path := filepath.Join(dir, "dropped_story.txt")
	require.NoError(t, os.WriteFile(path, []byte("A paragraph of text.\n\nAnd another one."), 0o644))

	docs := waitForDocuments(t, svc, 1)
	assert.Equal(t, "dropped story", docs[0].Title)
	assert.Equal(t, domain.SourceInbox, docs[0].Source)
	assert.Len(t, docs[0].Paragraphs, 2)

	// The imported file leaves the inbox.
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 5*time.Second, 25*time.Millisecond)
}

func TestWatcher_ImportsPreexistingFiles(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "waiting.md"), []byte("Already here before startup."), 0o644))

	w := NewWatcher(svc, dir, 50*time.Millisecond, logger.Discard())
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Stop() })

	docs := waitForDocuments(t, svc, 1)
	assert.Equal(t, "waiting", docs[0].Title)
}

func TestWatcher_IgnoresUnsupportedAndHiddenFiles(t *testing.T) {
	svc := newTestService(t)
	_, dir := startTestWatcher(t, svc)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "track.mp3"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "download.txt.part"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.txt"), []byte("Actual readable content here."), 0o644))

	docs := waitForDocuments(t, svc, 1)
	assert.Equal(t, "real", docs[0].Title)

	// Give the watcher a moment; nothing else may appear.
	time.Sleep(200 * time.Millisecond)
	docs, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestWatcher_WaitsForFileToSettle(t *testing.T) {
	svc := newTestService(t)
	_, dir := startTestWatcher(t, svc)

	path := filepath.Join(dir, "slow_copy.txt")
	require.NoError(t, os.WriteFile(path, []byte("First chunk."), 0o644))

	// Keep appending faster than the settle delay; the import must see the
	// final content.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	for range 3 {
		time.Sleep(20 * time.Millisecond)
		_, err = f.WriteString("\n\nAnother chunk.")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	docs := waitForDocuments(t, svc, 1)
	assert.Len(t, docs[0].Paragraphs, 4)
}

func TestImportable(t *testing.T) {
	assert.True(t, importable("/inbox/a.txt"))
	assert.True(t, importable("/inbox/a.html"))
	assert.False(t, importable("/inbox/.a.txt"))
	assert.False(t, importable("/inbox/a.txt.part"))
	assert.False(t, importable("/inbox/a.txt.tmp"))
	assert.False(t, importable("/inbox/a.exe"))
}
