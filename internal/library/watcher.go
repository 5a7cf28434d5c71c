package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/readalongapp/readalong-server/internal/logger"
)

// defaultSettleDelay is how long a file must stop changing before it is
// imported. Copies into the inbox arrive as a stream of writes; importing
// mid-copy would truncate the document.
const defaultSettleDelay = 500 * time.Millisecond

// Watcher imports files dropped into the inbox directory. Supported files
// become library documents and are removed from the inbox afterwards.
type Watcher struct {
	service *Service
	path    string
	settle  time.Duration
	log     *logger.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*pendingFile

	done chan struct{}
	wg   sync.WaitGroup
}

// pendingFile tracks a file that may still be changing.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// NewWatcher creates an inbox watcher over path. settle <= 0 uses the
// default delay.
func NewWatcher(service *Service, path string, settle time.Duration, log *logger.Logger) *Watcher {
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	return &Watcher{
		service: service,
		path:    filepath.Clean(path),
		settle:  settle,
		log:     log,
		pending: make(map[string]*pendingFile),
		done:    make(chan struct{}),
	}
}

// Start creates the inbox directory if needed, imports any files already
// sitting in it, and begins watching for new ones.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.path, 0o755); err != nil {
		return fmt.Errorf("create inbox directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return fmt.Errorf("watch inbox directory: %w", err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.run()

	w.scanExisting()

	w.log.Info("inbox watcher started", "path", w.path)
	return nil
}

// Stop terminates the watcher and cancels pending imports.
func (w *Watcher) Stop() error {
	close(w.done)

	w.mu.Lock()
	for _, p := range w.pending {
		p.timer.Stop()
	}
	clear(w.pending)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// scanExisting imports files that were dropped while the server was down.
func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.path)
	if err != nil {
		w.log.Warn("inbox scan failed", "path", w.path, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.startSettling(filepath.Join(w.path, entry.Name()))
	}
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("inbox watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Remove != 0 {
		w.cancelPending(event.Name)
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		w.startSettling(event.Name)
	}
}

// cancelPending drops the settle timer for a removed file.
func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// startSettling arms (or re-arms) the settle timer for a file.
func (w *Watcher) startSettling(path string) {
	if !importable(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		delete(w.pending, path)
		return
	}

	p := &pendingFile{size: info.Size(), modTime: info.ModTime()}
	p.timer = time.AfterFunc(w.settle, func() {
		w.checkSettled(path)
	})
	w.pending[path] = p
}

// checkSettled imports the file if it has stopped changing, otherwise
// restarts the settle timer.
func (w *Watcher) checkSettled(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if !ok {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		w.mu.Unlock()
		return
	}
	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(w.settle, func() {
			w.checkSettled(path)
		})
		w.mu.Unlock()
		return
	}

	delete(w.pending, path)
	w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}
	w.importFile(path)
}

// importFile imports one settled file and removes it from the inbox.
func (w *Watcher) importFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn("failed to read inbox file", "path", path, "error", err)
		return
	}

	doc, err := w.service.ImportFile(path, content)
	if err != nil {
		w.log.Warn("failed to import inbox file", "path", path, "error", err)
		return
	}

	// The file has become a document; leaving it behind would re-import it
	// on the next restart.
	if err := os.Remove(path); err != nil {
		w.log.Warn("failed to remove imported inbox file", "path", path, "error", err)
	}

	w.log.Info("inbox file imported",
		"path", path,
		"document_id", doc.ID,
		"title", doc.Title)
}

// importable filters to supported extensions and skips hidden and partial
// files (editors and downloaders write those first).
func importable(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".part") || strings.HasSuffix(base, ".tmp") {
		return false
	}
	_, ok := formatForExtension(filepath.Ext(path))
	return ok
}
