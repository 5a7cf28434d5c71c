package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/readalongapp/readalong-server/internal/config"
	"github.com/readalongapp/readalong-server/internal/errors"
	"github.com/readalongapp/readalong-server/internal/id"
	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/playback"
	"github.com/readalongapp/readalong-server/internal/provider"
	"github.com/readalongapp/readalong-server/internal/sse"
	"github.com/readalongapp/readalong-server/internal/store"
	"github.com/readalongapp/readalong-server/internal/timeline"
	"github.com/readalongapp/readalong-server/internal/validation"
)

// minEstimateMs keeps degenerate documents from producing a zero-length
// timeline before the client reports the real audio duration.
const minEstimateMs = 1000

// CreateRequest starts a session from a stored document or raw paragraphs.
type CreateRequest struct {
	DocumentID     string   `json:"document_id,omitempty" validate:"required_without=Paragraphs"`
	Paragraphs     []string `json:"paragraphs,omitempty" validate:"required_without=DocumentID,omitempty,min=1,dive,required"`
	Provider       string   `json:"provider,omitempty"`
	Voice          string   `json:"voice,omitempty"`
	WordsPerMinute int      `json:"words_per_minute,omitempty" validate:"omitempty,gte=60,lte=400"`
}

// Info is a snapshot of a session, safe to serialize.
type Info struct {
	ID             string         `json:"id"`
	DocumentID     string         `json:"document_id,omitempty"`
	Provider       string         `json:"provider"`
	Voice          string         `json:"voice,omitempty"`
	Paragraphs     []string       `json:"paragraphs"`
	ParagraphCount int            `json:"paragraph_count"`
	CreatedAt      time.Time      `json:"created_at"`
	State          playback.State `json:"state"`
}

// Service manages the live sessions.
type Service struct {
	store     *store.Store
	registry  *provider.Registry
	events    store.EventEmitter
	validator *validation.Validator
	engine    config.EngineConfig
	log       *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a session service.
func NewService(st *store.Store, registry *provider.Registry, events store.EventEmitter, engine config.EngineConfig, log *logger.Logger) *Service {
	return &Service{
		store:     st,
		registry:  registry,
		events:    events,
		validator: validation.New(),
		engine:    engine,
		log:       log,
		sessions:  make(map[string]*Session),
	}
}

// Create starts a new session. The timeline begins as a words-per-minute
// estimate; the client replaces it with the real duration via
// ReportDuration once its audio element knows it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Info, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	settings, err := s.store.GetSettings()
	if err != nil {
		return nil, errors.Internal("load settings").WithCause(err)
	}

	paragraphs := req.Paragraphs
	if req.DocumentID != "" {
		doc, err := s.store.GetDocument(req.DocumentID)
		if err != nil {
			return nil, err
		}
		paragraphs = doc.Paragraphs
	}
	if len(paragraphs) == 0 {
		return nil, errors.Validation("document has no paragraphs")
	}

	wpm := req.WordsPerMinute
	if wpm == 0 {
		wpm = settings.WordsPerMinute
	}
	if wpm == 0 {
		wpm = s.engine.WordsPerMinute
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = settings.DefaultProvider
	}
	synth, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	voice := req.Voice
	if voice == "" {
		voice = settings.DefaultVoice
	}

	tl, err := timeline.BuildEstimate(paragraphs, estimateDurationMs(paragraphs, wpm))
	if err != nil {
		return nil, errors.Internal("build timeline").WithCause(err)
	}

	sessionID, err := id.NewSession()
	if err != nil {
		return nil, errors.Internal("generate session ID").WithCause(err)
	}

	sess := &Session{
		ID:         sessionID,
		DocumentID: req.DocumentID,
		Provider:   synth.Name(),
		Voice:      voice,
		CreatedAt:  time.Now(),
		paragraphs: paragraphs,
		synth:      synth,
		store:      s.store,
		events:     s.events,
		log:        s.log,
		speech:     make(map[int]*provider.Speech),
		inflight:   make(map[int]chan struct{}),
	}
	sess.clock = playback.NewClock(tl, sess)
	sess.clock.SetDriftThreshold(s.engine.DriftThresholdMs)
	sess.loop = playback.NewLoop(sess.clock, s.engine.TickInterval, s.log)

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	sess.loop.Start()

	// Resume where the reader left off. Seeking fires paragraph transitions,
	// which mark the gate pending and start synthesis for the landing
	// paragraph; if no transition fires the command below covers paragraph 0.
	if req.DocumentID != "" {
		if pos, err := s.store.GetPosition(req.DocumentID); err == nil && pos.PositionMs > 0 {
			sess.loop.Seek(pos.PositionMs)
		}
	}
	sess.loop.Do(func(c *playback.Clock) {
		if c.Gate().PendingIndex() != -1 {
			return
		}
		idx := c.State().ParagraphIndex
		if idx < 0 {
			return
		}
		c.Gate().SetTimelinePending(idx)
		go sess.prepareParagraph(idx)
	})

	s.events.Emit(sse.NewSessionStartedEvent(sessionID, req.DocumentID, len(paragraphs), timeline.TotalMs(tl)))
	s.log.Info("session created",
		"session_id", sessionID,
		"document_id", req.DocumentID,
		"paragraphs", len(paragraphs),
		"provider", sess.Provider,
		"estimated_ms", timeline.TotalMs(tl))

	return s.info(sess), nil
}

// Get returns a snapshot of one session.
func (s *Service) Get(sessionID string) (*Info, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// List returns snapshots of all live sessions, newest first.
func (s *Service) List() []Info {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	slices.SortFunc(sessions, func(a, b *Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	infos := make([]Info, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, *s.info(sess))
	}
	return infos
}

// Seek moves the session to an absolute position.
func (s *Service) Seek(sessionID string, positionMs int64) error {
	if positionMs < 0 {
		return errors.InvalidArgumentf("position must not be negative, got %d", positionMs)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.loop.Seek(positionMs)
	return nil
}

// SeekToParagraph jumps to the start of a paragraph.
func (s *Service) SeekToParagraph(sessionID string, index int) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(sess.paragraphs) {
		return errors.InvalidArgumentf("paragraph index %d out of range [0, %d)", index, len(sess.paragraphs))
	}
	sess.loop.SeekToParagraph(index)
	return nil
}

// Pause stops the session clock without losing position.
func (s *Service) Pause(sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.loop.Pause()
	return nil
}

// Resume restarts the session clock.
func (s *Service) Resume(sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.loop.Resume()
	return nil
}

// ReportPosition feeds the client's audio position into the sync loop. The
// clock reconciles it against its own time on the next tick.
func (s *Service) ReportPosition(sessionID string, positionMs int64) error {
	if positionMs < 0 {
		return errors.InvalidArgumentf("position must not be negative, got %d", positionMs)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.loop.ReportPosition(positionMs)
	return nil
}

// ReportDuration rescales the estimated timeline to the actual audio
// duration the client measured.
func (s *Service) ReportDuration(sessionID string, durationMs int64) error {
	if durationMs <= 0 {
		return errors.InvalidArgumentf("duration must be positive, got %d", durationMs)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.loop.Do(func(c *playback.Clock) {
		if err := c.RebuildTimelineWithDuration(durationMs); err != nil {
			s.log.Warn("timeline rebuild failed",
				"session_id", sessionID,
				"duration_ms", durationMs,
				"error", err)
		}
	})
	return nil
}

// GetParagraphAudio returns the synthesized audio for one paragraph,
// synthesizing on a cache miss.
func (s *Service) GetParagraphAudio(ctx context.Context, sessionID string, index int) (*provider.Speech, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(sess.paragraphs) {
		return nil, errors.InvalidArgumentf("paragraph index %d out of range [0, %d)", index, len(sess.paragraphs))
	}
	return sess.speechFor(ctx, index)
}

// Stop ends a session: the sync loop shuts down, the resume point is saved,
// and session.completed goes out to subscribers.
func (s *Service) Stop(sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return errors.NotFoundf("session %s not found", sessionID)
	}

	st := sess.loop.State()
	sess.loop.Stop()
	sess.persistPosition(st)
	s.events.Emit(sse.NewSessionCompletedEvent(sess.ID, sess.DocumentID, progressPct(st)))

	s.log.Info("session stopped",
		"session_id", sessionID,
		"position_ms", st.TimeMs,
		"progress_pct", progressPct(st))
	return nil
}

// Close stops every live session. Used at server shutdown.
func (s *Service) Close() error {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		st := sess.loop.State()
		sess.loop.Stop()
		sess.persistPosition(st)
	}
	return nil
}

func (s *Service) session(sessionID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NotFoundf("session %s not found", sessionID)
	}
	return sess, nil
}

func (s *Service) info(sess *Session) *Info {
	return &Info{
		ID:             sess.ID,
		DocumentID:     sess.DocumentID,
		Provider:       sess.Provider,
		Voice:          sess.Voice,
		Paragraphs:     sess.paragraphs,
		ParagraphCount: len(sess.paragraphs),
		CreatedAt:      sess.CreatedAt,
		State:          sess.loop.State(),
	}
}

// estimateDurationMs derives the initial timeline length from the reading
// speed before any real audio duration is known.
func estimateDurationMs(paragraphs []string, wpm int) int64 {
	words := 0
	for _, p := range paragraphs {
		words += timeline.WordCount(p)
	}
	ms := int64(words) * 60000 / int64(wpm)
	if ms < minEstimateMs {
		ms = minEstimateMs
	}
	return ms
}
