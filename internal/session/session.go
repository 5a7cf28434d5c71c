// Package session owns the live read-along sessions. A session wires one
// document (or a raw block of paragraphs) to a playback clock, a TTS
// provider, and the SSE stream: the client plays the audio locally and
// reports its position, the session pushes paragraph and word highlights
// back.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/readalongapp/readalong-server/internal/align"
	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/playback"
	"github.com/readalongapp/readalong-server/internal/provider"
	"github.com/readalongapp/readalong-server/internal/sse"
	"github.com/readalongapp/readalong-server/internal/store"
)

// synthesisTimeout bounds one paragraph synthesis round trip.
const synthesisTimeout = 30 * time.Second

// Session is one live read-along. It implements playback.Listener; the
// callbacks run on the sync loop goroutine, which also owns clock and words.
type Session struct {
	ID         string
	DocumentID string
	Provider   string
	Voice      string
	CreatedAt  time.Time

	paragraphs []string
	synth      provider.Synthesizer
	store      *store.Store
	events     store.EventEmitter
	log        *logger.Logger

	loop  *playback.Loop
	clock *playback.Clock
	words []align.WordTiming

	mu       sync.Mutex
	speech   map[int]*provider.Speech
	inflight map[int]chan struct{}
}

// ParagraphChanged closes word sync for the old paragraph, announces the
// transition, and kicks off timing synthesis for the new one.
func (s *Session) ParagraphChanged(prev, next int, atMs int64) {
	s.clock.Gate().SetTimelinePending(next)
	s.clock.ClearWordTimeline()
	s.words = nil

	s.events.Emit(sse.NewParagraphChangedEvent(s.ID, prev, next, atMs))
	s.events.Emit(sse.NewProgressEvent(s.ID, s.progressData()))

	go s.prepareParagraph(next)

	// Prefetch the next paragraph so forward playback never waits on the
	// provider.
	if next >= prev && next+1 < len(s.paragraphs) {
		go s.prefetch(next + 1)
	}
}

// WordChanged announces a word highlight move, enriched with the word text
// and its character span within the paragraph.
func (s *Session) WordChanged(prev, next int, atMs int64) {
	data := sse.WordChangedData{
		PrevIndex: prev,
		NewIndex:  next,
		AtMs:      atMs,
	}
	if next >= 0 && next < len(s.words) {
		w := s.words[next]
		data.Word = w.Word
		data.CharOffset = w.CharOffset
		data.CharLength = w.CharLength
	}
	s.events.Emit(sse.NewWordChangedEvent(s.ID, data))
}

// Completed persists the resume point and announces the session finishing.
// Store writes leave the loop goroutine so a slow disk can't stall ticks.
func (s *Session) Completed(_ int64) {
	st := s.clock.State()
	go func() {
		s.persistPosition(st)
		s.events.Emit(sse.NewSessionCompletedEvent(s.ID, s.DocumentID, progressPct(st)))
	}()
}

// prepareParagraph synthesizes paragraph idx, aligns the result against the
// source text, and installs the word timeline if the paragraph is still the
// pending one. Stale completions are dropped by the gate check.
func (s *Session) prepareParagraph(idx int) {
	ctx, cancel := context.WithTimeout(context.Background(), synthesisTimeout)
	defer cancel()

	speech, err := s.speechFor(ctx, idx)
	if err != nil {
		// Paragraph highlighting keeps working without word timing.
		s.log.Warn("paragraph synthesis failed",
			"session_id", s.ID,
			"paragraph", idx,
			"provider", s.synth.Name(),
			"error", err)
		return
	}

	if speech.Timing == nil {
		s.loop.Do(func(c *playback.Clock) {
			if c.Gate().PendingIndex() != idx {
				return
			}
			c.ClearWordTimeline()
			c.Gate().SetTimelineReady(idx)
		})
		return
	}

	res := align.Align(s.paragraphs[idx], *speech.Timing)
	s.log.Debug("word timeline aligned",
		"session_id", s.ID,
		"paragraph", idx,
		"words", len(res.Words),
		"confidence", res.Confidence)

	s.loop.Do(func(c *playback.Clock) {
		if c.Gate().PendingIndex() != idx {
			return
		}
		start := c.ParagraphStart(idx)
		if start < 0 {
			return
		}
		// Word timings are relative to the paragraph audio; the clock runs
		// on the document timeline.
		shifted := make([]align.WordTiming, len(res.Words))
		for i, w := range res.Words {
			w.StartMs += start
			w.EndMs += start
			shifted[i] = w
		}
		s.words = shifted
		c.SetWordTimeline(shifted)
		c.Gate().SetTimelineReady(idx)
	})
}

// prefetch warms the speech cache for a paragraph without touching the gate.
func (s *Session) prefetch(idx int) {
	ctx, cancel := context.WithTimeout(context.Background(), synthesisTimeout)
	defer cancel()
	if _, err := s.speechFor(ctx, idx); err != nil {
		s.log.Debug("paragraph prefetch failed",
			"session_id", s.ID,
			"paragraph", idx,
			"error", err)
	}
}

// speechFor returns the cached synthesis for paragraph idx, synthesizing on
// a miss. Concurrent callers for the same paragraph share one provider call.
func (s *Session) speechFor(ctx context.Context, idx int) (*provider.Speech, error) {
	for {
		s.mu.Lock()
		if speech, ok := s.speech[idx]; ok {
			s.mu.Unlock()
			return speech, nil
		}
		wait, ok := s.inflight[idx]
		if !ok {
			break
		}
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	done := make(chan struct{})
	s.inflight[idx] = done
	s.mu.Unlock()

	speech, err := s.synth.Synthesize(ctx, provider.SpeechRequest{
		Text:  s.paragraphs[idx],
		Voice: s.Voice,
	})

	s.mu.Lock()
	delete(s.inflight, idx)
	if err == nil {
		s.speech[idx] = speech
	}
	s.mu.Unlock()
	close(done)

	return speech, err
}

// persistPosition saves the resume point for document-backed sessions.
func (s *Session) persistPosition(st playback.State) {
	if s.DocumentID == "" {
		return
	}
	pos := &domain.ReadingPosition{
		DocumentID:     s.DocumentID,
		PositionMs:     st.TimeMs,
		ParagraphIndex: st.ParagraphIndex,
		ProgressPct:    progressPct(st),
		LastReadAt:     time.Now(),
	}
	if err := s.store.SavePosition(pos); err != nil {
		s.log.Warn("failed to save reading position",
			"session_id", s.ID,
			"document_id", s.DocumentID,
			"error", err)
	}
}

// progressData snapshots progress for SSE. Runs on the loop goroutine.
func (s *Session) progressData() sse.ProgressData {
	st := s.clock.State()
	return sse.ProgressData{
		TimeMs:        st.TimeMs,
		TotalMs:       st.TotalMs,
		ProgressPct:   progressPct(st),
		TimeRemaining: s.clock.TimeRemaining(),
	}
}

func progressPct(st playback.State) float64 {
	if st.TotalMs <= 0 {
		return 0
	}
	p := float64(st.TimeMs) / float64(st.TotalMs) * 100
	if p > 100 {
		p = 100
	}
	return p
}
