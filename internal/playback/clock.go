// Package playback holds the synchronization clock for a reading session:
// an internal position that advances with wall time, periodically reconciled
// against the position the client reports for its local audio element.
//
// The Clock itself is not safe for concurrent use. Loop owns one and applies
// every mutation from a single goroutine.
package playback

import (
	"fmt"

	"github.com/readalongapp/readalong-server/internal/align"
	"github.com/readalongapp/readalong-server/internal/timeline"
)

// DefaultDriftThresholdMs is the drift magnitude beyond which the clock
// snaps to the client-reported position.
const DefaultDriftThresholdMs = 200

// Listener receives highlight transitions as the clock advances.
// Implementations must be fast; they run on the sync goroutine.
type Listener interface {
	ParagraphChanged(prev, next int, atMs int64)
	WordChanged(prev, next int, atMs int64)
	Completed(atMs int64)
}

// State is a snapshot of the clock, safe to hand across goroutines.
type State struct {
	ParagraphIndex   int   `json:"paragraph_index"`
	WordIndex        int   `json:"word_index"`
	TimeMs           int64 `json:"time_ms"`
	TotalMs          int64 `json:"total_ms"`
	DriftMs          int64 `json:"drift_ms"`
	Running          bool  `json:"running"`
	TimelineAccurate bool  `json:"timeline_accurate"`
}

// Clock tracks the current playback position against a paragraph timeline
// and, when available, a per-word timeline for the current paragraph.
type Clock struct {
	timeline []timeline.ParagraphTiming
	words    []align.WordTiming
	gate     Gate

	paragraphIdx int
	wordIdx      int
	timeMs       int64
	totalMs      int64
	driftMs      int64
	running      bool
	accurate     bool
	completed    bool

	lastNowMs        int64
	driftThresholdMs int64

	listener Listener
}

// NewClock builds a clock over a paragraph timeline. The timeline may be
// empty; Seek and Tick degrade to no-ops until one is installed.
func NewClock(tl []timeline.ParagraphTiming, listener Listener) *Clock {
	c := &Clock{
		timeline:         tl,
		totalMs:          timeline.TotalMs(tl),
		paragraphIdx:     -1,
		wordIdx:          -1,
		lastNowMs:        -1,
		driftThresholdMs: DefaultDriftThresholdMs,
		listener:         listener,
	}
	if len(tl) > 0 {
		c.paragraphIdx = 0
	}
	c.gate.Reset()
	return c
}

// SetDriftThreshold overrides the resync threshold. Values below 1 keep the
// default.
func (c *Clock) SetDriftThreshold(ms int64) {
	if ms >= 1 {
		c.driftThresholdMs = ms
	}
}

// State returns a copy of the current clock state.
func (c *Clock) State() State {
	return State{
		ParagraphIndex:   c.paragraphIdx,
		WordIndex:        c.wordIdx,
		TimeMs:           c.timeMs,
		TotalMs:          c.totalMs,
		DriftMs:          c.driftMs,
		Running:          c.running,
		TimelineAccurate: c.accurate,
	}
}

// Gate exposes the paragraph transition gate.
func (c *Clock) Gate() *Gate { return &c.gate }

// Seek moves the clock to ms, clamped to [0, total]. Drift is discarded and
// both highlight indexes are recomputed immediately, firing transitions.
func (c *Clock) Seek(ms int64) {
	if ms < 0 {
		ms = 0
	}
	if ms > c.totalMs {
		ms = c.totalMs
	}
	c.timeMs = ms
	c.driftMs = 0
	if ms < c.totalMs {
		c.completed = false
	}
	c.syncIndexes()
}

// SeekToParagraph jumps to the start of paragraph i, clamped to the timeline.
func (c *Clock) SeekToParagraph(i int) {
	if len(c.timeline) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(c.timeline) {
		i = len(c.timeline) - 1
	}
	c.Seek(c.timeline[i].StartMs)
}

// Resume starts the clock advancing on the next tick.
func (c *Clock) Resume() {
	c.running = true
	c.lastNowMs = -1
}

// Pause stops the clock without losing position.
func (c *Clock) Pause() {
	c.running = false
}

// Reset returns the clock to the start of the timeline, stopped, with the
// word timeline cleared and the gate restored. Idempotent.
func (c *Clock) Reset() {
	c.running = false
	c.completed = false
	c.timeMs = 0
	c.driftMs = 0
	c.lastNowMs = -1
	c.words = nil
	c.wordIdx = -1
	c.paragraphIdx = -1
	if len(c.timeline) > 0 {
		c.paragraphIdx = 0
	}
	c.gate.Reset()
}

// SetWordTimeline installs the per-word timeline for the current paragraph.
// The slice replaces any previous one wholesale. The word index resets so
// the next sync announces the current word as a transition.
func (c *Clock) SetWordTimeline(words []align.WordTiming) {
	c.words = words
	c.wordIdx = -1
}

// ClearWordTimeline drops word-level sync, falling back to paragraph
// highlighting.
func (c *Clock) ClearWordTimeline() {
	c.words = nil
	c.wordIdx = -1
}

// RebuildTimelineWithDuration rescales the paragraph timeline to the actual
// audio duration reported by the client, after which the timeline is
// considered accurate. Empty timelines and zero durations are left alone.
func (c *Clock) RebuildTimelineWithDuration(actualTotalMs int64) error {
	if len(c.timeline) == 0 || actualTotalMs <= 0 {
		return nil
	}
	rescaled, err := timeline.Rescale(c.timeline, actualTotalMs)
	if err != nil {
		return fmt.Errorf("rebuild timeline: %w", err)
	}
	c.timeline = rescaled
	c.totalMs = actualTotalMs
	c.accurate = true
	if c.timeMs > c.totalMs {
		c.timeMs = c.totalMs
	}
	c.syncIndexes()
	return nil
}

// Tick advances the clock to wall time nowMs and reconciles against the
// client-reported audio position. audioPosMs < 0 means no report yet. Does
// nothing while paused.
func (c *Clock) Tick(nowMs, audioPosMs int64) {
	if !c.running {
		return
	}
	if c.lastNowMs >= 0 && nowMs > c.lastNowMs {
		c.timeMs += nowMs - c.lastNowMs
		if c.timeMs > c.totalMs {
			c.timeMs = c.totalMs
		}
	}
	c.lastNowMs = nowMs

	if audioPosMs >= 0 {
		// Positive drift means the internal clock runs ahead of the audio.
		c.driftMs = c.timeMs - audioPosMs
		if c.driftMs > c.driftThresholdMs || c.driftMs < -c.driftThresholdMs {
			c.Resync(audioPosMs)
			return
		}
	}

	c.syncIndexes()
	c.checkCompleted()
}

// Resync snaps the internal clock to the reported audio position and clears
// accumulated drift.
func (c *Clock) Resync(audioPosMs int64) {
	if audioPosMs < 0 {
		audioPosMs = 0
	}
	if audioPosMs > c.totalMs {
		audioPosMs = c.totalMs
	}
	c.timeMs = audioPosMs
	c.driftMs = 0
	c.syncIndexes()
	c.checkCompleted()
}

// checkCompleted fires the Completed transition once when a running clock
// reaches the end of the timeline, then stops it.
func (c *Clock) checkCompleted() {
	if !c.running || c.completed || !c.AtEnd() {
		return
	}
	c.completed = true
	c.running = false
	if c.listener != nil {
		c.listener.Completed(c.timeMs)
	}
}

// ParagraphStart returns the timeline start of paragraph i, or -1 when the
// index is out of range.
func (c *Clock) ParagraphStart(i int) int64 {
	if i < 0 || i >= len(c.timeline) {
		return -1
	}
	return c.timeline[i].StartMs
}

// AtEnd reports whether the clock has reached the end of the timeline.
func (c *Clock) AtEnd() bool {
	return c.totalMs > 0 && c.timeMs >= c.totalMs
}

// ProgressPercent returns playback progress clamped to 0..100.
func (c *Clock) ProgressPercent() float64 {
	if c.totalMs <= 0 {
		return 0
	}
	p := float64(c.timeMs) / float64(c.totalMs) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// TimeRemaining formats the remaining playback time as M:SS, flooring at
// 0:00.
func (c *Clock) TimeRemaining() string {
	remaining := c.totalMs - c.timeMs
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%d:%02d", remaining/60000, remaining%60000/1000)
}

// syncIndexes recomputes the paragraph and word indexes from the current
// time, firing listener transitions for every index crossed, in order.
func (c *Clock) syncIndexes() {
	newPar := timeline.ParagraphAt(c.timeline, c.timeMs)
	if newPar != c.paragraphIdx {
		c.stepParagraphs(newPar)
	}

	if len(c.words) == 0 || !c.gate.Ready() {
		return
	}
	newWord := binarySearchWord(c.words, c.timeMs)
	if newWord != c.wordIdx {
		prev := c.wordIdx
		c.wordIdx = newWord
		if c.listener != nil {
			c.listener.WordChanged(prev, newWord, c.timeMs)
		}
	}
}

// stepParagraphs walks from the current paragraph to target one index at a
// time so a large seek still reports each transition exactly once.
func (c *Clock) stepParagraphs(target int) {
	step := 1
	if target < c.paragraphIdx {
		step = -1
	}
	for c.paragraphIdx != target {
		prev := c.paragraphIdx
		c.paragraphIdx += step
		if c.listener != nil {
			c.listener.ParagraphChanged(prev, c.paragraphIdx, c.timeMs)
		}
	}
}

// binarySearchWord returns the index of the last word starting at or before
// timeMs, clamped to the first and last words. Returns -1 for an empty
// timeline.
func binarySearchWord(words []align.WordTiming, timeMs int64) int {
	if len(words) == 0 {
		return -1
	}
	if timeMs < words[0].StartMs {
		return 0
	}
	lo, hi := 0, len(words)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if words[mid].StartMs <= timeMs {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
