package playback

// noPending marks the absence of a pending paragraph.
const noPending = -1

// Gate prevents word-level sync from running against a stale word timeline
// while a paragraph transition is in flight. The gate starts open: a word
// timeline installed without a transition in progress syncs immediately.
// When a paragraph changes the session marks it pending; word sync stays off
// until timing for that exact paragraph arrives. A ready signal for a
// superseded paragraph is ignored, so slow fetches can never install timing
// for the wrong paragraph.
type Gate struct {
	pendingIdx int
	ready      bool
}

// SetTimelinePending records that paragraph i is waiting for word timing and
// turns word sync off.
func (g *Gate) SetTimelinePending(i int) {
	g.pendingIdx = i
	g.ready = false
}

// SetTimelineReady enables word sync when i matches the pending paragraph,
// or when nothing is pending. It clears the pending marker. A completion for
// a superseded paragraph is dropped silently.
func (g *Gate) SetTimelineReady(i int) {
	if g.pendingIdx != noPending && g.pendingIdx != i {
		return
	}
	g.pendingIdx = noPending
	g.ready = true
}

// Ready reports whether word sync may run.
func (g *Gate) Ready() bool { return g.ready }

// PendingIndex returns the paragraph awaiting word timing, or -1.
func (g *Gate) PendingIndex() int { return g.pendingIdx }

// Reset unconditionally reopens the gate and clears the pending marker.
func (g *Gate) Reset() {
	g.pendingIdx = noPending
	g.ready = true
}
