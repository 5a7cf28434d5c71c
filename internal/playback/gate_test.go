package playback

import "testing"

func TestGate_StartsOpen(t *testing.T) {
	var g Gate
	g.Reset()

	if !g.Ready() {
		t.Fatal("fresh gate must be ready")
	}
	if g.PendingIndex() != -1 {
		t.Errorf("pending index = %d, want -1", g.PendingIndex())
	}
}

func TestGate_PendingThenReady(t *testing.T) {
	var g Gate
	g.Reset()

	g.SetTimelinePending(3)
	if g.Ready() {
		t.Error("pending gate must not be ready")
	}
	if g.PendingIndex() != 3 {
		t.Errorf("pending index = %d, want 3", g.PendingIndex())
	}

	g.SetTimelineReady(3)
	if !g.Ready() {
		t.Error("expected ready after matching completion")
	}
	if g.PendingIndex() != -1 {
		t.Errorf("pending index after ready = %d, want -1", g.PendingIndex())
	}
}

func TestGate_StaleReadyIgnored(t *testing.T) {
	var g Gate
	g.Reset()

	g.SetTimelinePending(2)
	g.SetTimelinePending(3) // paragraph advanced before timing arrived

	g.SetTimelineReady(2) // stale completion
	if g.Ready() {
		t.Error("stale completion must not open the gate")
	}
	if g.PendingIndex() != 3 {
		t.Errorf("stale completion cleared the pending marker, got %d", g.PendingIndex())
	}

	g.SetTimelineReady(3)
	if !g.Ready() {
		t.Error("current completion should open the gate")
	}
}

func TestGate_ReadyWithNothingPending(t *testing.T) {
	var g Gate
	g.Reset()
	g.SetTimelinePending(1)
	g.SetTimelineReady(1)

	// With nothing pending any completion keeps the gate open.
	g.SetTimelineReady(7)
	if !g.Ready() {
		t.Error("completion with nothing pending must leave the gate open")
	}
	if g.PendingIndex() != -1 {
		t.Errorf("pending index = %d, want -1", g.PendingIndex())
	}
}

func TestGate_ResetReopens(t *testing.T) {
	var g Gate
	g.SetTimelinePending(1)

	g.Reset()
	if !g.Ready() || g.PendingIndex() != -1 {
		t.Error("reset should reopen the gate and clear the pending marker")
	}

	// A stray -1 completion while a paragraph is pending stays dropped.
	g.SetTimelinePending(4)
	g.SetTimelineReady(-1)
	if g.Ready() {
		t.Error("ready for the no-pending marker must not open a pending gate")
	}
}

func TestGate_RepeatedPendingReopens(t *testing.T) {
	var g Gate
	g.Reset()

	g.SetTimelinePending(0)
	g.SetTimelineReady(0)
	if !g.Ready() {
		t.Fatal("gate should be ready")
	}

	g.SetTimelinePending(1)
	if g.Ready() {
		t.Error("new pending paragraph must close the gate")
	}
}
