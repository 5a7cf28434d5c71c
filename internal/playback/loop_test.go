package playback

import (
	"io"
	"testing"
	"time"

	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/timeline"
)

func testLoop(t *testing.T) *Loop {
	t.Helper()
	tl, err := timeline.BuildEstimate([]string{"a b c", "d e f"}, 60000)
	if err != nil {
		t.Fatalf("build timeline: %v", err)
	}
	log := logger.New(logger.Config{Writer: io.Discard})
	l := NewLoop(NewClock(tl, nil), 10*time.Millisecond, log)
	l.Start()
	t.Cleanup(l.Stop)
	return l
}

func TestLoop_TickAdvancesClock(t *testing.T) {
	l := testLoop(t)
	l.Resume()

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := l.State()
		if st.TimeMs > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("clock never advanced")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoop_PauseFreezesClock(t *testing.T) {
	l := testLoop(t)
	l.Resume()
	time.Sleep(50 * time.Millisecond)
	l.Pause()

	st1 := l.State()
	time.Sleep(50 * time.Millisecond)
	st2 := l.State()

	if st2.TimeMs != st1.TimeMs {
		t.Errorf("paused clock moved from %d to %d", st1.TimeMs, st2.TimeMs)
	}
}

func TestLoop_SeekDiscardsStaleReport(t *testing.T) {
	l := testLoop(t)
	l.Resume()
	l.ReportPosition(100)
	time.Sleep(30 * time.Millisecond)

	// A seek far from the last report must not be yanked back by it.
	l.Seek(30000)
	time.Sleep(50 * time.Millisecond)

	st := l.State()
	if st.TimeMs < 29000 {
		t.Errorf("stale report pulled the clock back to %d", st.TimeMs)
	}
}

func TestLoop_StopIdempotent(t *testing.T) {
	tl, err := timeline.BuildEstimate([]string{"a"}, 1000)
	if err != nil {
		t.Fatalf("build timeline: %v", err)
	}
	log := logger.New(logger.Config{Writer: io.Discard})
	l := NewLoop(NewClock(tl, nil), 10*time.Millisecond, log)
	l.Start()

	l.Stop()
	l.Stop()

	// Commands after stop are dropped, not blocked.
	l.Seek(500)
	if st := l.State(); st.TimeMs != 0 {
		t.Errorf("stopped loop executed a command, time = %d", st.TimeMs)
	}
}

func TestNewLoop_IntervalClamped(t *testing.T) {
	log := logger.New(logger.Config{Writer: io.Discard})

	l := NewLoop(NewClock(nil, nil), 500*time.Millisecond, log)
	if l.interval != DefaultTickInterval {
		t.Errorf("oversized interval = %v, want default", l.interval)
	}

	l = NewLoop(NewClock(nil, nil), 0, log)
	if l.interval != DefaultTickInterval {
		t.Errorf("zero interval = %v, want default", l.interval)
	}
}
