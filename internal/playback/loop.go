package playback

import (
	"sync"
	"time"

	"github.com/readalongapp/readalong-server/internal/logger"
)

const (
	// DefaultTickInterval is the sync cadence. Word highlights need roughly
	// 100ms resolution to look attached to the audio; half that leaves room
	// for scheduling jitter.
	DefaultTickInterval = 50 * time.Millisecond
	maxTickInterval     = 100 * time.Millisecond

	commandBuffer = 64
)

// Loop drives a Clock from its own goroutine. The clock has no locks; every
// mutation, including ticks, runs on the loop goroutine. Callers reach the
// clock only through Do, which enqueues a command on a buffered channel.
type Loop struct {
	clock    *Clock
	interval time.Duration
	log      *logger.Logger

	cmds chan func(*Clock)
	done chan struct{}

	stopOnce sync.Once
	wg       sync.WaitGroup

	// reportedMs is owned by the loop goroutine; commands update it.
	reportedMs int64
}

// NewLoop wraps clock in a sync loop ticking at interval. Intervals outside
// (0, 100ms] fall back to the default.
func NewLoop(clock *Clock, interval time.Duration, log *logger.Logger) *Loop {
	if interval <= 0 || interval > maxTickInterval {
		interval = DefaultTickInterval
	}
	return &Loop{
		clock:    clock,
		interval: interval,
		log:      log,
		cmds:     make(chan func(*Clock), commandBuffer),
		done:     make(chan struct{}),
	}
}

// Start launches the sync goroutine.
func (l *Loop) Start() {
	l.reportedMs = -1
	l.wg.Add(1)
	go l.run()
}

// Stop terminates the sync goroutine and waits for it to drain. Idempotent
// and safe to call mid-transition.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}

// Do runs fn on the loop goroutine. Commands submitted after Stop are
// dropped; so are commands that would block on a full queue, since a stalled
// consumer must not back-pressure API handlers.
func (l *Loop) Do(fn func(*Clock)) {
	select {
	case <-l.done:
	case l.cmds <- fn:
	default:
		l.log.Warn("sync loop command queue full, dropping command")
	}
}

// ReportPosition feeds a client-reported audio position into the next tick.
func (l *Loop) ReportPosition(positionMs int64) {
	l.Do(func(c *Clock) {
		l.reportedMs = positionMs
	})
}

// Seek moves the clock and discards the last position report, which refers
// to the pre-seek audio position.
func (l *Loop) Seek(ms int64) {
	l.Do(func(c *Clock) {
		l.reportedMs = -1
		c.Seek(ms)
	})
}

// SeekToParagraph jumps to a paragraph start, discarding stale reports.
func (l *Loop) SeekToParagraph(i int) {
	l.Do(func(c *Clock) {
		l.reportedMs = -1
		c.SeekToParagraph(i)
	})
}

// Pause stops the clock.
func (l *Loop) Pause() {
	l.Do(func(c *Clock) { c.Pause() })
}

// Resume restarts the clock.
func (l *Loop) Resume() {
	l.Do(func(c *Clock) { c.Resume() })
}

// Reset returns the clock to the start and discards stale reports.
func (l *Loop) Reset() {
	l.Do(func(c *Clock) {
		l.reportedMs = -1
		c.Reset()
	})
}

// State snapshots the clock synchronously. Returns a zero State if the loop
// has already stopped.
func (l *Loop) State() State {
	ch := make(chan State, 1)
	select {
	case <-l.done:
		return State{}
	case l.cmds <- func(c *Clock) { ch <- c.State() }:
	}
	select {
	case <-l.done:
		return State{}
	case st := <-ch:
		return st
	}
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case fn := <-l.cmds:
			fn(l.clock)
		case now := <-ticker.C:
			l.clock.Tick(now.UnixMilli(), l.reportedMs)
		}
	}
}
