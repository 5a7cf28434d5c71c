// Package timeline builds and rescales per-paragraph time ranges spanning
// the total audio duration of a reading session.
package timeline

import (
	"strings"

	"github.com/readalongapp/readalong-server/internal/errors"
)

// ParagraphTiming is the time range a single paragraph occupies within the
// session audio. Ranges are contiguous: each paragraph ends exactly where the
// next one starts, the first starts at 0, and the last ends at the total
// duration.
type ParagraphTiming struct {
	Index      int   `json:"index"`
	StartMs    int64 `json:"start_ms"`
	EndMs      int64 `json:"end_ms"`
	DurationMs int64 `json:"duration_ms"`
}

// BuildEstimate splits estimatedTotalMs across paragraphs proportionally to
// their word counts. A paragraph with no words still receives a share of one
// word unit so every paragraph owns a non-degenerate range.
func BuildEstimate(paragraphs []string, estimatedTotalMs int64) ([]ParagraphTiming, error) {
	if estimatedTotalMs < 0 {
		return nil, errors.InvalidArgumentf("estimated duration must be non-negative, got %d", estimatedTotalMs)
	}
	if len(paragraphs) == 0 {
		return nil, nil
	}

	counts := make([]int64, len(paragraphs))
	var totalWords int64
	for i, p := range paragraphs {
		c := int64(WordCount(p))
		if c == 0 {
			c = 1
		}
		counts[i] = c
		totalWords += c
	}

	timings := make([]ParagraphTiming, len(paragraphs))
	var cursor int64
	for i, c := range counts {
		dur := estimatedTotalMs * c / totalWords
		timings[i] = ParagraphTiming{
			Index:      i,
			StartMs:    cursor,
			EndMs:      cursor + dur,
			DurationMs: dur,
		}
		cursor += dur
	}

	// Integer division leaves a remainder at the tail; close it so the last
	// paragraph ends exactly at the estimated total.
	last := &timings[len(timings)-1]
	last.EndMs = estimatedTotalMs
	last.DurationMs = last.EndMs - last.StartMs

	return timings, nil
}

// Rescale stretches or shrinks every paragraph's duration so the timeline
// spans actualTotalMs instead of its original total. Boundaries are recomputed
// by cumulative sum rather than scaling each boundary independently, which
// would compound rounding error across paragraphs. The last paragraph's end is
// forced to exactly actualTotalMs.
//
// An empty timeline or an original total of zero is a defined degenerate case:
// the input is returned unchanged.
func Rescale(timeline []ParagraphTiming, actualTotalMs int64) ([]ParagraphTiming, error) {
	if actualTotalMs < 0 {
		return nil, errors.InvalidArgumentf("actual duration must be non-negative, got %d", actualTotalMs)
	}
	if len(timeline) == 0 {
		return timeline, nil
	}

	originalTotal := timeline[len(timeline)-1].EndMs
	if originalTotal == 0 {
		return timeline, nil
	}

	ratio := float64(actualTotalMs) / float64(originalTotal)

	// Replace the whole slice; callers may still hold the old one.
	rescaled := make([]ParagraphTiming, len(timeline))
	var cursor int64
	for i, pt := range timeline {
		dur := int64(float64(pt.DurationMs) * ratio)
		rescaled[i] = ParagraphTiming{
			Index:      pt.Index,
			StartMs:    cursor,
			EndMs:      cursor + dur,
			DurationMs: dur,
		}
		cursor += dur
	}

	last := &rescaled[len(rescaled)-1]
	last.EndMs = actualTotalMs
	last.DurationMs = last.EndMs - last.StartMs

	return rescaled, nil
}

// TotalMs returns the total duration covered by the timeline.
func TotalMs(timeline []ParagraphTiming) int64 {
	if len(timeline) == 0 {
		return 0
	}
	return timeline[len(timeline)-1].EndMs
}

// ParagraphAt returns the index of the paragraph whose [StartMs, EndMs) range
// contains timeMs, clamping to the first and last paragraphs. Returns -1 for
// an empty timeline.
func ParagraphAt(timeline []ParagraphTiming, timeMs int64) int {
	if len(timeline) == 0 {
		return -1
	}
	if timeMs < timeline[0].StartMs {
		return 0
	}

	lo, hi := 0, len(timeline)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if timeline[mid].StartMs <= timeMs {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// WordCount counts whitespace-separated words, the same unit BuildEstimate
// uses for proportional allocation.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
