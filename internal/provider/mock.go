package provider

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/readalongapp/readalong-server/internal/align"
)

const (
	mockName = "mock"

	// Roughly 165 wpm at an average 6 characters per word.
	mockMsPerChar = 60
)

// Mock is a deterministic in-memory provider. It emits a tiny placeholder
// payload instead of audio and synthetic character timing at a fixed reading
// rate, which makes the whole pipeline (timeline, alignment, word sync)
// exercisable without credentials or network access.
type Mock struct {
	// Fail forces every synthesis to error, for failure-path tests.
	Fail bool

	calls atomic.Int64
}

// NewMock creates a mock provider.
func NewMock() *Mock { return &Mock{} }

// Name implements Synthesizer.
func (m *Mock) Name() string { return mockName }

// Calls reports how many times Synthesize has run. Sessions synthesize from
// prefetch goroutines, so the counter is atomic.
func (m *Mock) Calls() int { return int(m.calls.Load()) }

// Synthesize implements Synthesizer.
func (m *Mock) Synthesize(_ context.Context, req SpeechRequest) (*Speech, error) {
	m.calls.Add(1)
	if m.Fail {
		return nil, fmt.Errorf("mock provider configured to fail")
	}

	runes := []rune(req.Text)
	ca := &align.CharAlignment{
		Characters:    make([]string, len(runes)),
		StartTimesSec: make([]float64, len(runes)),
		EndTimesSec:   make([]float64, len(runes)),
	}
	for i, r := range runes {
		ca.Characters[i] = string(r)
		ca.StartTimesSec[i] = float64(i*mockMsPerChar) / 1000
		ca.EndTimesSec[i] = float64((i+1)*mockMsPerChar) / 1000
	}

	return &Speech{
		Audio:      []byte("mock-audio:" + req.Text),
		Format:     "audio/mpeg",
		DurationMs: int64(len(runes) * mockMsPerChar),
		Timing:     &align.Input{Characters: ca},
	}, nil
}
