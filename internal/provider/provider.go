// Package provider holds the pluggable text-to-speech backends. A provider
// synthesizes one paragraph at a time and, when it can, returns timing
// information the aligner turns into word-level highlights.
package provider

import (
	"context"

	"github.com/readalongapp/readalong-server/internal/align"
	"github.com/readalongapp/readalong-server/internal/errors"
)

// SpeechRequest asks a provider to synthesize one paragraph.
type SpeechRequest struct {
	Text  string
	Voice string // empty means the provider's configured default
}

// Speech is the result of synthesizing one paragraph. Timing is nil when the
// provider cannot report word or character timing; the session then falls
// back to paragraph-level highlighting.
type Speech struct {
	Audio      []byte
	Format     string // MIME type of Audio
	DurationMs int64  // 0 when the provider doesn't report duration
	Timing     *align.Input
}

// Synthesizer is a pluggable TTS backend.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, req SpeechRequest) (*Speech, error)
}

// Registry resolves providers by name.
type Registry struct {
	providers map[string]Synthesizer
	def       string
}

// NewRegistry builds a registry with def as the fallback provider name.
func NewRegistry(def string, providers ...Synthesizer) *Registry {
	r := &Registry{
		providers: make(map[string]Synthesizer, len(providers)),
		def:       def,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the named provider, or the default when name is empty.
func (r *Registry) Get(name string) (Synthesizer, error) {
	if name == "" {
		name = r.def
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, errors.Validationf("unknown provider: %s", name)
	}
	return p, nil
}

// Names lists registered providers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
