// Package align normalizes heterogeneous provider timing payloads into a
// uniform per-word timing sequence anchored to the original paragraph text.
//
// Providers report word timing in two shapes: character-level alignment
// (index-aligned character and start/end second arrays, ElevenLabs style) and
// word-level transcription (whisper style word list with seconds). Both are
// reduced to ordered WordTiming records whose character offsets point into
// the source text the paragraph was synthesized from.
package align

import "unicode"

// WordTiming is the timing record for a single spoken word.
// Offsets and lengths are counted in characters (runes) of the source text.
// CharOffset may be a best-effort estimate when fuzzy matching failed; it is
// never negative in a returned Result.
type WordTiming struct {
	Word       string `json:"word"`
	StartMs    int64  `json:"start_ms"`
	EndMs      int64  `json:"end_ms"`
	CharOffset int    `json:"char_offset"`
	CharLength int    `json:"char_length"`
}

// Result is the outcome of aligning one paragraph.
// Confidence is the fraction of words whose character offset was resolved by
// exact or fuzzy matching rather than estimated by interpolation.
type Result struct {
	Words           []WordTiming `json:"words"`
	Confidence      float64      `json:"confidence"`
	TranscribedText string       `json:"transcribed_text,omitempty"`
	SourceText      string       `json:"source_text,omitempty"`
}

// CharAlignment is a character-level timing payload. The three slices are
// index-aligned: Characters[i] spans StartTimesSec[i]..EndTimesSec[i].
type CharAlignment struct {
	Characters    []string  `json:"characters"`
	StartTimesSec []float64 `json:"character_start_times_seconds"`
	EndTimesSec   []float64 `json:"character_end_times_seconds"`
}

// TranscribedWord is one word of a word-level transcription payload.
type TranscribedWord struct {
	Word     string  `json:"word"`
	StartSec float64 `json:"start"`
	EndSec   float64 `json:"end"`
}

// Transcription is a word-level timing payload.
type Transcription struct {
	Words       []TranscribedWord `json:"words"`
	DurationSec float64           `json:"duration"`
}

// Input is a tagged variant over the two supported payload shapes.
// Exactly one field should be set; a zero Input aligns to nothing.
type Input struct {
	Characters    *CharAlignment `json:"characters,omitempty"`
	Transcription *Transcription `json:"transcription,omitempty"`
}

// Align converts a provider timing payload into per-word timing records
// anchored to source. Missing or malformed input degrades to an empty,
// zero-confidence result rather than an error; callers fall back to
// paragraph-level highlighting.
func Align(source string, in Input) Result {
	switch {
	case in.Characters != nil:
		return alignCharacters(source, in.Characters)
	case in.Transcription != nil:
		return alignTranscription(source, in.Transcription)
	default:
		return Result{SourceText: source}
	}
}

// isWordRune reports whether r belongs inside a word. Unicode-aware so
// accented letters and CJK characters count, not just ASCII ranges.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
