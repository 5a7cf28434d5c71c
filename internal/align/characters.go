package align

import "strings"

// alignCharacters reduces an index-aligned character timing payload to word
// timings. Character entries are accumulated into runs of word runes; any
// non-word entry (space, punctuation) closes the current run. Offsets and
// lengths are counted in character entries, which match rune offsets in the
// source text for well-formed payloads.
func alignCharacters(source string, ca *CharAlignment) Result {
	n := len(ca.Characters)
	if n == 0 || len(ca.StartTimesSec) != n || len(ca.EndTimesSec) != n {
		return Result{SourceText: source}
	}

	var (
		words []WordTiming
		buf   strings.Builder
		start int // index of the first entry in the current run
	)

	flush := func(end int) {
		if buf.Len() == 0 {
			return
		}
		words = append(words, WordTiming{
			Word:       buf.String(),
			StartMs:    secToMs(ca.StartTimesSec[start]),
			EndMs:      secToMs(ca.EndTimesSec[end]),
			CharOffset: start,
			CharLength: end - start + 1,
		})
		buf.Reset()
	}

	for i, ch := range ca.Characters {
		r := firstRune(ch)
		if r != 0 && isWordRune(r) {
			if buf.Len() == 0 {
				start = i
			}
			buf.WriteString(ch)
			continue
		}
		flush(i - 1)
	}
	flush(n - 1)

	conf := 0.0
	if len(words) > 0 {
		conf = 1.0
	}
	return Result{
		Words:      words,
		Confidence: conf,
		SourceText: source,
	}
}

func secToMs(sec float64) int64 {
	return int64(sec * 1000)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
