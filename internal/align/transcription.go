package align

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// prefixLen is the anchor length for the fuzzy prefix match. Transcription
// engines often normalize word endings ("walking" vs "walkin'"); the first
// three characters are stable enough to locate the word.
const prefixLen = 3

// alignTranscription matches word-level transcription entries back to
// character offsets in the source text. Each word is resolved through a
// pipeline of decreasing strictness: exact substring match, contraction
// expansion, prefix match at a word boundary, then time-ratio interpolation.
// Interpolated offsets are estimates and do not count toward confidence.
func alignTranscription(source string, tr *Transcription) Result {
	if len(tr.Words) == 0 {
		return Result{SourceText: source}
	}

	srcRunes := []rune(source)
	lowerSrc := make([]rune, len(srcRunes))
	for i, r := range srcRunes {
		lowerSrc[i] = unicode.ToLower(r)
	}

	var (
		words       = make([]WordTiming, 0, len(tr.Words))
		transcribed = make([]string, 0, len(tr.Words))
		resolved    int

		// Search never moves backwards; spoken order follows text order.
		searchStart int

		// Anchor for interpolation: end offset and end time of the most
		// recently resolved word.
		lastOffset int
		lastEndMs  int64
	)

	totalMs := secToMs(tr.DurationSec)
	if totalMs == 0 && len(tr.Words) > 0 {
		totalMs = secToMs(tr.Words[len(tr.Words)-1].EndSec)
	}

	for _, tw := range tr.Words {
		raw := strings.TrimSpace(tw.Word)
		transcribed = append(transcribed, raw)

		cleaned := cleanWord(norm.NFC.String(raw))
		wt := WordTiming{
			Word:    raw,
			StartMs: secToMs(tw.StartSec),
			EndMs:   secToMs(tw.EndSec),
		}

		pos, length := matchWord(lowerSrc, cleaned, searchStart)
		if pos >= 0 {
			end := absorbTrailingPunct(srcRunes, pos+length)
			wt.CharOffset = pos
			wt.CharLength = end - pos
			searchStart = end
			lastOffset = end
			lastEndMs = wt.EndMs
			resolved++
		} else {
			wt.CharOffset = interpolateOffset(lastOffset, lastEndMs, wt.StartMs, totalMs, len(srcRunes))
			wt.CharLength = len([]rune(cleaned))
		}

		words = append(words, wt)
	}

	return Result{
		Words:           words,
		Confidence:      float64(resolved) / float64(len(tr.Words)),
		TranscribedText: strings.Join(transcribed, " "),
		SourceText:      source,
	}
}

// matchWord locates word in lowerSrc at or after from, returning the rune
// offset and matched length, or (-1, 0) when no match is found.
func matchWord(lowerSrc []rune, word string, from int) (int, int) {
	if word == "" {
		return -1, 0
	}

	target := []rune(strings.ToLower(word))
	if pos := indexRunes(lowerSrc, target, from); pos >= 0 {
		return pos, len(target)
	}

	// Contraction forms: the engine may expand "don't" to "do not" or the
	// source may spell out what the engine contracted.
	for _, variant := range contractionVariants(strings.ToLower(word)) {
		vr := []rune(variant)
		if pos := indexRunes(lowerSrc, vr, from); pos >= 0 {
			return pos, len(vr)
		}
	}

	// Prefix anchor: match the first few characters at a word boundary and
	// claim the whole source word there.
	if len(target) >= prefixLen {
		prefix := target[:prefixLen]
		for start := from; start < len(lowerSrc); {
			pos := indexRunes(lowerSrc, prefix, start)
			if pos < 0 {
				break
			}
			if pos == 0 || !isWordRune(lowerSrc[pos-1]) {
				end := pos
				for end < len(lowerSrc) && isWordRune(lowerSrc[end]) {
					end++
				}
				return pos, end - pos
			}
			start = pos + 1
		}
	}

	return -1, 0
}

// interpolateOffset estimates a character offset for an unmatched word by
// assuming speech progresses linearly through the remaining text.
func interpolateOffset(lastOffset int, lastEndMs, wordStartMs, totalMs int64, srcLen int) int {
	remainingMs := totalMs - lastEndMs
	if remainingMs <= 0 || srcLen == 0 {
		return clampOffset(lastOffset, srcLen)
	}
	elapsed := wordStartMs - lastEndMs
	if elapsed < 0 {
		elapsed = 0
	}
	remainingLen := srcLen - lastOffset
	est := lastOffset + int(float64(elapsed)/float64(remainingMs)*float64(remainingLen))
	return clampOffset(est, srcLen)
}

func clampOffset(off, srcLen int) int {
	if off < 0 {
		return 0
	}
	if srcLen > 0 && off >= srcLen {
		return srcLen - 1
	}
	return off
}

// absorbTrailingPunct extends end past punctuation attached to the matched
// word ("Hello," claims the comma) so highlights cover the full token.
func absorbTrailingPunct(src []rune, end int) int {
	for end < len(src) && !isWordRune(src[end]) && !unicode.IsSpace(src[end]) {
		end++
	}
	return end
}

// cleanWord strips leading and trailing non-word runes. Interior punctuation
// (apostrophes, hyphens) is kept so contractions and compounds survive.
func cleanWord(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return !isWordRune(r) })
}

// indexRunes is strings.Index over rune slices starting at from.
func indexRunes(haystack, needle []rune, from int) int {
	if len(needle) == 0 || from < 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if haystack[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
