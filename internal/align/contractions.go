package align

// contractions maps common English contractions to their expanded forms.
// Both directions are tried when matching transcribed words against source
// text, since transcription engines normalize inconsistently.
var contractions = map[string]string{
	"aren't":    "are not",
	"can't":     "cannot",
	"couldn't":  "could not",
	"didn't":    "did not",
	"doesn't":   "does not",
	"don't":     "do not",
	"hadn't":    "had not",
	"hasn't":    "has not",
	"haven't":   "have not",
	"he's":      "he is",
	"i'm":       "i am",
	"i've":      "i have",
	"i'll":      "i will",
	"i'd":       "i would",
	"isn't":     "is not",
	"it's":      "it is",
	"let's":     "let us",
	"she's":     "she is",
	"shouldn't": "should not",
	"that's":    "that is",
	"there's":   "there is",
	"they're":   "they are",
	"they've":   "they have",
	"wasn't":    "was not",
	"we're":     "we are",
	"we've":     "we have",
	"weren't":   "were not",
	"what's":    "what is",
	"won't":     "will not",
	"wouldn't":  "would not",
	"you're":    "you are",
	"you've":    "you have",
}

var expansions = func() map[string]string {
	m := make(map[string]string, len(contractions))
	for k, v := range contractions {
		m[v] = k
	}
	return m
}()

// contractionVariants returns alternate spellings of word worth trying when
// an exact match fails. word must already be lowercased.
func contractionVariants(word string) []string {
	var out []string
	if v, ok := contractions[word]; ok {
		out = append(out, v)
	}
	if v, ok := expansions[word]; ok {
		out = append(out, v)
	}
	return out
}
