package canonical

import (
	"strings"
	"unicode"
)

// PhraseMatcher decides whether a segment contains a known dictionary term
// and, if so, which canonical output to emit.
type PhraseMatcher struct {
	dict *Dictionary
}

// NewPhraseMatcher creates a matcher over the given dictionary.
func NewPhraseMatcher(dict *Dictionary) *PhraseMatcher {
	return &PhraseMatcher{dict: dict}
}

// Match scans the segment for any dictionary source term occurring as a
// whole, token-aligned phrase ("möhrchen" matches as a whole word, never as
// part of a longer token). Tokens are the letter-and-digit runs of the
// segment, so trailing punctuation like "seealgenmehl." still matches. At
// most one substitution is applied: the first term in dictionary order that
// occurs anywhere in the segment wins and its canonical value replaces the
// entire segment. With no match the segment's cleaned text is returned
// unchanged.
func (m *PhraseMatcher) Match(segment string) string {
	tokens := tokenize(segment)
	if len(tokens) == 0 {
		return segment
	}

	for _, term := range m.dict.Terms() {
		if containsPhrase(tokens, tokenize(term)) {
			canonical, _ := m.dict.Lookup(term)
			return canonical
		}
	}
	return segment
}

// tokenize lowercases the text and splits it on anything that is not a
// letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// containsPhrase reports whether phrase occurs as a contiguous run of whole
// tokens inside tokens.
func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, want := range phrase {
			if tokens[i+j] != want {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
