// Package extract turns definition text into references between dictionary
// entries.
package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is a byte range of a definition. Word spans are maximal runs of
// letters, digits and underscores; the text between them is kept as
// non-word spans so callers can rebuild the original string.
type Span struct {
	Start int
	End   int
	Word  bool
}

// Text returns the substring of s covered by the span.
func (sp Span) Text(s string) string {
	return s[sp.Start:sp.End]
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// Tokenize splits text into alternating word and non-word spans.
// Invalid UTF-8 bytes are treated as separators.
func Tokenize(text string) []Span {
	var spans []Span
	start := 0
	inWord := false
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		w := r != utf8.RuneError && isWordRune(r)
		if i == 0 {
			inWord = w
		} else if w != inWord {
			spans = append(spans, Span{Start: start, End: i, Word: inWord})
			start = i
			inWord = w
		}
		i += size
	}
	if len(text) > 0 {
		spans = append(spans, Span{Start: start, End: len(text), Word: inWord})
	}
	return spans
}

// Words returns the lower-cased word tokens of text in order of appearance.
func Words(text string) []string {
	var words []string
	forEachWord(text, func(w string) {
		words = append(words, w)
	})
	return words
}

// forEachWord calls fn with each lower-cased token without materializing spans.
func forEachWord(text string, fn func(string)) {
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r != utf8.RuneError && isWordRune(r) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			fn(strings.ToLower(text[start:i]))
			start = -1
		}
		i += size
	}
	if start >= 0 {
		fn(strings.ToLower(text[start:]))
	}
}
