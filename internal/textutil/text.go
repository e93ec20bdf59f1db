// Package textutil provides the shared text feature primitives used by the
// verification scorers: word and sentence segmentation, trigram and keyword
// extraction, and simple distribution statistics.
package textutil

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
)

// foldCaser is a package-level Unicode case folder for performance.
var foldCaser = cases.Fold()

// Fold lowercases s with full Unicode case folding.
func Fold(s string) string { return foldCaser.String(s) }

// Words splits text on whitespace. It does not normalize case.
func Words(text string) []string { return strings.Fields(text) }

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int { return len(strings.Fields(text)) }

// Sentences splits text on runs of terminal punctuation (. ! ?) and
// returns the trimmed fragments longer than minLen characters.
func Sentences(text string, minLen int) []string {
	var out []string
	for _, raw := range splitTerminal(text) {
		s := strings.TrimSpace(raw)
		if len(s) > minLen {
			out = append(out, s)
		}
	}
	return out
}

// SentenceCount returns the number of fragments produced by splitting on
// terminal punctuation, without any length filtering. Used for per-sentence
// density measures.
func SentenceCount(text string) int { return len(splitTerminal(text)) }

func splitTerminal(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

// Trigrams returns the set of lowercase word trigrams in text.
func Trigrams(text string) map[string]struct{} {
	words := strings.Fields(Fold(text))
	set := make(map[string]struct{})
	for i := 0; i+2 < len(words); i++ {
		set[words[i]+" "+words[i+1]+" "+words[i+2]] = struct{}{}
	}
	return set
}

// TrigramOverlap returns the fraction of a's word trigrams that also
// appear in b. Returns 0 when a has no trigrams.
func TrigramOverlap(a, b string) float64 {
	aTri := Trigrams(a)
	if len(aTri) == 0 {
		return 0
	}
	bTri := Trigrams(b)
	shared := 0
	for t := range aTri {
		if _, ok := bTri[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(aTri))
}

// Keywords extracts the set of lowercase alphabetic tokens of at least
// minLen characters that are not in the stopword set.
func Keywords(text string, minLen int, stopwords map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, token := range alphaTokens(Fold(text)) {
		if len(token) < minLen {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		out[token] = struct{}{}
	}
	return out
}

// alphaTokens splits text into maximal runs of ASCII letters, mirroring a
// \b[a-zA-Z]+\b token scan.
func alphaTokens(text string) []string {
	var tokens []string
	var b strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

// CountPresent returns how many of the given phrases occur as substrings
// of the folded text. Each phrase counts at most once.
func CountPresent(text string, phrases []string) int {
	lower := Fold(text)
	count := 0
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			count++
		}
	}
	return count
}

// MatchPresent returns the phrases that occur as substrings of the folded
// text, preserving list order.
func MatchPresent(text string, phrases []string) []string {
	lower := Fold(text)
	var matched []string
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			matched = append(matched, p)
		}
	}
	return matched
}

// MeanStd returns the mean and population standard deviation of values.
// Both are 0 for an empty slice.
func MeanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	return mean, math.Sqrt(std / float64(len(values)))
}

// LengthCV returns the coefficient of variation of sentence word lengths,
// std/(mean+eps). Higher values indicate burstier writing.
func LengthCV(sentences []string, eps float64) float64 {
	if len(sentences) == 0 {
		return 0
	}
	lengths := make([]float64, len(sentences))
	for i, s := range sentences {
		lengths[i] = float64(WordCount(s))
	}
	mean, std := MeanStd(lengths)
	return std / (mean + eps)
}

// SetOf builds a lookup set from a word list, folding each entry.
func SetOf(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[Fold(w)] = struct{}{}
	}
	return set
}
