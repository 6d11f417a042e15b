package textutil

import (
	"regexp"
	"strings"
)

const minTokenLength = 2

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// Tokenizer turns free text into a set of lowercase meaningful terms. It is
// shared by every comparison in the engine, so it stays pure and cheap.
type Tokenizer struct {
	stopWords map[string]struct{}
}

// NewTokenizer creates a tokenizer with the given stopword set. A nil set
// means no stopword filtering.
func NewTokenizer(stopWords map[string]struct{}) *Tokenizer {
	return &Tokenizer{stopWords: stopWords}
}

// Tokenize lowercases text (splitting camel-case boundaries first, so
// "fooBar" yields "foo" and "bar"), strips everything outside [a-z0-9],
// splits on the resulting whitespace and hyphens, and drops tokens shorter
// than two characters or in the stopword set. The result is a deduplicated
// set; empty input yields an empty set.
func (t *Tokenizer) Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	if text == "" {
		return tokens
	}

	text = camelBoundary.ReplaceAllString(text, "$1 $2")
	text = strings.ToLower(text)

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})

	for _, w := range words {
		if len(w) < minTokenLength {
			continue
		}
		if _, stop := t.stopWords[w]; stop {
			continue
		}
		tokens[w] = struct{}{}
	}

	return tokens
}

// JaccardSimilarity returns |A∩B| / |A∪B|. Two empty sets score 0, not 1:
// two empty fragments must never register as similar.
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// SharedTokens counts tokens present in both sets.
func SharedTokens(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

// TagOverlap returns the case-insensitive overlap coefficient
// |A∩B| / min(|A|,|B|) between two tag lists, 0 if either is empty.
func TagOverlap(tagsA, tagsB []string) float64 {
	if len(tagsA) == 0 || len(tagsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tagsA))
	for _, tag := range tagsA {
		setA[strings.ToLower(tag)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tagsB))
	for _, tag := range tagsB {
		setB[strings.ToLower(tag)] = struct{}{}
	}

	intersection := 0
	for tag := range setA {
		if _, ok := setB[tag]; ok {
			intersection++
		}
	}

	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	if smaller == 0 {
		return 0
	}
	return float64(intersection) / float64(smaller)
}
