package textutil

import (
	"strings"
	"testing"
)

func testStopWords() map[string]struct{} {
	return map[string]struct{}{
		"the": {},
		"is":  {},
		"for": {},
		"and": {},
	}
}

func TestTokenize(t *testing.T) {
	tok := NewTokenizer(testStopWords())

	tokens := tok.Tokenize("The API is fast, reliable and cheap!")

	want := []string{"api", "fast", "reliable", "cheap"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for _, w := range want {
		if _, ok := tokens[w]; !ok {
			t.Errorf("expected token %q in %v", w, tokens)
		}
	}
}

func TestTokenizeCamelCase(t *testing.T) {
	tok := NewTokenizer(nil)

	tokens := tok.Tokenize("fooBar PostgresClient")

	for _, w := range []string{"foo", "bar", "postgres", "client"} {
		if _, ok := tokens[w]; !ok {
			t.Errorf("expected camel-case split token %q, got %v", w, tokens)
		}
	}
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	tok := NewTokenizer(nil)

	tokens := tok.Tokenize("a b c go db x9")

	if _, ok := tokens["a"]; ok {
		t.Error("single-character token should be dropped")
	}
	for _, w := range []string{"go", "db", "x9"} {
		if _, ok := tokens[w]; !ok {
			t.Errorf("expected token %q, got %v", w, tokens)
		}
	}
}

func TestTokenizeEmpty(t *testing.T) {
	tok := NewTokenizer(testStopWords())

	if got := tok.Tokenize(""); len(got) != 0 {
		t.Errorf("expected empty set, got %v", got)
	}
	if got := tok.Tokenize("   !!! ..."); len(got) != 0 {
		t.Errorf("expected empty set for punctuation-only input, got %v", got)
	}
}

func TestTokenizeOrderIndependent(t *testing.T) {
	tok := NewTokenizer(testStopWords())

	a := tok.Tokenize("postgres storage scaling")
	b := tok.Tokenize("scaling postgres storage")

	if len(a) != len(b) {
		t.Fatalf("sets differ in size: %v vs %v", a, b)
	}
	for w := range a {
		if _, ok := b[w]; !ok {
			t.Errorf("token %q missing after reordering", w)
		}
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tok := NewTokenizer(nil)

	empty := map[string]struct{}{}
	if got := JaccardSimilarity(empty, empty); got != 0 {
		t.Errorf("two empty sets must score 0, got %f", got)
	}

	a := tok.Tokenize("postgres storage scaling")
	if got := JaccardSimilarity(a, a); got != 1 {
		t.Errorf("identical non-empty sets must score 1, got %f", got)
	}

	b := tok.Tokenize("postgres caching")
	got := JaccardSimilarity(a, b)
	if got <= 0 || got >= 1 {
		t.Errorf("partial overlap must be in (0,1), got %f", got)
	}

	c := tok.Tokenize("completely different words")
	if got := JaccardSimilarity(a, c); got != 0 {
		t.Errorf("disjoint sets must score 0, got %f", got)
	}
}

func TestTagOverlap(t *testing.T) {
	tests := []struct {
		name  string
		tagsA []string
		tagsB []string
		want  float64
	}{
		{"empty a", nil, []string{"go"}, 0},
		{"empty b", []string{"go"}, nil, 0},
		{"identical", []string{"go", "db"}, []string{"go", "db"}, 1},
		{"case insensitive", []string{"Go", "DB"}, []string{"go", "db"}, 1},
		{"half of smaller", []string{"go", "db"}, []string{"db", "infra", "cloud"}, 0.5},
		{"disjoint", []string{"go"}, []string{"rust"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TagOverlap(tt.tagsA, tt.tagsB); got != tt.want {
				t.Errorf("TagOverlap(%v, %v) = %f, want %f", tt.tagsA, tt.tagsB, got, tt.want)
			}
		})
	}
}

func TestSharedTokens(t *testing.T) {
	tok := NewTokenizer(nil)
	a := tok.Tokenize("postgres mongo redis")
	b := tok.Tokenize("postgres redis kafka")

	if got := SharedTokens(a, b); got != 2 {
		t.Errorf("expected 2 shared tokens, got %d", got)
	}
	if got := SharedTokens(a, tok.Tokenize(strings.Repeat("x ", 3))); got != 0 {
		t.Errorf("expected 0 shared tokens, got %d", got)
	}
}
