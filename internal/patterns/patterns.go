// Package patterns holds the static data tables driving the heuristic
// matcher: negation markers, technology-switch expressions, contradictory
// adjective pairs, temporal-override phrases, and the stopword set. The
// tables are plain data passed into the matcher, so tests can substitute
// minimal synthetic sets.
package patterns

import (
	"regexp"
	"strings"
)

// SwitchPattern is a regular expression capturing a technology switch with
// a "from" and a "to" side. FromGroup and ToGroup name which capture group
// holds which side, since the surface forms disagree on order.
type SwitchPattern struct {
	Re        *regexp.Regexp
	FromGroup int
	ToGroup   int
}

// Switch is one (from, to) pair matched inside a fragment.
type Switch struct {
	From string
	To   string
}

// FindSwitches returns every (from, to) pair the pattern matches in text.
// Text is expected to be lowercased already.
func (p SwitchPattern) FindSwitches(text string) []Switch {
	var out []Switch
	for _, m := range p.Re.FindAllStringSubmatch(text, -1) {
		if p.FromGroup < len(m) && p.ToGroup < len(m) {
			out = append(out, Switch{
				From: strings.Trim(m[p.FromGroup], ".,"),
				To:   strings.Trim(m[p.ToGroup], ".,"),
			})
		}
	}
	return out
}

// AdjectivePair is a pair of adjectives that contradict each other when
// one appears in the older fragment and the other in the newer one.
type AdjectivePair struct {
	A string
	B string
}

// Library is the full replaceable pattern configuration.
type Library struct {
	Negations         []string
	Switches          []SwitchPattern
	AdjectivePairs    []AdjectivePair
	TemporalOverrides []string
	StopWords         map[string]struct{}
}

const term = `([a-z0-9][a-z0-9.+-]*)`

// Default returns the production pattern tables.
func Default() *Library {
	return &Library{
		Negations: []string{
			"don't", "do not", "doesn't", "didn't", "won't", "not",
			"never", "instead", "rather than", "replace", "replaced",
			"avoid", "stop using", "no longer", "deprecated", "dropped",
			"abandoned", "failed", "broken", "wrong",
		},
		Switches: []SwitchPattern{
			// "switch X to Y" / "switched from X to Y"
			{Re: regexp.MustCompile(`switch(?:ed|ing)?\s+(?:from\s+)?` + term + `\s+to\s+` + term), FromGroup: 1, ToGroup: 2},
			// "migrate from X to Y"
			{Re: regexp.MustCompile(`migrat(?:e|ed|ing|ion)\s+from\s+` + term + `\s+to\s+` + term), FromGroup: 1, ToGroup: 2},
			// "replace X with Y"
			{Re: regexp.MustCompile(`replac(?:e|ed|ing)\s+` + term + `\s+with\s+` + term), FromGroup: 1, ToGroup: 2},
			// "Y is better than X" reads as a move away from X
			{Re: regexp.MustCompile(term + `\s+is\s+better\s+than\s+` + term), FromGroup: 2, ToGroup: 1},
		},
		AdjectivePairs: []AdjectivePair{
			{"fast", "slow"},
			{"secure", "insecure"},
			{"reliable", "unreliable"},
			{"stable", "unstable"},
			{"simple", "complex"},
			{"easy", "hard"},
			{"good", "bad"},
			{"cheap", "expensive"},
			{"scalable", "unscalable"},
			{"efficient", "inefficient"},
			{"flexible", "rigid"},
			{"safe", "unsafe"},
			{"maintainable", "unmaintainable"},
			{"correct", "incorrect"},
			{"useful", "useless"},
			{"clean", "messy"},
			{"robust", "fragile"},
			{"compatible", "incompatible"},
			{"modern", "outdated"},
			{"lightweight", "heavyweight"},
		},
		TemporalOverrides: []string{
			"changed my mind", "changed our mind", "after testing",
			"after trying", "pivoted to", "turns out", "turned out",
			"in hindsight", "on second thought", "in retrospect",
			"revisited", "reconsidered", "as of now", "we now",
			"going forward", "from now on",
		},
		StopWords: stopWordSet(),
	}
}

func stopWordSet() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "have", "he", "in", "is", "it", "its", "of", "on", "or",
		"she", "that", "the", "they", "this", "to", "was", "were", "will",
		"with", "you", "your", "we", "our", "their", "them", "there",
		"these", "those", "been", "being", "had", "having", "do", "does",
		"did", "doing", "would", "could", "should", "may", "might", "must",
		"can", "about", "after", "again", "all", "am", "any", "because",
		"before", "between", "both", "but", "during", "each", "few",
		"here", "how", "if", "into", "just", "more", "most", "no", "nor",
		"not", "now", "only", "other", "out", "own", "same", "so", "some",
		"such", "than", "then", "through", "too", "under", "until", "up",
		"very", "what", "when", "where", "which", "while", "who", "why",
		"also", "however", "therefore", "thus", "yet",
	}

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
