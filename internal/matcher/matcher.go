// Package matcher computes heuristic contradiction signals between pairs
// of text fragments. It is pure computation: no I/O, no external calls.
package matcher

import (
	"fmt"
	"strings"

	"github.com/redroostertech/slop-ai/internal/patterns"
	"github.com/redroostertech/slop-ai/internal/textutil"
	"github.com/redroostertech/slop-ai/pkg/models"
)

const (
	// Fragments below this Jaccard similarity are unrelated; they are
	// rejected before any pattern work to bound cost.
	minRelatedSimilarity = 0.05

	// Above this similarity the raw overlap contributes to the score.
	overlapBoostThreshold = 0.15

	weightNegation     = 0.25
	weightPerNegation  = 0.05
	weightReverseNeg   = 0.15
	weightTechSwitch   = 0.35
	weightPriorSwitch  = 0.15
	weightAdjective    = 0.2
	weightTemporal     = 0.2
	weightPerTemporal  = 0.05
	overlapBoostFactor = 0.3
)

// Signal name prefixes. Switch and adjective signals carry their matched
// terms after the prefix so a flagged candidate stays explainable.
const (
	SignalNegation    = "negation_pattern"
	SignalReverseNeg  = "reverse_negation"
	SignalTechSwitch  = "tech_switch"
	SignalPriorSwitch = "prior_switch"
	SignalAdjective   = "contradictory_adjective"
	SignalTemporal    = "temporal_override"
)

// Match is the outcome of comparing two fragments: zero or more named
// signals and a composite score capped to [0,1].
type Match struct {
	Signals []string
	Score   float64
}

// Result is one scored fragment pair produced by CompareRecords.
type Result struct {
	OlderContent string
	NewerContent string
	Signals      []string
	Score        float64
	TypeHint     models.ConflictType
}

// Matcher applies a pattern library to fragment pairs.
type Matcher struct {
	lib *patterns.Library
	tok *textutil.Tokenizer
}

// New creates a matcher over the given pattern library.
func New(lib *patterns.Library) *Matcher {
	return &Matcher{
		lib: lib,
		tok: textutil.NewTokenizer(lib.StopWords),
	}
}

// CompareFragments scores the newer fragment against the older one. Pairs
// with no shared vocabulary, or with no signal at all, come back with an
// empty signal list and score 0.
func (m *Matcher) CompareFragments(older, newer string) Match {
	olderTokens := m.tok.Tokenize(older)
	newerTokens := m.tok.Tokenize(newer)

	overlap := textutil.JaccardSimilarity(olderTokens, newerTokens)
	if overlap < minRelatedSimilarity {
		return Match{}
	}
	shared := textutil.SharedTokens(olderTokens, newerTokens)

	olderLower := phraseNormalize(older)
	newerLower := phraseNormalize(newer)

	var signals []string
	var score float64

	// Negation in the newer fragment against shared vocabulary.
	if shared > 0 {
		if n := countPhrases(newerLower, m.lib.Negations); n > 0 {
			signals = append(signals, SignalNegation)
			score += weightNegation + weightPerNegation*float64(n)
		}
		if countPhrases(olderLower, m.lib.Negations) > 0 {
			signals = append(signals, SignalReverseNeg)
			score += weightReverseNeg
		}
	}

	// Technology switches announced in the newer fragment, moving away
	// from something the older fragment mentions. Terms are matched against
	// the normalized text, not the token set: the tokenizer camel-splits
	// names like PostgreSQL while the switch regexps capture them whole.
	for _, sp := range m.lib.Switches {
		for _, sw := range sp.FindSwitches(newerLower) {
			if containsTerm(olderLower, sw.From) {
				signals = append(signals, fmt.Sprintf("%s:%s->%s", SignalTechSwitch, sw.From, sw.To))
				score += weightTechSwitch
			}
		}
		for _, sw := range sp.FindSwitches(olderLower) {
			if containsTerm(newerLower, sw.From) || containsTerm(newerLower, sw.To) {
				signals = append(signals, SignalPriorSwitch)
				score += weightPriorSwitch
			}
		}
	}

	// Contradictory adjectives across the pair, either direction.
	for _, pair := range m.lib.AdjectivePairs {
		_, aOld := olderTokens[pair.A]
		_, bOld := olderTokens[pair.B]
		_, aNew := newerTokens[pair.A]
		_, bNew := newerTokens[pair.B]
		if (aOld && bNew) || (bOld && aNew) {
			signals = append(signals, fmt.Sprintf("%s:%s/%s", SignalAdjective, pair.A, pair.B))
			score += weightAdjective
		}
	}

	// Temporal override phrasing in the newer fragment.
	if shared > 0 {
		if n := countPhrases(newerLower, m.lib.TemporalOverrides); n > 0 {
			signals = append(signals, SignalTemporal)
			score += weightTemporal + weightPerTemporal*float64(n)
		}
	}

	// No signal means no candidate, no matter how similar the fragments.
	if len(signals) == 0 {
		return Match{}
	}

	if overlap > overlapBoostThreshold {
		score += overlap * overlapBoostFactor
	}

	if score > 1 {
		score = 1
	}

	return Match{Signals: signals, Score: score}
}

// CompareRecords runs the matcher over every decision/insight item pair of
// two records, then once more at whole-record granularity to catch
// thematic conflicts no single item pair captures. The whole-record pass
// requires at least two adjective hits or a tech-switch hit before
// emitting, since broader text is noisier.
func (m *Matcher) CompareRecords(older, newer models.KnowledgeRecord) []Result {
	var results []Result

	olderItems := recordItems(older)
	newerItems := recordItems(newer)

	for _, oi := range olderItems {
		for _, ni := range newerItems {
			match := m.CompareFragments(oi.text, ni.text)
			if len(match.Signals) == 0 {
				continue
			}
			results = append(results, Result{
				OlderContent: oi.text,
				NewerContent: ni.text,
				Signals:      match.Signals,
				Score:        match.Score,
				TypeHint:     itemTypeHint(oi.kind, ni.kind),
			})
		}
	}

	olderAgg := aggregateText(older)
	newerAgg := aggregateText(newer)
	match := m.CompareFragments(olderAgg, newerAgg)
	if len(match.Signals) > 0 && passesAggregateGate(match.Signals) {
		results = append(results, Result{
			OlderContent: olderAgg,
			NewerContent: newerAgg,
			Signals:      match.Signals,
			Score:        match.Score,
			TypeHint:     models.TypeApproachConflict,
		})
	}

	return results
}

type itemKind int

const (
	kindDecision itemKind = iota
	kindInsight
)

type recordItem struct {
	text string
	kind itemKind
}

func recordItems(r models.KnowledgeRecord) []recordItem {
	items := make([]recordItem, 0, len(r.Decisions)+len(r.KeyInsights))
	for _, d := range r.Decisions {
		items = append(items, recordItem{text: d, kind: kindDecision})
	}
	for _, k := range r.KeyInsights {
		items = append(items, recordItem{text: k, kind: kindInsight})
	}
	return items
}

func itemTypeHint(older, newer itemKind) models.ConflictType {
	switch {
	case older == kindDecision && newer == kindDecision:
		return models.TypeDecisionConflict
	case older == kindInsight && newer == kindInsight:
		return models.TypeInsightConflict
	default:
		return models.TypeApproachConflict
	}
}

func aggregateText(r models.KnowledgeRecord) string {
	parts := make([]string, 0, 2+len(r.Decisions)+len(r.KeyInsights))
	if r.Title != "" {
		parts = append(parts, r.Title)
	}
	if r.Summary != "" {
		parts = append(parts, r.Summary)
	}
	parts = append(parts, r.Decisions...)
	parts = append(parts, r.KeyInsights...)
	return strings.Join(parts, ". ")
}

func passesAggregateGate(signals []string) bool {
	adjectives := 0
	for _, s := range signals {
		if strings.HasPrefix(s, SignalTechSwitch) {
			return true
		}
		if strings.HasPrefix(s, SignalAdjective) {
			adjectives++
		}
	}
	return adjectives >= 2
}

// phraseNormalize prepares text for phrase containment checks: lowercase,
// punctuation (except apostrophes) to spaces, single spaces, padded so a
// phrase always sits between spaces.
func phraseNormalize(text string) string {
	lower := strings.ToLower(text)
	mapped := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\'' || r == '.' || r == '+' || r == '-' || r == ':' {
			return r
		}
		return ' '
	}, lower)
	return " " + strings.Join(strings.Fields(mapped), " ") + " "
}

// containsTerm reports whether term occurs as a whole word in normalized
// text. Trailing punctuation kept by phraseNormalize is stripped per word,
// mirroring the trim FindSwitches applies to its captures.
func containsTerm(normalized, term string) bool {
	if term == "" {
		return false
	}
	for _, w := range strings.Fields(normalized) {
		if strings.Trim(w, ".,:") == term {
			return true
		}
	}
	return false
}

// countPhrases counts how many of the given phrases occur in normalized
// text, on word boundaries.
func countPhrases(normalized string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(normalized, " "+p+" ") {
			n++
		}
	}
	return n
}
