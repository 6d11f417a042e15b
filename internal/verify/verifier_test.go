package verify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redroostertech/slop-ai/internal/llm"
	"github.com/redroostertech/slop-ai/pkg/models"
)

// scriptedJudge answers every call with the same canned response (or error)
// and counts invocations.
type scriptedJudge struct {
	content string
	err     error
	calls   atomic.Int32
}

func (s *scriptedJudge) Complete(ctx context.Context, msgs []llm.Message, opts llm.Options) (*llm.Completion, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{
		Content:     s.content,
		Model:       "test-model",
		Provider:    "test",
		TotalTokens: 42,
	}, nil
}

func candidate(older, newer string, score float64) models.Candidate {
	return models.Candidate{
		OlderRecordID:  older,
		NewerRecordID:  newer,
		OlderContent:   "older content from " + older,
		NewerContent:   "newer content from " + newer,
		Signals:        []string{"negation_pattern"},
		HeuristicScore: score,
		TypeHint:       models.TypeDecisionConflict,
	}
}

func TestVerifyCandidatesAcceptsConfirmedVerdict(t *testing.T) {
	judge := &scriptedJudge{content: `{
		"is_conflict": true,
		"type": "decision_conflict",
		"severity": "high",
		"analysis": "the newer record reverses the older decision",
		"recommendation": "keep the newer record",
		"confidence_score": 0.9
	}`}
	v := New(judge, nil)

	conflicts := v.VerifyCandidates(context.Background(), []models.Candidate{candidate("a", "b", 0.5)}, 10)

	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, models.TypeDecisionConflict, c.Type)
	assert.Equal(t, models.SeverityHigh, c.Severity)
	assert.Equal(t, models.StatusOpen, c.Status)
	assert.Equal(t, "a", c.OlderRecordID)
	assert.Equal(t, "b", c.NewerRecordID)
	assert.Equal(t, 0.9, c.Metadata.ConfidenceScore)
	assert.Equal(t, 0.5, c.Metadata.HeuristicScore)
	assert.Equal(t, "test-model", c.Metadata.ModelUsed)
	assert.Equal(t, 42, c.Metadata.TokensUsed)
	assert.False(t, c.DetectedAt.IsZero())
}

func TestVerifyCandidatesLowConfidenceDiscarded(t *testing.T) {
	// is_conflict true but confidence below the floor: the heuristic score
	// being high must not rescue it.
	judge := &scriptedJudge{content: `{"is_conflict": true, "type": "fact_conflict", "severity": "high", "confidence_score": 0.4}`}
	v := New(judge, nil)

	conflicts := v.VerifyCandidates(context.Background(), []models.Candidate{candidate("a", "b", 0.9)}, 10)

	assert.Empty(t, conflicts)
}

func TestVerifyCandidatesNotAConflict(t *testing.T) {
	judge := &scriptedJudge{content: `{"is_conflict": false, "confidence_score": 0.95}`}
	v := New(judge, nil)

	conflicts := v.VerifyCandidates(context.Background(), []models.Candidate{candidate("a", "b", 0.8)}, 10)

	assert.Empty(t, conflicts)
}

func TestVerifyCandidatesMalformedVerdictSkipsOnlyThatCandidate(t *testing.T) {
	judge := &scriptedJudge{content: "I think this is probably a conflict but I cannot say"}
	v := New(judge, nil)

	conflicts := v.VerifyCandidates(context.Background(), []models.Candidate{
		candidate("a", "b", 0.5),
		candidate("c", "d", 0.5),
	}, 10)

	assert.Empty(t, conflicts)
	assert.Equal(t, int32(2), judge.calls.Load(), "a bad verdict must not abort the batch")
}

func TestVerifyCandidatesJudgeErrorTreatedAsNoConflict(t *testing.T) {
	judge := &scriptedJudge{err: errors.New("rate limited")}
	v := New(judge, nil)

	conflicts := v.VerifyCandidates(context.Background(), []models.Candidate{candidate("a", "b", 0.5)}, 10)

	assert.Empty(t, conflicts)
}

func TestVerifyCandidatesFencedJSONAccepted(t *testing.T) {
	judge := &scriptedJudge{content: "```json\n" + `{"is_conflict": true, "type": "insight_conflict", "severity": "low", "confidence_score": 0.7}` + "\n```"}
	v := New(judge, nil)

	conflicts := v.VerifyCandidates(context.Background(), []models.Candidate{candidate("a", "b", 0.5)}, 10)

	require.Len(t, conflicts, 1)
	assert.Equal(t, models.TypeInsightConflict, conflicts[0].Type)
	assert.Equal(t, models.SeverityLow, conflicts[0].Severity)
}

func TestVerifyCandidatesInvalidTypeAndSeverityNormalized(t *testing.T) {
	judge := &scriptedJudge{content: `{"is_conflict": true, "type": "existential_conflict", "severity": "catastrophic", "confidence_score": 0.8}`}
	v := New(judge, nil)

	conflicts := v.VerifyCandidates(context.Background(), []models.Candidate{candidate("a", "b", 0.5)}, 10)

	require.Len(t, conflicts, 1)
	assert.Equal(t, models.TypeDecisionConflict, conflicts[0].Type, "fall back to the candidate type hint")
	assert.Equal(t, models.SeverityMedium, conflicts[0].Severity)
}

func TestVerifyCandidatesRespectsCap(t *testing.T) {
	judge := &scriptedJudge{content: `{"is_conflict": false, "confidence_score": 0.9}`}
	v := New(judge, nil)

	candidates := make([]models.Candidate, 30)
	for i := range candidates {
		candidates[i] = candidate("a", "b", 0.5)
	}
	v.VerifyCandidates(context.Background(), candidates, 7)

	assert.Equal(t, int32(7), judge.calls.Load())
}

func TestVerifyCandidatesNilJudge(t *testing.T) {
	v := New(nil, nil)

	assert.False(t, v.HasJudge())
	assert.Nil(t, v.VerifyCandidates(context.Background(), []models.Candidate{candidate("a", "b", 0.9)}, 10))
}

func TestHeuristicFallback(t *testing.T) {
	candidates := []models.Candidate{
		candidate("a", "b", 0.9),  // high severity
		candidate("c", "d", 0.75), // medium severity
		candidate("e", "f", 0.5),  // below threshold
	}

	conflicts := HeuristicFallback(candidates, 10, 0)

	require.Len(t, conflicts, 2)
	assert.Equal(t, models.SeverityHigh, conflicts[0].Severity)
	assert.Equal(t, models.SeverityMedium, conflicts[1].Severity)
	for _, c := range conflicts {
		assert.Equal(t, models.StatusOpen, c.Status)
		assert.Zero(t, c.Metadata.ConfidenceScore)
		assert.NotEmpty(t, c.Analysis)
	}
}

func TestHeuristicFallbackCustomThresholdAndCap(t *testing.T) {
	candidates := []models.Candidate{
		candidate("a", "b", 0.6),
		candidate("c", "d", 0.55),
		candidate("e", "f", 0.52),
	}

	conflicts := HeuristicFallback(candidates, 2, 0.5)

	assert.Len(t, conflicts, 2, "cap must bound accepted conflicts")
}
