// Package verify sends heuristic candidates to the external judgment
// service in bounded-concurrency batches and turns accepted judgments into
// durable conflicts.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/redroostertech/slop-ai/internal/llm"
	"github.com/redroostertech/slop-ai/pkg/models"
)

const (
	// Judge calls run in fixed batches of this size. A batch completes
	// only when every member settles; failures never cancel siblings.
	batchSize = 5

	// Judgments below this confidence are silently discarded.
	minConfidence = 0.6

	// Candidates at or above this heuristic score are accepted without a
	// judge. Stricter than the discovery threshold on purpose.
	heuristicAcceptScore = 0.7
)

// Verifier runs the judgment stage of the pipeline.
type Verifier struct {
	judge  llm.Client
	logger *zap.Logger
}

// New creates a verifier. judge may be nil, in which case VerifyCandidates
// returns nothing and callers fall back to heuristic-only acceptance.
func New(judge llm.Client, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{judge: judge, logger: logger}
}

// HasJudge reports whether a judgment provider is configured.
func (v *Verifier) HasJudge() bool {
	return v.judge != nil
}

// VerifyCandidates sends the top maxCandidates candidates to the judge in
// batches and returns the conflicts it confirms. Per-candidate failures of
// any kind count as "not a conflict" and are never retried within a scan.
func (v *Verifier) VerifyCandidates(ctx context.Context, candidates []models.Candidate, maxCandidates int) []models.Conflict {
	if v.judge == nil || len(candidates) == 0 {
		return nil
	}
	if maxCandidates > 0 && len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	var conflicts []models.Conflict
	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		verdicts := make([]*models.Conflict, len(batch))
		var wg sync.WaitGroup
		for i, cand := range batch {
			wg.Add(1)
			go func(i int, cand models.Candidate) {
				defer wg.Done()
				verdicts[i] = v.verifyOne(ctx, cand)
			}(i, cand)
		}
		wg.Wait()

		for _, c := range verdicts {
			if c != nil {
				conflicts = append(conflicts, *c)
			}
		}
	}

	return conflicts
}

// judgment is the structured verdict the judge must return.
type judgment struct {
	IsConflict      bool    `json:"is_conflict"`
	Type            string  `json:"type"`
	Severity        string  `json:"severity"`
	Analysis        string  `json:"analysis"`
	Recommendation  string  `json:"recommendation"`
	ConfidenceScore float64 `json:"confidence_score"`
}

func (v *Verifier) verifyOne(ctx context.Context, cand models.Candidate) *models.Conflict {
	resp, err := v.judge.Complete(ctx, buildMessages(cand), llm.Options{
		Temperature: 0.2,
		MaxTokens:   500,
		JSONMode:    true,
	})
	if err != nil {
		v.logger.Debug("judge call failed, treating as no conflict",
			zap.String("older_record", cand.OlderRecordID),
			zap.String("newer_record", cand.NewerRecordID),
			zap.Error(err))
		return nil
	}

	var verdict judgment
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &verdict); err != nil {
		v.logger.Debug("judge returned unparseable verdict, treating as no conflict",
			zap.String("older_record", cand.OlderRecordID),
			zap.String("newer_record", cand.NewerRecordID),
			zap.Error(err))
		return nil
	}

	if !verdict.IsConflict || verdict.ConfidenceScore < minConfidence {
		return nil
	}

	confidence := clamp01(verdict.ConfidenceScore)

	conflictType := models.ConflictType(verdict.Type)
	if !models.ValidConflictType(conflictType) {
		conflictType = fallbackType(cand)
	}
	severity := models.Severity(verdict.Severity)
	if models.SeverityRank(severity) > 2 {
		severity = models.SeverityMedium
	}

	return &models.Conflict{
		ID:             uuid.NewString(),
		Type:           conflictType,
		Severity:       severity,
		Status:         models.StatusOpen,
		OlderRecordID:  cand.OlderRecordID,
		NewerRecordID:  cand.NewerRecordID,
		OlderTopicID:   cand.OlderTopicID,
		NewerTopicID:   cand.NewerTopicID,
		OlderContent:   cand.OlderContent,
		NewerContent:   cand.NewerContent,
		Analysis:       verdict.Analysis,
		Recommendation: verdict.Recommendation,
		DetectedAt:     time.Now().UTC(),
		Metadata: models.ConflictMetadata{
			ModelUsed:       resp.Model,
			ProviderUsed:    resp.Provider,
			ConfidenceScore: confidence,
			HeuristicScore:  cand.HeuristicScore,
			TokensUsed:      resp.TotalTokens,
			Signals:         cand.Signals,
		},
	}
}

// HeuristicFallback accepts candidates without a judge, at a stricter
// score threshold. threshold <= 0 selects the default.
func HeuristicFallback(candidates []models.Candidate, maxCandidates int, threshold float64) []models.Conflict {
	if threshold <= 0 {
		threshold = heuristicAcceptScore
	}

	var conflicts []models.Conflict
	for _, cand := range candidates {
		if maxCandidates > 0 && len(conflicts) >= maxCandidates {
			break
		}
		if cand.HeuristicScore < threshold {
			continue
		}

		severity := models.SeverityMedium
		if cand.HeuristicScore >= 0.85 {
			severity = models.SeverityHigh
		}

		conflicts = append(conflicts, models.Conflict{
			ID:             uuid.NewString(),
			Type:           fallbackType(cand),
			Severity:       severity,
			Status:         models.StatusOpen,
			OlderRecordID:  cand.OlderRecordID,
			NewerRecordID:  cand.NewerRecordID,
			OlderTopicID:   cand.OlderTopicID,
			NewerTopicID:   cand.NewerTopicID,
			OlderContent:   cand.OlderContent,
			NewerContent:   cand.NewerContent,
			Analysis:       "Flagged by heuristic signals without judge review: " + strings.Join(cand.Signals, ", "),
			Recommendation: "Review both records; the newer one usually supersedes the older.",
			DetectedAt:     time.Now().UTC(),
			Metadata: models.ConflictMetadata{
				ConfidenceScore: 0,
				HeuristicScore:  cand.HeuristicScore,
				Signals:         cand.Signals,
			},
		})
	}

	return conflicts
}

func fallbackType(cand models.Candidate) models.ConflictType {
	if models.ValidConflictType(cand.TypeHint) {
		return cand.TypeHint
	}
	return models.TypeFactConflict
}

func buildMessages(cand models.Candidate) []llm.Message {
	system := `You review a personal knowledge base distilled from AI chat conversations.
Given two pieces of knowledge, decide whether the newer one contradicts the older one.
Respond ONLY with valid JSON:
{
  "is_conflict": true|false,
  "type": "decision_conflict|insight_conflict|approach_conflict|fact_conflict",
  "severity": "high|medium|low",
  "analysis": "brief explanation of the contradiction",
  "recommendation": "what the user should do about it",
  "confidence_score": 0.0-1.0
}`

	user := fmt.Sprintf(`Older knowledge (%s):
"%s"

Newer knowledge (%s):
"%s"

Heuristic pre-screening flagged this pair with signals [%s] and score %.2f.`,
		cand.OlderRecordID, cand.OlderContent,
		cand.NewerRecordID, cand.NewerContent,
		strings.Join(cand.Signals, ", "), cand.HeuristicScore)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}

var jsonBlock = regexp.MustCompile(`\{[\s\S]*\}`)

// extractJSON pulls the JSON object out of a response that may be wrapped
// in markdown fences or prose.
func extractJSON(s string) string {
	if m := jsonBlock.FindString(s); m != "" {
		return m
	}
	return s
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
