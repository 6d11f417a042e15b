// Package discovery enumerates the knowledge-record pairs worth comparing
// and ranks the resulting contradiction candidates. Topic partitioning
// plus a cross-topic tag gate keeps this far below all-pairs over the
// whole corpus.
package discovery

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/redroostertech/slop-ai/internal/matcher"
	"github.com/redroostertech/slop-ai/internal/textutil"
	"github.com/redroostertech/slop-ai/pkg/models"
)

const (
	// DefaultThreshold is the minimum heuristic score for a pair to
	// become a candidate.
	DefaultThreshold = 0.3

	// Topics whose tag overlap coefficient exceeds this are compared
	// across topic boundaries.
	crossTopicTagOverlap = 0.5
)

// Source provides the read-only knowledge corpus.
type Source interface {
	GetAllRecords(ctx context.Context) ([]models.KnowledgeRecord, error)
	GetAllTopics(ctx context.Context) ([]models.Topic, error)
}

// Engine discovers contradiction candidates.
type Engine struct {
	source  Source
	matcher *matcher.Matcher
	logger  *zap.Logger
}

// NewEngine creates a discovery engine.
func NewEngine(source Source, m *matcher.Matcher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{source: source, matcher: m, logger: logger}
}

// FindCandidateConflicts scans the whole corpus with the default score
// threshold. A failed corpus read logs and yields no candidates; a broken
// store must never crash a scan.
func (e *Engine) FindCandidateConflicts(ctx context.Context) []models.Candidate {
	return e.FindWithThreshold(ctx, DefaultThreshold)
}

// FindWithThreshold is FindCandidateConflicts with a caller-chosen minimum
// heuristic score.
func (e *Engine) FindWithThreshold(ctx context.Context, threshold float64) []models.Candidate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	records, err := e.source.GetAllRecords(ctx)
	if err != nil {
		e.logger.Error("failed to load records, skipping scan", zap.Error(err))
		return nil
	}
	topics, err := e.source.GetAllTopics(ctx)
	if err != nil {
		e.logger.Error("failed to load topics, skipping scan", zap.Error(err))
		return nil
	}

	groups := groupByTopic(records)

	var candidates []models.Candidate

	// Intra-topic pass: every older/newer pair inside a chronological
	// group. The unassigned bucket is treated as its own group so that
	// records without a topic still get scanned against each other.
	for _, group := range groups {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				candidates = append(candidates, e.compare(group[i], group[j], threshold)...)
			}
		}
	}

	// Cross-topic pass, gated on topic tag overlap. Older/newer resolve
	// by actual timestamp, not iteration order.
	tagsByTopic := make(map[string][]string, len(topics))
	topicIDs := make([]string, 0, len(topics))
	for _, t := range topics {
		tagsByTopic[t.ID] = t.Tags
		topicIDs = append(topicIDs, t.ID)
	}
	sort.Strings(topicIDs)

	for i := 0; i < len(topicIDs); i++ {
		for j := i + 1; j < len(topicIDs); j++ {
			if textutil.TagOverlap(tagsByTopic[topicIDs[i]], tagsByTopic[topicIDs[j]]) <= crossTopicTagOverlap {
				continue
			}
			for _, a := range groups[topicIDs[i]] {
				for _, b := range groups[topicIDs[j]] {
					older, newer := orderByTime(a, b)
					candidates = append(candidates, e.compare(older, newer, threshold)...)
				}
			}
		}
	}

	return dedupAndRank(candidates)
}

// CheckRecord compares a single record, typically one just created,
// against the existing corpus. Eligible partners share the record's topic
// or exceed the tag-overlap gate against the record's own tags. The given
// record is always treated as the newer side, even if an existing record
// carries a later or garbled timestamp.
func (e *Engine) CheckRecord(ctx context.Context, record models.KnowledgeRecord) []models.Candidate {
	records, err := e.source.GetAllRecords(ctx)
	if err != nil {
		e.logger.Error("failed to load records, skipping record check",
			zap.String("record", record.ID), zap.Error(err))
		return nil
	}

	var candidates []models.Candidate
	for _, existing := range records {
		if existing.ID == record.ID {
			continue
		}
		sameTopic := record.TopicID != "" && existing.TopicID == record.TopicID
		if !sameTopic && textutil.TagOverlap(record.Tags, existing.Tags) <= crossTopicTagOverlap {
			continue
		}
		candidates = append(candidates, e.compare(existing, record, DefaultThreshold)...)
	}

	return dedupAndRank(candidates)
}

func (e *Engine) compare(older, newer models.KnowledgeRecord, threshold float64) []models.Candidate {
	var out []models.Candidate
	for _, res := range e.matcher.CompareRecords(older, newer) {
		if res.Score < threshold {
			continue
		}
		out = append(out, models.Candidate{
			OlderRecordID:  older.ID,
			NewerRecordID:  newer.ID,
			OlderTopicID:   older.TopicID,
			NewerTopicID:   newer.TopicID,
			OlderContent:   res.OlderContent,
			NewerContent:   res.NewerContent,
			Signals:        res.Signals,
			HeuristicScore: res.Score,
			TypeHint:       res.TypeHint,
		})
	}
	return out
}

// groupByTopic partitions records into per-topic groups sorted ascending
// by creation time, with ID as a deterministic tiebreak. Records without a
// topic land in the "" bucket.
func groupByTopic(records []models.KnowledgeRecord) map[string][]models.KnowledgeRecord {
	groups := make(map[string][]models.KnowledgeRecord)
	for _, r := range records {
		groups[r.TopicID] = append(groups[r.TopicID], r)
	}
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
	}
	return groups
}

func orderByTime(a, b models.KnowledgeRecord) (older, newer models.KnowledgeRecord) {
	if b.CreatedAt.Before(a.CreatedAt) {
		return b, a
	}
	if a.CreatedAt.Equal(b.CreatedAt) && b.ID < a.ID {
		return b, a
	}
	return a, b
}

// dedupAndRank removes duplicate (olderID, newerID, olderContent,
// newerContent) keys, keeping the highest score, then sorts descending by
// score with the key as tiebreak so repeated scans of an unchanged corpus
// produce identical output.
func dedupAndRank(candidates []models.Candidate) []models.Candidate {
	byKey := make(map[string]models.Candidate, len(candidates))
	for _, c := range candidates {
		key := c.Key()
		if prev, ok := byKey[key]; !ok || c.HeuristicScore > prev.HeuristicScore {
			byKey[key] = c
		}
	}

	out := make([]models.Candidate, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HeuristicScore != out[j].HeuristicScore {
			return out[i].HeuristicScore > out[j].HeuristicScore
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}
