package models

import (
	"fmt"
	"time"
)

// KnowledgeRecord is a distilled piece of knowledge extracted from an AI
// chat conversation. Records are consumed read-only by the contradiction
// engine; ordering between two records is always by CreatedAt.
type KnowledgeRecord struct {
	ID          string    `json:"id"`
	TopicID     string    `json:"topic_id,omitempty"` // empty means unassigned
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Decisions   []string  `json:"decisions"`
	KeyInsights []string  `json:"key_insights"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

// Topic groups knowledge records; only its tags matter to the engine,
// which uses them to decide cross-topic comparison eligibility.
type Topic struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

// ConflictType classifies what kind of knowledge a conflict is about.
type ConflictType string

const (
	TypeDecisionConflict ConflictType = "decision_conflict"
	TypeInsightConflict  ConflictType = "insight_conflict"
	TypeApproachConflict ConflictType = "approach_conflict"
	TypeFactConflict     ConflictType = "fact_conflict"
)

// ValidConflictType reports whether t is one of the known conflict types.
func ValidConflictType(t ConflictType) bool {
	switch t {
	case TypeDecisionConflict, TypeInsightConflict, TypeApproachConflict, TypeFactConflict:
		return true
	}
	return false
}

// Severity represents conflict severity.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// SeverityRank orders severities for sorting: high sorts before medium
// before low. Unknown severities sort last.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// Status is the lifecycle state of a conflict.
type Status string

const (
	StatusOpen      Status = "open"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// Resolution records how the user settled a conflict.
type Resolution string

const (
	ResolutionKeepNewer Resolution = "keep_newer"
	ResolutionKeepOlder Resolution = "keep_older"
	ResolutionKeepBoth  Resolution = "keep_both"
	ResolutionCustom    Resolution = "custom"
)

// ValidResolution reports whether r is one of the accepted resolutions.
func ValidResolution(r Resolution) bool {
	switch r {
	case ResolutionKeepNewer, ResolutionKeepOlder, ResolutionKeepBoth, ResolutionCustom:
		return true
	}
	return false
}

// Candidate is an unverified, heuristically scored pair of text fragments
// suspected of contradicting each other. Candidates live only within a
// single scan and are never persisted.
type Candidate struct {
	OlderRecordID  string   `json:"older_record_id"`
	NewerRecordID  string   `json:"newer_record_id"`
	OlderTopicID   string   `json:"older_topic_id,omitempty"`
	NewerTopicID   string   `json:"newer_topic_id,omitempty"`
	OlderContent   string   `json:"older_content"`
	NewerContent   string   `json:"newer_content"`
	Signals        []string `json:"signals"`
	HeuristicScore float64  `json:"heuristic_score"`

	// TypeHint carries the matcher's best guess at the conflict type for
	// the heuristic-only acceptance path. The judge's verdict wins when a
	// judge is available.
	TypeHint ConflictType `json:"-"`
}

// Key returns the deduplication identity of the candidate. Two scans must
// never produce two conflicts with the same key.
func (c Candidate) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", c.OlderRecordID, c.NewerRecordID, c.OlderContent, c.NewerContent)
}

// ConflictMetadata captures how a conflict was detected.
type ConflictMetadata struct {
	ModelUsed       string   `json:"model_used,omitempty"`
	ProviderUsed    string   `json:"provider_used,omitempty"`
	ConfidenceScore float64  `json:"confidence_score"`
	HeuristicScore  float64  `json:"heuristic_score"`
	TokensUsed      int      `json:"tokens_used"`
	Signals         []string `json:"signals"`
}

// Conflict is a confirmed contradiction between two knowledge records. It
// is created by the verification pipeline (or the heuristic-only fallback)
// and retained forever for audit, even after being resolved or dismissed.
type Conflict struct {
	ID             string           `json:"id"`
	Type           ConflictType     `json:"type"`
	Severity       Severity         `json:"severity"`
	Status         Status           `json:"status"`
	OlderRecordID  string           `json:"older_record_id"`
	NewerRecordID  string           `json:"newer_record_id"`
	OlderTopicID   string           `json:"older_topic_id,omitempty"`
	NewerTopicID   string           `json:"newer_topic_id,omitempty"`
	OlderContent   string           `json:"older_content"`
	NewerContent   string           `json:"newer_content"`
	Analysis       string           `json:"analysis"`
	Recommendation string           `json:"recommendation"`
	ResolvedAt     *time.Time       `json:"resolved_at,omitempty"`
	Resolution     Resolution       `json:"resolution,omitempty"`
	ResolutionNote string           `json:"resolution_note,omitempty"`
	DetectedAt     time.Time        `json:"detected_at"`
	Metadata       ConflictMetadata `json:"metadata"`
}

// Key returns the same deduplication identity as Candidate.Key, letting a
// scan exclude pairs that already have a ledger entry.
func (c Conflict) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", c.OlderRecordID, c.NewerRecordID, c.OlderContent, c.NewerContent)
}
