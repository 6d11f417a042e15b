// Package ledger owns the durable conflict list and its lifecycle, and
// orchestrates the discovery → verification pipeline behind full scans and
// single-record checks.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/redroostertech/slop-ai/internal/discovery"
	"github.com/redroostertech/slop-ai/internal/verify"
	"github.com/redroostertech/slop-ai/pkg/models"
)

const (
	defaultScanCandidates  = 20
	defaultCheckCandidates = 10
)

// Store is the durable list-valued blob the ledger lives in. The list is
// read and replaced wholesale; the ledger is single-writer from the
// caller's perspective.
type Store interface {
	Get(ctx context.Context) ([]models.Conflict, error)
	Set(ctx context.Context, conflicts []models.Conflict) error
}

// Ledger provides conflict CRUD, lifecycle transitions, read-side queries
// and the scan orchestrators.
type Ledger struct {
	store    Store
	engine   *discovery.Engine
	verifier *verify.Verifier
	logger   *zap.Logger
}

// New creates a ledger.
func New(store Store, engine *discovery.Engine, verifier *verify.Verifier, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, engine: engine, verifier: verifier, logger: logger}
}

// Create appends a conflict to the ledger, assigning an id and open status
// when missing.
func (l *Ledger) Create(ctx context.Context, conflict models.Conflict) (*models.Conflict, error) {
	if conflict.ID == "" {
		conflict.ID = uuid.NewString()
	}
	if conflict.Status == "" {
		conflict.Status = models.StatusOpen
	}
	if conflict.DetectedAt.IsZero() {
		conflict.DetectedAt = time.Now().UTC()
	}

	conflicts, err := l.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("create conflict: %w", err)
	}
	conflicts = append(conflicts, conflict)
	if err := l.store.Set(ctx, conflicts); err != nil {
		return nil, fmt.Errorf("create conflict: %w", err)
	}

	return &conflict, nil
}

// Patch is a partial conflict update; nil fields are left untouched.
type Patch struct {
	Status         *models.Status
	Severity       *models.Severity
	Resolution     *models.Resolution
	ResolutionNote *string
	ResolvedAt     *time.Time
	Analysis       *string
	Recommendation *string
}

// Update applies a patch to the conflict with the given id. A missing id
// is not an error: it logs a warning and returns nil, so a stale caller
// never crashes the host.
func (l *Ledger) Update(ctx context.Context, id string, patch Patch) (*models.Conflict, error) {
	conflicts, err := l.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("update conflict: %w", err)
	}

	for i := range conflicts {
		if conflicts[i].ID != id {
			continue
		}
		applyPatch(&conflicts[i], patch)
		if err := l.store.Set(ctx, conflicts); err != nil {
			return nil, fmt.Errorf("update conflict: %w", err)
		}
		updated := conflicts[i]
		return &updated, nil
	}

	l.logger.Warn("conflict not found, update skipped", zap.String("conflict_id", id))
	return nil, nil
}

func applyPatch(c *models.Conflict, patch Patch) {
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if patch.Severity != nil {
		c.Severity = *patch.Severity
	}
	if patch.Resolution != nil {
		c.Resolution = *patch.Resolution
	}
	if patch.ResolutionNote != nil {
		c.ResolutionNote = *patch.ResolutionNote
	}
	if patch.ResolvedAt != nil {
		c.ResolvedAt = patch.ResolvedAt
	}
	if patch.Analysis != nil {
		c.Analysis = *patch.Analysis
	}
	if patch.Recommendation != nil {
		c.Recommendation = *patch.Recommendation
	}
}

// ListAll returns every conflict ever recorded.
func (l *Ledger) ListAll(ctx context.Context) ([]models.Conflict, error) {
	return l.store.Get(ctx)
}

// ListOpen returns open conflicts, most severe first, newest first within
// a severity.
func (l *Ledger) ListOpen(ctx context.Context) ([]models.Conflict, error) {
	conflicts, err := l.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	open := make([]models.Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		if c.Status == models.StatusOpen {
			open = append(open, c)
		}
	}

	sort.SliceStable(open, func(i, j int) bool {
		ri, rj := models.SeverityRank(open[i].Severity), models.SeverityRank(open[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return open[i].DetectedAt.After(open[j].DetectedAt)
	})

	return open, nil
}

// ListForTopic returns conflicts touching the topic on either side,
// newest first.
func (l *Ledger) ListForTopic(ctx context.Context, topicID string) ([]models.Conflict, error) {
	return l.filter(ctx, func(c models.Conflict) bool {
		return c.OlderTopicID == topicID || c.NewerTopicID == topicID
	})
}

// ListForRecord returns conflicts touching the record on either side,
// newest first.
func (l *Ledger) ListForRecord(ctx context.Context, recordID string) ([]models.Conflict, error) {
	return l.filter(ctx, func(c models.Conflict) bool {
		return c.OlderRecordID == recordID || c.NewerRecordID == recordID
	})
}

func (l *Ledger) filter(ctx context.Context, keep func(models.Conflict) bool) ([]models.Conflict, error) {
	conflicts, err := l.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Conflict, 0)
	for _, c := range conflicts {
		if keep(c) {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})

	return out, nil
}

// Resolve marks a conflict resolved with the given resolution. An unknown
// resolution value mutates nothing and returns nil with a warning.
func (l *Ledger) Resolve(ctx context.Context, id string, resolution models.Resolution, note string) (*models.Conflict, error) {
	if !models.ValidResolution(resolution) {
		l.logger.Warn("invalid resolution value, conflict left untouched",
			zap.String("conflict_id", id),
			zap.String("resolution", string(resolution)))
		return nil, nil
	}

	now := time.Now().UTC()
	status := models.StatusResolved
	return l.Update(ctx, id, Patch{
		Status:         &status,
		Resolution:     &resolution,
		ResolutionNote: &note,
		ResolvedAt:     &now,
	})
}

// Dismiss marks a conflict as spurious. Dismissed conflicts leave the open
// query surface but stay in the ledger for audit.
func (l *Ledger) Dismiss(ctx context.Context, id string) (*models.Conflict, error) {
	now := time.Now().UTC()
	status := models.StatusDismissed
	return l.Update(ctx, id, Patch{
		Status:     &status,
		ResolvedAt: &now,
	})
}

// Stats summarizes the ledger.
type Stats struct {
	Total          int                     `json:"total"`
	ByStatus       map[models.Status]int   `json:"by_status"`
	BySeverity     map[models.Severity]int `json:"by_severity"`
	MeanConfidence float64                 `json:"mean_confidence"`
	MeanHeuristic  float64                 `json:"mean_heuristic"`
}

// Stats returns counts by status and severity plus mean detection scores.
func (l *Ledger) Stats(ctx context.Context) (*Stats, error) {
	conflicts, err := l.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	s := &Stats{
		Total:      len(conflicts),
		ByStatus:   make(map[models.Status]int),
		BySeverity: make(map[models.Severity]int),
	}

	confidences := make([]float64, 0, len(conflicts))
	heuristics := make([]float64, 0, len(conflicts))
	for _, c := range conflicts {
		s.ByStatus[c.Status]++
		s.BySeverity[c.Severity]++
		confidences = append(confidences, c.Metadata.ConfidenceScore)
		heuristics = append(heuristics, c.Metadata.HeuristicScore)
	}

	if len(conflicts) > 0 {
		s.MeanConfidence = stat.Mean(confidences, nil)
		s.MeanHeuristic = stat.Mean(heuristics, nil)
	}

	return s, nil
}

// ScanOptions tune a full scan.
type ScanOptions struct {
	// MaxCandidates caps how many candidates reach the judge; 0 means the
	// default of 20.
	MaxCandidates int
	// HeuristicThreshold is the minimum candidate score during discovery;
	// 0 means the default of 0.3.
	HeuristicThreshold float64
}

// ScanResult summarizes a full scan. Found counts candidates before the
// ledger dedup filter; Verified counts conflicts actually persisted by
// this run.
type ScanResult struct {
	Found     int               `json:"found"`
	Verified  int               `json:"verified"`
	Conflicts []models.Conflict `json:"conflicts"`
}

// RunFullScan discovers candidates over the whole corpus, drops pairs the
// ledger already knows, verifies the rest, and persists net-new conflicts.
// Running it twice against an unchanged corpus verifies nothing the second
// time. Persistence is not transactional across conflicts; a crashed scan
// is safe to re-run because the dedup key prevents double insertion.
func (l *Ledger) RunFullScan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	candidates := l.engine.FindWithThreshold(ctx, opts.HeuristicThreshold)
	result := &ScanResult{Found: len(candidates), Conflicts: []models.Conflict{}}

	existing, err := l.store.Get(ctx)
	if err != nil {
		l.logger.Error("conflict store unreadable, scan yields nothing", zap.Error(err))
		return result, nil
	}

	fresh := l.withoutKnownPairs(candidates, existing)

	maxCandidates := opts.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = defaultScanCandidates
	}

	confirmed := l.judgeOrFallback(ctx, fresh, maxCandidates)
	if len(confirmed) == 0 {
		return result, nil
	}

	if err := l.store.Set(ctx, append(existing, confirmed...)); err != nil {
		return nil, fmt.Errorf("persist scan results: %w", err)
	}

	result.Verified = len(confirmed)
	result.Conflicts = confirmed

	l.logger.Info("full scan complete",
		zap.Int("found", result.Found),
		zap.Int("verified", result.Verified))

	return result, nil
}

// CheckNewRecord mines conflicts between one record, treated as the newer
// side, and the rest of the corpus. With useAI false (or no judge
// configured) acceptance is heuristic-only.
func (l *Ledger) CheckNewRecord(ctx context.Context, record models.KnowledgeRecord, useAI bool) ([]models.Conflict, error) {
	candidates := l.engine.CheckRecord(ctx, record)
	if len(candidates) == 0 {
		return []models.Conflict{}, nil
	}

	existing, err := l.store.Get(ctx)
	if err != nil {
		l.logger.Error("conflict store unreadable, record check yields nothing",
			zap.String("record", record.ID), zap.Error(err))
		return []models.Conflict{}, nil
	}

	fresh := l.withoutKnownPairs(candidates, existing)

	var confirmed []models.Conflict
	if useAI {
		confirmed = l.judgeOrFallback(ctx, fresh, defaultCheckCandidates)
	} else {
		confirmed = verify.HeuristicFallback(fresh, defaultCheckCandidates, 0)
	}
	if len(confirmed) == 0 {
		return []models.Conflict{}, nil
	}

	if err := l.store.Set(ctx, append(existing, confirmed...)); err != nil {
		return nil, fmt.Errorf("persist record check results: %w", err)
	}

	return confirmed, nil
}

func (l *Ledger) judgeOrFallback(ctx context.Context, candidates []models.Candidate, maxCandidates int) []models.Conflict {
	if l.verifier.HasJudge() {
		return l.verifier.VerifyCandidates(ctx, candidates, maxCandidates)
	}
	return verify.HeuristicFallback(candidates, maxCandidates, 0)
}

func (l *Ledger) withoutKnownPairs(candidates []models.Candidate, existing []models.Conflict) []models.Candidate {
	known := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		known[c.Key()] = struct{}{}
	}

	fresh := make([]models.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if _, ok := known[cand.Key()]; ok {
			continue
		}
		fresh = append(fresh, cand)
	}
	return fresh
}
