package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/redroostertech/slop-ai/internal/ledger"
	"github.com/redroostertech/slop-ai/internal/storage"
)

func (s *Server) handleRunScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxCandidates      int     `json:"max_candidates"`
		HeuristicThreshold float64 `json:"heuristic_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.ledger.RunFullScan(r.Context(), ledger.ScanOptions{
		MaxCandidates:      req.MaxCandidates,
		HeuristicThreshold: req.HeuristicThreshold,
	})
	if err != nil {
		s.logger.Error("full scan failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheckRecord(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")
	if recordID == "" {
		respondError(w, http.StatusBadRequest, "record id is required")
		return
	}

	useAI := true
	var req struct {
		UseAI *bool `json:"use_ai"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.UseAI != nil {
		useAI = *req.UseAI
	}

	record, err := s.records.GetByID(r.Context(), recordID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to fetch record")
		return
	}

	conflicts, err := s.ledger.CheckNewRecord(r.Context(), *record, useAI)
	if err != nil {
		s.logger.Error("record check failed", zap.String("record", recordID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "record check failed")
		return
	}

	respondJSON(w, http.StatusOK, conflicts)
}
