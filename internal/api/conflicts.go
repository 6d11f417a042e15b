package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redroostertech/slop-ai/pkg/models"
)

func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := s.ledger.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read conflicts")
		return
	}
	respondJSON(w, http.StatusOK, conflicts)
}

func (s *Server) handleListOpenConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := s.ledger.ListOpen(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read conflicts")
		return
	}
	respondJSON(w, http.StatusOK, conflicts)
}

func (s *Server) handleConflictStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read conflicts")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTopicConflicts(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")
	if topicID == "" {
		respondError(w, http.StatusBadRequest, "topic id is required")
		return
	}

	conflicts, err := s.ledger.ListForTopic(r.Context(), topicID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read conflicts")
		return
	}
	respondJSON(w, http.StatusOK, conflicts)
}

func (s *Server) handleRecordConflicts(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")
	if recordID == "" {
		respondError(w, http.StatusBadRequest, "record id is required")
		return
	}

	conflicts, err := s.ledger.ListForRecord(r.Context(), recordID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read conflicts")
		return
	}
	respondJSON(w, http.StatusOK, conflicts)
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	conflictID := chi.URLParam(r, "conflictID")

	var req struct {
		Resolution string `json:"resolution"`
		Note       string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resolution := models.Resolution(req.Resolution)
	if !models.ValidResolution(resolution) {
		respondError(w, http.StatusBadRequest, "invalid resolution value")
		return
	}

	conflict, err := s.ledger.Resolve(r.Context(), conflictID, resolution, req.Note)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve conflict")
		return
	}
	if conflict == nil {
		respondError(w, http.StatusNotFound, "conflict not found")
		return
	}

	respondJSON(w, http.StatusOK, conflict)
}

func (s *Server) handleDismissConflict(w http.ResponseWriter, r *http.Request) {
	conflictID := chi.URLParam(r, "conflictID")

	conflict, err := s.ledger.Dismiss(r.Context(), conflictID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to dismiss conflict")
		return
	}
	if conflict == nil {
		respondError(w, http.StatusNotFound, "conflict not found")
		return
	}

	respondJSON(w, http.StatusOK, conflict)
}
