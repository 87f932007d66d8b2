package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memlens/memlens-go/pkg/core"
	"github.com/memlens/memlens-go/pkg/lifecycle"
	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/scoring"
)

// contextRequest is the wire form of a presented context.
type contextRequest struct {
	Content     string             `json:"content"`
	Intent      string             `json:"intent,omitempty"`
	ContextType memory.ContextType `json:"context_type,omitempty"`
}

func (cr contextRequest) toContext() memory.Context {
	return memory.Context{
		Content:  cr.Content,
		Metadata: memory.Metadata{Intent: cr.Intent},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, memory.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, memory.ErrValidation), errors.Is(err, memory.ErrInvalidConfig):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleStoreMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content required"})
		return
	}

	m, err := s.client.StoreMemory(r.Context(), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleRetrieveMemory(w http.ResponseWriter, r *http.Request) {
	m, err := s.client.RequestMemoryRetrieval(r.Context(), chi.URLParam(r, "memoryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	removed, err := s.client.DeleteMemory(r.Context(), chi.URLParam(r, "memoryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleArchiveMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.client.ArchiveMemory(r.Context(), chi.URLParam(r, "memoryID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

func (s *Server) handleRestoreMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.client.RestoreMemory(r.Context(), chi.URLParam(r, "memoryID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (s *Server) handleAwareness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		contextRequest
		MaxResults int `json:"max_results,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var opts []core.AwarenessOption
	if req.ContextType != "" {
		opts = append(opts, core.WithContextType(req.ContextType))
	}
	if req.MaxResults > 0 {
		opts = append(opts, core.WithMaxAwareness(req.MaxResults))
	}

	awareness, err := s.client.GetMemoryAwareness(r.Context(), req.toContext(), opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"awareness": awareness})
}

func (s *Server) handleAllCandidates(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var opts []core.AwarenessOption
	if req.ContextType != "" {
		opts = append(opts, core.WithContextType(req.ContextType))
	}

	candidates, err := s.client.GetAllCandidateMemories(r.Context(), req.toContext(), opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		contextRequest
		MemoryID string `json:"memory_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.MemoryID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "memory_id required"})
		return
	}

	explanation, err := s.client.ExplainRelevance(r.Context(), req.MemoryID, req.toContext())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, explanation)
}

func (s *Server) handleSelectiveRetrieval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		contextRequest
		MinScore         float64              `json:"min_score,omitempty"`
		RelevanceType    memory.RelevanceType `json:"relevance_type,omitempty"`
		MaxResults       int                  `json:"max_results,omitempty"`
		Strategy         scoring.Strategy     `json:"strategy,omitempty"`
		DiversityPenalty float64              `json:"diversity_penalty,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var opts []core.RetrievalOption
	if req.MinScore > 0 {
		opts = append(opts, core.WithMinScore(req.MinScore))
	}
	if req.RelevanceType != "" {
		opts = append(opts, core.WithRelevanceType(req.RelevanceType))
	}
	if req.MaxResults > 0 {
		opts = append(opts, core.WithMaxResults(req.MaxResults))
	}
	if req.Strategy != "" {
		opts = append(opts, core.WithStrategy(req.Strategy))
	}
	if req.DiversityPenalty > 0 {
		opts = append(opts, core.WithDiversity(req.DiversityPenalty))
	}

	memories, err := s.client.RequestSelectiveRetrieval(r.Context(), req.toContext(), opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": memories})
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"thresholds": s.client.Thresholds(),
		"history":    s.client.ThresholdHistory(),
	})
}

func (s *Server) handleAdaptThresholds(w http.ResponseWriter, r *http.Request) {
	var analytics memory.UsageAnalytics
	if err := json.NewDecoder(r.Body).Decode(&analytics); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	adjustments, err := s.client.AdaptThresholds(analytics)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"adjustments": adjustments,
		"thresholds":  s.client.Thresholds(),
	})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var update core.RuntimeUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := s.client.UpdateConfiguration(update); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleLifecycleRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.client.RunLifecycle(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleLifecycleExecute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recommendations []lifecycle.CleanupRecommendation `json:"recommendations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	executed, err := s.client.ExecuteRecommendations(r.Context(), req.Recommendations)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"executed": executed})
}
