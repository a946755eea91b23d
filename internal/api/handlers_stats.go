package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleCorrectionStats(w http.ResponseWriter, r *http.Request) {
	if s.reconciler == nil || s.reconciler.Stats() == nil {
		jsonError(w, "correction stats unavailable", http.StatusServiceUnavailable)
		return
	}

	cached := 0
	if c := s.reconciler.Cache(); c != nil {
		cached = c.Len()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"language":    s.reconciler.Language(),
		"rules":       s.reconciler.Rules(),
		"stats":       s.reconciler.Stats().Snapshot(),
		"cache_size":  cached,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
