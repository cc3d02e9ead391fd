package api

import (
	"net/http"
)

func (s *Server) handleRenderStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "render stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window":  s.cfg.StatsWindow.String(),
		"formats": s.stats.Snapshot(),
	})
}
