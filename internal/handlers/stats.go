package handlers

import (
	"net/http"
)

// StatsResponse summarizes the gallery for the header counters.
type StatsResponse struct {
	TotalRecords int `json:"totalRecords"`
	TotalImages  int `json:"totalImages"`
	TotalVideos  int `json:"totalVideos"`
	LiveClients  int `json:"liveClients"`
}

// GetStats returns gallery totals.
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.stats.GetStats()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, StatsResponse{
		TotalRecords: stats.TotalRecords,
		TotalImages:  stats.TotalImages,
		TotalVideos:  stats.TotalVideos,
		LiveClients:  h.notifier.ClientCount(),
	})
}
