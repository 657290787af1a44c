package handlers

import (
	"net/http"

	"guest-gallery/internal/startup"
)

// GetVersion reports the build stamped into the binary at link time.
// Served uncached so a redeploy is visible on the next request.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}
