package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"guest-gallery/internal/archiver"
	"guest-gallery/internal/logging"
)

// DownloadArchive streams a zip of every gallery asset. Assets that
// cannot be fetched are listed in a manifest entry inside the bundle
// with their direct download links; only an empty gallery fails.
func (h *Handlers) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.zipper.Name()))

	res, err := h.zipper.WriteZip(r.Context(), w)
	if err != nil {
		if errors.Is(err, archiver.ErrNoRecords) {
			// Nothing has been written yet, the response can still
			// switch to JSON.
			w.Header().Set("Content-Type", "application/json")
			w.Header().Del("Content-Disposition")
			writeJSONError(w, "the gallery is empty", http.StatusNotFound)
			return
		}
		// Mid-stream failure: headers are gone, all we can do is log
		// and truncate.
		logging.Error("Archive download failed mid-stream: %v", err)
		return
	}

	logging.Info("Archive download served: %d packed, %d fallback", res.Packed, len(res.Fallback))
}
