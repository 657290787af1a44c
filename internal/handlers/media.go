package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"guest-gallery/internal/lightbox"
	"guest-gallery/internal/logging"
	"guest-gallery/internal/store/records"

	"github.com/gorilla/mux"
)

// maxPageSize caps client-requested page sizes.
const maxPageSize = 100

// GetMediaPage returns one page of the gallery feed, newest first.
// The cursor query parameter resumes after a previous page; limit
// overrides the configured page size.
func (h *Handlers) GetMediaPage(w http.ResponseWriter, r *http.Request) {
	pageSize := h.pageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		pageSize = n
	}

	page, err := h.records.QueryPage(r.Context(), r.URL.Query().Get("cursor"), pageSize)
	if err != nil {
		if errors.Is(err, records.ErrBadCursor) {
			writeJSONError(w, "malformed cursor", http.StatusBadRequest)
			return
		}
		logging.Error("Media page query failed: %v", err)
		writeJSONError(w, "failed to load media", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, page)
}

// DeleteMedia removes a gallery record. The stored binary is left in
// place; only the record disappears. Deleting an unknown or
// already-deleted record succeeds.
func (h *Handlers) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		writeJSONError(w, "missing media id", http.StatusBadRequest)
		return
	}

	if err := h.records.Delete(r.Context(), id); err != nil {
		logging.Error("Delete failed for %s: %v", id, err)
		writeJSONError(w, "failed to delete media", http.StatusInternalServerError)
		return
	}

	h.gallery.Remove(id)
	h.notifier.MediaDeleted(id)
	w.WriteHeader(http.StatusNoContent)
}

// NeighborsResponse locates a record in the viewer's navigation order.
type NeighborsResponse struct {
	Prev string `json:"prev,omitempty"`
	Next string `json:"next,omitempty"`
}

// GetNeighbors returns the records on either side of the given one in
// gallery order, for lightbox arrow navigation. There is no
// wraparound: edges are returned as empty.
func (h *Handlers) GetNeighbors(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap := h.gallery.Snapshot()

	prev, next, found := lightbox.Neighbors(snap.Records, id)
	if !found {
		writeJSONError(w, "media not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, NeighborsResponse{Prev: prev, Next: next})
}
