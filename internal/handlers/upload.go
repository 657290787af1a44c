package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"guest-gallery/internal/logging"
	"guest-gallery/internal/models"
	"guest-gallery/internal/uploader"

	"github.com/gorilla/mux"
)

// uploadField is the multipart form field carrying the files.
const uploadField = "files"

// UploadResponse reports what the queue accepted and rejected.
type UploadResponse struct {
	Accepted []models.UploadItem `json:"accepted"`
	Rejected []RejectedFile      `json:"rejected,omitempty"`
}

// RejectedFile names a file the upload surface refused and why.
type RejectedFile struct {
	FileName string `json:"fileName"`
	Reason   string `json:"reason"`
}

// Upload accepts a multipart batch of media files and enqueues them.
// Only image/* and video/* parts are accepted; anything else is
// rejected per file without failing the batch.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	reader, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, "expected a multipart upload", http.StatusBadRequest)
		return
	}

	var files []uploader.File
	var rejected []RejectedFile
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSONError(w, "upload exceeds the size limit", http.StatusRequestEntityTooLarge)
				return
			}
			writeJSONError(w, "malformed multipart body", http.StatusBadRequest)
			return
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			continue
		}

		contentType := part.Header.Get("Content-Type")
		if !acceptableType(contentType) {
			rejected = append(rejected, RejectedFile{
				FileName: part.FileName(),
				Reason:   "only images and videos are accepted",
			})
			io.Copy(io.Discard, part)
			continue
		}

		data, err := io.ReadAll(part)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSONError(w, "upload exceeds the size limit", http.StatusRequestEntityTooLarge)
				return
			}
			logging.Error("Upload: failed to read part %s: %v", part.FileName(), err)
			writeJSONError(w, "failed to read upload", http.StatusBadRequest)
			return
		}

		files = append(files, uploader.File{
			Name:        part.FileName(),
			ContentType: contentType,
			Data:        data,
		})
	}

	if len(files) == 0 && len(rejected) == 0 {
		writeJSONError(w, "no files in upload", http.StatusBadRequest)
		return
	}

	ids := h.queue.Enqueue(files)
	accepted := make([]models.UploadItem, 0, len(ids))
	for _, item := range h.queue.Snapshot() {
		for _, id := range ids {
			if item.ID == id {
				accepted = append(accepted, item)
			}
		}
	}
	logging.Info("Upload batch: %d accepted, %d rejected", len(accepted), len(rejected))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, UploadResponse{Accepted: accepted, Rejected: rejected})
}

func acceptableType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

// GetUploads returns the queue snapshot for the progress panel.
func (h *Handlers) GetUploads(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"uploads": h.queue.Snapshot()})
}

// RetryUpload re-dispatches an errored upload. Manual retries are
// always accepted, even after the automatic budget is spent.
func (h *Handlers) RetryUpload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.queue.Retry(id); err != nil {
		writeJSONError(w, err.Error(), queueErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"status": "retrying"})
}

// CancelUpload stops a pending or in-flight upload.
func (h *Handlers) CancelUpload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.queue.Cancel(id); err != nil {
		writeJSONError(w, err.Error(), queueErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"status": "canceling"})
}

func queueErrorStatus(err error) int {
	if errors.Is(err, uploader.ErrUnknownUpload) {
		return http.StatusNotFound
	}
	return http.StatusConflict
}
