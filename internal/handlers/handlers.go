package handlers

import (
	"context"
	"io"
	"net/http"

	"guest-gallery/internal/archiver"
	"guest-gallery/internal/gallery"
	"guest-gallery/internal/metrics"
	"guest-gallery/internal/models"
	"guest-gallery/internal/startup"
	"guest-gallery/internal/uploader"
)

// RecordStore is the slice of the record store the API needs.
type RecordStore interface {
	QueryPage(ctx context.Context, cursorToken string, pageSize int) (models.Page, error)
	Delete(ctx context.Context, id string) error
}

// UploadQueue is the upload queue surface exposed over the API.
type UploadQueue interface {
	Enqueue(files []uploader.File) []string
	Retry(id string) error
	Cancel(id string) error
	Snapshot() []models.UploadItem
}

// GalleryView is the coordinator surface the API reads and nudges.
type GalleryView interface {
	Snapshot() gallery.Snapshot
	Remove(id string)
}

// Zipper builds the bulk download.
type Zipper interface {
	WriteZip(ctx context.Context, w io.Writer) (archiver.Result, error)
	Name() string
}

// Notifier broadcasts gallery changes to live clients.
type Notifier interface {
	MediaDeleted(id string)
	ClientCount() int
}

type Handlers struct {
	records  RecordStore
	queue    UploadQueue
	gallery  GalleryView
	zipper   Zipper
	notifier Notifier
	stats    metrics.StatsProvider

	pageSize       int
	maxUploadBytes int64
	events         http.Handler
}

// New wires the API handlers. events serves GET /api/events (SSE).
func New(records RecordStore, queue UploadQueue, view GalleryView, zipper Zipper,
	notifier Notifier, stats metrics.StatsProvider, events http.Handler, config *startup.Config) *Handlers {
	return &Handlers{
		records:        records,
		queue:          queue,
		gallery:        view,
		zipper:         zipper,
		notifier:       notifier,
		stats:          stats,
		pageSize:       config.PageSize,
		maxUploadBytes: config.MaxUploadBytes,
		events:         events,
	}
}

// Events streams live gallery updates.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	h.events.ServeHTTP(w, r)
}
