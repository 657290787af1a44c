package models

import (
	"strings"
	"time"
)

// MediaKind is the closed set of media variants the gallery renders.
// It is resolved once at ingestion from the MIME type and carried on the
// record so downstream components never re-inspect the type string.
type MediaKind string

const (
	// KindImage is any raster image (jpeg, png, webp, ...)
	KindImage MediaKind = "image"
	// KindVideo is any video container (mp4, webm, mov, ...)
	KindVideo MediaKind = "video"
)

// KindOf resolves the media kind from a MIME type. The upload surface only
// accepts image/* and video/*, so anything that is not an image is a video.
func KindOf(mimeType string) MediaKind {
	if strings.HasPrefix(mimeType, "image/") {
		return KindImage
	}
	return KindVideo
}

// MediaRecord is one persisted gallery entry. The identifier is assigned by
// the record store and is immutable; UploadedAt is server-assigned and
// defines the total order for pagination (descending).
type MediaRecord struct {
	ID                   string    `json:"id" bson:"_id,omitempty"`
	FileName             string    `json:"fileName" bson:"fileName"`
	DownloadURL          string    `json:"downloadUrl" bson:"downloadURL"`
	ThumbnailURL         string    `json:"thumbnailUrl,omitempty" bson:"thumbnailURL,omitempty"`
	UploadedAt           time.Time `json:"uploadedAt" bson:"uploadedAt"`
	StoragePath          string    `json:"storagePath" bson:"storagePath"`
	ThumbnailStoragePath string    `json:"thumbnailStoragePath,omitempty" bson:"thumbnailStoragePath,omitempty"`
	FileType             string    `json:"fileType" bson:"fileType"`
	Kind                 MediaKind `json:"kind" bson:"kind"`
}

// DisplayURL returns the URL to use wherever a thumbnail would be shown.
// Records without a thumbnail fall back to the full asset.
func (r *MediaRecord) DisplayURL() string {
	if r.ThumbnailURL != "" {
		return r.ThumbnailURL
	}
	return r.DownloadURL
}

// Page is one result of a cursor-based record query. NextCursor is empty
// when the page was shorter than requested (no further pages).
type Page struct {
	Records    []MediaRecord `json:"records"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// UploadStatus is the lifecycle state of a queued upload.
type UploadStatus string

const (
	// StatusPending means the item is waiting in the queue
	StatusPending UploadStatus = "pending"
	// StatusUploading means bytes are being transferred
	StatusUploading UploadStatus = "uploading"
	// StatusSuccess means the record was created
	StatusSuccess UploadStatus = "success"
	// StatusError means the upload failed; it may still be retried
	StatusError UploadStatus = "error"
)

// UploadItem is a transient, client-visible entry in the upload queue.
// It is never persisted; the payload is retained so a retry does not
// require re-selecting the file.
type UploadItem struct {
	ID          string       `json:"id"`
	FileName    string       `json:"fileName"`
	ContentType string       `json:"fileType"`
	Progress    float64      `json:"progress"`
	Status      UploadStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	Attempts    int          `json:"attempts"`

	Payload []byte `json:"-"`
}

// Terminal reports whether the item has reached a final state for the
// current attempt sequence. An errored item is terminal until a retry
// re-dispatches it.
func (i *UploadItem) Terminal() bool {
	return i.Status == StatusSuccess || i.Status == StatusError
}
