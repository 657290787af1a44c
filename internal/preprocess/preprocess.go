package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"guest-gallery/internal/logging"
	"guest-gallery/internal/metrics"
	"guest-gallery/internal/models"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageBytes bounds the size of a re-encoded full image.
	MaxImageBytes = 3 * 512 * 1024 // 1.5 MiB

	// MaxImageEdge bounds the longest edge of a re-encoded full image.
	MaxImageEdge = 2048

	imageQuality = 75

	// MaxThumbnailBytes bounds the size of a grid thumbnail.
	MaxThumbnailBytes = 150 * 1024

	// ThumbnailEdge bounds the longest edge of a grid thumbnail.
	ThumbnailEdge = 300

	thumbnailQuality = 70

	// minQuality is the floor for quality step-down when an encode
	// overshoots its byte budget.
	minQuality = 40

	thumbnailContentType = "image/jpeg"
)

// Processed is the outcome of preprocessing one media file. Thumbnail
// is nil when no thumbnail could be (or should be) produced.
type Processed struct {
	Data          []byte
	ContentType   string
	Thumbnail     []byte
	ThumbnailType string
}

// Processor prepares guest media for upload.
type Processor struct{}

// New returns a Processor. InitVips should already have been called;
// when libvips is unavailable the pure-Go decode path is used instead.
func New() *Processor {
	return &Processor{}
}

// Process compresses an image and derives its thumbnail, or passes a
// video through untouched. It never fails the file: on any decode or
// encode error the original bytes are returned so the upload proceeds.
func (p *Processor) Process(fileName, contentType string, data []byte) Processed {
	if models.KindOf(contentType) == models.KindVideo {
		metrics.PreprocessTotal.WithLabelValues("passthrough", "success").Inc()
		return Processed{Data: data, ContentType: contentType}
	}

	out := Processed{Data: data, ContentType: contentType}

	start := time.Now()
	img, err := decodeImage(data)
	if err != nil {
		logging.Warn("Preprocess: could not decode %s (%s), uploading original: %v", fileName, contentType, err)
		metrics.PreprocessTotal.WithLabelValues("compress", "error").Inc()
		return out
	}

	if compressed, ctype, err := compressImage(img, data, contentType); err != nil {
		logging.Warn("Preprocess: compression failed for %s, uploading original: %v", fileName, err)
		metrics.PreprocessTotal.WithLabelValues("compress", "error").Inc()
	} else {
		out.Data = compressed
		out.ContentType = ctype
		metrics.PreprocessTotal.WithLabelValues("compress", "success").Inc()
		metrics.PreprocessCompressionRatio.Observe(float64(len(compressed)) / float64(len(data)))
	}
	metrics.PreprocessDuration.WithLabelValues("compress").Observe(time.Since(start).Seconds())

	start = time.Now()
	if thumb, err := thumbnail(img); err != nil {
		logging.Warn("Preprocess: thumbnail failed for %s: %v", fileName, err)
		metrics.PreprocessTotal.WithLabelValues("thumbnail", "error").Inc()
	} else {
		out.Thumbnail = thumb
		out.ThumbnailType = thumbnailContentType
		metrics.PreprocessTotal.WithLabelValues("thumbnail", "success").Inc()
	}
	metrics.PreprocessDuration.WithLabelValues("thumbnail").Observe(time.Since(start).Seconds())

	return out
}

// decodeImage decodes in-memory image bytes, preferring the libvips
// path for its decode-time shrinking.
func decodeImage(data []byte) (image.Image, error) {
	if img, err := loadWithVips(data, MaxImageEdge); err == nil {
		return img, nil
	} else if IsVipsAvailable() {
		logging.Debug("Vips decode failed, falling back to pure-Go decode: %v", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}
	return img, nil
}

// compressImage re-encodes an image so it fits within MaxImageBytes and
// MaxImageEdge. Originals that already fit are kept byte-for-byte.
func compressImage(img image.Image, original []byte, contentType string) ([]byte, string, error) {
	bounds := img.Bounds()
	withinEdge := bounds.Dx() <= MaxImageEdge && bounds.Dy() <= MaxImageEdge
	if len(original) <= MaxImageBytes && withinEdge {
		return original, contentType, nil
	}

	if !withinEdge {
		img = imaging.Fit(img, MaxImageEdge, MaxImageEdge, imaging.Lanczos)
	}

	data, err := encodeBounded(img, MaxImageBytes, imageQuality)
	if err != nil {
		return nil, "", err
	}
	return data, "image/jpeg", nil
}

// thumbnail produces a small JPEG for grid display.
func thumbnail(img image.Image) ([]byte, error) {
	thumb := imaging.Fit(img, ThumbnailEdge, ThumbnailEdge, imaging.Lanczos)
	return encodeBounded(thumb, MaxThumbnailBytes, thumbnailQuality)
}

// encodeBounded encodes to JPEG, stepping quality down until the
// output fits the byte budget or the quality floor is reached. The
// floor attempt is kept even when it overshoots.
func encodeBounded(img image.Image, maxBytes, quality int) ([]byte, error) {
	var buf bytes.Buffer
	for q := quality; ; q -= 10 {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("jpeg encode failed: %w", err)
		}
		if buf.Len() <= maxBytes || q-10 < minQuality {
			return buf.Bytes(), nil
		}
		logging.Debug("Encode overshot budget (%d > %d), retrying at quality %d", buf.Len(), maxBytes, q-10)
	}
}
