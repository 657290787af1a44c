package archiver

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"guest-gallery/internal/logging"
	"guest-gallery/internal/metrics"
	"guest-gallery/internal/models"
	"guest-gallery/internal/workers"
)

// maxFetchWorkers caps the asset-fetch pool regardless of CPU count.
const maxFetchWorkers = 16

// ErrNoRecords means the gallery is empty and there is nothing to
// archive.
var ErrNoRecords = fmt.Errorf("no records to archive")

// RecordLister returns every gallery record, newest first.
type RecordLister interface {
	All(ctx context.Context) ([]models.MediaRecord, error)
}

// AssetFetcher retrieves asset bytes by storage key.
type AssetFetcher interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Result summarizes one archive run. Fallback holds the records whose
// assets could not be fetched; the client offers their download URLs
// directly.
type Result struct {
	Packed   int                  `json:"packed"`
	Fallback []models.MediaRecord `json:"fallback,omitempty"`
}

// Archiver builds zip bundles of the whole gallery.
type Archiver struct {
	records RecordLister
	objects AssetFetcher
	name    string
}

// New builds an Archiver. name is the client-visible file name of the
// bundle.
func New(records RecordLister, objects AssetFetcher, name string) *Archiver {
	return &Archiver{records: records, objects: objects, name: name}
}

// Name returns the bundle's download file name.
func (a *Archiver) Name() string {
	return a.name
}

type fetched struct {
	data []byte
	err  error
}

// WriteZip fetches every asset and streams the bundle to w. Individual
// fetch failures never abort the run; they land in Result.Fallback.
// ErrNoRecords is returned for an empty gallery before any bytes are
// written.
func (a *Archiver) WriteZip(ctx context.Context, w io.Writer) (Result, error) {
	start := time.Now()
	res, err := a.writeZip(ctx, w)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ArchiveRunsTotal.WithLabelValues(status).Inc()
	metrics.ArchiveRunDuration.Observe(time.Since(start).Seconds())
	return res, err
}

func (a *Archiver) writeZip(ctx context.Context, w io.Writer) (Result, error) {
	recs, err := a.records.All(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list records: %w", err)
	}
	if len(recs) == 0 {
		return Result{}, ErrNoRecords
	}

	numWorkers := workers.ForIO(maxFetchWorkers)
	logging.Info("Archiving %d asset(s) with %d worker(s)", len(recs), numWorkers)

	// Fetch in parallel, then write sequentially: the zip stream has a
	// single writer and entries keep gallery order.
	results := make([]fetched, len(recs))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				data, err := a.objects.Get(ctx, recs[idx].StoragePath)
				results[idx] = fetched{data: data, err: err}
			}
		}()
	}
	for idx := range recs {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return Result{}, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	zw := zip.NewWriter(w)
	var res Result
	used := make(map[string]bool)
	for idx, rec := range recs {
		if results[idx].err != nil {
			logging.Warn("Archive: could not fetch %s (%s), offering direct download: %v",
				rec.FileName, rec.StoragePath, results[idx].err)
			metrics.ArchiveAssetsTotal.WithLabelValues("fallback").Inc()
			res.Fallback = append(res.Fallback, rec)
			continue
		}

		entry := entryName(rec, used)
		f, err := zw.Create(entry)
		if err != nil {
			zw.Close()
			return res, fmt.Errorf("failed to create zip entry %s: %w", entry, err)
		}
		if _, err := f.Write(results[idx].data); err != nil {
			zw.Close()
			return res, fmt.Errorf("failed to write zip entry %s: %w", entry, err)
		}
		metrics.ArchiveAssetsTotal.WithLabelValues("packed").Inc()
		res.Packed++
	}

	// Fetch failures are only known mid-stream, so their direct links
	// ride inside the bundle as a manifest entry.
	if len(res.Fallback) > 0 {
		if err := writeFallbackManifest(zw, res.Fallback); err != nil {
			zw.Close()
			return res, err
		}
	}

	if err := zw.Close(); err != nil {
		return res, fmt.Errorf("failed to finalize zip: %w", err)
	}
	logging.Info("Archive complete: %d packed, %d fallback", res.Packed, len(res.Fallback))
	return res, nil
}

// fallbackManifestName is the zip entry listing assets that must be
// downloaded directly.
const fallbackManifestName = "direct-downloads.json"

type fallbackEntry struct {
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
}

func writeFallbackManifest(zw *zip.Writer, recs []models.MediaRecord) error {
	entries := make([]fallbackEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, fallbackEntry{FileName: rec.FileName, DownloadURL: rec.DownloadURL})
	}
	f, err := zw.Create(fallbackManifestName)
	if err != nil {
		return fmt.Errorf("failed to create fallback manifest: %w", err)
	}
	if err := json.NewEncoder(f).Encode(entries); err != nil {
		return fmt.Errorf("failed to write fallback manifest: %w", err)
	}
	return nil
}

// entryName derives a unique zip entry name for a record. The original
// file name wins when it has an extension; otherwise one is recovered
// from the storage key or the MIME type. Collisions get a numeric
// suffix.
func entryName(rec models.MediaRecord, used map[string]bool) string {
	name := path.Base(strings.ReplaceAll(rec.FileName, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = path.Base(rec.StoragePath)
	}

	if path.Ext(name) == "" {
		if ext := path.Ext(rec.StoragePath); ext != "" {
			name += ext
		} else if ext := extForType(rec.FileType); ext != "" {
			name += ext
		}
	}

	if !used[name] {
		used[name] = true
		return name
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

func extForType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	}
	return ""
}
