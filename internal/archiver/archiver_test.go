package archiver

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"guest-gallery/internal/models"
)

// ============================================================================
// Test helpers
// ============================================================================

type fakeLister struct {
	recs []models.MediaRecord
	err  error
}

func (f *fakeLister) All(ctx context.Context) ([]models.MediaRecord, error) {
	return f.recs, f.err
}

type fakeFetcher struct {
	assets map[string][]byte
}

func (f *fakeFetcher) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.assets[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("invalid zip output: %v", err)
	}
	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", f.Name, err)
		}
		out[f.Name] = content
	}
	return out
}

func mediaRec(id, fileName, storagePath, fileType string) models.MediaRecord {
	return models.MediaRecord{
		ID:          id,
		FileName:    fileName,
		StoragePath: storagePath,
		FileType:    fileType,
		DownloadURL: "https://cdn.example/" + storagePath,
	}
}

// ============================================================================
// WriteZip
// ============================================================================

func TestWriteZipPacksAllAssets(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{recs: []models.MediaRecord{
		mediaRec("1", "beach.jpg", "photos/1-beach.jpg", "image/jpeg"),
		mediaRec("2", "toast.mp4", "photos/2-toast.mp4", "video/mp4"),
	}}
	fetcher := &fakeFetcher{assets: map[string][]byte{
		"photos/1-beach.jpg": []byte("jpeg-bytes"),
		"photos/2-toast.mp4": []byte("mp4-bytes"),
	}}

	a := New(lister, fetcher, "alex-sam-photos.zip")

	var buf bytes.Buffer
	res, err := a.WriteZip(context.Background(), &buf)
	if err != nil {
		t.Fatalf("WriteZip failed: %v", err)
	}
	if res.Packed != 2 || len(res.Fallback) != 0 {
		t.Errorf("got packed=%d fallback=%d, want 2/0", res.Packed, len(res.Fallback))
	}

	entries := readZip(t, buf.Bytes())
	if string(entries["beach.jpg"]) != "jpeg-bytes" {
		t.Errorf("beach.jpg content = %q", entries["beach.jpg"])
	}
	if string(entries["toast.mp4"]) != "mp4-bytes" {
		t.Errorf("toast.mp4 content = %q", entries["toast.mp4"])
	}
}

func TestWriteZipFallbackOnFetchFailure(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{recs: []models.MediaRecord{
		mediaRec("1", "ok.jpg", "photos/ok.jpg", "image/jpeg"),
		mediaRec("2", "gone.jpg", "photos/gone.jpg", "image/jpeg"),
	}}
	fetcher := &fakeFetcher{assets: map[string][]byte{
		"photos/ok.jpg": []byte("data"),
	}}

	a := New(lister, fetcher, "bundle.zip")

	var buf bytes.Buffer
	res, err := a.WriteZip(context.Background(), &buf)
	if err != nil {
		t.Fatalf("WriteZip failed: %v", err)
	}
	if res.Packed != 1 {
		t.Errorf("packed = %d, want 1", res.Packed)
	}
	if len(res.Fallback) != 1 || res.Fallback[0].ID != "2" {
		t.Fatalf("fallback = %+v, want record 2", res.Fallback)
	}
	if res.Fallback[0].DownloadURL == "" {
		t.Error("fallback records must carry their direct download URL")
	}

	entries := readZip(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("zip holds %d entries, want asset plus manifest", len(entries))
	}
	manifest := string(entries[fallbackManifestName])
	if !strings.Contains(manifest, "gone.jpg") || !strings.Contains(manifest, "https://cdn.example/photos/gone.jpg") {
		t.Errorf("manifest = %s", manifest)
	}
}

func TestWriteZipAllFailuresStillValidZip(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{recs: []models.MediaRecord{
		mediaRec("1", "a.jpg", "photos/a.jpg", "image/jpeg"),
		mediaRec("2", "b.jpg", "photos/b.jpg", "image/jpeg"),
	}}
	a := New(lister, &fakeFetcher{}, "bundle.zip")

	var buf bytes.Buffer
	res, err := a.WriteZip(context.Background(), &buf)
	if err != nil {
		t.Fatalf("WriteZip failed: %v", err)
	}
	if res.Packed != 0 || len(res.Fallback) != 2 {
		t.Errorf("got packed=%d fallback=%d, want 0/2", res.Packed, len(res.Fallback))
	}
	entries := readZip(t, buf.Bytes())
	if len(entries) != 1 {
		t.Fatalf("zip holds %d entries, want only the manifest", len(entries))
	}
	if _, ok := entries[fallbackManifestName]; !ok {
		t.Error("manifest entry missing")
	}
}

func TestWriteZipEmptyGallery(t *testing.T) {
	t.Parallel()

	a := New(&fakeLister{}, &fakeFetcher{}, "bundle.zip")

	var buf bytes.Buffer
	_, err := a.WriteZip(context.Background(), &buf)
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("err = %v, want ErrNoRecords", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written for an empty gallery")
	}
}

func TestWriteZipListFailure(t *testing.T) {
	t.Parallel()

	a := New(&fakeLister{err: errors.New("store down")}, &fakeFetcher{}, "bundle.zip")

	var buf bytes.Buffer
	if _, err := a.WriteZip(context.Background(), &buf); err == nil {
		t.Fatal("expected an error when listing fails")
	}
}

// ============================================================================
// Entry naming
// ============================================================================

func TestEntryNameDeduplication(t *testing.T) {
	t.Parallel()

	used := make(map[string]bool)
	a := entryName(mediaRec("1", "photo.jpg", "photos/1-photo.jpg", "image/jpeg"), used)
	b := entryName(mediaRec("2", "photo.jpg", "photos/2-photo.jpg", "image/jpeg"), used)
	c := entryName(mediaRec("3", "photo.jpg", "photos/3-photo.jpg", "image/jpeg"), used)

	if a != "photo.jpg" || b != "photo-2.jpg" || c != "photo-3.jpg" {
		t.Errorf("got %q, %q, %q", a, b, c)
	}
}

func TestEntryNameExtensionRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  models.MediaRecord
		want string
	}{
		{
			name: "Extension from file name",
			rec:  mediaRec("1", "cake.png", "photos/1-cake", "image/jpeg"),
			want: "cake.png",
		},
		{
			name: "Extension from storage key",
			rec:  mediaRec("2", "cake", "photos/2-cake.png", "image/png"),
			want: "cake.png",
		},
		{
			name: "Extension from MIME type",
			rec:  mediaRec("3", "cake", "photos/3-cake", "image/webp"),
			want: "cake.webp",
		},
		{
			name: "Unknown MIME type keeps bare name",
			rec:  mediaRec("4", "cake", "photos/4-cake", "application/octet-stream"),
			want: "cake",
		},
		{
			name: "Path components stripped",
			rec:  mediaRec("5", "../escape/../x.jpg", "photos/5-x.jpg", "image/jpeg"),
			want: "x.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entryName(tt.rec, make(map[string]bool)); got != tt.want {
				t.Errorf("entryName = %q, want %q", got, tt.want)
			}
		})
	}
}
