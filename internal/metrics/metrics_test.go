package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStatsProvider struct {
	stats Stats
}

func (f *fakeStatsProvider) GetStats() Stats {
	return f.stats
}

func TestInitializeMetrics(t *testing.T) {
	// Must not panic, and metrics must be observable afterwards
	InitializeMetrics()

	UploadsTotal.WithLabelValues("image", "success").Inc()
	if got := testutil.ToFloat64(UploadsTotal.WithLabelValues("image", "success")); got < 1 {
		t.Errorf("UploadsTotal = %v, want >= 1", got)
	}
}

func TestSeededSeriesMatchEmittedLabels(t *testing.T) {
	InitializeMetrics()

	// Every label combination incremented at runtime must already be
	// registered, and seeding must not invent extra series.
	if got := testutil.CollectAndCount(PreprocessTotal); got != 5 {
		t.Errorf("PreprocessTotal series = %d, want 5", got)
	}
	if got := testutil.CollectAndCount(ArchiveRunsTotal); got != 2 {
		t.Errorf("ArchiveRunsTotal series = %d, want 2", got)
	}
	for _, status := range []string{"success", "error"} {
		if got := testutil.ToFloat64(ArchiveRunsTotal.WithLabelValues(status)); got != 0 {
			t.Errorf("ArchiveRunsTotal[%s] = %v, want seeded 0", status, got)
		}
	}
	if got := testutil.ToFloat64(PreprocessTotal.WithLabelValues("passthrough", "success")); got != 0 {
		t.Errorf("PreprocessTotal[passthrough,success] = %v, want seeded 0", got)
	}
}

func TestUploadBytesCountedPerKind(t *testing.T) {
	before := testutil.ToFloat64(UploadBytesTotal.WithLabelValues("image"))
	UploadBytesTotal.WithLabelValues("image").Add(2048)
	if got := testutil.ToFloat64(UploadBytesTotal.WithLabelValues("image")); got != before+2048 {
		t.Errorf("UploadBytesTotal[image] = %v, want %v", got, before+2048)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.0.0", "abc123", "go1.25")

	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.0.0", "abc123", "go1.25")); got != 1 {
		t.Errorf("AppInfo = %v, want 1", got)
	}
}

func TestCollectorCollect(t *testing.T) {
	provider := &fakeStatsProvider{stats: Stats{TotalRecords: 12, TotalImages: 9, TotalVideos: 3}}
	c := NewCollector(provider, time.Hour)

	c.collect()

	if got := testutil.ToFloat64(GalleryRecordsTotal.WithLabelValues("image")); got != 9 {
		t.Errorf("image gauge = %v, want 9", got)
	}
	if got := testutil.ToFloat64(GalleryRecordsTotal.WithLabelValues("video")); got != 3 {
		t.Errorf("video gauge = %v, want 3", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	// Must not panic
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &fakeStatsProvider{stats: Stats{TotalImages: 1}}
	c := NewCollector(provider, 10*time.Millisecond)

	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()

	if got := testutil.ToFloat64(GalleryRecordsTotal.WithLabelValues("image")); got != 1 {
		t.Errorf("image gauge after collect loop = %v, want 1", got)
	}
}
