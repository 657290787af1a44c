package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	kinds := []string{"image", "video"}
	statuses := []string{"success", "error"}

	for _, kind := range kinds {
		for _, status := range statuses {
			UploadsTotal.WithLabelValues(kind, status)
		}
		UploadDuration.WithLabelValues(kind)
		UploadBytesTotal.WithLabelValues(kind)
		GalleryRecordsTotal.WithLabelValues(kind)
	}

	for _, op := range []string{"compress", "thumbnail"} {
		for _, status := range statuses {
			PreprocessTotal.WithLabelValues(op, status)
		}
		PreprocessDuration.WithLabelValues(op)
	}
	PreprocessTotal.WithLabelValues("passthrough", "success")

	for _, op := range []string{"put", "get", "presign"} {
		for _, status := range statuses {
			ObjectStoreOpsTotal.WithLabelValues(op, status)
		}
		ObjectStoreOpDuration.WithLabelValues(op)
	}

	for _, op := range []string{"create", "query_page", "delete", "all", "count"} {
		for _, status := range statuses {
			RecordStoreOpsTotal.WithLabelValues(op, status)
		}
		RecordStoreOpDuration.WithLabelValues(op)
	}

	for _, page := range []string{"first", "next"} {
		for _, status := range statuses {
			GalleryPageFetchesTotal.WithLabelValues(page, status)
		}
	}

	for _, event := range []string{"created", "deleted"} {
		LiveEventsTotal.WithLabelValues(event)
	}

	for _, status := range statuses {
		ArchiveRunsTotal.WithLabelValues(status)
	}
	for _, outcome := range []string{"packed", "fallback"} {
		ArchiveAssetsTotal.WithLabelValues(outcome)
	}
}
