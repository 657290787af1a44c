package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guest-gallery/internal/archiver"
	"guest-gallery/internal/gallery"
	"guest-gallery/internal/handlers"
	"guest-gallery/internal/live"
	"guest-gallery/internal/logging"
	"guest-gallery/internal/metrics"
	"guest-gallery/internal/middleware"
	"guest-gallery/internal/models"
	"guest-gallery/internal/preprocess"
	"guest-gallery/internal/startup"
	"guest-gallery/internal/store/objectstore"
	"guest-gallery/internal/store/records"
	"guest-gallery/internal/uploader"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const statsInterval = 30 * time.Second

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize the image pipeline. Failure is non-fatal; preprocessing
	// falls back to the pure-Go decoder.
	if err := preprocess.InitVips(); err != nil {
		logging.Warn("libvips unavailable, using fallback image pipeline: %v", err)
	}
	defer preprocess.ShutdownVips()

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// Connect to object storage
	osStart := time.Now()
	objects, err := objectstore.New(rootCtx, objectstore.Config{
		Endpoint:  config.S3Endpoint,
		Region:    config.S3Region,
		Bucket:    config.S3Bucket,
		AccessKey: config.S3AccessKey,
		SecretKey: config.S3SecretKey,
		PublicURL: config.S3PublicURL,
	})
	if err != nil {
		startup.LogFatal("Failed to initialize object store: %v", err)
	}
	startup.LogStoreInit("object store", time.Since(osStart))

	// Connect to the record store
	rsStart := time.Now()
	recordStore, err := records.New(rootCtx, config.MongoURI, config.MongoDatabase, config.MongoCollection)
	if err != nil {
		startup.LogFatal("Failed to initialize record store: %v", err)
	}
	startup.LogStoreInit("record store", time.Since(rsStart))

	// Live update hub
	hub := live.NewHub()

	// Gallery view coordinator
	view := gallery.NewCoordinator(recordStore, config.PageSize)
	view.Start(rootCtx)

	// Upload queue
	queue := uploader.New(objects, recordStore, preprocess.New(), uploader.Config{
		RetryLimit:   config.UploadRetryLimit,
		RetryDelay:   config.UploadRetryDelay,
		DismissDelay: config.PanelDismissDelay,
	})
	// Cross-instance creations arrive over a change stream when the
	// record store supports one (replica set); otherwise fan-out stays
	// in-process via the queue hook.
	changes, watchErr := recordStore.Watch(rootCtx)
	if watchErr != nil {
		logging.Debug("Change streams unavailable, using in-process fan-out: %v", watchErr)
	} else {
		go func() {
			for rec := range changes {
				view.Insert(rec)
				hub.MediaCreated(rec)
			}
		}()
	}
	queue.OnCreated = func(rec models.MediaRecord) {
		view.Insert(rec)
		if watchErr != nil {
			hub.MediaCreated(rec)
		}
	}
	queue.Start(rootCtx)

	// Metrics
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	stats := &recordStats{store: recordStore}
	collector := metrics.NewCollector(stats, statsInterval)
	collector.Start()
	if config.MetricsEnabled {
		go serveMetrics(config.MetricsPort)
	}

	// Bulk download
	zipper := archiver.New(recordStore, objects, config.ArchiveName())

	// Initialize handlers
	h := handlers.New(recordStore, queue, view, zipper, hub, stats, hub, config)

	// Setup router
	router := setupRouter(h, config.StaticDir)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Apply metrics middleware
	meteredRouter := middleware.Metrics(middleware.DefaultMetricsConfig())(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(meteredRouter)

	// Apply compression middleware
	compressionConfig := middleware.DefaultCompressionConfig()
	handler := middleware.Compression(compressionConfig)(loggedHandler)

	// Create server. WriteTimeout stays 0 so archive downloads and SSE
	// streams are not cut off mid-response.
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, cancelRoot, queue, view, collector, recordStore)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, staticDir string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload", h.Upload).Methods("POST")
	api.HandleFunc("/uploads", h.GetUploads).Methods("GET")
	api.HandleFunc("/uploads/{id}/retry", h.RetryUpload).Methods("POST")
	api.HandleFunc("/uploads/{id}/cancel", h.CancelUpload).Methods("POST")
	api.HandleFunc("/media", h.GetMediaPage).Methods("GET")
	api.HandleFunc("/media/{id}", h.DeleteMedia).Methods("DELETE")
	api.HandleFunc("/media/{id}/neighbors", h.GetNeighbors).Methods("GET")
	api.HandleFunc("/archive", h.DownloadArchive).Methods("GET")
	api.HandleFunc("/events", h.Events).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}

// serveMetrics exposes Prometheus metrics on a dedicated port so the
// scrape surface never shares the public listener.
func serveMetrics(port string) {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, m); err != nil {
		logging.Error("Metrics server error: %v", err)
	}
}

// recordStats adapts the record store's counts to the stats interface
// shared by the collector and the health endpoints.
type recordStats struct {
	store *records.Store
}

func (r *recordStats) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := r.store.CountByKind(ctx)
	if err != nil {
		logging.Warn("Failed to count gallery records: %v", err)
		return metrics.Stats{}
	}
	images := counts[models.KindImage]
	videos := counts[models.KindVideo]
	return metrics.Stats{
		TotalRecords: images + videos,
		TotalImages:  images,
		TotalVideos:  videos,
	}
}

func handleShutdown(srv *http.Server, cancelRoot context.CancelFunc, queue *uploader.Queue,
	view *gallery.Coordinator, collector *metrics.Collector, recordStore *records.Store) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Stopping upload queue and gallery")
	cancelRoot()
	queue.Wait()
	view.Wait()
	startup.LogShutdownStepComplete("Upload queue and gallery stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Closing record store")
	if err := recordStore.Close(ctx); err != nil {
		logging.Warn("Record store close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Record store closed")
	}

	startup.LogShutdownComplete()
}
