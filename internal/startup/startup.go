package startup

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"guest-gallery/internal/logging"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration. It is loaded once at process
// start and never mutated afterwards.
type Config struct {
	Port        string
	MetricsPort string
	StaticDir   string

	// Object storage (S3-compatible)
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	// S3PublicURL is the base URL under which uploaded objects are publicly
	// reachable (e.g. a CDN or the bucket's website endpoint). When empty,
	// download URLs are presigned instead.
	S3PublicURL string

	// Record store (MongoDB)
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Gallery behavior
	PageSize         int
	ParticipantNames [2]string

	// Upload queue behavior
	UploadRetryLimit  int
	UploadRetryDelay  time.Duration
	PanelDismissDelay time.Duration
	MaxUploadBytes    int64

	// Observability
	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool
}

// LoadConfig loads and validates configuration from the environment.
// A .env file in the working directory is applied first if present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded environment overrides from .env")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),
		StaticDir:   getEnv("STATIC_DIR", "./static"),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "gallery"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3PublicURL: strings.TrimSuffix(getEnv("S3_PUBLIC_URL", ""), "/"),

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "gallery"),
		MongoCollection: getEnv("MONGO_COLLECTION", "photos"),

		PageSize: getEnvInt("PAGE_SIZE", 30),

		UploadRetryLimit:  getEnvInt("UPLOAD_RETRY_LIMIT", 3),
		UploadRetryDelay:  getEnvDuration("UPLOAD_RETRY_DELAY", 2*time.Second),
		PanelDismissDelay: getEnvDuration("PANEL_DISMISS_DELAY", 3*time.Second),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 200)) * 1024 * 1024,

		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogStaticFiles:  getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
	}

	names := ParseParticipantNames(getEnv("PARTICIPANT_NAMES", "guest,gallery"))
	config.ParticipantNames = names

	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  STATIC_DIR:          %s", config.StaticDir)
	logging.Info("  S3_ENDPOINT:         %s", config.S3Endpoint)
	logging.Info("  S3_REGION:           %s", config.S3Region)
	logging.Info("  S3_BUCKET:           %s", config.S3Bucket)
	logging.Info("  S3_PUBLIC_URL:       %s", orUnset(config.S3PublicURL))
	logging.Info("  MONGO_URI:           %s", redactURI(config.MongoURI))
	logging.Info("  MONGO_DATABASE:      %s", config.MongoDatabase)
	logging.Info("  MONGO_COLLECTION:    %s", config.MongoCollection)
	logging.Info("  PAGE_SIZE:           %d", config.PageSize)
	logging.Info("  PARTICIPANT_NAMES:   %s & %s", names[0], names[1])
	logging.Info("  UPLOAD_RETRY_LIMIT:  %d", config.UploadRetryLimit)
	logging.Info("  UPLOAD_RETRY_DELAY:  %s", config.UploadRetryDelay)
	logging.Info("  PANEL_DISMISS_DELAY: %s", config.PanelDismissDelay)
	logging.Info("  MAX_UPLOAD_MB:       %d", config.MaxUploadBytes/(1024*1024))
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if config.S3AccessKey == "" || config.S3SecretKey == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required (never embed storage credentials)")
	}
	if config.PageSize < 1 {
		return nil, fmt.Errorf("PAGE_SIZE must be at least 1, got %d", config.PageSize)
	}
	if config.UploadRetryLimit < 0 {
		return nil, fmt.Errorf("UPLOAD_RETRY_LIMIT must not be negative, got %d", config.UploadRetryLimit)
	}

	return config, nil
}

// ParseParticipantNames splits a comma-separated pair of names, falling
// back to defaults for missing halves. The names label the downloadable
// archive, nothing else.
func ParseParticipantNames(raw string) [2]string {
	names := [2]string{"guest", "gallery"}
	parts := strings.Split(raw, ",")
	for i := 0; i < len(parts) && i < 2; i++ {
		if name := strings.TrimSpace(parts[i]); name != "" {
			names[i] = name
		}
	}
	return names
}

// ArchiveName returns the download file name for the bulk archive,
// built from the two configured participant names.
func (c *Config) ArchiveName() string {
	return fmt.Sprintf("%s-%s-photos.zip", c.ParticipantNames[0], c.ParticipantNames[1])
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		sorted := make([]RouteInfo, len(routes))
		copy(sorted, routes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

		for _, route := range sorted {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// LogStoreInit logs backend store initialization
func LogStoreInit(name string, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("%s INITIALIZATION", strings.ToUpper(name))
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] %s ready in %v", name, duration)
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   ____                 _      ____       _ _
  / ___|_   _  ___  ___| |_   / ___| __ _| | | ___ _ __ _   _
 | |  _| | | |/ _ \/ __| __| | |  _ / _' | | |/ _ \ '__| | | |
 | |_| | |_| |  __/\__ \ |_  | |_| | (_| | | |  __/ |  | |_| |
  \____|\__,_|\___||___/\__|  \____|\__,_|_|_|\___|_|   \__, |
                                                        |___/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
	logging.Info("")
}

// redactURI hides credentials in a connection URI for logging
func redactURI(uri string) string {
	atIdx := strings.LastIndex(uri, "@")
	if atIdx == -1 {
		return uri
	}
	schemeIdx := strings.Index(uri, "://")
	if schemeIdx == -1 || schemeIdx+3 > atIdx {
		return uri
	}
	return uri[:schemeIdx+3] + "***" + uri[atIdx:]
}

func orUnset(value string) string {
	if value == "" {
		return "(unset, presigned URLs will be used)"
	}
	return value
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration value for %s: %q, using default: %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
