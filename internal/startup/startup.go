package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-variants/internal/logging"
	"media-variants/internal/memory"
	"media-variants/internal/transcoder"
	"media-variants/internal/workers"

	"github.com/gorilla/mux"
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

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Defaults for the tunables below.
const (
	DefaultMediaDir      = "/media"
	DefaultPort          = "8080"
	DefaultProbeCacheTTL = 10 * time.Minute
	DefaultRawWorkers    = 4
)

// Config holds all application configuration
type Config struct {
	MediaDir       string
	Port           string
	MetricsEnabled bool
	WatchEnabled   bool

	LogHealthChecks bool

	// TranscodeMinBytes is the size at or below which videos are played as-is.
	TranscodeMinBytes  int64
	TranscodeLockStale time.Duration

	FFmpegPath  string
	FFprobePath string

	// RawWorker is the configured decode worker path; empty means auto-detect.
	RawWorker  string
	RawWorkers int

	ProbeCacheTTL time.Duration
}

// LoadConfig loads and validates configuration from environment variables.
// Invalid values are logged and replaced by their defaults; only an unusable
// media directory is an error.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := &Config{
		MediaDir:           getEnv("MEDIA_DIR", DefaultMediaDir),
		Port:               getEnv("PORT", DefaultPort),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		WatchEnabled:       getEnvBool("WATCH_ENABLED", true),
		LogHealthChecks:    getEnvBool("LOG_HEALTH_CHECKS", false),
		TranscodeMinBytes:  getEnvInt64("TRANSCODE_MIN_BYTES", transcoder.DefaultMinBytes),
		TranscodeLockStale: getEnvDuration("TRANSCODE_LOCK_STALE", transcoder.DefaultLockStale),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:        getEnv("FFPROBE_PATH", "ffprobe"),
		RawWorker:          os.Getenv("RAW_WORKER"),
		RawWorkers:         workers.ForCPU("RAW_WORKERS", DefaultRawWorkers),
		ProbeCacheTTL:      getEnvDuration("PROBE_CACHE_TTL", DefaultProbeCacheTTL),
	}

	logging.Info("  MEDIA_DIR:            %s", config.MediaDir)
	logging.Info("  PORT:                 %s", config.Port)
	logging.Info("  METRICS_ENABLED:      %v", config.MetricsEnabled)
	logging.Info("  WATCH_ENABLED:        %v", config.WatchEnabled)
	logging.Info("  TRANSCODE_MIN_BYTES:  %s", memory.FormatBytes(config.TranscodeMinBytes))
	logging.Info("  TRANSCODE_LOCK_STALE: %v", config.TranscodeLockStale)
	logging.Info("  PROBE_CACHE_TTL:      %v", config.ProbeCacheTTL)
	logging.Info("  FFMPEG_PATH:          %s", config.FFmpegPath)
	logging.Info("  FFPROBE_PATH:         %s", config.FFprobePath)
	if config.RawWorker != "" {
		logging.Info("  RAW_WORKER:           %s", config.RawWorker)
	} else {
		logging.Info("  RAW_WORKER:           (auto)")
	}
	logging.Info("  RAW_WORKERS:          %d", config.RawWorkers)
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	mediaDir, err := filepath.Abs(config.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	config.MediaDir = mediaDir
	logging.Info("  Media directory (absolute): %s", mediaDir)

	if err := ensureDirectory(mediaDir); err != nil {
		return nil, fmt.Errorf("media directory error: %w", err)
	}

	// Derivatives live beside their sources, so the media dir must be
	// writable for anything to be cached.
	if err := testWriteAccess(mediaDir); err != nil {
		logging.Warn("  Media directory is not writable: %v", err)
		logging.Warn("  Every request will regenerate its derivative")
	} else {
		logging.Info("  [OK] Media directory is writable")
	}

	return config, nil
}

// LogToolsInit logs the availability of the external tools.
func LogToolsInit(ffmpegPath, ffprobePath, rawWorker string, rawWorkers int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA TOOLS")
	logging.Info("------------------------------------------------------------")

	for _, tool := range []string{ffmpegPath, ffprobePath} {
		if err := checkTool(tool); err != nil {
			logging.Warn("  %s check failed: %v", filepath.Base(tool), err)
			logging.Warn("  Video thumbnails and transcoding will not work")
		} else {
			logging.Info("  [OK] %s is available", filepath.Base(tool))
		}
	}

	if rawWorker == "" {
		logging.Warn("  RAW decode worker not found, RAW files fall back to their embedded preview")
	} else {
		logging.Info("  [OK] RAW decode worker: %s (%d concurrent)", rawWorker, rawWorkers)
	}
}

// LogWatcherInit logs whether source change watching is active.
func LogWatcherInit(enabled bool, err error) {
	switch {
	case !enabled:
		logging.Info("  Source watcher disabled (WATCH_ENABLED=false)")
	case err != nil:
		logging.Warn("  Source watcher unavailable: %v", err)
		logging.Warn("  Stale derivatives are still detected by modification time")
	default:
		logging.Info("  [OK] Source watcher started")
	}
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
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
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
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
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
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
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
                    _ _                        _             _
  _ __ ___   ___  __| (_) __ _  __   ____ _ _ __(_) __ _ _ __ | |_ ___
 | '_ ' _ \ / _ \/ _' | |/ _' | \ \ / / _' | '__| |/ _' | '_ \| __/ __|
 | | | | | |  __/ (_| | | (_| |  \ V / (_| | |  | | (_| | | | | |_\__ \
 |_| |_| |_|\___|\__,_|_|\__,_|   \_/ \__,_|_|  |_|\__,_|_| |_|\__|___/

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

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

// ensureDirectory checks that the media directory exists. It is mounted, not
// created.
func ensureDirectory(path string) error {
	logging.Debug("  Checking media directory: %s", path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkTool(name string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", filepath.Base(name), path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", filepath.Base(name), err)
	}

	if line, _, _ := strings.Cut(string(output), "\n"); line != "" {
		logging.Debug("  %s version: %s", filepath.Base(name), strings.TrimSpace(line))
	}

	return nil
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

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid size value for %s: %q, using default: %d", key, value, defaultValue)
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
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
