package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-variants/internal/transcoder"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("GoVersion = %s, want %s", info.GoVersion, GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
		setEnv       bool
	}{
		{"unset returns default", "TEST_UNSET_VAR", "default", "", "default", false},
		{"set returns value", "TEST_SET_VAR", "default", "custom", "custom", true},
		{"empty returns default", "TEST_EMPTY_VAR", "default", "", "default", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			} else {
				os.Unsetenv(tt.key)
			}

			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"0", true, false},
		{"T", false, true},
		{"yes", true, true},
		{"garbage", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			if got := getEnvBool("TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.envValue, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt64(t *testing.T) {
	tests := []struct {
		envValue string
		want     int64
	}{
		{"", 42},
		{"1048576", 1048576},
		{"0", 0},
		{"-5", 42},
		{"10MB", 42},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			if got := getEnvInt64("TEST_INT", 42); got != tt.want {
				t.Errorf("getEnvInt64(%q) = %d, want %d", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		envValue string
		want     time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"2h", 2 * time.Hour},
		{"0s", time.Minute},
		{"soon", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			if got := getEnvDuration("TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("getEnvDuration(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEDIA_DIR", dir)
	for _, key := range []string{"PORT", "TRANSCODE_MIN_BYTES", "TRANSCODE_LOCK_STALE", "PROBE_CACHE_TTL", "RAW_WORKER", "RAW_WORKERS", "FFMPEG_PATH", "FFPROBE_PATH", "METRICS_ENABLED", "WATCH_ENABLED"} {
		t.Setenv(key, "")
	}

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.MediaDir != dir {
		t.Errorf("MediaDir = %s, want %s", config.MediaDir, dir)
	}
	if config.Port != DefaultPort {
		t.Errorf("Port = %s, want %s", config.Port, DefaultPort)
	}
	if config.TranscodeMinBytes != transcoder.DefaultMinBytes {
		t.Errorf("TranscodeMinBytes = %d, want %d", config.TranscodeMinBytes, transcoder.DefaultMinBytes)
	}
	if config.TranscodeLockStale != transcoder.DefaultLockStale {
		t.Errorf("TranscodeLockStale = %v, want %v", config.TranscodeLockStale, transcoder.DefaultLockStale)
	}
	if config.ProbeCacheTTL != DefaultProbeCacheTTL {
		t.Errorf("ProbeCacheTTL = %v, want %v", config.ProbeCacheTTL, DefaultProbeCacheTTL)
	}
	if config.FFmpegPath != "ffmpeg" || config.FFprobePath != "ffprobe" {
		t.Errorf("tool paths = %s, %s, want ffmpeg, ffprobe", config.FFmpegPath, config.FFprobePath)
	}
	if !config.MetricsEnabled || !config.WatchEnabled {
		t.Error("metrics and watcher should default to enabled")
	}
	if config.RawWorkers < 1 || config.RawWorkers > DefaultRawWorkers {
		t.Errorf("RawWorkers = %d, want 1..%d", config.RawWorkers, DefaultRawWorkers)
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Error("write probe file left behind")
	}
}

func TestLoadConfigOverridesAndFallbacks(t *testing.T) {
	t.Setenv("MEDIA_DIR", t.TempDir())
	t.Setenv("TRANSCODE_MIN_BYTES", "2048")
	t.Setenv("TRANSCODE_LOCK_STALE", "not-a-duration")
	t.Setenv("PROBE_CACHE_TTL", "30s")
	t.Setenv("WATCH_ENABLED", "false")
	t.Setenv("RAW_WORKERS", "2")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.TranscodeMinBytes != 2048 {
		t.Errorf("TranscodeMinBytes = %d, want 2048", config.TranscodeMinBytes)
	}
	if config.TranscodeLockStale != transcoder.DefaultLockStale {
		t.Errorf("TranscodeLockStale = %v, want default", config.TranscodeLockStale)
	}
	if config.ProbeCacheTTL != 30*time.Second {
		t.Errorf("ProbeCacheTTL = %v, want 30s", config.ProbeCacheTTL)
	}
	if config.WatchEnabled {
		t.Error("WatchEnabled = true, want false")
	}
	if config.RawWorkers != 2 {
		t.Errorf("RawWorkers = %d, want 2", config.RawWorkers)
	}
}

func TestLoadConfigMediaDirErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{file, filepath.Join(t.TempDir(), "missing")} {
		t.Setenv("MEDIA_DIR", dir)
		if _, err := LoadConfig(); err == nil {
			t.Errorf("LoadConfig(MEDIA_DIR=%s) error = nil, want error", dir)
		}
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/image/{path:.*}", "api/image"},
		{"/api/video/{path:.*}", "api/video"},
		{"/healthz", "healthz"},
		{"/metrics", "metrics"},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	r.HandleFunc("/healthz", noop).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/api/image/{path:.*}", noop).Methods(http.MethodGet, http.MethodHead)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("len(routes) = %d, want 3", len(routes))
	}
	if routes[0].Name != "health" || routes[0].Path != "/healthz" {
		t.Errorf("routes[0] = %+v, want health /healthz", routes[0])
	}
}
