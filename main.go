package main

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"media-variants/internal/cachepath"
	"media-variants/internal/clock"
	"media-variants/internal/ffmpeg"
	"media-variants/internal/handlers"
	"media-variants/internal/logging"
	"media-variants/internal/media"
	"media-variants/internal/mediatypes"
	"media-variants/internal/memory"
	"media-variants/internal/metrics"
	"media-variants/internal/middleware"
	"media-variants/internal/source"
	"media-variants/internal/startup"
	"media-variants/internal/transcoder"
	"media-variants/internal/ttlcache"
	"media-variants/internal/vipscodec"
	"media-variants/internal/watch"
)

// sniffCacheTTL bounds how long a content sniff is trusted without a
// watcher event.
const sniffCacheTTL = 30 * time.Minute

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	build := startup.GetBuildInfo()
	metrics.SetAppInfo(build.Version, build.Commit, build.GoVersion)

	vipsReady := true
	if err := vipscodec.Init(); err != nil {
		logging.Warn("libvips unavailable, HEIF and exotic formats will fail: %v", err)
		vipsReady = false
	}

	paths := cachepath.New(config.MediaDir)

	// Lookup caches
	sniffs := ttlcache.New[mediatypes.Format](sniffCacheTTL, clock.Real{})
	probes := ttlcache.New[ffmpeg.ProbeResult](config.ProbeCacheTTL, clock.Real{})
	collector := metrics.NewCollector(30 * time.Second)
	collector.Register("sniff", cacheStats(sniffs))
	collector.Register("probe", cacheStats(probes))
	collector.RegisterSweep("sniff", sniffs.Sweep)
	collector.RegisterSweep("probe", probes.Sweep)
	collector.Start()

	// RAW worker
	var raw source.RawDecoder
	rawWorker, err := source.LocateWorker(config.RawWorker)
	if err != nil {
		logging.Warn("RAW worker not found, RAW files without a JPEG sibling serve the original: %v", err)
		rawWorker = ""
	} else {
		raw = source.NewWorkerClient(rawWorker, config.RawWorkers, source.DefaultWorkerTimeout)
	}
	startup.LogToolsInit(config.FFmpegPath, config.FFprobePath, rawWorker, config.RawWorkers)

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	// Source watcher
	var watcher *watch.Watcher
	var onGenerated func(rel string)
	if config.WatchEnabled {
		watcher, err = watch.New(paths, sniffs, probes)
		if err == nil {
			watcher.Start()
			onGenerated = watcher.WatchAsset
		}
		startup.LogWatcherInit(true, err)
	} else {
		startup.LogWatcherInit(false, nil)
	}

	runner := ffmpeg.NewExec(config.FFmpegPath, config.FFprobePath)
	_, ffmpegErr := exec.LookPath(config.FFmpegPath)

	var encoder media.Encoder = media.JPEGEncoder{Quality: media.DefaultQuality}
	if vipsReady {
		encoder = vipscodec.JPEGEncoder{Quality: media.DefaultQuality}
	}
	images := media.NewGenerator(paths, source.NewResolver(raw, sniffs), media.Options{
		Encoder:     encoder,
		Codec:       vipscodec.Codec{},
		OnGenerated: onGenerated,
		Gate:        monitor,
	})
	thumbnails := media.NewThumbnailGenerator(paths, runner, onGenerated)
	transcodes := transcoder.New(paths, runner, transcoder.Options{
		MinBytes:  config.TranscodeMinBytes,
		LockStale: config.TranscodeLockStale,
		Probes:    probes,
	})

	h := handlers.New(paths, images, thumbnails, transcodes, handlers.Tools{
		FFmpeg:    ffmpegErr == nil,
		Vips:      vipsReady,
		RawWorker: raw != nil,
		Watcher:   watcher != nil,
	})

	router := handlers.NewRouter(h, config.MetricsEnabled)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		handleShutdown(srv, transcodes, watcher, monitor, collector)
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func cacheStats[V any](c *ttlcache.Cache[V]) metrics.StatsFunc {
	return func() metrics.CacheStats {
		s := c.Stats()
		return metrics.CacheStats{Entries: s.Entries, Hits: s.Hits, Misses: s.Misses}
	}
}

func handleShutdown(srv *http.Server, transcodes *transcoder.Coordinator, watcher *watch.Watcher, monitor *memory.Monitor, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Cancelling transcodes")
	transcodes.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	if watcher != nil {
		startup.LogShutdownStep("Stopping source watcher")
		if err := watcher.Close(); err != nil {
			logging.Warn("Watcher close error: %v", err)
		}
		startup.LogShutdownStepComplete("Source watcher stopped")
	}

	monitor.Stop()
	collector.Stop()
	vipscodec.Shutdown()

	startup.LogShutdownComplete()
}
