package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, kind := range []string{"image", "thumbnail", "transcode"} {
		for _, status := range []string{"success", "error", "error_not_found", "error_decode"} {
			VariantGenerationsTotal.WithLabelValues(kind, status)
		}
		VariantGenerationDuration.WithLabelValues(kind)
		VariantCacheHits.WithLabelValues(kind)
		VariantCacheMisses.WithLabelValues(kind)
		VariantSharedInflight.WithLabelValues(kind)
	}

	for _, src := range []string{"original", "sibling", "raw_decoded", "heic", "fallback"} {
		SourceResolutions.WithLabelValues(src)
	}

	for _, status := range []string{"success", "error", "invalid_output"} {
		RawWorkerRunsTotal.WithLabelValues(status)
	}

	for _, outcome := range []string{"applied", "skipped"} {
		AutoLevelApplied.WithLabelValues(outcome)
	}

	for _, outcome := range []string{"present", "skipped", "skip_small", "skip_codec",
		"locked", "backoff", "done", "failed"} {
		TranscodeDecisions.WithLabelValues(outcome)
	}

	for _, op := range []string{"stat", "open", "image_variant", "video_thumbnail", "transcode"} {
		RetryAttempts.WithLabelValues(op)
		RetrySuccess.WithLabelValues(op)
		RetryFailures.WithLabelValues(op)
		RetryDuration.WithLabelValues(op)
	}

	for _, ev := range []string{"create", "write", "remove", "rename", "chmod"} {
		WatcherEventsTotal.WithLabelValues(ev)
	}
}
