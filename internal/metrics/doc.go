// Package metrics provides Prometheus instrumentation for media-variants.
//
// All metrics are prefixed with "media_variants_".
//
// # Metric Categories
//
// ## Generation
//
//   - VariantGenerationsTotal: generations by kind (image/thumbnail/transcode) and status
//   - VariantGenerationDuration: generation time by kind
//   - VariantCacheHits / VariantCacheMisses: cache entry lookups by kind
//   - VariantSharedInflight: requests that joined an in-flight generation
//   - SourceResolutions: resolved source kind per image request
//
// ## RAW decoding
//
//   - RawWorkerRunsTotal, RawWorkerDuration, RawWorkersInFlight
//   - AutoLevelApplied: whether the percentile stretch was applied or skipped
//
// ## Transcoding
//
//   - TranscodeDecisions: coordinator outcome (present, skip_small, locked, backoff, ...)
//   - TranscodeJobDuration, TranscodeJobsInProgress
//
// ## Retry
//
//   - RetryAttempts, RetrySuccess, RetryFailures, RetryDuration by operation label
//
// ## Watcher and lookup caches
//
//   - WatcherEventsTotal, WatcherErrors, WatchedDirectories, CacheInvalidations
//   - LookupCacheEntries/Hits/Misses, published by Collector
package metrics
