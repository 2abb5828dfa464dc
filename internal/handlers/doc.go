// Package handlers provides the HTTP adapter over the derivative pipeline.
//
// It includes handlers for:
//   - Image variants at a requested width or full size
//   - Video poster thumbnails (204 when none can be produced)
//   - Video playback, preferring a transcoded copy and starting one in the
//     background when absent
//   - Transcode status, health, version and Prometheus metrics
//
// Request paths are asset paths relative to the media root. Invalid paths
// and widths map to 400, missing sources to 404, and other failures to 500.
package handlers
