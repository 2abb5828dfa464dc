package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"media-variants/internal/cachepath"
	"media-variants/internal/ffmpeg"
	"media-variants/internal/filesystem"
	"media-variants/internal/logging"
	"media-variants/internal/metrics"

	"golang.org/x/sync/singleflight"
)

const (
	// ThumbnailWidth is the scaled width of video thumbnails.
	ThumbnailWidth = 480
	// ThumbnailOffset is where the frame is taken.
	ThumbnailOffset = time.Second

	kindThumbnail = "thumbnail"
)

// ThumbnailGenerator extracts one frame per video into the cache.
type ThumbnailGenerator struct {
	paths  *cachepath.Resolver
	runner ffmpeg.Runner
	policy filesystem.Policy
	notify func(rel string)

	group singleflight.Group
}

// NewThumbnailGenerator returns a generator using runner for extraction.
// onGenerated may be nil.
func NewThumbnailGenerator(paths *cachepath.Resolver, runner ffmpeg.Runner, onGenerated func(rel string)) *ThumbnailGenerator {
	return &ThumbnailGenerator{
		paths:  paths,
		runner: runner,
		policy: filesystem.VideoPolicy(),
		notify: onGenerated,
	}
}

// EnsureThumbnail returns the cached thumbnail for the video at rel,
// generating it when absent. Failures are logged and reported as ok=false;
// callers serve an empty response.
func (t *ThumbnailGenerator) EnsureThumbnail(ctx context.Context, rel string) (string, bool) {
	thumbPath, err := t.paths.VideoThumbnail(rel)
	if err != nil {
		logging.Warn("Thumbnail path for %q: %v", rel, err)
		return "", false
	}
	srcAbs, err := t.paths.Abs(rel)
	if err != nil {
		return "", false
	}
	srcInfo, err := os.Stat(srcAbs)
	if err != nil {
		logging.Warn("Thumbnail source %s unavailable: %v", rel, err)
		metrics.VariantGenerationsTotal.WithLabelValues(kindThumbnail, "error_not_found").Inc()
		return "", false
	}

	if info, ok := filesystem.NonEmpty(thumbPath); ok && cachepath.Fresh(info, srcInfo) {
		metrics.VariantCacheHits.WithLabelValues(kindThumbnail).Inc()
		return thumbPath, true
	}
	metrics.VariantCacheMisses.WithLabelValues(kindThumbnail).Inc()

	genCtx := context.WithoutCancel(ctx)
	_, err, shared := t.group.Do(thumbPath, func() (interface{}, error) {
		if info, ok := filesystem.NonEmpty(thumbPath); ok && cachepath.Fresh(info, srcInfo) {
			return nil, nil
		}
		return nil, t.generate(genCtx, rel, srcAbs, thumbPath)
	})
	if shared {
		metrics.VariantSharedInflight.WithLabelValues(kindThumbnail).Inc()
	}
	if err != nil {
		logging.Warn("Video thumbnail for %s failed: %v", rel, err)
		return "", false
	}
	return thumbPath, true
}

func (t *ThumbnailGenerator) generate(ctx context.Context, rel, srcAbs, thumbPath string) error {
	start := time.Now()
	err := filesystem.Do(ctx, "video_thumbnail", t.policy, func(attempt int) error {
		tmp, err := filesystem.ReserveTemp(thumbPath)
		if err != nil {
			return err
		}
		if err := t.runner.ExtractFrame(ctx, srcAbs, tmp, ThumbnailOffset, ThumbnailWidth); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("extract frame: %w", err)
		}
		return filesystem.PublishFile(tmp, thumbPath)
	})

	metrics.VariantGenerationDuration.WithLabelValues(kindThumbnail).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VariantGenerationsTotal.WithLabelValues(kindThumbnail, "error").Inc()
		return err
	}
	metrics.VariantGenerationsTotal.WithLabelValues(kindThumbnail, "success").Inc()
	logging.Debug("Generated thumbnail %s in %v", filepath.Base(thumbPath), time.Since(start))
	if t.notify != nil {
		t.notify(rel)
	}
	return nil
}
