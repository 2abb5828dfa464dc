package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"media-variants/internal/cachepath"
	"media-variants/internal/filesystem"
	"media-variants/internal/logging"
	"media-variants/internal/mediatypes"
	"media-variants/internal/metrics"
	"media-variants/internal/source"

	"golang.org/x/sync/singleflight"
)

const kindImage = "image"

// Options tunes a Generator. Zero values select the defaults.
type Options struct {
	Encoder Encoder
	Codec   Codec
	Policy  filesystem.Policy
	// OnGenerated is called with the asset path after a new variant is
	// published.
	OnGenerated func(rel string)
	// Gate, when set, holds back decodes under memory pressure.
	Gate Gate
}

// Gate admits memory-heavy work. WaitIfPaused returns false when the work
// should be abandoned.
type Gate interface {
	WaitIfPaused(ctx context.Context) bool
}

// ErrGateClosed is returned when generation is abandoned at the gate.
var ErrGateClosed = errors.New("image generation stopped")

// Generator produces image variants.
type Generator struct {
	paths   *cachepath.Resolver
	sources *source.Resolver
	encoder Encoder
	codec   Codec
	policy  filesystem.Policy
	notify  func(rel string)
	gate    Gate

	group singleflight.Group
}

// NewGenerator returns a Generator writing under paths.
func NewGenerator(paths *cachepath.Resolver, sources *source.Resolver, opts Options) *Generator {
	g := &Generator{
		paths:   paths,
		sources: sources,
		encoder: opts.Encoder,
		codec:   opts.Codec,
		policy:  opts.Policy,
		notify:  opts.OnGenerated,
		gate:    opts.Gate,
	}
	if g.encoder == nil {
		g.encoder = JPEGEncoder{Quality: DefaultQuality}
	}
	if g.policy.MaxAttempts == 0 {
		g.policy = filesystem.ImagePolicy()
	}
	return g
}

// EnsureVariant returns the path of the variant of rel at width (0 means
// full). A fresh cached file is returned without any work. For a small JPEG
// requested at full size the original path itself may be returned.
func (g *Generator) EnsureVariant(ctx context.Context, rel string, width int) (string, error) {
	cachePath, err := g.paths.Image(rel, width)
	if err != nil {
		return "", err
	}
	srcAbs, err := g.paths.Abs(rel)
	if err != nil {
		return "", err
	}

	srcInfo, err := os.Stat(srcAbs)
	if err != nil {
		err = filesystem.WithKind(filesystem.KindOf(err), fmt.Errorf("source %s: %w", rel, err))
		g.record(err, time.Now())
		return "", err
	}

	if info, ok := filesystem.NonEmpty(cachePath); ok && cachepath.Fresh(info, srcInfo) {
		metrics.VariantCacheHits.WithLabelValues(kindImage).Inc()
		return cachePath, nil
	}
	metrics.VariantCacheMisses.WithLabelValues(kindImage).Inc()

	// Generation outlives the request that started it; later callers
	// joining the flight still need the result.
	genCtx := context.WithoutCancel(ctx)
	v, err, shared := g.group.Do(cachePath, func() (interface{}, error) {
		if info, ok := filesystem.NonEmpty(cachePath); ok && cachepath.Fresh(info, srcInfo) {
			return cachePath, nil
		}
		return g.generate(genCtx, rel, srcAbs, cachePath, width)
	})
	if shared {
		metrics.VariantSharedInflight.WithLabelValues(kindImage).Inc()
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (g *Generator) generate(ctx context.Context, rel, srcAbs, cachePath string, width int) (string, error) {
	start := time.Now()

	if g.gate != nil && !g.gate.WaitIfPaused(ctx) {
		return "", ErrGateClosed
	}

	src, err := g.sources.Resolve(ctx, srcAbs)
	if err != nil {
		g.record(err, start)
		return "", err
	}

	if width == 0 && passthrough(src) {
		logging.Debug("Serving small JPEG %s as its own full variant", rel)
		g.record(nil, start)
		return src.Path, nil
	}

	err = filesystem.Do(ctx, "image_variant", g.policy, func(attempt int) error {
		img, err := g.decode(src)
		if err != nil {
			return err
		}
		img = fit(img, width)
		return filesystem.WriteAtomic(cachePath, func(w io.Writer) error {
			return g.encoder.Encode(w, img)
		})
	})
	g.record(err, start)
	if err != nil {
		return "", fmt.Errorf("variant %s of %s: %w", cachepath.VariantSuffix(width), rel, err)
	}

	logging.Debug("Generated %s from %s source in %v", filepath.Base(cachePath), src.Kind, time.Since(start))
	if g.notify != nil {
		g.notify(rel)
	}
	return cachePath, nil
}

func (g *Generator) decode(src source.Source) (image.Image, error) {
	switch src.Kind {
	case source.KindRawDecoded:
		if src.Raw == nil {
			return nil, filesystem.Errorf(filesystem.KindDecode, "raw source %s has no buffer", filepath.Base(src.Path))
		}
		return renderRaw(src.Raw), nil
	case source.KindHEIC:
		return decodeHEIC(src.Path, g.codec)
	default:
		return decodePlain(src.Path, g.codec)
	}
}

func (g *Generator) record(err error, start time.Time) {
	metrics.VariantGenerationDuration.WithLabelValues(kindImage).Observe(time.Since(start).Seconds())

	status := "success"
	switch {
	case err == nil:
	case filesystem.IsNotFound(err):
		status = "error_not_found"
	case filesystem.KindOf(err) == filesystem.KindDecode, errors.Is(err, ErrUnsupported):
		status = "error_decode"
	default:
		status = "error"
	}
	metrics.VariantGenerationsTotal.WithLabelValues(kindImage, status).Inc()
}

// passthrough reports whether src is a JPEG already within the full-size
// bound, which is served unchanged rather than duplicated into the cache.
func passthrough(src source.Source) bool {
	if src.Kind != source.KindOriginal && src.Kind != source.KindSibling {
		return false
	}
	if f, err := mediatypes.Sniff(src.Path); err != nil || f != mediatypes.FormatJPEG {
		return false
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return false
	}
	return cfg.Width <= FullMaxDimension && cfg.Height <= FullMaxDimension
}
