package vipscodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"media-variants/internal/filesystem"
	"media-variants/internal/logging"
	"media-variants/internal/mediatypes"
	"media-variants/internal/rawproto"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

// ErrNotHEIC is returned by DecodeHEIC when the file turns out to be some
// other format.
var ErrNotHEIC = mediatypes.ErrNotHEIC

// ErrUnavailable is returned when Init has not run.
var ErrUnavailable = errors.New("libvips not available")

var (
	initialized bool
	initMutex   sync.Mutex
)

// intermediateQuality is used for the in-memory JPEG hop; the final encode
// happens later at the variant quality.
const intermediateQuality = 95

// severity ranks libvips levels. The glib constants grow as severity
// drops, so they cannot be compared directly.
func severity(l vips.LogLevel) int {
	switch l {
	case vips.LogLevelError:
		return 5
	case vips.LogLevelCritical:
		return 4
	case vips.LogLevelWarning:
		return 3
	case vips.LogLevelMessage:
		return 2
	case vips.LogLevelInfo:
		return 1
	default:
		return 0
	}
}

// logSettings maps the application log level to a libvips level and a
// handler that forwards into the logging package.
func logSettings(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	var min vips.LogLevel
	switch level {
	case logging.LevelDebug:
		min = vips.LogLevelInfo
	case logging.LevelWarn:
		min = vips.LogLevelCritical
	case logging.LevelError:
		min = vips.LogLevelError
	default:
		min = vips.LogLevelWarning
	}

	handler := func(domain string, l vips.LogLevel, msg string) {
		if severity(l) < severity(min) {
			return
		}
		switch {
		case severity(l) >= severity(vips.LogLevelCritical):
			logging.Error("[%s] %s", domain, msg)
		case l == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
	return min, handler
}

// Init starts libvips. Safe to call more than once.
func Init() error {
	initMutex.Lock()
	defer initMutex.Unlock()

	if initialized {
		return nil
	}

	// Logging must be configured before Startup.
	level, handler := logSettings(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	initialized = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// Shutdown releases libvips.
func Shutdown() {
	initMutex.Lock()
	defer initMutex.Unlock()

	if initialized {
		vips.Shutdown()
		initialized = false
		logging.Info("libvips shutdown complete")
	}
}

// Available reports whether Init has run.
func Available() bool {
	initMutex.Lock()
	defer initMutex.Unlock()
	return initialized
}

// notHEIFMessage matches libvips loader errors for files it does not
// recognise as HEIF.
func notHEIFMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not a known file format") ||
		strings.Contains(msg, "unsupported image format") ||
		strings.Contains(msg, "heifload: unsupported")
}

func load(path string) (*vips.ImageRef, error) {
	if !Available() {
		return nil, ErrUnavailable
	}
	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips load %s: %w", filepath.Base(path), err)
	}
	return ref, nil
}

// toImage exports ref through an in-memory JPEG and decodes it with imaging.
func toImage(ref *vips.ImageRef) (image.Image, error) {
	buf, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        intermediateQuality,
		StripMetadata:  true,
		OptimizeCoding: false,
	})
	if err != nil {
		return nil, filesystem.WithKind(filesystem.KindDecode, fmt.Errorf("vips export: %w", err))
	}
	img, err := imaging.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, filesystem.WithKind(filesystem.KindDecode, fmt.Errorf("decode vips output: %w", err))
	}
	return img, nil
}

// DecodeHEIC decodes a HEIC/HEIF file into memory. No intermediate file is
// written. A file libvips identifies as JPEG yields ErrNotHEIC.
func DecodeHEIC(path string) (image.Image, error) {
	ref, err := load(path)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		if notHEIFMessage(err) {
			return nil, filesystem.WithKind(filesystem.KindDecode, fmt.Errorf("%w: %v", ErrNotHEIC, err))
		}
		return nil, withDecodeKind(err)
	}
	defer ref.Close()

	if ref.Format() == vips.ImageTypeJPEG {
		return nil, filesystem.WithKind(filesystem.KindDecode,
			fmt.Errorf("%w: %s is JPEG", ErrNotHEIC, filepath.Base(path)))
	}

	logging.Debug("vips decoded HEIC %s: %dx%d", filepath.Base(path), ref.Width(), ref.Height())
	return toImage(ref)
}

// DecodeAny opens anything libvips supports. It is the last resort after
// the Go decoders fail.
func DecodeAny(path string) (image.Image, error) {
	ref, err := load(path)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, withDecodeKind(err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		logging.Debug("vips autorotate %s: %v", filepath.Base(path), err)
	}
	return toImage(ref)
}

// DecodeRaw decodes a camera RAW file into an interleaved RGB(A) buffer at
// the loader's native depth. Orientation is reported, not applied.
func DecodeRaw(path string) (*rawproto.Buffer, error) {
	ref, err := load(path)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, withDecodeKind(err)
	}
	defer ref.Close()

	bits := 8
	target := vips.InterpretationSRGB
	if ref.BandFormat() == vips.BandFormatUshort {
		bits = 16
		target = vips.InterpretationRGB16
	}
	if ref.Bands() < 3 {
		if err := ref.ToColorSpace(target); err != nil {
			return nil, withDecodeKind(fmt.Errorf("vips colourspace: %w", err))
		}
	}
	if ref.BandFormat() != vips.BandFormatUchar && ref.BandFormat() != vips.BandFormatUshort {
		if err := ref.Cast(vips.BandFormatUshort); err != nil {
			return nil, withDecodeKind(fmt.Errorf("vips cast: %w", err))
		}
		bits = 16
	}

	pix, err := ref.ToBytes()
	if err != nil {
		return nil, withDecodeKind(fmt.Errorf("vips read pixels: %w", err))
	}

	buf := &rawproto.Buffer{
		Width:       ref.Width(),
		Height:      ref.Height(),
		Channels:    ref.Bands(),
		Bits:        bits,
		Pix:         pix,
		BigEndian:   rawproto.NativeBigEndian(),
		Orientation: ref.Orientation(),
	}
	logging.Debug("vips decoded RAW %s: %dx%d bands=%d bits=%d orientation=%d",
		filepath.Base(path), buf.Width, buf.Height, buf.Channels, buf.Bits, buf.Orientation)
	return buf, nil
}

// withDecodeKind tags err as a decode failure unless it already classifies
// as transient.
func withDecodeKind(err error) error {
	if filesystem.IsRetryable(err) {
		return err
	}
	return filesystem.WithKind(filesystem.KindDecode, err)
}

// Codec exposes the package decoders as a value for callers that take an
// interface.
type Codec struct{}

// DecodeHEIC calls the package-level DecodeHEIC.
func (Codec) DecodeHEIC(path string) (image.Image, error) { return DecodeHEIC(path) }

// DecodeAny calls the package-level DecodeAny.
func (Codec) DecodeAny(path string) (image.Image, error) { return DecodeAny(path) }
