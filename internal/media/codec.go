package media

import (
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"

	"media-variants/internal/filesystem"
	"media-variants/internal/logging"
	"media-variants/internal/mediatypes"

	// Go-side decoders for imaging.Open
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultQuality is the JPEG quality for every variant.
const DefaultQuality = 75

// ErrUnsupported is returned when no decoder can open a source.
var ErrUnsupported = errors.New("unsupported image format")

// Encoder writes an image to w.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// JPEGEncoder encodes baseline JPEG through imaging. It is the default when
// no Encoder is configured and the fallback when libvips is missing.
type JPEGEncoder struct {
	Quality int
}

// Encode implements Encoder.
func (e JPEGEncoder) Encode(w io.Writer, img image.Image) error {
	q := e.Quality
	if q <= 0 {
		q = DefaultQuality
	}
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}

// Codec is the native decoder used for HEIF and as a last resort.
type Codec interface {
	// DecodeHEIC decodes in memory. Files that are not HEIF must yield an
	// error wrapping mediatypes.ErrNotHEIC.
	DecodeHEIC(path string) (image.Image, error)
	DecodeAny(path string) (image.Image, error)
}

// decodePlain opens path with the Go decoders, honouring EXIF orientation,
// and falls back to the native codec.
func decodePlain(path string, codec Codec) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	if filesystem.IsRetryable(err) || filesystem.IsNotFound(err) {
		return nil, err
	}
	logging.Debug("imaging.Open failed for %s: %v, trying native codec", filepath.Base(path), err)

	if codec == nil {
		return nil, filesystem.WithKind(filesystem.KindDecode, fmt.Errorf("%w: %s: %v", ErrUnsupported, filepath.Base(path), err))
	}
	img, nerr := codec.DecodeAny(path)
	if nerr != nil {
		if filesystem.IsRetryable(nerr) {
			return nil, nerr
		}
		return nil, filesystem.WithKind(filesystem.KindDecode,
			fmt.Errorf("%w: %s: %v; native: %v", ErrUnsupported, filepath.Base(path), err, nerr))
	}
	return img, nil
}

// decodeHEIC decodes a HEIF source in memory, treating the file as a plain
// JPEG when the decoder or the file's magic bytes say it is not HEIF.
func decodeHEIC(path string, codec Codec) (image.Image, error) {
	if f, err := mediatypes.Sniff(path); err == nil && f == mediatypes.FormatJPEG {
		return decodePlain(path, codec)
	}
	if codec == nil {
		return nil, filesystem.WithKind(filesystem.KindDecode, fmt.Errorf("%w: no HEIC decoder for %s", ErrUnsupported, filepath.Base(path)))
	}

	img, err := codec.DecodeHEIC(path)
	if err == nil {
		return img, nil
	}
	if errors.Is(err, mediatypes.ErrNotHEIC) {
		logging.Debug("%s is not HEIC, decoding as JPEG", filepath.Base(path))
		return decodePlain(path, codec)
	}
	return nil, err
}
