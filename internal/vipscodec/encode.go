package vipscodec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"media-variants/internal/filesystem"

	"github.com/davidbyttow/govips/v2/vips"
)

// DefaultQuality matches the variant quality used by the Go encoder.
const DefaultQuality = 75

// JPEGEncoder writes optimized JPEG through libvips: Huffman tables are
// computed per image and metadata is stripped.
type JPEGEncoder struct {
	Quality int
}

// Encode hands img to libvips as an uncompressed PNG and exports it.
func (e JPEGEncoder) Encode(w io.Writer, img image.Image) error {
	if !Available() {
		return ErrUnavailable
	}
	q := e.Quality
	if q <= 0 {
		q = DefaultQuality
	}

	var raw bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&raw, img); err != nil {
		return fmt.Errorf("encode jpeg: stage pixels: %w", err)
	}
	ref, err := vips.LoadImageFromBuffer(raw.Bytes(), vips.NewImportParams())
	if err != nil {
		return filesystem.WithKind(filesystem.KindDecode, fmt.Errorf("encode jpeg: vips load: %w", err))
	}
	defer ref.Close()

	buf, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        q,
		StripMetadata:  true,
		OptimizeCoding: true,
	})
	if err != nil {
		return fmt.Errorf("encode jpeg: vips export: %w", err)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}
