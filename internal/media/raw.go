package media

import (
	"image"
	"math"

	"media-variants/internal/autolevel"
	"media-variants/internal/metrics"
	"media-variants/internal/rawproto"

	"github.com/disintegration/imaging"
)

// Gamma is applied to RAW renders after levels.
const Gamma = 2.2

// toneCurve maps every storable sample value to its display value:
// normalize to 8-bit, apply levels, clamp, then gamma. Values above
// maxValue clip to white.
func toneCurve(bytesPerSample int, maxValue float64, p autolevel.Params, apply bool) []uint8 {
	n := 1 << (8 * bytesPerSample)
	lut := make([]uint8, n)
	inv := 1 / Gamma
	for v := 0; v < n; v++ {
		x := float64(v) / maxValue * 255
		if apply {
			x = p.Apply(x)
		}
		if x < 0 {
			x = 0
		} else if x > 255 {
			x = 255
		}
		lut[v] = uint8(math.Round(255 * math.Pow(x/255, inv)))
	}
	return lut
}

// renderRaw turns a decoded RAW buffer into an oriented 8-bit image.
func renderRaw(b *rawproto.Buffer) image.Image {
	b.StripAlpha()

	params, ok := autolevel.Estimate(b)
	if ok {
		metrics.AutoLevelApplied.WithLabelValues("applied").Inc()
	} else {
		metrics.AutoLevelApplied.WithLabelValues("skipped").Inc()
	}
	lut := toneCurve(rawproto.BytesPerSample(b.Bits), b.MaxValue(), params, ok)

	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	n := b.Width * b.Height
	for i := 0; i < n; i++ {
		s := i * b.Channels
		d := i * 4
		img.Pix[d] = lut[b.Sample(s)]
		img.Pix[d+1] = lut[b.Sample(s+1)]
		img.Pix[d+2] = lut[b.Sample(s+2)]
		img.Pix[d+3] = 0xFF
	}

	return orient(img, b.Orientation)
}

// orient applies an EXIF orientation (1-8). imaging rotates
// counter-clockwise.
func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
