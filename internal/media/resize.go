package media

import (
	"image"

	"github.com/disintegration/imaging"
)

// FullMaxDimension bounds both sides of a "full" variant.
const FullMaxDimension = 2048

// fit applies the resize policy. A positive width scales to that width;
// zero bounds both sides by FullMaxDimension. Neither ever upscales.
func fit(img image.Image, width int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if width > 0 {
		if w <= width {
			return img
		}
		return imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	if w <= FullMaxDimension && h <= FullMaxDimension {
		return img
	}
	return imaging.Fit(img, FullMaxDimension, FullMaxDimension, imaging.Lanczos)
}
