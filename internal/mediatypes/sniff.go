package mediatypes

import (
	"errors"
	"io"
	"os"
)

// ErrNotHEIC is reported by HEIF decoders for files that turn out to be
// another format. Callers fall back to the plain JPEG path.
var ErrNotHEIC = errors.New("not a HEIC image")

// Format is a container format detected from file content.
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatWebP    Format = "webp"
	FormatTIFF    Format = "tiff"
	FormatHEIF    Format = "heif"
	FormatAVIF    Format = "avif"
	// FormatISOBMFF is an ftyp container that is not a still image (mp4, mov).
	FormatISOBMFF Format = "isobmff"
)

var heifBrands = map[string]bool{
	"heic": true, "heix": true, "hevc": true, "hevx": true,
	"heim": true, "heis": true, "mif1": true, "msf1": true,
}

var avifBrands = map[string]bool{
	"avif": true, "avis": true,
}

// SniffBytes classifies a file from its leading bytes.
func SniffBytes(header []byte) Format {
	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return FormatJPEG
	case len(header) >= 8 && header[0] == 0x89 && header[1] == 'P' && header[2] == 'N' && header[3] == 'G':
		return FormatPNG
	case len(header) >= 4 && string(header[:4]) == "GIF8":
		return FormatGIF
	case len(header) >= 12 && string(header[:4]) == "RIFF" && string(header[8:12]) == "WEBP":
		return FormatWebP
	case len(header) >= 4 && (string(header[:4]) == "II*\x00" || string(header[:4]) == "MM\x00*"):
		return FormatTIFF
	case len(header) >= 12 && string(header[4:8]) == "ftyp":
		return sniffFtyp(header)
	}
	return FormatUnknown
}

// sniffFtyp checks the major brand and then any compatible brands that fit
// in header.
func sniffFtyp(header []byte) Format {
	brands := []string{string(header[8:12])}
	for off := 16; off+4 <= len(header); off += 4 {
		brands = append(brands, string(header[off:off+4]))
	}
	for _, b := range brands {
		if avifBrands[b] {
			return FormatAVIF
		}
	}
	for _, b := range brands {
		if heifBrands[b] {
			return FormatHEIF
		}
	}
	return FormatISOBMFF
}

// Sniff reads the first 32 bytes of path and classifies them.
func Sniff(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	header := make([]byte, 32)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	return SniffBytes(header[:n]), nil
}

// IsHEIFFamily reports whether f should go through the HEIF decoder.
func (f Format) IsHEIFFamily() bool {
	return f == FormatHEIF || f == FormatAVIF
}

var formatMimeTypes = map[Format]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatGIF:  "image/gif",
	FormatWebP: "image/webp",
	FormatTIFF: "image/tiff",
	FormatHEIF: "image/heif",
	FormatAVIF: "image/avif",
}

// MimeType returns the Content-Type for a still image format, or "" for
// formats that are not one.
func (f Format) MimeType() string {
	return formatMimeTypes[f]
}

// ContentType returns the Content-Type to serve path with. Images are typed
// by their content so a file whose extension lies is still labeled
// correctly; everything else goes by extension.
func ContentType(path string) string {
	ext := Ext(path)
	if KindOf(ext) == KindImage {
		if f, err := Sniff(path); err == nil {
			if mime := f.MimeType(); mime != "" {
				return mime
			}
		}
	}
	return MimeType(ext)
}
