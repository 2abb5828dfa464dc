package mediatypes

import (
	"path/filepath"
	"strings"
)

// Kind is the coarse kind of an asset.
type Kind string

const (
	// KindImage is a photo, including RAW and HEIF containers.
	KindImage Kind = "image"
	// KindVideo is a video file.
	KindVideo Kind = "video"
	// KindOther is anything this subsystem does not derive variants for.
	KindOther Kind = "other"
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".avif": true,
}

// RawExtensions lists camera RAW formats that go through the RAW worker.
var RawExtensions = map[string]bool{
	".dng": true,
	".cr2": true,
	".cr3": true,
	".nef": true,
	".arw": true,
	".raf": true,
	".orf": true,
	".rw2": true,
	".raw": true,
}

// HEICExtensions lists HEIF container extensions decoded in memory.
var HEICExtensions = map[string]bool{
	".heic": true,
	".heif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// Ext returns the lower-cased extension of name including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// KindOf returns the Kind for a lower-case extension such as ".jpg".
func KindOf(ext string) Kind {
	switch {
	case ImageExtensions[ext], RawExtensions[ext]:
		return KindImage
	case VideoExtensions[ext]:
		return KindVideo
	default:
		return KindOther
	}
}

// IsRaw reports whether ext is a camera RAW extension.
func IsRaw(ext string) bool {
	return RawExtensions[ext]
}

// IsHEIC reports whether ext is a HEIF container extension.
func IsHEIC(ext string) bool {
	return HEICExtensions[ext]
}

// IsJPEGExt reports whether ext names a JPEG file.
func IsJPEGExt(ext string) bool {
	return ext == ".jpg" || ext == ".jpeg"
}

// MimeTypes maps served extensions to their Content-Type. Variants and
// thumbnails are always JPEG; originals are served with their own type.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",

	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// MimeType returns the Content-Type for ext, or application/octet-stream
// when it is not recognized.
func MimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
