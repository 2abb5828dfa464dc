package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"media-variants/internal/filesystem"
	"media-variants/internal/logging"
	"media-variants/internal/mediatypes"
	"media-variants/internal/metrics"
	"media-variants/internal/rawproto"
	"media-variants/internal/ttlcache"
)

// Kind says how a Source should be decoded.
type Kind string

const (
	KindOriginal   Kind = "original"
	KindSibling    Kind = "sibling"
	KindRawDecoded Kind = "raw_decoded"
	KindHEIC       Kind = "heic"
	KindFallback   Kind = "fallback"
)

// Source is the renderable input for one asset.
type Source struct {
	Path string
	Kind Kind
	// Raw is set only for KindRawDecoded and is owned by the caller.
	Raw *rawproto.Buffer
}

// RawDecoder turns a camera RAW file into a pixel buffer.
type RawDecoder interface {
	Decode(ctx context.Context, path string) (*rawproto.Buffer, error)
}

// siblingExtensions are tried in order next to a RAW file.
var siblingExtensions = []string{".jpg", ".jpeg", ".JPG", ".JPEG"}

// Resolver resolves assets. It never modifies the original file.
type Resolver struct {
	raw    RawDecoder
	sniffs *ttlcache.Cache[mediatypes.Format]
}

// NewResolver returns a Resolver. raw may be nil, in which case RAW files
// without a sibling fall back to the original. sniffs may be nil to disable
// caching of content sniffing.
func NewResolver(raw RawDecoder, sniffs *ttlcache.Cache[mediatypes.Format]) *Resolver {
	return &Resolver{raw: raw, sniffs: sniffs}
}

// SniffKey identifies a file version in the sniff cache. Invalidation
// removes entries by the path prefix.
func SniffKey(path string, info os.FileInfo) string {
	return path + "|" + strconv.FormatInt(info.Size(), 10) + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
}

// Resolve returns the Source for absPath.
func (r *Resolver) Resolve(ctx context.Context, absPath string) (Source, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return Source{}, filesystem.WithKind(filesystem.KindOf(err), fmt.Errorf("resolve source: %w", err))
	}
	if !info.Mode().IsRegular() {
		return Source{}, filesystem.Errorf(filesystem.KindInvalid, "resolve source: %s is not a regular file", filepath.Base(absPath))
	}

	src := r.resolve(ctx, absPath, info)
	metrics.SourceResolutions.WithLabelValues(string(src.Kind)).Inc()
	logging.Debug("Resolved %s as %s (%s)", filepath.Base(absPath), src.Kind, filepath.Base(src.Path))
	return src, nil
}

func (r *Resolver) resolve(ctx context.Context, absPath string, info os.FileInfo) Source {
	ext := mediatypes.Ext(absPath)

	switch {
	case mediatypes.IsRaw(ext):
		return r.resolveRaw(ctx, absPath)

	case mediatypes.IsHEIC(ext):
		if r.sniff(absPath, info) == mediatypes.FormatJPEG {
			return Source{Path: absPath, Kind: KindOriginal}
		}
		return Source{Path: absPath, Kind: KindHEIC}

	case mediatypes.IsJPEGExt(ext):
		if r.sniff(absPath, info).IsHEIFFamily() {
			return Source{Path: absPath, Kind: KindHEIC}
		}
		return Source{Path: absPath, Kind: KindOriginal}
	}

	return Source{Path: absPath, Kind: KindOriginal}
}

func (r *Resolver) resolveRaw(ctx context.Context, absPath string) Source {
	if sibling, ok := FindSibling(absPath); ok {
		return Source{Path: sibling, Kind: KindSibling}
	}

	if r.raw == nil {
		logging.Warn("No RAW decoder configured, passing %s to the generic codec", filepath.Base(absPath))
		return Source{Path: absPath, Kind: KindFallback}
	}

	buf, err := r.raw.Decode(ctx, absPath)
	if err != nil {
		logging.Warn("RAW decode failed for %s, falling back to generic codec: %v", filepath.Base(absPath), err)
		return Source{Path: absPath, Kind: KindFallback}
	}
	return Source{Path: absPath, Kind: KindRawDecoded, Raw: buf}
}

// FindSibling returns a non-empty JPEG with the same base name as rawPath.
func FindSibling(rawPath string) (string, bool) {
	stem := strings.TrimSuffix(rawPath, filepath.Ext(rawPath))
	for _, ext := range siblingExtensions {
		candidate := stem + ext
		if _, ok := filesystem.NonEmpty(candidate); ok {
			return candidate, true
		}
	}
	return "", false
}

func (r *Resolver) sniff(path string, info os.FileInfo) mediatypes.Format {
	key := SniffKey(path, info)
	if r.sniffs != nil {
		if f, ok := r.sniffs.Get(key); ok {
			return f
		}
	}

	f, err := mediatypes.Sniff(path)
	if err != nil {
		logging.Debug("Sniff %s failed: %v", filepath.Base(path), err)
		return mediatypes.FormatUnknown
	}
	if r.sniffs != nil {
		r.sniffs.Set(key, f)
	}
	return f
}
