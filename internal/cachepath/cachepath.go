package cachepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"media-variants/internal/filesystem"
	"media-variants/internal/mediatypes"
)

// HiddenDir is the cache subdirectory name used in every asset folder.
const HiddenDir = ".thumbs"

// ControlKind names one of the transcode coordinator's sidecar records.
type ControlKind string

const (
	// ControlLock marks an in-flight transcode.
	ControlLock ControlKind = "lock"
	// ControlFail records the last failed transcode attempt.
	ControlFail ControlKind = "fail"
	// ControlSkip records that transcoding is unnecessary.
	ControlSkip ControlKind = "skip"
)

// Resolver resolves asset paths relative to a media root.
type Resolver struct {
	root string
}

// New returns a Resolver for root.
func New(root string) *Resolver {
	return &Resolver{root: filepath.Clean(root)}
}

// Root returns the media root.
func (r *Resolver) Root() string {
	return r.root
}

// IsHidden reports whether a directory entry name belongs to the cache.
func IsHidden(name string) bool {
	return name == HiddenDir
}

// Clean normalizes a request path into a relative asset
// path. Paths that resolve to the root itself or that point into a cache
// directory are rejected.
func Clean(rel string) (string, error) {
	cleaned := filepath.Clean("/" + filepath.FromSlash(rel))
	cleaned = strings.TrimPrefix(cleaned, string(filepath.Separator))
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%q: %w", rel, filesystem.ErrInvalidPath)
	}
	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if IsHidden(part) {
			return "", fmt.Errorf("%q: %w", rel, filesystem.ErrInvalidPath)
		}
	}
	return cleaned, nil
}

// Abs returns the absolute path of the asset rel.
func (r *Resolver) Abs(rel string) (string, error) {
	cleaned, err := Clean(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.root, cleaned), nil
}

// Dir returns the absolute cache directory for the folder containing rel.
func (r *Resolver) Dir(rel string) (string, error) {
	abs, err := r.Abs(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(abs), HiddenDir), nil
}

// Base returns the asset's file name without its extension.
func Base(rel string) string {
	name := filepath.Base(rel)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// VariantSuffix returns "full" for width 0 and "w<width>" otherwise.
func VariantSuffix(width int) string {
	if width <= 0 {
		return "full"
	}
	return "w" + strconv.Itoa(width)
}

// Image returns the cache path of an image variant. Width 0 requests the
// full (bounded) rendition.
func (r *Resolver) Image(rel string, width int) (string, error) {
	if width < 0 {
		return "", filesystem.Errorf(filesystem.KindInvalid, "invalid width %d", width)
	}
	dir, err := r.Dir(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Base(rel)+"_"+VariantSuffix(width)+".jpg"), nil
}

// VideoThumbnail returns the cache path of a video's poster frame.
func (r *Resolver) VideoThumbnail(rel string) (string, error) {
	dir, err := r.Dir(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Base(rel)+".jpg"), nil
}

// Transcode returns the cache path of a video transcoded to codecTag.
func (r *Resolver) Transcode(rel, codecTag string) (string, error) {
	dir, err := r.Dir(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Base(rel)+"."+codecTag+".mp4"), nil
}

// Control returns the path of a transcode control record.
func (r *Resolver) Control(rel, codecTag string, kind ControlKind) (string, error) {
	dir, err := r.Dir(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Base(rel)+"."+codecTag+"."+string(kind)), nil
}

// Fresh reports whether a cache entry was written no earlier than its source
// was last modified.
func Fresh(entry, source os.FileInfo) bool {
	return !entry.ModTime().Before(source.ModTime())
}

// isImageVariant matches "<base>_full.jpg" and "<base>_w<digits>.jpg".
func isImageVariant(name, base string) bool {
	if name == base+"_full.jpg" {
		return true
	}
	prefix := base + "_w"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".jpg") {
		return false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".jpg")
	if digits == "" {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// isVideoDerivative matches the thumbnail, transcoded outputs, and the
// fail/skip records of a video. Lock records are left to their owner.
func isVideoDerivative(name, base string) bool {
	if name == base+".jpg" {
		return true
	}
	if !strings.HasPrefix(name, base+".") {
		return false
	}
	rest := strings.TrimPrefix(name, base+".")
	if strings.Count(rest, ".") != 1 {
		return false
	}
	switch filepath.Ext(rest) {
	case ".mp4", "." + string(ControlFail), "." + string(ControlSkip):
		return true
	}
	return false
}

// Invalidate removes the derived files of rel after its source changed and
// returns how many were removed.
func (r *Resolver) Invalidate(rel string) (int, error) {
	dir, err := r.Dir(rel)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	base := Base(rel)
	isVideo := mediatypes.KindOf(mediatypes.Ext(rel)) == mediatypes.KindVideo

	removed := 0
	var firstErr error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, ".tmp") {
			continue
		}
		match := isImageVariant(name, base)
		if isVideo {
			match = isVideoDerivative(name, base)
		}
		if !match {
			continue
		}
		if err := filesystem.RemoveIfExists(filepath.Join(dir, name)); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}
