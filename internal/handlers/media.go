package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"media-variants/internal/filesystem"
	"media-variants/internal/logging"
	"media-variants/internal/mediatypes"
	"media-variants/internal/middleware"
	"media-variants/internal/streaming"
	"media-variants/internal/transcoder"

	"github.com/gorilla/mux"
)

// MaxWidth bounds requested widths so arbitrary values cannot fill the cache.
const MaxWidth = 8192

const (
	cacheDay  = "public, max-age=86400"
	cacheNone = "no-cache"
)

// Derivative outcomes reported in middleware.DerivativeHeader.
const (
	outcomeVariant  = "variant"
	outcomeOriginal = "original"
	outcomePending  = "pending"
	outcomeNone     = "none"
)

// parseWidth reads the w query parameter. Empty means full size.
func parseWidth(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	width, err := strconv.Atoi(s)
	if err != nil || width < 0 || width > MaxWidth {
		return 0, filesystem.Errorf(filesystem.KindInvalid, "invalid width %q", s)
	}
	return width, nil
}

// assetKind validates rel and returns the kind of media it names.
func (h *Handlers) assetKind(rel string) (mediatypes.Kind, error) {
	if _, err := h.paths.Abs(rel); err != nil {
		return "", err
	}
	return mediatypes.KindOf(mediatypes.Ext(rel)), nil
}

// GetImage serves an image variant.
// GET /api/image/{path}?w=<width>
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]

	kind, err := h.assetKind(rel)
	if err != nil {
		writeError(w, rel, err)
		return
	}
	if kind != mediatypes.KindImage {
		http.Error(w, "Not an image", http.StatusBadRequest)
		return
	}
	width, err := parseWidth(r.URL.Query().Get("w"))
	if err != nil {
		writeError(w, rel, err)
		return
	}

	path, err := h.images.EnsureVariant(r.Context(), rel, width)
	if err != nil {
		writeError(w, rel, err)
		return
	}

	outcome := outcomeVariant
	if filepath.Base(path) == filepath.Base(rel) {
		outcome = outcomeOriginal
	}
	w.Header().Set(middleware.DerivativeHeader, outcome)
	w.Header().Set("Cache-Control", cacheDay)
	h.serveFile(w, r, path)
}

// GetThumbnail serves a video's poster frame, or 204 when none could be
// produced.
// GET /api/thumbnail/{path}
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]

	kind, err := h.assetKind(rel)
	if err != nil {
		writeError(w, rel, err)
		return
	}
	if kind != mediatypes.KindVideo {
		http.Error(w, "Not a video", http.StatusBadRequest)
		return
	}
	if src, _ := h.paths.Abs(rel); !exists(src) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	path, ok := h.thumbnails.EnsureThumbnail(r.Context(), rel)
	if !ok {
		w.Header().Set(middleware.DerivativeHeader, outcomeNone)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set(middleware.DerivativeHeader, outcomeVariant)
	w.Header().Set("Cache-Control", cacheDay)
	h.serveFile(w, r, path)
}

// GetVideo serves the transcoded copy when present. Otherwise the original
// is served and, unless policy or a recent failure rules it out, a
// background transcode is started.
// GET /api/video/{path}
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]

	kind, err := h.assetKind(rel)
	if err != nil {
		writeError(w, rel, err)
		return
	}
	if kind != mediatypes.KindVideo {
		http.Error(w, "Not a video", http.StatusBadRequest)
		return
	}
	src, _ := h.paths.Abs(rel)
	if !exists(src) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	status, err := h.transcodes.Status(rel)
	if err != nil {
		logging.Warn("Transcode status for %s: %v", rel, err)
	}

	switch status.State {
	case transcoder.StatePresent:
		if out, err := h.paths.Transcode(rel, transcoder.CodecTag); err == nil {
			w.Header().Set(middleware.DerivativeHeader, outcomeVariant)
			w.Header().Set("Cache-Control", cacheDay)
			h.serveFile(w, r, out)
			return
		}
	case transcoder.StateAbsent:
		h.transcodes.Start(rel)
		w.Header().Set(middleware.DerivativeHeader, outcomePending)
	case transcoder.StateFailed:
		if status.RetryAfter.IsZero() {
			h.transcodes.Start(rel)
			w.Header().Set(middleware.DerivativeHeader, outcomePending)
		}
	case transcoder.StateLocked:
		w.Header().Set(middleware.DerivativeHeader, outcomePending)
	}

	if w.Header().Get(middleware.DerivativeHeader) == "" {
		w.Header().Set(middleware.DerivativeHeader, outcomeOriginal)
	}
	w.Header().Set("Cache-Control", cacheNone)
	h.serveFile(w, r, src)
}

// GetTranscodeStatus reports the transcode state of a video.
// GET /api/transcode-status/{path}
func (h *Handlers) GetTranscodeStatus(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]

	kind, err := h.assetKind(rel)
	if err != nil {
		writeError(w, rel, err)
		return
	}
	if kind != mediatypes.KindVideo {
		http.Error(w, "Not a video", http.StatusBadRequest)
		return
	}

	status, err := h.transcodes.Status(rel)
	if err != nil {
		writeError(w, rel, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", cacheNone)
	writeJSON(w, status)
}

// serveFile streams path with Range and conditional request support.
func (h *Handlers) serveFile(w http.ResponseWriter, r *http.Request, path string) {
	f, err := filesystem.OpenWithRetry(r.Context(), path, filesystem.DefaultPolicy())
	if err != nil {
		writeError(w, filepath.Base(path), err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, filepath.Base(path), err)
		return
	}
	if mime := mediatypes.ContentType(path); mime != "application/octet-stream" {
		w.Header().Set("Content-Type", mime)
	}
	sw := streaming.NewWriter(w, h.streamConfig)
	http.ServeContent(sw, r, filepath.Base(path), info.ModTime(), f)
	if written, took, timedOut := sw.Stats(); timedOut {
		logging.Warn("Client stalled serving %s: %d bytes in %v", filepath.Base(path), written, took.Round(time.Millisecond))
	}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
