package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-variants/internal/cachepath"
	"media-variants/internal/clock"
	"media-variants/internal/mediatypes"
	"media-variants/internal/ttlcache"

	"github.com/fsnotify/fsnotify"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func newTestWatcher(t *testing.T, caches ...PrefixDeleter) (*Watcher, string) {
	t.Helper()
	root := t.TempDir()
	w, err := New(cachepath.New(root), caches...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, root
}

func TestGetEventType(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want string
	}{
		{fsnotify.Create, "create"},
		{fsnotify.Write, "write"},
		{fsnotify.Remove, "remove"},
		{fsnotify.Rename, "rename"},
		{fsnotify.Chmod, "chmod"},
		{fsnotify.Create | fsnotify.Write, "create"},
		{0, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := getEventType(tt.op); got != tt.want {
				t.Errorf("getEventType(%v) = %q, want %q", tt.op, got, tt.want)
			}
		})
	}
}

func TestWatchAssetIdempotent(t *testing.T) {
	w, root := newTestWatcher(t)
	write(t, filepath.Join(root, "Trip", "a.jpg"), "a")
	write(t, filepath.Join(root, "Trip", "b.jpg"), "b")

	w.WatchAsset("Trip/a.jpg")
	w.WatchAsset("Trip/b.jpg")
	// Clamped to the root, so this is the same Trip folder.
	w.WatchAsset("../Trip/a.jpg")
	w.WatchAsset("Trip/.thumbs/a_w300.jpg")
	w.WatchAsset("")

	if got := w.Watched(); got != 1 {
		t.Errorf("Watched() = %d, want 1", got)
	}
}

func TestSourceWriteInvalidates(t *testing.T) {
	sniffs := ttlcache.New[mediatypes.Format](time.Hour, clock.Real{})
	w, root := newTestWatcher(t, sniffs)
	w.Start()

	src := filepath.Join(root, "Trip", "img.jpg")
	variant := filepath.Join(root, "Trip", cachepath.HiddenDir, "img_w300.jpg")
	other := filepath.Join(root, "Trip", cachepath.HiddenDir, "other_w300.jpg")
	write(t, src, "original")
	write(t, variant, "variant")
	write(t, other, "other")
	sniffs.Set(src+"|8|1", mediatypes.FormatJPEG)

	w.WatchAsset("Trip/img.jpg")
	write(t, src, "rotated in place")

	if !waitFor(func() bool { return !exists(variant) }) {
		t.Fatal("variant not invalidated after source write")
	}
	if !exists(other) {
		t.Error("unrelated asset's variant was removed")
	}
	if !waitFor(func() bool { return sniffs.Len() == 0 }) {
		t.Error("sniff cache entry not purged")
	}
}

func TestHiddenEventsIgnored(t *testing.T) {
	w, root := newTestWatcher(t)
	variant := filepath.Join(root, cachepath.HiddenDir, "img_w300.jpg")
	write(t, filepath.Join(root, "img.jpg"), "src")
	write(t, variant, "variant")

	w.handleEvent(fsnotify.Event{Name: variant, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, cachepath.HiddenDir), Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, ".img.jpg.123.tmp"), Op: fsnotify.Create})

	if !exists(variant) {
		t.Error("events inside the cache removed a variant")
	}
}

func TestChmodAndNonMediaIgnored(t *testing.T) {
	w, root := newTestWatcher(t)
	variant := filepath.Join(root, cachepath.HiddenDir, "img_w300.jpg")
	write(t, filepath.Join(root, "img.jpg"), "src")
	write(t, variant, "variant")

	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "img.jpg"), Op: fsnotify.Chmod})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "img.txt"), Op: fsnotify.Write})

	if !exists(variant) {
		t.Error("chmod or non-media event removed a variant")
	}

	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "img.jpg"), Op: fsnotify.Remove})
	if exists(variant) {
		t.Error("remove event should invalidate the variant")
	}
}

func TestCloseIdempotent(t *testing.T) {
	w, _ := newTestWatcher(t)
	w.Start()
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	w.WatchAsset("img.jpg")
	if got := w.Watched(); got != 0 {
		t.Errorf("Watched() after Close = %d, want 0", got)
	}
}
