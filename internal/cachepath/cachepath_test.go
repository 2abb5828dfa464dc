package cachepath

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"media-variants/internal/filesystem"
)

func TestImagePaths(t *testing.T) {
	r := New("/media")

	tests := []struct {
		name  string
		rel   string
		width int
		want  string
	}{
		{"explicit width", "Trip/img.dng", 300, "/media/Trip/.thumbs/img_w300.jpg"},
		{"full", "Trip/img.dng", 0, "/media/Trip/.thumbs/img_full.jpg"},
		{"nested", "a/b/c/photo.heic", 1024, "/media/a/b/c/.thumbs/photo_w1024.jpg"},
		{"root level", "cover.jpg", 200, "/media/.thumbs/cover_w200.jpg"},
		{"leading slash", "/Trip/img.jpg", 300, "/media/Trip/.thumbs/img_w300.jpg"},
		{"dots in name", "Trip/img.v2.jpg", 300, "/media/Trip/.thumbs/img.v2_w300.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Image(tt.rel, tt.width)
			if err != nil {
				t.Fatalf("Image() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Image(%q, %d) = %q, want %q", tt.rel, tt.width, got, tt.want)
			}
		})
	}
}

func TestImageDeterministicAndDistinct(t *testing.T) {
	r := New("/media")
	a1, _ := r.Image("Trip/img.jpg", 300)
	a2, _ := r.Image("Trip/img.jpg", 300)
	b, _ := r.Image("Trip/img.jpg", 600)
	full, _ := r.Image("Trip/img.jpg", 0)

	if a1 != a2 {
		t.Errorf("same inputs mapped to %q and %q", a1, a2)
	}
	if a1 == b || a1 == full || b == full {
		t.Errorf("variants collided: %q %q %q", a1, b, full)
	}
}

func TestVideoPaths(t *testing.T) {
	r := New("/media")

	thumb, err := r.VideoThumbnail("Trip/clip.MOV")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/media/Trip/.thumbs/clip.jpg"; thumb != want {
		t.Errorf("VideoThumbnail() = %q, want %q", thumb, want)
	}

	out, _ := r.Transcode("Trip/clip.MOV", "h264")
	if want := "/media/Trip/.thumbs/clip.h264.mp4"; out != want {
		t.Errorf("Transcode() = %q, want %q", out, want)
	}

	lock, _ := r.Control("Trip/clip.MOV", "h264", ControlLock)
	if want := "/media/Trip/.thumbs/clip.h264.lock"; lock != want {
		t.Errorf("Control(lock) = %q, want %q", lock, want)
	}
}

func TestInvalidPaths(t *testing.T) {
	r := New("/media")

	for _, rel := range []string{"", "/", ".", "Trip/.thumbs/img_w300.jpg", ".thumbs/x.jpg"} {
		t.Run(rel, func(t *testing.T) {
			_, err := r.Image(rel, 100)
			if !errors.Is(err, filesystem.ErrInvalidPath) {
				t.Errorf("Image(%q) error = %v, want ErrInvalidPath", rel, err)
			}
		})
	}

	if _, err := r.Image("Trip/img.jpg", -1); filesystem.KindOf(err) != filesystem.KindInvalid {
		t.Errorf("negative width error kind = %v, want invalid", filesystem.KindOf(err))
	}
}

func TestTraversalStaysUnderRoot(t *testing.T) {
	r := New("/media")
	got, err := r.Abs("../../etc/passwd")
	if err != nil {
		t.Fatalf("Abs() error = %v", err)
	}
	if got != "/media/etc/passwd" {
		t.Errorf("Abs() = %q, want path clamped under root", got)
	}
}

func TestIsHidden(t *testing.T) {
	if !IsHidden(".thumbs") {
		t.Error("IsHidden(.thumbs) = false")
	}
	if IsHidden("thumbs") || IsHidden(".git") {
		t.Error("IsHidden matched a non-cache name")
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInvalidateImage(t *testing.T) {
	root := t.TempDir()
	r := New(root)
	cache := filepath.Join(root, "Trip", HiddenDir)

	for _, name := range []string{
		"img_w300.jpg", "img_w1200.jpg", "img_full.jpg",
		"img_wide.jpg", "imgx_w300.jpg", "other_w300.jpg", "img.jpg",
	} {
		touch(t, filepath.Join(cache, name))
	}

	n, err := r.Invalidate("Trip/img.dng")
	if err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Invalidate() removed %d, want 3", n)
	}

	entries, _ := os.ReadDir(cache)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	sort.Strings(left)
	want := []string{"img.jpg", "img_wide.jpg", "imgx_w300.jpg", "other_w300.jpg"}
	if len(left) != len(want) {
		t.Fatalf("remaining = %v, want %v", left, want)
	}
	for i := range want {
		if left[i] != want[i] {
			t.Errorf("remaining[%d] = %q, want %q", i, left[i], want[i])
		}
	}
}

func TestInvalidateVideo(t *testing.T) {
	root := t.TempDir()
	r := New(root)
	cache := filepath.Join(root, "Trip", HiddenDir)

	for _, name := range []string{"clip.jpg", "clip.h264.mp4", "clip.h264.fail", "clip.h264.skip", "clip.h264.lock"} {
		touch(t, filepath.Join(cache, name))
	}

	n, err := r.Invalidate("Trip/clip.mov")
	if err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if n != 4 {
		t.Errorf("Invalidate() removed %d, want 4", n)
	}
	if _, err := os.Stat(filepath.Join(cache, "clip.h264.lock")); err != nil {
		t.Error("lock record should survive invalidation")
	}
}

func TestInvalidateMissingDir(t *testing.T) {
	r := New(t.TempDir())
	n, err := r.Invalidate("Nowhere/img.jpg")
	if err != nil || n != 0 {
		t.Errorf("Invalidate(missing) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestFresh(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	entry := filepath.Join(dir, "entry.jpg")
	touch(t, src)
	touch(t, entry)

	now := time.Now()
	_ = os.Chtimes(src, now, now)
	_ = os.Chtimes(entry, now.Add(time.Second), now.Add(time.Second))

	srcInfo, _ := os.Stat(src)
	entryInfo, _ := os.Stat(entry)
	if !Fresh(entryInfo, srcInfo) {
		t.Error("entry newer than source should be fresh")
	}

	_ = os.Chtimes(src, now.Add(time.Minute), now.Add(time.Minute))
	srcInfo, _ = os.Stat(src)
	if Fresh(entryInfo, srcInfo) {
		t.Error("entry older than source should be stale")
	}
}

func TestInvalidateVideoLeavesOtherAssets(t *testing.T) {
	root := t.TempDir()
	r := New(root)
	cache := filepath.Join(root, "Trip", HiddenDir)

	keep := []string{"clip2.h264.mp4", "clip2.h264.skip", "clip.h264.mp4.123.tmp", "clip_w300.jpg"}
	for _, name := range append([]string{"clip.h264.skip"}, keep...) {
		touch(t, filepath.Join(cache, name))
	}

	if n, err := r.Invalidate("Trip/clip.mov"); err != nil || n != 1 {
		t.Fatalf("Invalidate() = (%d, %v), want (1, nil)", n, err)
	}
	for _, name := range keep {
		if _, err := os.Stat(filepath.Join(cache, name)); err != nil {
			t.Errorf("%s removed, want kept", name)
		}
	}
}
