package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"media-variants/internal/cachepath"
	"media-variants/internal/ffmpeg"
	"media-variants/internal/filesystem"
	"media-variants/internal/rawproto"
	"media-variants/internal/source"
)

func fastPolicy(attempts int) filesystem.Policy {
	return filesystem.Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, testImage(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, testImage(w, h)); err != nil {
		t.Fatal(err)
	}
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode config %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

// spyEncoder counts calls and delegates to the real encoder unless empty
// output is requested.
type spyEncoder struct {
	calls atomic.Int32
	empty bool
	delay time.Duration
}

func (s *spyEncoder) Encode(w io.Writer, img image.Image) error {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.empty {
		return nil
	}
	return JPEGEncoder{}.Encode(w, img)
}

type fakeCodec struct {
	heic    image.Image
	heicErr error
	anyImg  image.Image
	anyErr  error
}

func (f *fakeCodec) DecodeHEIC(string) (image.Image, error) { return f.heic, f.heicErr }
func (f *fakeCodec) DecodeAny(string) (image.Image, error)  { return f.anyImg, f.anyErr }

type fakeRaw struct {
	buf *rawproto.Buffer
	err error
}

func (f *fakeRaw) Decode(context.Context, string) (*rawproto.Buffer, error) { return f.buf, f.err }

// fakeRunner imitates ffmpeg by writing fixed bytes to the output path.
type fakeRunner struct {
	mu         sync.Mutex
	frames     int
	transcodes int
	output     []byte
	err        error
	probe      ffmpeg.ProbeResult
}

func (f *fakeRunner) Probe(context.Context, string) (ffmpeg.ProbeResult, error) {
	return f.probe, nil
}

func (f *fakeRunner) ExtractFrame(_ context.Context, _, out string, offset time.Duration, width int) error {
	f.mu.Lock()
	f.frames++
	f.mu.Unlock()
	if offset != ThumbnailOffset || width != ThumbnailWidth {
		return errors.New("unexpected frame parameters")
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(out, f.output, 0o644)
}

func (f *fakeRunner) Transcode(context.Context, string, string) error {
	f.mu.Lock()
	f.transcodes++
	f.mu.Unlock()
	return f.err
}

func (f *fakeRunner) frameCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

func newTestGenerator(root string, enc Encoder, codec Codec, raw source.RawDecoder) *Generator {
	return NewGenerator(cachepath.New(root), source.NewResolver(raw, nil), Options{
		Encoder: enc,
		Codec:   codec,
		Policy:  fastPolicy(5),
	})
}
