package rawproto

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"media-variants/internal/filesystem"
)

func rgb16(w, h int) *Buffer {
	pix := make([]byte, w*h*3*2)
	for i := range pix {
		pix[i] = byte(i)
	}
	return &Buffer{Width: w, Height: h, Channels: 3, Bits: 14, Pix: pix}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		buf     *Buffer
		wantErr bool
	}{
		{"valid 16-bit", rgb16(4, 3), false},
		{"valid 8-bit rgba", &Buffer{Width: 2, Height: 2, Channels: 4, Bits: 8, Pix: make([]byte, 16)}, false},
		{"zero width", &Buffer{Width: 0, Height: 2, Channels: 3, Bits: 8, Pix: make([]byte, 12)}, true},
		{"negative height", &Buffer{Width: 2, Height: -1, Channels: 3, Bits: 8}, true},
		{"two channels", &Buffer{Width: 2, Height: 2, Channels: 2, Bits: 8, Pix: make([]byte, 8)}, true},
		{"zero bits", &Buffer{Width: 2, Height: 2, Channels: 3, Bits: 0, Pix: make([]byte, 12)}, true},
		{"32 bits", &Buffer{Width: 2, Height: 2, Channels: 3, Bits: 32, Pix: make([]byte, 48)}, true},
		{"short payload", &Buffer{Width: 4, Height: 4, Channels: 3, Bits: 16, Pix: make([]byte, 10)}, true},
		{"too many pixels", &Buffer{Width: 100000, Height: 100000, Channels: 3, Bits: 8}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.buf.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidBuffer) {
					t.Errorf("error %v should wrap ErrInvalidBuffer", err)
				}
				if filesystem.KindOf(err) != filesystem.KindDecode {
					t.Errorf("KindOf = %v, want decode", filesystem.KindOf(err))
				}
			}
		})
	}
}

func TestStripAlpha(t *testing.T) {
	b := &Buffer{
		Width: 2, Height: 1, Channels: 4, Bits: 8,
		Pix: []byte{1, 2, 3, 255, 4, 5, 6, 255},
	}
	b.StripAlpha()

	if b.Channels != 3 {
		t.Errorf("Channels = %d, want 3", b.Channels)
	}
	want := []byte{1, 2, 3, 4, 5, 6}
	if string(b.Pix) != string(want) {
		t.Errorf("Pix = %v, want %v", b.Pix, want)
	}
}

func TestStripAlpha16(t *testing.T) {
	b := &Buffer{
		Width: 1, Height: 2, Channels: 4, Bits: 16,
		Pix: []byte{1, 0, 2, 0, 3, 0, 9, 9, 4, 0, 5, 0, 6, 0, 9, 9},
	}
	b.StripAlpha()

	for i, want := range []uint16{1, 2, 3, 4, 5, 6} {
		if got := b.Sample(i); got != want {
			t.Errorf("Sample(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestSampleByteOrder(t *testing.T) {
	b := &Buffer{Width: 1, Height: 1, Channels: 3, Bits: 16, Pix: []byte{0x01, 0x02, 0, 0, 0, 0}}
	if got := b.Sample(0); got != 0x0201 {
		t.Errorf("little-endian Sample(0) = %#x, want 0x201", got)
	}
	b.BigEndian = true
	if got := b.Sample(0); got != 0x0102 {
		t.Errorf("big-endian Sample(0) = %#x, want 0x102", got)
	}
}

func TestMaxValue(t *testing.T) {
	tests := []struct {
		bits int
		want float64
	}{
		{8, 255},
		{12, 4095},
		{14, 16383},
		{16, 65535},
	}
	for _, tt := range tests {
		b := &Buffer{Bits: tt.bits}
		if got := b.MaxValue(); got != tt.want {
			t.Errorf("MaxValue(bits=%d) = %v, want %v", tt.bits, got, tt.want)
		}
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "full.raw")
	src := rgb16(5, 4)
	src.Orientation = 6
	src.BigEndian = true

	if err := WriteSidecar(out, src); err != nil {
		t.Fatalf("WriteSidecar() error = %v", err)
	}

	got, err := ReadSidecar(out)
	if err != nil {
		t.Fatalf("ReadSidecar() error = %v", err)
	}
	if got.Width != 5 || got.Height != 4 || got.Channels != 3 || got.Bits != 14 {
		t.Errorf("shape = %dx%dx%d@%d, want 5x4x3@14", got.Width, got.Height, got.Channels, got.Bits)
	}
	if !got.BigEndian {
		t.Error("BigEndian = false, want true")
	}
	if got.Orientation != 6 {
		t.Errorf("Orientation = %d, want 6", got.Orientation)
	}
	if string(got.Pix) != string(src.Pix) {
		t.Error("payload differs after round trip")
	}
}

func TestWriteSidecarStripsAlpha(t *testing.T) {
	out := filepath.Join(t.TempDir(), "full.raw")
	b := &Buffer{Width: 1, Height: 1, Channels: 4, Bits: 8, Pix: []byte{10, 20, 30, 40}}

	if err := WriteSidecar(out, b); err != nil {
		t.Fatalf("WriteSidecar() error = %v", err)
	}
	meta, err := ReadMetadata(out)
	if err != nil {
		t.Fatalf("ReadMetadata() error = %v", err)
	}
	if meta.Channels != 3 {
		t.Errorf("Channels = %d, want 3", meta.Channels)
	}
	data, _ := os.ReadFile(out)
	if string(data) != string([]byte{10, 20, 30}) {
		t.Errorf("payload = %v, want [10 20 30]", data)
	}
}

func TestWriteSidecarRejectsBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "full.raw")
	b := &Buffer{Width: 0, Height: 0, Channels: 3, Bits: 16}

	if err := WriteSidecar(out, b); !errors.Is(err, ErrInvalidBuffer) {
		t.Fatalf("WriteSidecar() error = %v, want ErrInvalidBuffer", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("files written for invalid buffer: %d", len(entries))
	}
}

func TestReadSidecarRejectsBadMetadata(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"zero dims", `{"width":0,"height":10,"channels":3,"bits":8,"endianness":"little"}`},
		{"fractional", `{"width":10.5,"height":10,"channels":3,"bits":8,"endianness":"little"}`},
		{"negative", `{"width":-3,"height":10,"channels":3,"bits":8,"endianness":"little"}`},
		{"huge", `{"width":1e300,"height":10,"channels":3,"bits":8,"endianness":"little"}`},
		{"four channel", `{"width":1,"height":1,"channels":4,"bits":8,"endianness":"little"}`},
		{"bad endianness", `{"width":1,"height":1,"channels":3,"bits":8,"endianness":"middle"}`},
		{"not json", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "full.raw")
			_ = os.WriteFile(out, make([]byte, 1024), 0o644)
			_ = os.WriteFile(out+MetadataSuffix, []byte(tt.json), 0o644)

			if _, err := ReadSidecar(out); !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("ReadSidecar() error = %v, want ErrInvalidBuffer", err)
			}
		})
	}
}

func TestReadSidecarShortPayload(t *testing.T) {
	out := filepath.Join(t.TempDir(), "full.raw")
	_ = os.WriteFile(out, make([]byte, 5), 0o644)
	_ = os.WriteFile(out+MetadataSuffix, []byte(`{"width":2,"height":2,"channels":3,"bits":8,"endianness":"little"}`), 0o644)

	if _, err := ReadSidecar(out); !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("ReadSidecar() error = %v, want ErrInvalidBuffer", err)
	}
}

func TestReadSidecarMissingFiles(t *testing.T) {
	out := filepath.Join(t.TempDir(), "full.raw")
	_, err := ReadSidecar(out)
	if err == nil {
		t.Fatal("ReadSidecar() error = nil, want error")
	}
	if !os.IsNotExist(errors.Unwrap(err)) && !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want not-exist", err)
	}
}
