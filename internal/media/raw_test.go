package media

import (
	"testing"

	"media-variants/internal/autolevel"
	"media-variants/internal/rawproto"
)

func TestToneCurveIdentity(t *testing.T) {
	lut := toneCurve(1, 255, autolevel.Identity, false)
	if len(lut) != 256 {
		t.Fatalf("len = %d, want 256", len(lut))
	}
	if lut[0] != 0 || lut[255] != 255 {
		t.Errorf("endpoints = %d,%d, want 0,255", lut[0], lut[255])
	}
	// Gamma lifts midtones.
	if lut[64] <= 64 {
		t.Errorf("lut[64] = %d, want > 64 after gamma", lut[64])
	}
	for i := 1; i < len(lut); i++ {
		if lut[i] < lut[i-1] {
			t.Fatalf("curve not monotonic at %d", i)
		}
	}
}

func TestToneCurveClipsAboveMax(t *testing.T) {
	lut := toneCurve(2, 4095, autolevel.Identity, false)
	if len(lut) != 65536 {
		t.Fatalf("len = %d, want 65536", len(lut))
	}
	if lut[4095] != 255 || lut[60000] != 255 {
		t.Errorf("lut[max]=%d lut[over]=%d, want 255", lut[4095], lut[60000])
	}
}

func TestToneCurveLevels(t *testing.T) {
	p := autolevel.Params{Low: 50, High: 100}
	p.Scale = (autolevel.TargetHigh - autolevel.TargetLow) / (p.High - p.Low)
	p.Offset = autolevel.TargetLow - p.Low*p.Scale

	lut := toneCurve(1, 255, p, true)
	if lut[10] != lut[0] {
		t.Errorf("values below Low should clamp together: lut[0]=%d lut[10]=%d", lut[0], lut[10])
	}
	if lut[200] != 255 {
		t.Errorf("lut[200] = %d, want 255", lut[200])
	}
	if lut[75] <= 75 {
		t.Errorf("lut[75] = %d, want stretched above 75", lut[75])
	}
}

func TestRenderRawOrientation(t *testing.T) {
	tests := []struct {
		orientation int
		wantW       int
		wantH       int
	}{
		{1, 4, 2},
		{3, 4, 2},
		{6, 2, 4},
		{8, 2, 4},
	}
	for _, tt := range tests {
		b := &rawproto.Buffer{Width: 4, Height: 2, Channels: 3, Bits: 8, Pix: make([]byte, 4*2*3), Orientation: tt.orientation}
		b.Pix[0] = 255
		img := renderRaw(b)
		if got := img.Bounds(); got.Dx() != tt.wantW || got.Dy() != tt.wantH {
			t.Errorf("orientation %d: size = %dx%d, want %dx%d", tt.orientation, got.Dx(), got.Dy(), tt.wantW, tt.wantH)
		}
	}
}

func TestRenderRawStripsAlpha(t *testing.T) {
	b := &rawproto.Buffer{Width: 1, Height: 1, Channels: 4, Bits: 8, Pix: []byte{255, 0, 0, 7}}
	img := renderRaw(b)
	r, g, bl, a := img.At(0, 0).RGBA()
	if r>>8 != 255 || g != 0 || bl != 0 || a>>8 != 255 {
		t.Errorf("pixel = %d,%d,%d,%d, want opaque red", r>>8, g>>8, bl>>8, a>>8)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name        string
		w, h, width int
		wantW       int
		wantH       int
	}{
		{"downscale to width", 600, 400, 300, 300, 200},
		{"no upscale", 200, 100, 300, 200, 100},
		{"exact width", 300, 100, 300, 300, 100},
		{"full within bound", 2048, 1000, 0, 2048, 1000},
		{"full landscape", 4096, 2048, 0, 2048, 1024},
		{"full portrait", 1000, 4000, 0, 512, 2048},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fit(testImage(tt.w, tt.h), tt.width).Bounds()
			if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
				t.Errorf("fit(%dx%d, %d) = %dx%d, want %dx%d",
					tt.w, tt.h, tt.width, got.Dx(), got.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestOrientIdentity(t *testing.T) {
	img := testImage(3, 2)
	for _, o := range []int{0, 1, 9} {
		if orient(img, o) != img {
			t.Errorf("orient(%d) should return the image unchanged", o)
		}
	}
}
