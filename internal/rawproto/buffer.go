package rawproto

import (
	"encoding/binary"
	"errors"
	"fmt"

	"media-variants/internal/filesystem"
)

// ErrInvalidBuffer is wrapped by every validation failure.
var ErrInvalidBuffer = errors.New("invalid raw buffer")

// MaxPixels bounds width*height to keep a corrupt header from requesting an
// absurd allocation.
const MaxPixels = 400_000_000

// Buffer is a decoded RAW image held in memory.
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Bits     int
	// Pix holds interleaved samples, BytesPerSample(Bits) bytes each.
	Pix []byte
	// BigEndian is the byte order of two-byte samples.
	BigEndian bool
	// Orientation is the EXIF orientation (1-8); 0 means unknown.
	Orientation int
}

// BytesPerSample returns 1 for depths up to 8 bits, 2 otherwise.
func BytesPerSample(bits int) int {
	if bits <= 8 {
		return 1
	}
	return 2
}

// NativeBigEndian reports whether the host stores integers big-endian.
func NativeBigEndian() bool {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 1)
	return probe[0] == 0
}

func invalid(format string, args ...interface{}) error {
	return filesystem.WithKind(filesystem.KindDecode,
		fmt.Errorf("%w: %s", ErrInvalidBuffer, fmt.Sprintf(format, args...)))
}

// checkShape validates dimensions, channel count and depth.
func checkShape(width, height, channels, bits int) error {
	if width <= 0 || height <= 0 {
		return invalid("dimensions %dx%d", width, height)
	}
	if int64(width)*int64(height) > MaxPixels {
		return invalid("dimensions %dx%d exceed %d pixels", width, height, MaxPixels)
	}
	if channels != 3 && channels != 4 {
		return invalid("channel count %d", channels)
	}
	if bits <= 0 || bits > 16 {
		return invalid("bit depth %d", bits)
	}
	return nil
}

// MinLength returns the minimum payload length for the buffer's shape.
func (b *Buffer) MinLength() int {
	return b.Width * b.Height * b.Channels * BytesPerSample(b.Bits)
}

// Validate checks shape and that Pix is long enough.
func (b *Buffer) Validate() error {
	if err := checkShape(b.Width, b.Height, b.Channels, b.Bits); err != nil {
		return err
	}
	if need := b.MinLength(); len(b.Pix) < need {
		return invalid("payload %d bytes, need %d", len(b.Pix), need)
	}
	return nil
}

// StripAlpha drops the fourth channel in place. It is a no-op for RGB.
func (b *Buffer) StripAlpha() {
	if b.Channels != 4 {
		return
	}
	bps := BytesPerSample(b.Bits)
	src := 4 * bps
	dst := 3 * bps
	n := b.Width * b.Height
	for i := 0; i < n; i++ {
		copy(b.Pix[i*dst:i*dst+dst], b.Pix[i*src:i*src+dst])
	}
	b.Pix = b.Pix[:n*dst]
	b.Channels = 3
}

// Sample returns sample i (pixel*Channels + channel) widened to 16 bits of
// range 0..MaxValue.
func (b *Buffer) Sample(i int) uint16 {
	if BytesPerSample(b.Bits) == 1 {
		return uint16(b.Pix[i])
	}
	off := i * 2
	if b.BigEndian {
		return binary.BigEndian.Uint16(b.Pix[off:])
	}
	return binary.LittleEndian.Uint16(b.Pix[off:])
}

// MaxValue is the largest sample value for the buffer's bit depth.
func (b *Buffer) MaxValue() float64 {
	return float64(uint32(1)<<uint(b.Bits) - 1)
}
