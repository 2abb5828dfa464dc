package rawproto

import (
	"fmt"
	"io"
	"math"
	"os"

	"media-variants/internal/filesystem"

	"github.com/goccy/go-json"
)

// MetadataSuffix is appended to the output path to name the metadata file.
const MetadataSuffix = ".json"

const (
	endianLittle = "little"
	endianBig    = "big"
)

// Metadata is the JSON document written next to the payload.
type Metadata struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Channels    int    `json:"channels"`
	Bits        int    `json:"bits"`
	Endianness  string `json:"endianness"`
	Orientation int    `json:"orientation,omitempty"`
}

// wireMetadata decodes dimensions as floats so that non-integral or
// out-of-range values are rejected instead of silently truncated.
type wireMetadata struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Channels    float64 `json:"channels"`
	Bits        float64 `json:"bits"`
	Endianness  string  `json:"endianness"`
	Orientation float64 `json:"orientation"`
}

func wholeNumber(name string, v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v < 0 || v > math.MaxInt32 {
		return 0, invalid("%s %v", name, v)
	}
	return int(v), nil
}

func (w wireMetadata) toMetadata() (Metadata, error) {
	var m Metadata
	var err error
	if m.Width, err = wholeNumber("width", w.Width); err != nil {
		return m, err
	}
	if m.Height, err = wholeNumber("height", w.Height); err != nil {
		return m, err
	}
	if m.Channels, err = wholeNumber("channels", w.Channels); err != nil {
		return m, err
	}
	if m.Bits, err = wholeNumber("bits", w.Bits); err != nil {
		return m, err
	}
	if m.Orientation, err = wholeNumber("orientation", w.Orientation); err != nil {
		return m, err
	}
	switch w.Endianness {
	case endianLittle, endianBig, "":
		m.Endianness = w.Endianness
	default:
		return m, invalid("endianness %q", w.Endianness)
	}
	return m, nil
}

// WriteSidecar validates b, strips any alpha channel, and writes the payload
// and metadata files. Nothing is written when validation fails.
func WriteSidecar(outPath string, b *Buffer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	b.StripAlpha()

	meta := Metadata{
		Width:       b.Width,
		Height:      b.Height,
		Channels:    b.Channels,
		Bits:        b.Bits,
		Endianness:  endianLittle,
		Orientation: b.Orientation,
	}
	if b.BigEndian {
		meta.Endianness = endianBig
	}

	payload := b.Pix[:b.MinLength()]
	if err := filesystem.WriteAtomic(outPath, func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	}); err != nil {
		return fmt.Errorf("write raw payload: %w", err)
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode raw metadata: %w", err)
	}
	if err := filesystem.WriteAtomic(outPath+MetadataSuffix, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return fmt.Errorf("write raw metadata: %w", err)
	}
	return nil
}

// ReadMetadata reads and validates the metadata file for outPath.
func ReadMetadata(outPath string) (Metadata, error) {
	data, err := os.ReadFile(outPath + MetadataSuffix)
	if err != nil {
		return Metadata{}, fmt.Errorf("read raw metadata: %w", err)
	}
	var wire wireMetadata
	if err := json.Unmarshal(data, &wire); err != nil {
		return Metadata{}, invalid("metadata: %v", err)
	}
	meta, err := wire.toMetadata()
	if err != nil {
		return Metadata{}, err
	}
	if err := checkShape(meta.Width, meta.Height, meta.Channels, meta.Bits); err != nil {
		return Metadata{}, err
	}
	if meta.Channels != 3 {
		return Metadata{}, invalid("sidecar must be 3-channel, got %d", meta.Channels)
	}
	return meta, nil
}

// ReadSidecar loads a worker's output pair and validates it.
func ReadSidecar(outPath string) (*Buffer, error) {
	meta, err := ReadMetadata(outPath)
	if err != nil {
		return nil, err
	}

	pix, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read raw payload: %w", err)
	}

	b := &Buffer{
		Width:       meta.Width,
		Height:      meta.Height,
		Channels:    meta.Channels,
		Bits:        meta.Bits,
		Pix:         pix,
		BigEndian:   meta.Endianness == endianBig,
		Orientation: meta.Orientation,
	}
	if meta.Endianness == "" {
		b.BigEndian = NativeBigEndian()
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
