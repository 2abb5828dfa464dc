package autolevel

import (
	"math"

	"media-variants/internal/rawproto"
)

const (
	// MaxSampleDim bounds the downsampled grid in each dimension.
	MaxSampleDim = 256
	// Bins is the histogram resolution.
	Bins = 256

	LowPercentile  = 0.01
	HighPercentile = 0.99
	Headroom       = 2
	MinSpread      = 5

	TargetLow  = 8.0
	TargetHigh = 245.0
)

// Params is a linear mapping on 8-bit normalized values.
type Params struct {
	Low    float64
	High   float64
	Scale  float64
	Offset float64
}

// Identity leaves values unchanged.
var Identity = Params{Low: 0, High: 255, Scale: 1, Offset: 0}

// Apply maps an 8-bit normalized value. The result is not clamped.
func (p Params) Apply(v float64) float64 {
	return v*p.Scale + p.Offset
}

// Estimate computes levels for b. ok is false when the histogram is too
// narrow to yield a reliable correction; callers should then skip it.
func Estimate(b *rawproto.Buffer) (Params, bool) {
	hist, total := histogram(b)
	if total == 0 {
		return Identity, false
	}

	low := percentile(hist, total, LowPercentile) - Headroom
	high := percentile(hist, total, HighPercentile) + Headroom
	if low < 0 {
		low = 0
	}
	if high > Bins-1 {
		high = Bins - 1
	}
	if high-low <= MinSpread {
		return Identity, false
	}

	scale := (TargetHigh - TargetLow) / float64(high-low)
	return Params{
		Low:    float64(low),
		High:   float64(high),
		Scale:  scale,
		Offset: TargetLow - float64(low)*scale,
	}, true
}

// stride returns the step that brings n down to at most MaxSampleDim.
func stride(n int) int {
	s := (n + MaxSampleDim - 1) / MaxSampleDim
	if s < 1 {
		s = 1
	}
	return s
}

// histogram bins the luminance of a strided subset of b's pixels.
func histogram(b *rawproto.Buffer) ([Bins]int, int) {
	var hist [Bins]int
	if b.Width <= 0 || b.Height <= 0 || b.Channels < 3 {
		return hist, 0
	}

	norm := 255 / b.MaxValue()
	sx, sy := stride(b.Width), stride(b.Height)
	total := 0
	for y := 0; y < b.Height; y += sy {
		row := y * b.Width
		for x := 0; x < b.Width; x += sx {
			i := (row + x) * b.Channels
			r := float64(b.Sample(i)) * norm
			g := float64(b.Sample(i+1)) * norm
			bl := float64(b.Sample(i+2)) * norm
			lum := 0.299*r + 0.587*g + 0.114*bl

			bin := int(math.Round(lum))
			if bin < 0 {
				bin = 0
			} else if bin >= Bins {
				bin = Bins - 1
			}
			hist[bin]++
			total++
		}
	}
	return hist, total
}

// percentile returns the first bin at which the cumulative count reaches q
// of total.
func percentile(hist [Bins]int, total int, q float64) int {
	target := q * float64(total)
	cum := 0
	for i, n := range hist {
		cum += n
		if float64(cum) >= target {
			return i
		}
	}
	return Bins - 1
}
