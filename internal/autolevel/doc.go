// Package autolevel estimates a linear tone stretch for decoded RAW buffers.
//
// The estimate is taken on a downsampled luminance histogram. The grey levels
// at the 1st and 99th percentiles, widened by two levels, are mapped onto
// [8, 245]. Histograms whose percentile spread is five levels or less are
// considered too flat to correct.
package autolevel
