// Package vipscodec wraps libvips (through govips) for the decoders the Go
// image stack lacks: HEIC/HEIF, camera RAW, and a generic fallback for
// anything else libvips can open.
//
// Init must be called once per process before any decode. govips cannot be
// restarted after Shutdown.
package vipscodec
