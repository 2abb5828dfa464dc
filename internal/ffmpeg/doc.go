// Package ffmpeg runs the external ffprobe and ffmpeg binaries.
//
// Runner is the seam the thumbnail generator and the transcode coordinator
// depend on; Exec is the process-backed implementation. Outputs are always
// written with an explicit muxer because callers pass temp paths whose
// suffix does not name a container.
package ffmpeg
