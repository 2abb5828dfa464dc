package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"media-variants/internal/filesystem"
	"media-variants/internal/logging"

	"github.com/goccy/go-json"
)

// ProbeResult describes the primary video stream of a file.
type ProbeResult struct {
	Codec    string
	Width    int
	Height   int
	Duration float64
}

// Runner is the external transcoding toolchain.
type Runner interface {
	Probe(ctx context.Context, path string) (ProbeResult, error)
	ExtractFrame(ctx context.Context, in, out string, offset time.Duration, width int) error
	Transcode(ctx context.Context, in, out string) error
}

// stderrTail bounds how much tool output is carried in an error.
const stderrTail = 512

// Exec runs ffmpeg and ffprobe as child processes.
type Exec struct {
	ffmpeg  string
	ffprobe string

	processMu sync.Mutex
	processes map[*exec.Cmd]string
}

// NewExec returns a Runner using the given binaries. Empty paths default to
// "ffmpeg" and "ffprobe" on PATH.
func NewExec(ffmpegPath, ffprobePath string) *Exec {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Exec{
		ffmpeg:    ffmpegPath,
		ffprobe:   ffprobePath,
		processes: make(map[*exec.Cmd]string),
	}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseProbe extracts the first video stream from ffprobe JSON output.
func ParseProbe(data []byte) (ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return ProbeResult{}, filesystem.WithKind(filesystem.KindDecode, fmt.Errorf("parse ffprobe output: %w", err))
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		res := ProbeResult{
			Codec:  strings.ToLower(s.CodecName),
			Width:  s.Width,
			Height: s.Height,
		}
		if out.Format.Duration != "" {
			res.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
		}
		return res, nil
	}
	return ProbeResult{}, filesystem.Errorf(filesystem.KindDecode, "no video stream")
}

// ProbeArgs returns the ffprobe arguments for path.
func ProbeArgs(path string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
}

// FrameArgs returns the ffmpeg arguments that extract one JPEG frame at
// offset, scaled to width with the aspect ratio preserved.
func FrameArgs(in, out string, offset time.Duration, width int) []string {
	return []string{
		"-y",
		"-ss", formatOffset(offset),
		"-i", in,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", width),
		"-q:v", "3",
		"-f", "image2",
		"-update", "1",
		"-c:v", "mjpeg",
		out,
	}
}

// TranscodeArgs returns the ffmpeg arguments for an H.264/AAC MP4.
func TranscodeArgs(in, out string) []string {
	return []string{
		"-y",
		"-i", in,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-f", "mp4",
		out,
	}
}

func formatOffset(d time.Duration) string {
	total := int(d / time.Millisecond)
	h := total / 3_600_000
	m := total / 60_000 % 60
	s := total / 1000 % 60
	ms := total % 1000
	if ms == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > stderrTail {
		s = s[len(s)-stderrTail:]
	}
	return s
}

// run executes a tool, tracking the process so Kill can stop it.
func (e *Exec) run(ctx context.Context, label, bin string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", filepath.Base(bin), err)
	}

	e.processMu.Lock()
	e.processes[cmd] = label
	e.processMu.Unlock()
	defer func() {
		e.processMu.Lock()
		delete(e.processes, cmd)
		e.processMu.Unlock()
	}()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", filepath.Base(bin), label, ctx.Err())
		}
		return nil, fmt.Errorf("%s %s: %w: %s", filepath.Base(bin), label, err, tail(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// Probe runs ffprobe on path.
func (e *Exec) Probe(ctx context.Context, path string) (ProbeResult, error) {
	out, err := e.run(ctx, "probe "+filepath.Base(path), e.ffprobe, ProbeArgs(path))
	if err != nil {
		return ProbeResult{}, err
	}
	res, err := ParseProbe(out)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}
	logging.Debug("Probed %s: codec=%s %dx%d %.1fs", filepath.Base(path), res.Codec, res.Width, res.Height, res.Duration)
	return res, nil
}

// ExtractFrame writes one JPEG frame of in to out.
func (e *Exec) ExtractFrame(ctx context.Context, in, out string, offset time.Duration, width int) error {
	_, err := e.run(ctx, "frame "+filepath.Base(in), e.ffmpeg, FrameArgs(in, out, offset, width))
	return err
}

// Transcode re-encodes in to an MP4 at out.
func (e *Exec) Transcode(ctx context.Context, in, out string) error {
	start := time.Now()
	_, err := e.run(ctx, "transcode "+filepath.Base(in), e.ffmpeg, TranscodeArgs(in, out))
	if err == nil {
		logging.Debug("Transcoded %s in %v", filepath.Base(in), time.Since(start))
	}
	return err
}

// Kill stops every running child process.
func (e *Exec) Kill() {
	e.processMu.Lock()
	defer e.processMu.Unlock()

	for cmd, label := range e.processes {
		if cmd.Process != nil {
			logging.Info("Killing ffmpeg process: %s", label)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill ffmpeg process %s: %v", label, err)
			}
		}
	}
}

// Available reports whether both binaries resolve on PATH or as given.
func (e *Exec) Available() bool {
	if _, err := exec.LookPath(e.ffmpeg); err != nil {
		return false
	}
	_, err := exec.LookPath(e.ffprobe)
	return err == nil
}
