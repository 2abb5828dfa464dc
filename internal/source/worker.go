package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"media-variants/internal/filesystem"
	"media-variants/internal/logging"
	"media-variants/internal/metrics"
	"media-variants/internal/rawproto"

	"golang.org/x/sync/semaphore"
)

// WorkerBinary is the default RAW worker executable name.
const WorkerBinary = "rawworker"

// DefaultWorkerTimeout bounds a single worker run.
const DefaultWorkerTimeout = 2 * time.Minute

// payloadName is the worker output file inside its scratch dir.
const payloadName = "full.raw"

// WorkerClient decodes RAW files by running the worker subprocess. At most
// concurrency workers run at once; further callers wait their turn or give
// up when their context ends.
type WorkerClient struct {
	binary  string
	timeout time.Duration
	sem     *semaphore.Weighted
}

var _ RawDecoder = (*WorkerClient)(nil)

// NewWorkerClient returns a client for the worker at binary.
func NewWorkerClient(binary string, concurrency int, timeout time.Duration) *WorkerClient {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = DefaultWorkerTimeout
	}
	return &WorkerClient{
		binary:  binary,
		timeout: timeout,
		sem:     semaphore.NewWeighted(int64(concurrency)),
	}
}

// LocateWorker resolves the worker binary: an explicit path wins, then a
// binary next to the running executable, then PATH.
func LocateWorker(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("raw worker %s: %w", configured, err)
		}
		return configured, nil
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), WorkerBinary)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return exec.LookPath(WorkerBinary)
}

// Decode runs the worker on input and loads its validated output.
func (w *WorkerClient) Decode(ctx context.Context, input string) (*rawproto.Buffer, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for raw worker: %w", err)
	}
	defer w.sem.Release(1)

	metrics.RawWorkersInFlight.Inc()
	defer metrics.RawWorkersInFlight.Dec()
	start := time.Now()
	defer func() { metrics.RawWorkerDuration.Observe(time.Since(start).Seconds()) }()

	dir, err := os.MkdirTemp("", "rawdecode-*")
	if err != nil {
		metrics.RawWorkerRunsTotal.WithLabelValues("error").Inc()
		return nil, filesystem.WithKind(filesystem.KindOf(err), fmt.Errorf("raw worker scratch dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.Warn("failed to remove raw worker dir %s: %v", dir, err)
		}
	}()
	out := filepath.Join(dir, payloadName)

	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, w.binary, input, out)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		metrics.RawWorkerRunsTotal.WithLabelValues("error").Inc()
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, filesystem.Errorf(filesystem.KindDecode, "raw worker timed out after %v on %s", w.timeout, filepath.Base(input))
		}
		return nil, filesystem.WithKind(filesystem.KindDecode,
			fmt.Errorf("raw worker on %s: %w: %s", filepath.Base(input), err, strings.TrimSpace(stderr.String())))
	}

	buf, err := rawproto.ReadSidecar(out)
	if err != nil {
		metrics.RawWorkerRunsTotal.WithLabelValues("invalid_output").Inc()
		return nil, fmt.Errorf("raw worker output for %s: %w", filepath.Base(input), err)
	}

	metrics.RawWorkerRunsTotal.WithLabelValues("success").Inc()
	logging.Debug("RAW worker decoded %s: %dx%d, %d-bit in %v",
		filepath.Base(input), buf.Width, buf.Height, buf.Bits, time.Since(start))
	return buf, nil
}
