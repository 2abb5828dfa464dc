package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"media-variants/internal/cachepath"
	"media-variants/internal/clock"
	"media-variants/internal/ffmpeg"
	"media-variants/internal/filesystem"
	"media-variants/internal/logging"
	"media-variants/internal/metrics"
	"media-variants/internal/ttlcache"

	"github.com/goccy/go-json"
)

const (
	// TargetCodec is the codec family the copy is encoded in.
	TargetCodec = "h264"
	// CodecTag names the output and control files.
	CodecTag = "h264"

	// BackoffWindow is how long a failure suppresses new attempts.
	BackoffWindow = 10 * time.Minute

	DefaultMinBytes  int64 = 10 << 20
	DefaultLockStale       = 6 * time.Hour
)

// targetAliases are probe codec names that already satisfy TargetCodec.
var targetAliases = map[string]bool{
	"h264": true,
	"avc":  true,
	"avc1": true,
}

// Options tunes a Coordinator. Zero values select the defaults.
type Options struct {
	// MinBytes is the size at or below which a video is never transcoded.
	MinBytes int64
	// LockStale is the age after which a lock left by a dead process is
	// broken.
	LockStale time.Duration
	Clock     clock.Clock
	// Probes caches probe results by source version. May be nil.
	Probes *ttlcache.Cache[ffmpeg.ProbeResult]
	Policy filesystem.Policy
}

// Coordinator runs the per-asset transcode state machine.
type Coordinator struct {
	paths     *cachepath.Resolver
	runner    ffmpeg.Runner
	clock     clock.Clock
	probes    *ttlcache.Cache[ffmpeg.ProbeResult]
	minBytes  int64
	lockStale time.Duration
	policy    filesystem.Policy
	pid       int

	// ctx bounds transcodes to the coordinator's lifetime.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Coordinator writing under paths.
func New(paths *cachepath.Resolver, runner ffmpeg.Runner, opts Options) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		paths:     paths,
		runner:    runner,
		clock:     opts.Clock,
		probes:    opts.Probes,
		minBytes:  opts.MinBytes,
		lockStale: opts.LockStale,
		policy:    opts.Policy,
		pid:       os.Getpid(),
		ctx:       ctx,
		cancel:    cancel,
	}
	if c.clock == nil {
		c.clock = clock.Real{}
	}
	if c.minBytes <= 0 {
		c.minBytes = DefaultMinBytes
	}
	if c.lockStale <= 0 {
		c.lockStale = DefaultLockStale
	}
	if c.policy.MaxAttempts == 0 {
		c.policy = filesystem.VideoPolicy()
	}
	return c
}

// ProbeKey identifies a source version in the probe cache.
func ProbeKey(path string, info os.FileInfo) string {
	return path + "|" + strconv.FormatInt(info.Size(), 10) + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
}

type assetPaths struct {
	src, out, lock, fail, skip string
}

func (c *Coordinator) resolve(rel string) (assetPaths, error) {
	var p assetPaths
	var err error
	if p.src, err = c.paths.Abs(rel); err != nil {
		return p, err
	}
	if p.out, err = c.paths.Transcode(rel, CodecTag); err != nil {
		return p, err
	}
	if p.lock, err = c.paths.Control(rel, CodecTag, cachepath.ControlLock); err != nil {
		return p, err
	}
	if p.fail, err = c.paths.Control(rel, CodecTag, cachepath.ControlFail); err != nil {
		return p, err
	}
	p.skip, err = c.paths.Control(rel, CodecTag, cachepath.ControlSkip)
	return p, err
}

func decision(outcome string) {
	metrics.TranscodeDecisions.WithLabelValues(outcome).Inc()
}

// EnsureTranscode returns the transcoded copy of the video at rel, or ""
// when none is available: policy skipped it, another caller holds the lock,
// a recent attempt failed, or this attempt failed. An error is returned
// only when rel is invalid or the source cannot be read.
func (c *Coordinator) EnsureTranscode(ctx context.Context, rel string) (string, error) {
	p, err := c.resolve(rel)
	if err != nil {
		return "", err
	}

	// 1. Present.
	if _, ok := filesystem.NonEmpty(p.out); ok {
		decision("present")
		return p.out, nil
	}

	// 2. Previously skipped.
	if _, ok, _ := readRecord(p.skip, &skipRecord{}); ok {
		decision("skipped")
		return "", nil
	}

	// 3. Skip eligibility.
	srcInfo, err := os.Stat(p.src)
	if err != nil {
		return "", filesystem.WithKind(filesystem.KindOf(err), fmt.Errorf("transcode source %s: %w", rel, err))
	}
	if srcInfo.Size() <= c.minBytes {
		c.writeSkip(p.skip, skipRecord{At: c.clock.Now().UnixMilli(), Reason: ReasonSmall, Size: srcInfo.Size()})
		decision("skip_small")
		return "", nil
	}

	// 5. Recent failure. Runs ahead of the probe: a failed probe is not
	// repeated, nor its record rewritten, inside the window.
	var fr failRecord
	if at, ok, _ := readRecord(p.fail, &fr); ok && c.clock.Now().Sub(at) < BackoffWindow {
		logging.Debug("Transcode of %s in backoff since %v: %s", rel, at, fr.Message)
		decision("backoff")
		return "", nil
	}

	probe, err := c.probe(ctx, p.src, srcInfo)
	if err != nil {
		logging.Warn("Probe failed for %s: %v", rel, err)
		c.writeFail(p.fail, err)
		decision("failed")
		return "", nil
	}
	if targetAliases[probe.Codec] {
		c.writeSkip(p.skip, skipRecord{At: c.clock.Now().UnixMilli(), Reason: ReasonAlreadyTranscode, Codec: probe.Codec})
		decision("skip_codec")
		return "", nil
	}

	// 4. In flight elsewhere.
	if c.lockHeld(p.lock) {
		decision("locked")
		return "", nil
	}

	// 6. Take the lock.
	lock, err := c.newLock()
	if err != nil {
		return "", err
	}
	if err := filesystem.CreateExclusive(p.lock, lock); err != nil {
		if !errors.Is(err, os.ErrExist) {
			logging.Warn("Cannot create transcode lock for %s: %v", rel, err)
		}
		decision("locked")
		return "", nil
	}

	// 9. Always release the lock.
	defer func() {
		if err := filesystem.RemoveIfExists(p.lock); err != nil {
			logging.Warn("failed to remove transcode lock %s: %v", p.lock, err)
		}
	}()

	// Another caller may have finished between step 1 and the lock.
	if _, ok := filesystem.NonEmpty(p.out); ok {
		decision("present")
		return p.out, nil
	}

	// 7. Transcode.
	if err := c.transcode(rel, p); err != nil {
		// 8. Record the failure unless the coordinator is shutting down.
		if c.ctx.Err() == nil {
			logging.Error("Transcode of %s failed: %v", rel, err)
			c.writeFail(p.fail, err)
		}
		decision("failed")
		return "", nil
	}
	decision("done")
	return p.out, nil
}

func (c *Coordinator) newLock() ([]byte, error) {
	return json.Marshal(lockRecord{At: c.clock.Now().UnixMilli(), PID: c.pid})
}

// lockHeld reports whether a live lock exists. Locks older than lockStale
// are assumed abandoned by a crashed process and removed.
func (c *Coordinator) lockHeld(path string) bool {
	at, ok, err := readRecord(path, &lockRecord{})
	if err != nil {
		return true
	}
	if !ok {
		return false
	}
	if age := c.clock.Now().Sub(at); age > c.lockStale {
		logging.Warn("Breaking stale transcode lock %s (age %v)", filepath.Base(path), age.Round(time.Second))
		if err := filesystem.RemoveIfExists(path); err != nil {
			return true
		}
		return false
	}
	return true
}

func (c *Coordinator) probe(ctx context.Context, src string, info os.FileInfo) (ffmpeg.ProbeResult, error) {
	key := ProbeKey(src, info)
	if c.probes != nil {
		if res, ok := c.probes.Get(key); ok {
			return res, nil
		}
	}
	res, err := c.runner.Probe(ctx, src)
	if err != nil {
		return res, err
	}
	if c.probes != nil {
		c.probes.Set(key, res)
	}
	return res, nil
}

func (c *Coordinator) transcode(rel string, p assetPaths) error {
	start := time.Now()
	metrics.TranscodeJobsInProgress.Inc()
	defer metrics.TranscodeJobsInProgress.Dec()

	logging.Info("Transcoding %s to %s", rel, TargetCodec)
	err := filesystem.Do(c.ctx, "transcode", c.policy, func(attempt int) error {
		tmp, err := filesystem.ReserveTemp(p.out)
		if err != nil {
			return err
		}
		if err := c.runner.Transcode(c.ctx, p.src, tmp); err != nil {
			_ = os.Remove(tmp)
			return err
		}
		return filesystem.PublishFile(tmp, p.out)
	})
	metrics.TranscodeJobDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	if err := filesystem.RemoveIfExists(p.fail); err != nil {
		logging.Warn("failed to clear failure record %s: %v", p.fail, err)
	}
	logging.Info("Transcoded %s in %v", rel, time.Since(start).Round(time.Millisecond))
	return nil
}

func (c *Coordinator) writeSkip(path string, rec skipRecord) {
	if err := writeRecord(path, rec); err != nil {
		logging.Warn("failed to write skip record %s: %v", path, err)
	}
}

func (c *Coordinator) writeFail(path string, cause error) {
	msg := cause.Error()
	if len(msg) > 1024 {
		msg = msg[:1024]
	}
	rec := failRecord{At: c.clock.Now().UnixMilli(), Message: strings.TrimSpace(msg)}
	if err := writeRecord(path, rec); err != nil {
		logging.Warn("failed to write failure record %s: %v", path, err)
	}
}

// Start runs EnsureTranscode in the background. The caller can serve the
// original meanwhile.
func (c *Coordinator) Start(rel string) {
	if c.ctx.Err() != nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.EnsureTranscode(c.ctx, rel); err != nil {
			logging.Warn("Background transcode of %s: %v", rel, err)
		}
	}()
}

// Cleanup cancels running transcodes and waits for them to release their
// locks.
func (c *Coordinator) Cleanup() {
	c.cancel()
	if k, ok := c.runner.(interface{ Kill() }); ok {
		k.Kill()
	}
	c.wg.Wait()
}
