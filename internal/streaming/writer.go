package streaming

import (
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrWriteTimeout indicates the client stopped reading long enough for a
// chunk to miss its deadline.
var ErrWriteTimeout = errors.New("write timeout exceeded")

// Config configures a Writer.
type Config struct {
	// WriteTimeout bounds each chunk. Zero disables deadlines.
	WriteTimeout time.Duration
	// ChunkSize splits large writes so each chunk gets a fresh deadline.
	// Zero writes as received.
	ChunkSize int
}

// DefaultConfig returns defaults suited to serving video over slow links.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    256 * 1024,
	}
}

// Writer wraps an http.ResponseWriter for long responses on a server that
// has no overall WriteTimeout. Every chunk pushes the connection's write
// deadline forward, so a stalled client is cut off while a slow but steady
// one can take as long as it needs.
type Writer struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	config Config

	mu           sync.Mutex
	bytesWritten int64
	deadlines    bool
	timedOut     bool
	start        time.Time
}

// NewWriter wraps w.
func NewWriter(w http.ResponseWriter, config Config) *Writer {
	return &Writer{
		w:         w,
		rc:        http.NewResponseController(w),
		config:    config,
		deadlines: config.WriteTimeout > 0,
		start:     time.Now(),
	}
}

// Header implements http.ResponseWriter.
func (sw *Writer) Header() http.Header { return sw.w.Header() }

// WriteHeader implements http.ResponseWriter.
func (sw *Writer) WriteHeader(status int) { sw.w.WriteHeader(status) }

// Unwrap exposes the underlying writer to http.ResponseController.
func (sw *Writer) Unwrap() http.ResponseWriter { return sw.w }

// Write implements io.Writer, one deadline per chunk.
func (sw *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		chunk := p
		if sw.config.ChunkSize > 0 && len(chunk) > sw.config.ChunkSize {
			chunk = chunk[:sw.config.ChunkSize]
		}
		sw.extendDeadline()

		n, err := sw.w.Write(chunk)
		total += n
		sw.mu.Lock()
		sw.bytesWritten += int64(n)
		sw.mu.Unlock()
		if err != nil {
			if isTimeout(err) {
				sw.mu.Lock()
				sw.timedOut = true
				sw.mu.Unlock()
				return total, ErrWriteTimeout
			}
			return total, err
		}
		p = p[len(chunk):]
	}
	return total, nil
}

func (sw *Writer) extendDeadline() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if !sw.deadlines {
		return
	}
	if err := sw.rc.SetWriteDeadline(time.Now().Add(sw.config.WriteTimeout)); err != nil {
		// Writers without deadline support, such as test recorders,
		// are written without one.
		sw.deadlines = false
	}
}

// Stats returns the bytes written, the elapsed time, and whether a write
// missed its deadline.
func (sw *Writer) Stats() (bytesWritten int64, duration time.Duration, timedOut bool) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.bytesWritten, time.Since(sw.start), sw.timedOut
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
