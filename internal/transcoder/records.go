package transcoder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"media-variants/internal/filesystem"

	"github.com/goccy/go-json"
)

// Skip reasons.
const (
	ReasonSmall            = "small"
	ReasonAlreadyTranscode = "already-transcoded"
)

// Record timestamps are Unix epoch milliseconds.

type lockRecord struct {
	At  int64 `json:"at"`
	PID int   `json:"pid"`
}

type failRecord struct {
	At      int64  `json:"at"`
	Message string `json:"message"`
}

type skipRecord struct {
	At     int64  `json:"at"`
	Reason string `json:"reason"`
	Size   int64  `json:"size,omitempty"`
	Codec  string `json:"codec,omitempty"`
}

func writeRecord(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	return filesystem.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// readRecord loads a control record. A record that exists but cannot be
// parsed reports ok with its file mtime as the timestamp so a corrupt file
// still counts as present.
func readRecord(path string, v interface{}) (at time.Time, ok bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return info.ModTime(), true, nil
	}
	return recordTime(v, info.ModTime()), true, nil
}

func recordTime(v interface{}, fallback time.Time) time.Time {
	var at int64
	switch r := v.(type) {
	case *lockRecord:
		at = r.At
	case *failRecord:
		at = r.At
	case *skipRecord:
		at = r.At
	}
	if at <= 0 {
		return fallback
	}
	return time.UnixMilli(at)
}
