package transcoder

import (
	"time"

	"media-variants/internal/filesystem"
)

// State summarizes the control records for one asset.
type State string

const (
	StateAbsent  State = "absent"
	StatePresent State = "present"
	StateSkipped State = "skipped"
	StateLocked  State = "locked"
	StateFailed  State = "failed"
)

// Status is a diagnostic view of an asset's transcode state.
type Status struct {
	State  State     `json:"state"`
	At     time.Time `json:"at"`
	Detail string    `json:"detail,omitempty"`
	// RetryAfter is set for failures still inside the backoff window.
	RetryAfter time.Time `json:"retryAfter"`
}

// Status reports the current state without changing anything.
func (c *Coordinator) Status(rel string) (Status, error) {
	p, err := c.resolve(rel)
	if err != nil {
		return Status{}, err
	}

	if info, ok := filesystem.NonEmpty(p.out); ok {
		return Status{State: StatePresent, At: info.ModTime()}, nil
	}

	var skip skipRecord
	if at, ok, err := readRecord(p.skip, &skip); err != nil {
		return Status{}, err
	} else if ok {
		return Status{State: StateSkipped, At: at, Detail: skip.Reason}, nil
	}

	// A lock past the stale threshold no longer blocks a transcode, so it
	// is reported as whatever lies beneath it. Removal is left to the next
	// EnsureTranscode.
	if at, ok, err := readRecord(p.lock, &lockRecord{}); err != nil {
		return Status{}, err
	} else if ok && c.clock.Now().Sub(at) <= c.lockStale {
		return Status{State: StateLocked, At: at}, nil
	}

	var fail failRecord
	if at, ok, err := readRecord(p.fail, &fail); err != nil {
		return Status{}, err
	} else if ok {
		s := Status{State: StateFailed, At: at, Detail: fail.Message}
		if until := at.Add(BackoffWindow); c.clock.Now().Before(until) {
			s.RetryAfter = until
		}
		return s, nil
	}

	return Status{State: StateAbsent}, nil
}
