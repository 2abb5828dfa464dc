package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// Kind classifies a failure so that retry and fallback decisions dispatch on
// a value instead of on error text.
type Kind int

const (
	// KindUnknown is an unclassified failure. It is never retried.
	KindUnknown Kind = iota
	// KindNotFound means the asset (or a required input) does not exist.
	KindNotFound
	// KindTransient covers storage pressure, busy devices and permission races.
	KindTransient
	// KindDecode means the media is malformed or unsupported by a decoder.
	KindDecode
	// KindEmptyOutput means a producer reported success but left a zero-byte file.
	KindEmptyOutput
	// KindInvalid means the request itself is unusable (bad path, bad width).
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindDecode:
		return "decode"
	case KindEmptyOutput:
		return "empty_output"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyOutput is returned when a generated file has zero bytes.
	ErrEmptyOutput = errors.New("generated file is empty")
	// ErrInvalidPath is returned for paths that escape the media root.
	ErrInvalidPath = errors.New("invalid path")
)

// Error attaches a Kind to an underlying error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithKind tags err with kind. A nil err stays nil.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf formats an error and tags it with kind.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// transientMessages are fragments emitted by codec libraries and external
// tools for conditions that clear up on their own (a file still being copied
// in, a busy NFS server). Used only when no errno or Kind is available.
var transientMessages = []string{
	"resource temporarily unavailable",
	"device or resource busy",
	"text file busy",
	"stale file handle",
	"no space left on device",
	"interrupted system call",
	"premature end of",
	"truncated",
}

// KindOf returns the Kind attached to err, falling back to errno and then to
// known transient message fragments.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}

	if errors.Is(err, ErrEmptyOutput) {
		return KindEmptyOutput
	}
	if errors.Is(err, ErrInvalidPath) {
		return KindInvalid
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if kind := classifyErrno(errno); kind != KindUnknown {
			return kind
		}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return KindNotFound
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientMessages {
		if strings.Contains(msg, fragment) {
			return KindTransient
		}
	}

	return KindUnknown
}

func classifyErrno(errno syscall.Errno) Kind {
	switch errno {
	case syscall.ENOENT:
		return KindNotFound
	case syscall.ENOSPC, syscall.EDQUOT, syscall.EBUSY, syscall.EAGAIN,
		syscall.EACCES, syscall.EPERM, syscall.ESTALE, syscall.EMFILE,
		syscall.ENFILE, syscall.ETXTBSY, syscall.EINTR, syscall.EIO:
		return KindTransient
	}
	return KindUnknown
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindEmptyOutput:
		return true
	}
	return false
}

// IsNotFound reports whether err means the input does not exist.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
