package filesystem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"media-variants/internal/logging"
)

// NonEmpty stats path and reports whether it is a regular file with content.
// Zero-byte files are never a valid cache entry.
func NonEmpty(path string) (os.FileInfo, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return nil, false
	}
	return info, true
}

// ReserveTemp creates an empty temp file next to dst and returns its path.
// External tools write into it and PublishFile moves it into place.
func ReserveTemp(dst string) (string, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", WithKind(KindOf(err), fmt.Errorf("create cache dir: %w", err))
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return "", WithKind(KindOf(err), fmt.Errorf("create temp file: %w", err))
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// PublishFile renames tmp onto dst after checking it has content. tmp is
// removed on every failure path.
func PublishFile(tmp, dst string) error {
	info, err := os.Stat(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("stat temp file: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(tmp)
		return WithKind(KindEmptyOutput, fmt.Errorf("%s: %w", filepath.Base(dst), ErrEmptyOutput))
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish %s: %w", filepath.Base(dst), err)
	}
	return nil
}

// WriteAtomic renders write's output into a temp file beside dst, syncs it,
// and renames it onto dst. Readers of dst never observe a partial or empty
// file.
func WriteAtomic(dst string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logging.Warn("failed to remove temp file %s: %v", tmp, rmErr)
			}
		}
	}()

	bw := bufio.NewWriter(f)
	if err = write(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err = bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", filepath.Base(dst), err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(dst), err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(dst), err)
	}

	return PublishFile(tmp, dst)
}

// CreateExclusive creates path with data, failing with an error that
// satisfies errors.Is(err, os.ErrExist) when it already exists.
func CreateExclusive(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// RemoveIfExists removes path, ignoring a missing file.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
