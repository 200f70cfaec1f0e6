package internal

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

var (
	ErrSymlink  = errors.New("symlinked log files are not allowed")
	ErrHardlink = errors.New("hardlinked log files are not allowed")
)

// OpenFile opens path for appending and returns its current size. Symlinks
// are refused before opening. The hardlink check runs on the opened handle.
func OpenFile(path string) (*os.File, int64, error) {
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, 0, ErrSymlink
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, FilePermissions)
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}

	size, err := checkOpened(f)
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, size, nil
}

func checkOpened(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}
	links, err := linkCount(f)
	if err != nil {
		return 0, fmt.Errorf("link count: %w", err)
	}
	if links > 1 {
		return 0, ErrHardlink
	}
	return info.Size(), nil
}

// NeedsRotation reports whether writing n more bytes would pass maxSize.
// A non-positive maxSize disables rotation.
func NeedsRotation(size, n, maxSize int64) bool {
	return maxSize > 0 && size+n > maxSize
}

// GzipFile replaces path with path+".gz". The archive is written to a
// temporary file and read back before the original is removed.
func GzipFile(path string) error {
	tmp := path + ".gz.tmp"
	if err := writeGzip(path, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := verifyGzip(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("verify: %w", err)
	}

	final := path + ".gz"
	removeWithRetry(final)
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	removeWithRetry(path)
	return nil
}

func writeGzip(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FilePermissions)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		return fmt.Errorf("compress: %w", err)
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finish archive: %w", err)
	}
	return out.Close()
}

func verifyGzip(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gr.Close()

	_, err = io.Copy(io.Discard, gr)
	return err
}

// Windows may hold a freshly closed file for a moment.
func removeWithRetry(path string) {
	for i := 0; i < RetryAttempts; i++ {
		err := os.Remove(path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return
		}
		time.Sleep(RetryDelay)
	}
}
