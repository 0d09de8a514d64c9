// Package filex holds small filesystem helpers: directory setup and
// self-removing spool files.
package filex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EnsureSubdDir creates dirName (relative to the working directory unless
// absolute) and returns its absolute path.
func EnsureSubdDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SpoolFile is a temporary file used to stage data whose size must be
// known before it can be forwarded. Close removes it.
type SpoolFile struct {
	*os.File
}

// NewSpoolFile creates a spool file in dir (os.TempDir when empty).
func NewSpoolFile(dir, pattern string) (*SpoolFile, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	return &SpoolFile{File: f}, nil
}

// Rewind seeks back to the start and returns the number of bytes written.
func (f *SpoolFile) Rewind() (int64, error) {
	size, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("spool position: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("spool rewind: %w", err)
	}
	return size, nil
}

// Close closes and removes the file.
func (f *SpoolFile) Close() error {
	cerr := f.File.Close()
	if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return cerr
}
