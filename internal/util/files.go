package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadBytes caps a single attached file.
const MaxUploadBytes int64 = 512 << 20

// ValidateUpload checks that path names a readable, non-empty regular file
// no larger than MaxUploadBytes.
func ValidateUpload(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	info, err := os.Stat(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if info.Size() > MaxUploadBytes {
		return fmt.Errorf("file is larger than %d MB: %s", MaxUploadBytes>>20, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read file: %w", err)
	}
	f.Close()
	return nil
}

// EnsureStateDir makes sure the directory that will hold the state database
// exists and is writable. ":memory:" needs no directory.
func EnsureStateDir(dbPath string) error {
	if dbPath == "" || strings.HasPrefix(dbPath, ":memory:") || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	dir := filepath.Dir(filepath.Clean(dbPath))
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create state directory: %w", err)
		}
	case err != nil:
		return fmt.Errorf("cannot access state directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("state path parent is not a directory: %s", dir)
	}
	return checkWritePermission(dir)
}

// checkWritePermission creates and removes a probe file in dir.
func checkWritePermission(dir string) error {
	probe := filepath.Join(dir, ".storydesk_write_check")
	file, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("no write permission for %s: %w", dir, err)
	}
	file.Close()
	os.Remove(probe)
	return nil
}
