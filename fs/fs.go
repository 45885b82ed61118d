// Package fs contains helpers for working with the filesystem.
package fs

import (
	"errors"
	"fmt"
	"os"
)

// FileExists returns true if a file exists at the given path.
// It returns an error if the path exists but is a directory.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to stat '%s': %w", path, err)
	case info.IsDir():
		return false, fmt.Errorf("path '%s' is a directory", path)
	default:
		return true, nil
	}
}
