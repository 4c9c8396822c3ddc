package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const appDir = "mtranscript"

// DataPath joins elem onto the application data directory
// ($XDG_DATA_HOME/mtranscript, else ~/.local/share/mtranscript) and makes sure
// the parent directory of the result exists.
func DataPath(elem ...string) (string, error) {
	root := os.Getenv("XDG_DATA_HOME")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve data directory: %w", err)
		}
		root = filepath.Join(home, ".local", "share")
	}

	path := filepath.Join(append([]string{root, appDir}, elem...)...)
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	return path, nil
}

// EnsureDir creates dir and its parents if missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}
