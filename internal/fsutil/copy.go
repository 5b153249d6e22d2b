package fsutil

import (
	"fmt"
	"os"

	cp "github.com/otiai10/copy"
)

// Copy recursively copies a file or directory from src to dst. Existing
// destination files are overwritten and existing directories are merged.
func Copy(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("failed to stat copy source: %w", err)
	}

	err := cp.Copy(src, dst, cp.Options{
		OnSymlink: func(string) cp.SymlinkAction {
			return cp.Deep
		},
		OnDirExists: func(string, string) cp.DirExistsAction {
			return cp.Merge
		},
	})
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	return nil
}
