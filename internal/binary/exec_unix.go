//go:build !windows

package binary

import (
	"os"

	"golang.org/x/sys/unix"
)

// isExecutableFile reports whether path is a regular file the current user
// may execute.
func isExecutableFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
