//go:build windows

package binary

import "os"

// isExecutableFile reports whether path is a regular file. Windows has no
// execute bit; the loader decides by extension.
func isExecutableFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
