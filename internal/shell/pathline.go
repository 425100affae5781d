package shell

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Marker is the comment written above the PATH line in rc files. Its
// presence is how an existing integration is recognised.
const Marker = "# ytpilot: managed yt-dlp and ffmpeg binaries"

// BackupSuffix is appended to an rc file path to name its backup.
const BackupSuffix = ".ytpilot-backup"

// PathLine returns the line that prepends binDir to PATH in the given shell.
func PathLine(shell ShellType, binDir string) (string, error) {
	if err := ValidateShell(shell); err != nil {
		return "", err
	}
	if binDir == "" || !filepath.IsAbs(binDir) {
		return "", fmt.Errorf("bin directory must be an absolute path, got %q", binDir)
	}

	switch shell {
	case ShellBash, ShellZsh:
		return fmt.Sprintf("export PATH=%s:\"$PATH\"", posixQuote(binDir)), nil
	case ShellFish:
		return fmt.Sprintf("fish_add_path --global --prepend %s", fishQuote(binDir)), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// posixQuote single-quotes s for sh-compatible shells.
func posixQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// fishQuote single-quotes s for fish, where only \ and ' are special.
func fishQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	return "'" + s + "'"
}
