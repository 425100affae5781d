package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RCFilePath returns the path to the shell's rc file under homeDir. An empty
// homeDir means the current user's home.
func RCFilePath(shell ShellType, homeDir string) (string, error) {
	if err := ValidateShell(shell); err != nil {
		return "", err
	}

	if homeDir == "" {
		var err error
		if homeDir, err = os.UserHomeDir(); err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
	}

	switch shell {
	case ShellBash:
		return filepath.Join(homeDir, ".bashrc"), nil
	case ShellZsh:
		return filepath.Join(homeDir, ".zshrc"), nil
	case ShellFish:
		return filepath.Join(homeDir, ".config", "fish", "config.fish"), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// RCFileExists checks if the rc file exists. Symlinks and non-regular files
// are errors.
func RCFileExists(rcPath string) (bool, error) {
	info, err := os.Lstat(rcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &RCFileError{Path: rcPath, Message: "failed to stat file", Cause: err}
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return false, &RCFileError{Path: rcPath, Message: "refusing to modify a symlink"}
	}
	if !info.Mode().IsRegular() {
		return false, &RCFileError{Path: rcPath, Message: "not a regular file"}
	}
	return true, nil
}

// HasPathLine reports whether the rc file already carries the ytpilot marker.
func HasPathLine(rcPath string) (bool, error) {
	file, err := os.Open(rcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &RCFileError{Path: rcPath, Message: "failed to open file", Cause: err}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == Marker {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, &RCFileError{Path: rcPath, Message: "failed to read file", Cause: err}
	}
	return false, nil
}

// BackupRCFile copies the rc file next to itself with BackupSuffix.
func BackupRCFile(rcPath string) (string, error) {
	content, err := os.ReadFile(rcPath)
	if err != nil {
		return "", &RCFileError{Path: rcPath, Message: "failed to read file for backup", Cause: err}
	}

	backupPath := rcPath + BackupSuffix
	if err := os.WriteFile(backupPath, content, 0o644); err != nil {
		return "", &RCFileError{Path: backupPath, Message: "failed to write backup file", Cause: err}
	}
	return backupPath, nil
}

// AddPathLine appends the marker and line to the rc file, creating it and
// its directory when missing. The file is replaced atomically.
func AddPathLine(rcPath, line string) error {
	if strings.ContainsAny(line, "\n\r") {
		return &RCFileError{Path: rcPath, Message: "PATH line must be a single line"}
	}

	exists, err := RCFileExists(rcPath)
	if err != nil {
		return err
	}

	var existing []byte
	mode := os.FileMode(0o644)
	if exists {
		info, err := os.Stat(rcPath)
		if err != nil {
			return &RCFileError{Path: rcPath, Message: "failed to stat file", Cause: err}
		}
		mode = info.Mode().Perm()
		if existing, err = os.ReadFile(rcPath); err != nil {
			return &RCFileError{Path: rcPath, Message: "failed to read existing file", Cause: err}
		}
	}

	dir := filepath.Dir(rcPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to create parent directory", Cause: err}
	}

	tmpFile, err := os.CreateTemp(dir, ".ytpilot-tmp-*")
	if err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to create temporary file", Cause: err}
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	var b strings.Builder
	b.Write(existing)
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		b.WriteByte('\n')
	}
	if len(existing) > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(Marker + "\n" + line + "\n")

	if _, err := tmpFile.WriteString(b.String()); err != nil {
		tmpFile.Close()
		return &RCFileError{Path: rcPath, Message: "failed to write file", Cause: err}
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return &RCFileError{Path: rcPath, Message: "failed to sync file", Cause: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to close file", Cause: err}
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to set permissions", Cause: err}
	}
	if err := os.Rename(tmpPath, rcPath); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to rename temp file", Cause: err}
	}
	return nil
}
