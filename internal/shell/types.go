package shell

import "fmt"

// ShellType represents a supported shell
type ShellType string

const (
	// ShellBash represents the Bash shell
	ShellBash ShellType = "bash"
	// ShellZsh represents the Z shell
	ShellZsh ShellType = "zsh"
	// ShellFish represents the Fish shell
	ShellFish ShellType = "fish"
	// ShellUnknown represents an unknown or unsupported shell
	ShellUnknown ShellType = "unknown"
)

// String returns the string representation of the shell type
func (s ShellType) String() string {
	return string(s)
}

// IsValid returns true if the shell type is supported
func (s ShellType) IsValid() bool {
	switch s {
	case ShellBash, ShellZsh, ShellFish:
		return true
	default:
		return false
	}
}

// Config holds configuration for the shell manager
type Config struct {
	// BinDir is the managed bin directory to put on PATH.
	BinDir string
	// HomeDir overrides the user's home directory when locating rc files.
	HomeDir string
}

// SetupOptions holds options for shell integration setup
type SetupOptions struct {
	// Force adds the PATH line even if one is already present
	Force bool
	// Backup creates a backup of the rc file before modification
	Backup bool
	// DryRun reports what would be done without making changes
	DryRun bool
}

// SetupResult contains the result of shell integration setup
type SetupResult struct {
	Shell          ShellType
	RCFile         string
	Added          bool
	AlreadyPresent bool
	// BackupPath is set when a backup was written
	BackupPath string
	// Line is the PATH line for the shell
	Line string
}

// DetectionResult contains the result of shell detection
type DetectionResult struct {
	Shell ShellType
	// Method describes how the shell was detected
	Method    string
	ShellPath string
	// Confidence is "high", "medium" or "none"
	Confidence string
}

// UnsupportedShellError represents an unsupported shell error
type UnsupportedShellError struct {
	Shell string
}

func (e *UnsupportedShellError) Error() string {
	return fmt.Sprintf("unsupported shell: %s (supported: bash, zsh, fish)", e.Shell)
}

// RCFileError represents an error with shell rc file operations
type RCFileError struct {
	Path    string
	Message string
	Cause   error
}

func (e *RCFileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rc file error (%s): %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("rc file error (%s): %s", e.Path, e.Message)
}

func (e *RCFileError) Unwrap() error {
	return e.Cause
}
