package shell

import (
	"fmt"
	"path/filepath"
)

// Manager wires the managed bin directory into shell rc files.
type Manager struct {
	binDir  string
	homeDir string
}

// NewManager creates a new shell manager
func NewManager(config Config) (*Manager, error) {
	if config.BinDir == "" {
		return nil, fmt.Errorf("BinDir is required")
	}
	binDir, err := filepath.Abs(config.BinDir)
	if err != nil {
		return nil, fmt.Errorf("resolve bin directory: %w", err)
	}
	return &Manager{binDir: binDir, homeDir: config.HomeDir}, nil
}

// PathLine returns the PATH line for shell.
func (m *Manager) PathLine(shell ShellType) (string, error) {
	return PathLine(shell, m.binDir)
}

// SetupIntegration appends the PATH line to the shell's rc file unless it
// is already there.
func (m *Manager) SetupIntegration(shell ShellType, opts SetupOptions) (*SetupResult, error) {
	line, err := m.PathLine(shell)
	if err != nil {
		return nil, err
	}

	rcPath, err := RCFilePath(shell, m.homeDir)
	if err != nil {
		return nil, fmt.Errorf("get rc file path: %w", err)
	}

	exists, err := RCFileExists(rcPath)
	if err != nil {
		return nil, err
	}

	present, err := HasPathLine(rcPath)
	if err != nil {
		return nil, err
	}

	result := &SetupResult{
		Shell:          shell,
		RCFile:         rcPath,
		AlreadyPresent: present,
		Line:           line,
	}
	if present && !opts.Force {
		return result, nil
	}
	if opts.DryRun {
		return result, nil
	}

	if opts.Backup && exists {
		if result.BackupPath, err = BackupRCFile(rcPath); err != nil {
			return nil, fmt.Errorf("backup rc file: %w", err)
		}
	}

	if err := AddPathLine(rcPath, line); err != nil {
		return nil, err
	}
	result.Added = true
	return result, nil
}

// DetectAndSetup detects the user's shell and sets up integration
func (m *Manager) DetectAndSetup(opts SetupOptions) (*SetupResult, error) {
	detection := DetectShell()
	if !detection.Shell.IsValid() {
		return nil, &UnsupportedShellError{Shell: detection.ShellPath}
	}
	return m.SetupIntegration(detection.Shell, opts)
}
