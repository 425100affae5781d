package shell

import (
	"os"
	"path/filepath"
	"strings"

	psprocess "github.com/shirou/gopsutil/v4/process"
)

// DetectShell detects the user's shell from $SHELL, falling back to the
// parent process name.
func DetectShell() *DetectionResult {
	return detectShell(os.Getenv("SHELL"), parentProcessName)
}

func detectShell(shellEnv string, parent func() (string, error)) *DetectionResult {
	if shellEnv != "" {
		if shellType := parseShellFromPath(shellEnv); shellType.IsValid() {
			return &DetectionResult{
				Shell:      shellType,
				Method:     "$SHELL environment variable",
				ShellPath:  shellEnv,
				Confidence: "high",
			}
		}
	}

	if parent != nil {
		if name, err := parent(); err == nil {
			if shellType := parseShellFromPath(name); shellType.IsValid() {
				return &DetectionResult{
					Shell:      shellType,
					Method:     "parent process",
					ShellPath:  name,
					Confidence: "medium",
				}
			}
		}
	}

	return &DetectionResult{
		Shell:      ShellUnknown,
		Method:     "detection failed",
		Confidence: "none",
	}
}

// parseShellFromPath extracts the shell type from a shell binary path
// Examples:
//   - /bin/bash -> bash
//   - /usr/bin/zsh -> zsh
//   - -fish (login shell) -> fish
func parseShellFromPath(shellPath string) ShellType {
	baseName := strings.ToLower(filepath.Base(shellPath))
	baseName = strings.TrimPrefix(baseName, "-")
	baseName = strings.TrimSuffix(baseName, ".exe")

	switch baseName {
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	default:
		return ShellUnknown
	}
}

func parentProcessName() (string, error) {
	p, err := psprocess.NewProcess(int32(os.Getppid()))
	if err != nil {
		return "", err
	}
	return p.Name()
}

// ValidateShell validates that a shell type is supported
func ValidateShell(shell ShellType) error {
	if !shell.IsValid() {
		return &UnsupportedShellError{Shell: shell.String()}
	}
	return nil
}

// SupportedShells returns the shells PathLine can render for.
func SupportedShells() []ShellType {
	return []ShellType{ShellBash, ShellZsh, ShellFish}
}
