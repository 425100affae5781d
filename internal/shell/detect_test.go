package shell

import (
	"errors"
	"testing"
)

func TestDetectShell(t *testing.T) {
	noParent := func() (string, error) { return "", errors.New("no parent") }

	tests := []struct {
		name           string
		shellEnv       string
		parent         func() (string, error)
		wantShell      ShellType
		wantMethod     string
		wantConfidence string
	}{
		{
			name:           "Bash from SHELL",
			shellEnv:       "/bin/bash",
			parent:         noParent,
			wantShell:      ShellBash,
			wantMethod:     "$SHELL environment variable",
			wantConfidence: "high",
		},
		{
			name:           "Zsh from SHELL",
			shellEnv:       "/usr/bin/zsh",
			parent:         noParent,
			wantShell:      ShellZsh,
			wantMethod:     "$SHELL environment variable",
			wantConfidence: "high",
		},
		{
			name:           "SHELL wins over parent",
			shellEnv:       "/usr/local/bin/fish",
			parent:         func() (string, error) { return "bash", nil },
			wantShell:      ShellFish,
			wantMethod:     "$SHELL environment variable",
			wantConfidence: "high",
		},
		{
			name:           "Unknown SHELL falls back to parent",
			shellEnv:       "/bin/ksh",
			parent:         func() (string, error) { return "-zsh", nil },
			wantShell:      ShellZsh,
			wantMethod:     "parent process",
			wantConfidence: "medium",
		},
		{
			name:           "Empty SHELL and unknown parent",
			shellEnv:       "",
			parent:         func() (string, error) { return "tmux", nil },
			wantShell:      ShellUnknown,
			wantMethod:     "detection failed",
			wantConfidence: "none",
		},
		{
			name:           "Parent lookup fails",
			shellEnv:       "",
			parent:         noParent,
			wantShell:      ShellUnknown,
			wantMethod:     "detection failed",
			wantConfidence: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detectShell(tt.shellEnv, tt.parent)

			if result.Shell != tt.wantShell {
				t.Errorf("detectShell() shell = %v, want %v", result.Shell, tt.wantShell)
			}
			if result.Method != tt.wantMethod {
				t.Errorf("detectShell() method = %v, want %v", result.Method, tt.wantMethod)
			}
			if result.Confidence != tt.wantConfidence {
				t.Errorf("detectShell() confidence = %v, want %v", result.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestParseShellFromPath(t *testing.T) {
	tests := []struct {
		path string
		want ShellType
	}{
		{"/bin/bash", ShellBash},
		{"/usr/bin/zsh", ShellZsh},
		{"/opt/homebrew/bin/fish", ShellFish},
		{"-bash", ShellBash},
		{"BASH", ShellBash},
		{"bash.exe", ShellBash},
		{"/bin/sh", ShellUnknown},
		{"", ShellUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := parseShellFromPath(tt.path); got != tt.want {
				t.Errorf("parseShellFromPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestValidateShell(t *testing.T) {
	for _, s := range SupportedShells() {
		if err := ValidateShell(s); err != nil {
			t.Errorf("ValidateShell(%s) error = %v", s, err)
		}
	}

	err := ValidateShell(ShellUnknown)
	var unsupported *UnsupportedShellError
	if !errors.As(err, &unsupported) {
		t.Fatalf("ValidateShell(unknown) error = %v, want *UnsupportedShellError", err)
	}
}
