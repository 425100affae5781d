// Package testutil provides utilities for testing ytpilot in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Root      string
	HomeDir   string
	ConfigDir string
	DataDir   string
}

// SetupTestEnv points every directory ytpilot consults at a fresh temp tree,
// so tests never read the user's config, write into their data directory or
// pick up a real GitHub token. Cleanup is handled by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	root := t.TempDir()
	env := Env{
		Root:      root,
		HomeDir:   filepath.Join(root, "home"),
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
	}

	// os.UserHomeDir and os.UserConfigDir on each platform.
	t.Setenv("HOME", env.HomeDir)
	t.Setenv("USERPROFILE", env.HomeDir)
	t.Setenv("XDG_CONFIG_HOME", env.ConfigDir)
	t.Setenv("AppData", env.ConfigDir)

	t.Setenv("YTPILOT_DATA_DIR", env.DataDir)
	for _, key := range []string{"YTPILOT_CONFIG", "YTPILOT_GITHUB_TOKEN", "GITHUB_TOKEN", "YTPILOT_API_BASE"} {
		t.Setenv(key, "")
	}

	for _, dir := range []string{env.HomeDir, env.ConfigDir, env.DataDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return env
}
