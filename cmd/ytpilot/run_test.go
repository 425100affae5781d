//go:build !windows

package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ytpilot/ytpilot/internal/binary"
	"github.com/ytpilot/ytpilot/internal/config"
	"github.com/ytpilot/ytpilot/internal/testutil"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

// newYtDlpCatalog serves a single yt-dlp release whose linux asset is script.
func newYtDlpCatalog(t *testing.T, tag, script string) *httptest.Server {
	t.Helper()

	asset := []byte("#!/bin/sh\n" + script + "\n")
	sum := sha256.Sum256(asset)
	sums := fmt.Sprintf("%s  yt-dlp_linux\n", hex.EncodeToString(sum[:]))

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/yt-dlp/yt-dlp/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tag_name": tag,
			"assets": []map[string]any{
				{"name": "yt-dlp_linux", "size": len(asset), "browser_download_url": srv.URL + "/download/yt-dlp_linux"},
				{"name": "SHA2-256SUMS", "size": len(sums), "browser_download_url": srv.URL + "/download/SHA2-256SUMS"},
			},
		})
	})
	mux.HandleFunc("GET /download/yt-dlp_linux", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(asset)
	})
	mux.HandleFunc("GET /download/SHA2-256SUMS", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sums))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestInstallListRun(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	isolatePath(t)
	srv := newYtDlpCatalog(t, "2024.12.13", `echo "yt-dlp $*"`)
	t.Setenv(config.EnvAPIBase, srv.URL)
	t.Setenv(config.EnvFFmpegEnabled, "false")
	opt := withHTTPClient(srv.Client())

	stdout, _, err := runCLI(t, []string{"install"}, opt)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	installed := filepath.Join(env.DataDir, "bin", "yt-dlp")
	if !strings.Contains(stdout, installed) || !strings.Contains(stdout, string(binary.SourceManifest)) {
		t.Errorf("install output = %q", stdout)
	}

	stdout, _, err = runCLI(t, []string{"list", "-o", "json"}, opt)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var views []installedView
	if err := json.Unmarshal([]byte(stdout), &views); err != nil {
		t.Fatalf("decode list json: %v\n%s", err, stdout)
	}
	if len(views) != 1 {
		t.Fatalf("list returned %d entries, want 1: %+v", len(views), views)
	}
	if v := views[0]; v.Binary != "yt-dlp" || v.Version != "2024.12.13" || v.Path != installed || !v.Healthy || v.Checksum == nil {
		t.Errorf("list entry = %+v", v)
	}

	stdout, _, err = runCLI(t, []string{"locate", "yt-dlp"}, opt)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if want := installed + "\t" + string(binary.SourceManifest) + "\n"; stdout != want {
		t.Errorf("locate output = %q, want %q", stdout, want)
	}

	stdout, _, err = runCLI(t, []string{"run", "yt-dlp", "--", "-f", "best", "https://example.com/v"}, opt)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "yt-dlp -f best https://example.com/v\n" {
		t.Errorf("run output = %q", stdout)
	}

	stdout, _, err = runCLI(t, []string{"uninstall", "yt-dlp"}, opt)
	if err != nil {
		t.Fatalf("uninstall: %v", err)
	}
	if _, err := os.Stat(installed); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("managed binary still present after uninstall: %v", err)
	}
	if !strings.Contains(stdout, "Uninstalled yt-dlp") {
		t.Errorf("uninstall output = %q", stdout)
	}
}

func TestRunCommand_ExitCode(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	isolatePath(t)
	script := writeScript(t, filepath.Join(env.Root, "tools"), "yt-dlp", "echo out\necho err >&2\nexit 3")
	t.Setenv(config.EnvYtDlpPath, script)
	t.Setenv(config.EnvFFmpegEnabled, "false")

	stdout, stderr, err := runCLI(t, []string{"run", "yt-dlp"})
	var exitErr *exitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("run error = %v, want *exitCodeError", err)
	}
	if exitErr.code != 3 {
		t.Errorf("exit code = %d, want 3", exitErr.code)
	}
	if stdout != "out\n" {
		t.Errorf("stdout = %q, want %q", stdout, "out\n")
	}
	if !strings.Contains(stderr, "err") {
		t.Errorf("stderr = %q, want child stderr", stderr)
	}
}

func TestRunCommand_Timeout(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	isolatePath(t)
	script := writeScript(t, filepath.Join(env.Root, "tools"), "yt-dlp", "/bin/sleep 30")
	t.Setenv(config.EnvYtDlpPath, script)
	t.Setenv(config.EnvFFmpegEnabled, "false")

	_, _, err := runCLI(t, []string{"run", "--timeout", "200ms", "yt-dlp"})
	if err == nil {
		t.Fatal("expected error but got none")
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		t.Fatalf("timeout reported as plain exit code: %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %v, want timeout", err)
	}
}

func TestRunCommand_FFmpegLocation(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	isolatePath(t)
	tools := filepath.Join(env.Root, "tools")
	ffmpegDir := filepath.Join(env.Root, "ffmpeg")
	t.Setenv(config.EnvYtDlpPath, writeScript(t, tools, "yt-dlp", `echo "$*"`))
	t.Setenv(config.EnvFFmpegPath, writeScript(t, ffmpegDir, "ffmpeg", "exit 0"))
	t.Setenv(config.EnvFFprobePath, writeScript(t, ffmpegDir, "ffprobe", "exit 0"))

	workDir := filepath.Join(env.Root, "downloads")
	stdout, _, err := runCLI(t, []string{"run", "--dir", workDir, "yt-dlp", "https://example.com/v"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := "--ffmpeg-location " + ffmpegDir + " https://example.com/v\n"; stdout != want {
		t.Errorf("run output = %q, want %q", stdout, want)
	}
	if info, err := os.Stat(workDir); err != nil || !info.IsDir() {
		t.Errorf("working directory not created: %v", err)
	}

	stdout, _, err = runCLI(t, []string{"run", "yt-dlp", "--ffmpeg-location=/custom", "url"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "--ffmpeg-location=/custom url\n" {
		t.Errorf("user flag not respected: %q", stdout)
	}
}

func TestLocateCommand_Explicit(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	isolatePath(t)
	script := writeScript(t, filepath.Join(env.Root, "tools"), "ffprobe", "exit 0")

	stdout, _, err := runCLI(t, []string{"locate", "ffprobe", "--path", script})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if want := script + "\t" + string(binary.SourceExplicit) + "\n"; stdout != want {
		t.Errorf("locate output = %q, want %q", stdout, want)
	}
}

func TestUpdateCommand(t *testing.T) {
	testutil.SetupTestEnv(t)
	isolatePath(t)
	t.Setenv(config.EnvFFmpegEnabled, "false")

	old := newYtDlpCatalog(t, "2024.12.13", "echo old")
	t.Setenv(config.EnvAPIBase, old.URL)
	if _, _, err := runCLI(t, []string{"install", "yt-dlp"}); err != nil {
		t.Fatalf("install: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"update", "--check"})
	if err != nil {
		t.Fatalf("update --check: %v", err)
	}
	if !strings.Contains(stdout, "yt-dlp 2024.12.13 is up to date") {
		t.Errorf("update --check output = %q", stdout)
	}

	newer := newYtDlpCatalog(t, "2025.01.15", "echo new")
	t.Setenv(config.EnvAPIBase, newer.URL)

	stdout, _, err = runCLI(t, []string{"update", "--check"})
	if err != nil {
		t.Fatalf("update --check: %v", err)
	}
	if !strings.Contains(stdout, "2024.12.13 -> 2025.01.15 available") {
		t.Errorf("update --check output = %q", stdout)
	}

	stdout, _, err = runCLI(t, []string{"update"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !strings.Contains(stdout, "Updated yt-dlp 2024.12.13 -> 2025.01.15") {
		t.Errorf("update output = %q", stdout)
	}

	stdout, _, err = runCLI(t, []string{"run", "yt-dlp"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "new\n" {
		t.Errorf("run after update = %q, want new", stdout)
	}
}
