package config

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ytpilot/ytpilot/internal/platform"
)

type failingDetector struct{ err error }

func (f failingDetector) Detect(context.Context) (platform.Identity, error) {
	return platform.Identity{}, f.err
}

var windowsX64 = platform.Static(platform.Identity{OS: platform.OSWindows, Arch: platform.ArchX64, Libc: platform.LibcNone})

func TestParser_ParseString_Minimal(t *testing.T) {
	parser := NewParser(nil)
	cfg, err := parser.ParseString(context.Background(), `ytpilot = {}`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if diff := cmp.Diff(Default(), *cfg); diff != "" {
		t.Errorf("empty table should yield defaults (-want +got):\n%s", diff)
	}
}

func TestParser_ParseString_Full(t *testing.T) {
	luaCode := `
		ytpilot = {
			data_dir = "/srv/ytpilot",
			bin_path = "/srv/ytpilot/tools",
			timeout = 900,
			download_path = "/srv/media",
			install_lock = false,
			yt_dlp = {
				path = "/opt/yt-dlp",
				version = "2024.12.13",
			},
			ffmpeg = {
				path = "/opt/ffmpeg",
				probe_path = "/opt/ffprobe",
				version = ">= 6.0",
				prefer_global = true,
				enabled = false,
			},
			catalog = {
				api_base = "https://ghe.example.com/api/v3",
				keyring_path = "/etc/ytpilot/keys.asc",
				retries = 5,
			},
			log = { level = "debug", format = "json" },
		}
	`

	cfg, err := NewParser(nil).ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	want := Config{
		DataDir:      "/srv/ytpilot",
		BinPath:      "/srv/ytpilot/tools",
		Timeout:      900,
		DownloadPath: "/srv/media",
		InstallLock:  false,
		YtDlp:        YtDlpConfig{Path: "/opt/yt-dlp", Version: "2024.12.13"},
		FFmpeg: FFmpegConfig{
			Path:         "/opt/ffmpeg",
			ProbePath:    "/opt/ffprobe",
			Version:      ">= 6.0",
			PreferGlobal: true,
			Enabled:      false,
		},
		Catalog: CatalogConfig{
			APIBase:     "https://ghe.example.com/api/v3",
			KeyringPath: "/etc/ytpilot/keys.asc",
			Retries:     5,
		},
		Log: LogConfig{Level: "debug", Format: "json"},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("ParseString() mismatch (-want +got):\n%s", diff)
	}
}

func TestParser_PlatformConditionals(t *testing.T) {
	luaCode := `
		ytpilot = {
			timeout = platform.is_windows and 600 or 300,
			ffmpeg = { prefer_global = platform.is_linux },
			yt_dlp = { path = platform.when(platform.is_windows, "C:\\tools\\yt-dlp" .. platform.exe_suffix) },
		}
	`

	cfg, err := NewParser(windowsX64).ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if cfg.Timeout != 600 {
		t.Errorf("Timeout = %d, want 600", cfg.Timeout)
	}
	if cfg.FFmpeg.PreferGlobal {
		t.Error("PreferGlobal = true on windows")
	}
	if cfg.YtDlp.Path != `C:\tools\yt-dlp.exe` {
		t.Errorf("YtDlp.Path = %q", cfg.YtDlp.Path)
	}
}

func TestParser_PlatformTableReadOnly(t *testing.T) {
	_, err := NewParser(windowsX64).ParseString(context.Background(), `platform.os = "linux"; ytpilot = {}`)
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("error = %v, want read-only violation", err)
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
	}{
		{"syntax error", `ytpilot = {`, "Lua syntax error"},
		{"missing table", `config = {}`, "missing or invalid 'ytpilot' table"},
		{"table is a string", `ytpilot = "yes"`, "expected table, got string"},
		{"wrong scalar type", `ytpilot = { timeout = "300" }`, "timeout: expected integer, got string"},
		{"fractional integer", `ytpilot = { timeout = 1.5 }`, "timeout: expected integer"},
		{"wrong section type", `ytpilot = { ffmpeg = true }`, "ffmpeg: expected table, got boolean"},
		{"wrong nested type", `ytpilot = { ffmpeg = { enabled = "no" } }`, "ffmpeg.enabled: expected boolean, got string"},
		{"unknown top-level key", `ytpilot = { timout = 30 }`, "timout"},
		{"unknown nested key", `ytpilot = { yt_dlp = { pth = "/x" } }`, "yt_dlp.pth"},
		{"runtime error", `error("boom")`, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).ParseString(context.Background(), tt.code)
			if err == nil {
				t.Fatal("expected error but got none")
			}

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error type = %T, want *ParseError", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParser_DetectorFailure(t *testing.T) {
	cause := errors.New("no kernel")
	_, err := NewParser(failingDetector{err: cause}).ParseString(context.Background(), `ytpilot = {}`)
	if !errors.Is(err, cause) {
		t.Errorf("error = %v, want wrapped detector error", err)
	}
}

func TestParser_InfiniteLoopTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewParser(nil).ParseString(ctx, `while true do end`)
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("evaluation ran for %s after the deadline", elapsed)
	}
}

func TestParser_Concurrent(t *testing.T) {
	parser := NewParser(windowsX64)
	errs := make(chan error, 50)

	for range 50 {
		go func() {
			_, err := parser.ParseString(context.Background(), `ytpilot = { timeout = platform.is_windows and 10 or 20 }`)
			errs <- err
		}()
	}
	for range 50 {
		if err := <-errs; err != nil {
			t.Errorf("concurrent parse failed: %v", err)
		}
	}
}

func TestFormatError(t *testing.T) {
	err := &ParseError{
		Message: "Lua syntax error",
		Detail:  "<string>:1: unexpected EOF\nstack traceback:\n\t[G]: ?",
	}

	short := FormatError(err, false)
	if strings.Contains(short, "stack traceback") {
		t.Errorf("FormatError(verbose=false) = %q, should drop the traceback", short)
	}
	if !strings.Contains(short, "unexpected EOF") {
		t.Errorf("FormatError(verbose=false) = %q", short)
	}

	if long := FormatError(err, true); !strings.Contains(long, "stack traceback") {
		t.Errorf("FormatError(verbose=true) = %q, want full detail", long)
	}

	plain := errors.New("plain")
	if FormatError(plain, false) != "plain" {
		t.Error("non-parse errors should pass through")
	}
}
