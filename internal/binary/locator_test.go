package binary

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLocator_Precedence(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit semantics differ on Windows")
	}

	dir := t.TempDir()
	explicit := writeExecutable(t, filepath.Join(dir, "explicit"), "yt-dlp")
	managed := writeExecutable(t, filepath.Join(dir, "managed"), "yt-dlp")
	system := writeExecutable(t, filepath.Join(dir, "system"), "yt-dlp")
	notExe := filepath.Join(dir, "plain")
	if err := os.WriteFile(notExe, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	onPath := func(string) (string, error) { return system, nil }

	tests := []struct {
		name         string
		explicit     string
		recorded     bool
		lookPath     func(string) (string, error)
		preferSystem bool
		wantPath     string
		wantSource   Source
		wantOK       bool
	}{
		{"explicit wins", explicit, true, onPath, false, explicit, SourceExplicit, true},
		{"manifest beats PATH", "", true, onPath, false, managed, SourceManifest, true},
		{"PATH when nothing managed", "", false, onPath, false, system, SourceSystem, true},
		{"bad explicit falls through", notExe, true, onPath, false, managed, SourceManifest, true},
		{"missing explicit falls through", filepath.Join(dir, "nope"), false, onPath, false, system, SourceSystem, true},
		{"prefer system swaps levels", "", true, onPath, true, system, SourceSystem, true},
		{"prefer system still uses manifest", "", true, noLookPath, true, managed, SourceManifest, true},
		{"explicit beats prefer system", explicit, true, onPath, true, explicit, SourceExplicit, true},
		{"absent everywhere", "", false, noLookPath, false, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManifest(filepath.Join(t.TempDir(), ManifestFileName))
			if tt.recorded {
				if err := m.RecordInstall(ManifestEntry{Binary: BinaryYtDlp, Version: "1", Path: managed}); err != nil {
					t.Fatalf("RecordInstall() error = %v", err)
				}
			}

			opts := []LocatorOption{WithLookPath(tt.lookPath)}
			if tt.preferSystem {
				opts = append(opts, WithPreferSystem(BinaryYtDlp))
			}
			l := NewLocator(m, opts...)

			path, source, ok := l.LocateWithSource(BinaryYtDlp, tt.explicit)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if path != tt.wantPath {
				t.Errorf("path = %q, want %q", path, tt.wantPath)
			}
			if source != tt.wantSource {
				t.Errorf("source = %q, want %q", source, tt.wantSource)
			}
		})
	}
}

func TestLocator_StaleManifestEntry(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(filepath.Join(dir, ManifestFileName))
	if err := m.RecordInstall(ManifestEntry{Binary: BinaryFFmpeg, Version: "b6.0", Path: filepath.Join(dir, "bin", "ffmpeg")}); err != nil {
		t.Fatalf("RecordInstall() error = %v", err)
	}

	l := NewLocator(m, WithLookPath(noLookPath))
	if path, ok := l.Locate(BinaryFFmpeg, ""); ok {
		t.Errorf("Locate() = %q, want absent for a deleted managed binary", path)
	}
}

func TestLocator_PreferSystemIsPerBinary(t *testing.T) {
	dir := t.TempDir()
	managed := writeExecutable(t, dir, "ffmpeg")
	m := NewManifest(filepath.Join(dir, ManifestFileName))
	if err := m.RecordInstall(ManifestEntry{Binary: BinaryYtDlp, Path: managed}); err != nil {
		t.Fatalf("RecordInstall() error = %v", err)
	}

	l := NewLocator(m,
		WithPreferSystem(BinaryFFmpeg),
		WithLookPath(func(string) (string, error) { return "/usr/bin/tool", nil }))

	if path, _ := l.Locate(BinaryYtDlp, ""); path != managed {
		t.Errorf("yt-dlp path = %q, want managed %q", path, managed)
	}
}

func TestLocator_Require(t *testing.T) {
	l := NewLocator(nil, WithLookPath(noLookPath))

	_, err := l.Require(BinaryFFprobe, "/opt/ffprobe")

	var nfErr *BinaryNotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("error = %v, want *BinaryNotFoundError", err)
	}
	if nfErr.Binary != BinaryFFprobe || nfErr.ExplicitPath != "/opt/ffprobe" {
		t.Errorf("error fields = %+v", nfErr)
	}
	if !errors.Is(err, ErrBinaryNotFound) {
		t.Error("should match ErrBinaryNotFound")
	}
}

func TestLocator_SystemPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PATH lookup of shell scripts is POSIX only")
	}

	dir := t.TempDir()
	want := writeExecutable(t, dir, "yt-dlp")
	t.Setenv("PATH", dir)

	l := NewLocator(NewManifest(filepath.Join(t.TempDir(), ManifestFileName)))
	got, source, ok := l.LocateWithSource(BinaryYtDlp, "")
	if !ok {
		t.Fatal("Locate() found nothing on PATH")
	}
	if got != want || source != SourceSystem {
		t.Errorf("Locate() = %q (%s), want %q (system)", got, source, want)
	}
}
