package binary

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fixedClock() time.Time {
	return time.Date(2024, 12, 13, 10, 30, 0, 0, time.UTC)
}

func TestManifest_LoadMissingOrCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{"missing", nil},
		{"empty", ptr("")},
		{"corrupt", ptr("{not json")},
		{"wrong shape", ptr(`["yt-dlp"]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ManifestFileName)
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0644); err != nil {
					t.Fatalf("failed to seed manifest: %v", err)
				}
			}

			entries, err := NewManifest(path).Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("Load() = %v, want empty", entries)
			}
		})
	}
}

func TestManifest_RecordInstall(t *testing.T) {
	dir := t.TempDir()
	bin := writeExecutable(t, filepath.Join(dir, "bin"), "yt-dlp")
	path := filepath.Join(dir, ManifestFileName)
	m := NewManifest(path, WithClock(fixedClock))

	sum := "abc123"
	if err := m.RecordInstall(ManifestEntry{Binary: BinaryYtDlp, Version: "2024.12.13", Path: bin, Checksum: &sum, Platform: "linux-x64"}); err != nil {
		t.Fatalf("RecordInstall() error = %v", err)
	}
	if err := m.RecordInstall(ManifestEntry{Binary: BinaryFFmpeg, Version: "b6.0", Path: filepath.Join(dir, "bin", "ffmpeg")}); err != nil {
		t.Fatalf("RecordInstall() error = %v", err)
	}

	entries, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[Binary]ManifestEntry{
		BinaryYtDlp:  {Binary: BinaryYtDlp, Version: "2024.12.13", Path: bin, InstalledAt: fixedClock(), Checksum: &sum, Platform: "linux-x64"},
		BinaryFFmpeg: {Binary: BinaryFFmpeg, Version: "b6.0", Path: filepath.Join(dir, "bin", "ffmpeg"), InstalledAt: fixedClock()},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	// On-disk schema: keyed by name, RFC 3339 time, null checksum.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("manifest is not a JSON object: %v", err)
	}
	if got := raw["yt-dlp"]["installedAt"]; got != "2024-12-13T10:30:00Z" {
		t.Errorf("installedAt = %v, want 2024-12-13T10:30:00Z", got)
	}
	if got, ok := raw["ffmpeg"]["checksum"]; !ok || got != nil {
		t.Errorf("checksum = %v (present %v), want explicit null", got, ok)
	}

	// No temp files left behind.
	if names := dirEntries(t, dir); len(names) != 2 {
		t.Errorf("data dir holds %v, want bin and manifest only", names)
	}
}

func TestManifest_RecordInstallValidation(t *testing.T) {
	m := NewManifest(filepath.Join(t.TempDir(), ManifestFileName))

	if err := m.RecordInstall(ManifestEntry{Path: "/x"}); err == nil {
		t.Error("expected error for missing binary name")
	}
	if err := m.RecordInstall(ManifestEntry{Binary: BinaryYtDlp}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestManifest_IsInstalled(t *testing.T) {
	dir := t.TempDir()
	exe := writeExecutable(t, dir, "yt-dlp")
	notExe := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(notExe, []byte("data"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	m := NewManifest(filepath.Join(dir, ManifestFileName))
	for _, e := range []ManifestEntry{
		{Binary: BinaryYtDlp, Version: "1", Path: exe},
		{Binary: BinaryFFmpeg, Version: "1", Path: notExe},
		{Binary: BinaryFFprobe, Version: "1", Path: filepath.Join(dir, "gone")},
	} {
		if err := m.RecordInstall(e); err != nil {
			t.Fatalf("RecordInstall() error = %v", err)
		}
	}

	tests := []struct {
		name Binary
		want bool
	}{
		{BinaryYtDlp, true},
		{BinaryFFmpeg, false},
		{BinaryFFprobe, false},
		{Binary("absent"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name.String(), func(t *testing.T) {
			entry, ok := m.IsInstalled(tt.name)
			if ok != tt.want {
				t.Errorf("IsInstalled() = %v, want %v", ok, tt.want)
			}
			if ok && entry.Path != exe {
				t.Errorf("Path = %q, want %q", entry.Path, exe)
			}
		})
	}
}

func TestManifest_Remove(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(filepath.Join(dir, ManifestFileName))

	if err := m.Remove(BinaryYtDlp); err != nil {
		t.Fatalf("Remove() on empty manifest error = %v", err)
	}

	if err := m.RecordInstall(ManifestEntry{Binary: BinaryYtDlp, Path: "/a"}); err != nil {
		t.Fatalf("RecordInstall() error = %v", err)
	}
	if err := m.RecordInstall(ManifestEntry{Binary: BinaryFFmpeg, Path: "/b"}); err != nil {
		t.Fatalf("RecordInstall() error = %v", err)
	}
	if err := m.Remove(BinaryYtDlp); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	entries, _ := m.Load()
	if _, ok := entries[BinaryYtDlp]; ok {
		t.Error("yt-dlp entry still present after Remove")
	}
	if _, ok := entries[BinaryFFmpeg]; !ok {
		t.Error("ffmpeg entry lost by Remove")
	}
}

func TestManifest_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(filepath.Join(dir, ManifestFileName))

	names := []Binary{BinaryYtDlp, BinaryFFmpeg, BinaryFFprobe, "a", "b", "c", "d", "e"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name Binary) {
			defer wg.Done()
			if err := m.RecordInstall(ManifestEntry{Binary: name, Path: "/bin/" + name.String()}); err != nil {
				t.Errorf("RecordInstall(%s) error = %v", name, err)
			}
		}(name)
	}
	wg.Wait()

	entries, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != len(names) {
		t.Errorf("len(entries) = %d, want %d: no write may be lost", len(entries), len(names))
	}
}

func TestSortedEntries(t *testing.T) {
	entries := map[Binary]ManifestEntry{
		BinaryYtDlp:   {Binary: BinaryYtDlp},
		BinaryFFprobe: {Binary: BinaryFFprobe},
		BinaryFFmpeg:  {Binary: BinaryFFmpeg},
	}

	var got []Binary
	for _, e := range SortedEntries(entries) {
		got = append(got, e.Binary)
	}
	want := []Binary{BinaryFFmpeg, BinaryFFprobe, BinaryYtDlp}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SortedEntries() mismatch (-want +got):\n%s", diff)
	}
}

func ptr(s string) *string { return &s }
