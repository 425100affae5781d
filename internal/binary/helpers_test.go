package binary

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
)

// fakeRelease is one release served by a catalogServer.
type fakeRelease struct {
	tag    string
	assets map[string][]byte
	// digests maps asset name to the "digest" field value.
	digests map[string]string
	// body is the release notes text.
	body string
}

// catalogServer is a GitHub-compatible releases API for tests.
type catalogServer struct {
	*httptest.Server
	releases []fakeRelease // newest first
	pageSize int
	requests atomic.Int64
	authSeen atomic.Value
}

func newCatalogServer(t *testing.T, releases ...fakeRelease) *catalogServer {
	t.Helper()

	cs := &catalogServer{releases: releases, pageSize: 100}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /repos/{owner}/{repo}/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		if len(cs.releases) == 0 {
			http.NotFound(w, r)
			return
		}
		cs.writeJSON(w, cs.releaseJSON(cs.releases[0]))
	})

	mux.HandleFunc("GET /repos/{owner}/{repo}/releases/tags/{tag}", func(w http.ResponseWriter, r *http.Request) {
		for _, rel := range cs.releases {
			if rel.tag == r.PathValue("tag") {
				cs.writeJSON(w, cs.releaseJSON(rel))
				return
			}
		}
		http.NotFound(w, r)
	})

	mux.HandleFunc("GET /repos/{owner}/{repo}/releases", func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}
		size := cs.pageSize
		if n, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && n > 0 && n < size {
			size = n
		}
		start := (page - 1) * size
		end := start + size
		if start > len(cs.releases) {
			start = len(cs.releases)
		}
		if end > len(cs.releases) {
			end = len(cs.releases)
		}

		out := make([]map[string]any, 0, end-start)
		for _, rel := range cs.releases[start:end] {
			out = append(out, cs.releaseJSON(rel))
		}
		if end < len(cs.releases) {
			next := fmt.Sprintf("%s%s?per_page=%d&page=%d", cs.URL, r.URL.Path, size, page+1)
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`, next, next))
		}
		cs.writeJSON(w, out)
	})

	mux.HandleFunc("GET /download/{tag}/{name}", func(w http.ResponseWriter, r *http.Request) {
		for _, rel := range cs.releases {
			if rel.tag != r.PathValue("tag") {
				continue
			}
			if data, ok := rel.assets[r.PathValue("name")]; ok {
				w.Header().Set("Content-Length", strconv.Itoa(len(data)))
				_, _ = w.Write(data)
				return
			}
		}
		http.NotFound(w, r)
	})

	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.requests.Add(1)
		cs.authSeen.Store(r.Header.Get("Authorization"))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(cs.Close)

	return cs
}

func (cs *catalogServer) releaseJSON(rel fakeRelease) map[string]any {
	assets := make([]map[string]any, 0, len(rel.assets))
	for name, data := range rel.assets {
		asset := map[string]any{
			"name":                 name,
			"size":                 len(data),
			"browser_download_url": cs.URL + "/download/" + rel.tag + "/" + name,
		}
		if d, ok := rel.digests[name]; ok {
			asset["digest"] = d
		}
		assets = append(assets, asset)
	}
	return map[string]any{
		"tag_name":   rel.tag,
		"body":       rel.body,
		"draft":      false,
		"prerelease": false,
		"assets":     assets,
	}
}

func (cs *catalogServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("failed to write gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close gzip: %v", err)
	}
	return buf.Bytes()
}

// tarGzBytes builds a tar.gz holding files (name → content).
func tarGzBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	for name, content := range files {
		header := &tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", name, err)
		}
		if _, err := tarWriter.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write content for %s: %v", name, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		t.Fatalf("failed to close tar: %v", err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatalf("failed to close gzip: %v", err)
	}
	return buf.Bytes()
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// writeExecutable creates an executable file and returns its path.
func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatalf("failed to write executable: %v", err)
	}
	return path
}

// dirEntries lists file names in dir.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func noLookPath(string) (string, error) {
	return "", fmt.Errorf("not on PATH")
}
