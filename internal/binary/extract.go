package binary

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// Archive kinds recognised by asset file name.
const (
	archiveNone  = ""
	archiveGzip  = "gz"
	archiveTarGz = "tar.gz"
	archiveZip   = "zip"
)

// Extractor turns a downloaded release artifact into the bare executable.
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// archiveKind classifies an asset by its file name.
func archiveKind(assetName string) string {
	lower := strings.ToLower(assetName)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return archiveTarGz
	case strings.HasSuffix(lower, ".zip"):
		return archiveZip
	case strings.HasSuffix(lower, ".gz"):
		return archiveGzip
	default:
		return archiveNone
	}
}

// Extract unpacks artifactPath according to assetName. Raw assets are
// returned unchanged. For archives the executable is written to a new
// temporary file in destDir whose path is returned; member names the file
// to pick out of tar and zip archives (with or without ".exe").
func (e *Extractor) Extract(artifactPath, assetName, destDir, member string) (string, error) {
	kind := archiveKind(assetName)
	if kind == archiveNone {
		return artifactPath, nil
	}

	out, err := os.CreateTemp(destDir, "."+member+"-*.extract")
	if err != nil {
		return "", fmt.Errorf("create extract file: %w", err)
	}
	outPath := out.Name()

	switch kind {
	case archiveGzip:
		err = gunzipTo(artifactPath, out)
	case archiveTarGz:
		err = extractTarGzMember(artifactPath, member, out)
	case archiveZip:
		err = extractZipMember(artifactPath, member, out)
	}

	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close extract file: %w", closeErr)
	}
	if err != nil {
		os.Remove(outPath)
		return "", err
	}
	return outPath, nil
}

// gunzipTo decompresses a single-file .gz archive into w.
func gunzipTo(archivePath string, w io.Writer) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	if _, err := io.Copy(w, gzipReader); err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	return nil
}

// extractTarGzMember copies the regular file called member out of a tar.gz.
func extractTarGzMember(archivePath, member string, w io.Writer) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return fmt.Errorf("binary %s not found in archive", member)
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag == tar.TypeReg && memberMatches(header.Name, member) {
			if _, err := io.Copy(w, tarReader); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			return nil
		}
	}
}

// extractZipMember copies the file called member out of a zip archive.
func extractZipMember(archivePath, member string, w io.Writer) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !memberMatches(f.Name, member) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("write file: %w", err)
		}
		return nil
	}

	return fmt.Errorf("binary %s not found in archive", member)
}

// memberMatches compares an archive entry's base name with the wanted binary.
func memberMatches(entryName, member string) bool {
	base := path.Base(strings.ReplaceAll(entryName, "\\", "/"))
	return base == member || base == member+".exe" || strings.TrimSuffix(member, ".exe") == base
}

// SetExecutable sets executable permissions on a file
func SetExecutable(path string) error {
	if err := os.Chmod(path, 0755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
