package binary

import (
	"fmt"

	"github.com/ytpilot/ytpilot/internal/platform"
)

// Catalog describes where a binary's releases live and how its release
// assets are named.
type Catalog struct {
	Owner string
	Repo  string

	// TagPrefix is stripped from release tags before semver comparison
	// (ffmpeg-static tags releases "b6.0").
	TagPrefix string

	// ChecksumFile names the release asset listing "<sha256>  <file>" lines.
	// Empty when the catalog publishes none.
	ChecksumFile string
	// SignatureFile is a detached GPG signature over ChecksumFile.
	SignatureFile string

	// Candidates returns the asset names usable on a platform, most
	// preferred first. An empty result means the platform is unsupported.
	Candidates func(id platform.Identity) []string
}

// DefaultCatalogs returns the release catalogs for every managed binary.
func DefaultCatalogs() map[Binary]Catalog {
	return map[Binary]Catalog{
		BinaryYtDlp: {
			Owner:         "yt-dlp",
			Repo:          "yt-dlp",
			ChecksumFile:  "SHA2-256SUMS",
			SignatureFile: "SHA2-256SUMS.sig",
			Candidates:    ytDlpCandidates,
		},
		BinaryFFmpeg:  ffmpegStaticCatalog(BinaryFFmpeg),
		BinaryFFprobe: ffmpegStaticCatalog(BinaryFFprobe),
	}
}

// ytDlpCandidates maps a platform to yt-dlp's standalone release assets.
// Pattern: https://github.com/yt-dlp/yt-dlp/releases/download/{tag}/{asset}
// The bare "yt-dlp" zipimport build needs a system Python and is only ever
// a fallback.
func ytDlpCandidates(id platform.Identity) []string {
	switch id.OS {
	case platform.OSWindows:
		switch id.Arch {
		case platform.ArchX64:
			return []string{"yt-dlp.exe"}
		case platform.ArchARM64:
			return []string{"yt-dlp_arm64.exe", "yt-dlp_x86.exe"}
		default:
			return []string{"yt-dlp_x86.exe"}
		}

	case platform.OSDarwin:
		return []string{"yt-dlp_macos", "yt-dlp"}

	default:
		switch {
		case id.IsX64() && id.IsMusl():
			return []string{"yt-dlp_musllinux", "yt-dlp"}
		case id.IsX64():
			return []string{"yt-dlp_linux", "yt-dlp"}
		case id.IsARM64() && id.IsMusl():
			return []string{"yt-dlp_musllinux_aarch64", "yt-dlp"}
		case id.IsARM64():
			return []string{"yt-dlp_linux_aarch64", "yt-dlp"}
		default:
			return []string{"yt-dlp"}
		}
	}
}

// ffmpegStaticCatalog builds the catalog for one of the tools published by
// eugeneware/ffmpeg-static.
// Pattern: https://github.com/eugeneware/ffmpeg-static/releases/download/{tag}/{tool}-{os}-{arch}.gz
func ffmpegStaticCatalog(tool Binary) Catalog {
	return Catalog{
		Owner:     "eugeneware",
		Repo:      "ffmpeg-static",
		TagPrefix: "b",
		Candidates: func(id platform.Identity) []string {
			return ffmpegCandidates(tool, id)
		},
	}
}

// ffmpegCandidates lists ffmpeg-static asset names. The builds are static, so
// musl systems share the linux asset. Apple Silicon and Windows on ARM fall
// back to the x64 build, which runs under translation.
func ffmpegCandidates(tool Binary, id platform.Identity) []string {
	osName, ok := mapFFmpegOS(id.OS)
	if !ok {
		return nil
	}

	var arches []string
	switch id.Arch {
	case platform.ArchX64:
		arches = []string{"x64"}
	case platform.ArchARM64:
		arches = []string{"arm64"}
		if id.OS != platform.OSLinux {
			arches = append(arches, "x64")
		}
	case platform.ArchX86:
		if id.OS == platform.OSDarwin {
			return nil
		}
		arches = []string{"ia32"}
	default:
		return nil
	}

	names := make([]string, 0, len(arches))
	for _, arch := range arches {
		names = append(names, fmt.Sprintf("%s-%s-%s.gz", tool, osName, arch))
	}
	return names
}

// mapFFmpegOS maps a normalized OS to ffmpeg-static's naming
func mapFFmpegOS(osName string) (string, bool) {
	switch osName {
	case platform.OSLinux:
		return "linux", true
	case platform.OSDarwin:
		return "darwin", true
	case platform.OSWindows:
		return "win32", true
	default:
		return "", false
	}
}
