package platform

import (
	"strings"
)

// archTable maps well-known machine strings to normalized architectures.
// It is consulted before the substring fallback in NormalizeArch.
var archTable = []struct {
	raw  string
	arch string
}{
	{"x86_64", ArchX64},
	{"amd64", ArchX64},
	{"x64", ArchX64},
	{"arm64", ArchARM64},
	{"aarch64", ArchARM64},
	{"i386", ArchX86},
	{"i486", ArchX86},
	{"i586", ArchX86},
	{"i686", ArchX86},
	{"386", ArchX86},
	{"x86", ArchX86},
}

// NormalizeArch converts a raw machine string (uname -m, GOARCH) into one of
// ArchX64, ArchARM64 or ArchX86.
//
// Exact table matches win. Otherwise, case-insensitively: anything containing
// "arm64" or "aarch64" is arm64, anything else containing "64" is x64, and
// everything left over is x86.
func NormalizeArch(raw string) string {
	arch := strings.ToLower(strings.TrimSpace(raw))
	for _, entry := range archTable {
		if entry.raw == arch {
			return entry.arch
		}
	}

	switch {
	case strings.Contains(arch, "arm64"), strings.Contains(arch, "aarch64"):
		return ArchARM64
	case strings.Contains(arch, "64"):
		return ArchX64
	default:
		return ArchX86
	}
}

// NormalizeOS maps an OS family marker (GOOS, uname -s) to OSWindows,
// OSDarwin or OSLinux. Unknown families are treated as Linux.
func NormalizeOS(family string) string {
	f := strings.ToLower(strings.TrimSpace(family))
	switch {
	case strings.HasPrefix(f, "windows"), strings.HasPrefix(f, "mingw"), strings.HasPrefix(f, "cygwin"):
		return OSWindows
	case f == "darwin", f == "macos":
		return OSDarwin
	default:
		return OSLinux
	}
}

// isMuslOutput reports whether dynamic-linker version output names musl.
func isMuslOutput(out string) bool {
	return strings.Contains(strings.ToLower(out), "musl")
}

// normalizeFamily lowercases and trims a distribution family string.
func normalizeFamily(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}
