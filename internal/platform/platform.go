package platform

import (
	"runtime"
	"strings"
)

// Platform is the operating-system family a tool artifact is built for.
type Platform string

const (
	Linux   Platform = "linux"
	MacOS   Platform = "darwin"
	Windows Platform = "windows"
)

// Arch is the CPU architecture family a tool artifact is built for.
type Arch string

const (
	AMD64 Arch = "amd64"
	ARM64 Arch = "arm64"
)

// Classify maps a raw OS identifier onto a Platform. Anything that is not
// recognisably Windows or macOS is treated as Linux.
func Classify(goos string) Platform {
	switch strings.ToLower(strings.TrimSpace(goos)) {
	case "windows", "win32":
		return Windows
	case "darwin", "macos", "osx":
		return MacOS
	default:
		return Linux
	}
}

// ClassifyArch maps a raw architecture identifier onto an Arch. Only arm64
// variants are distinguished; everything else is treated as amd64.
func ClassifyArch(arch string) Arch {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "arm64", "aarch64":
		return ARM64
	default:
		return AMD64
	}
}

// Current returns the platform of the running process.
func Current() Platform {
	return Classify(runtime.GOOS)
}

// CurrentArch returns the architecture of the running process.
func CurrentArch() Arch {
	return ClassifyArch(runtime.GOARCH)
}

func (p Platform) String() string { return string(p) }

func (a Arch) String() string { return string(a) }

// IsWindows reports whether p is the Windows family.
func (p Platform) IsWindows() bool { return p == Windows }

// Executable returns the on-disk name of an executable for this platform.
func (p Platform) Executable(base string) string {
	if p.IsWindows() && !strings.HasSuffix(strings.ToLower(base), ".exe") {
		return base + ".exe"
	}
	return base
}
