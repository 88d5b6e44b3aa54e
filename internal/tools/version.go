package tools

import (
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Latest is the version token that asks for the newest release.
const Latest = "latest"

// IsLatest reports whether a requested version token means "newest release".
func IsLatest(version string) bool {
	return version == "" || version == Latest
}

// CacheVersion normalizes a version token into the three-part shape used as a
// tool-cache key. Segments beyond the third are joined with "-" so
// "1.10.1.469" becomes "1.10.1-469". Missing segments become "0". The result
// is stable under repeated application.
func CacheVersion(version string) string {
	parts := strings.Split(version, ".")
	major := parts[0]
	minor := "0"
	if len(parts) > 1 {
		minor = parts[1]
	}
	patch := "0"
	if len(parts) > 2 {
		patch = strings.Join(parts[2:], "-")
	}
	return major + "." + minor + "." + patch
}

// cljstyleHasArchBuilds reports whether a cljstyle release ships per-arch zip
// archives, which started with 0.16. Unparseable versions are treated as old.
func cljstyleHasArchBuilds(version string) bool {
	v, err := goversion.NewVersion(version)
	if err != nil {
		return false
	}
	seg := v.Segments()
	return seg[0] > 0 || seg[1] > 15
}
