package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"setupclojure/internal/platform"
)

// RunnerPaths captures the canonical on-disk locations used while installing
// tools on a CI runner or a developer machine.
type RunnerPaths struct {
	TempDir      string
	ToolCacheDir string
	ManifestFile string
}

// Resolve derives RunnerPaths from the runner environment. Empty values fall
// back to platform defaults.
func Resolve(runnerTemp, runnerToolCache, userProfile, userCacheDir string, p platform.Platform) RunnerPaths {
	toolCache := ToolCacheDir(runnerToolCache, userCacheDir)
	return RunnerPaths{
		TempDir:      TempDir(runnerTemp, userProfile, p),
		ToolCacheDir: toolCache,
		ManifestFile: filepath.Join(toolCache, "setup-clojure", "manifest.json"),
	}
}

// TempDir returns the scratch root for downloads. RUNNER_TEMP wins when set;
// otherwise a per-platform actions/temp directory is used.
func TempDir(runnerTemp, userProfile string, p platform.Platform) string {
	if dir := strings.TrimSpace(runnerTemp); dir != "" {
		return dir
	}
	var base string
	switch p {
	case platform.Windows:
		base = strings.TrimSpace(userProfile)
		if base == "" {
			base = `C:\`
		}
	case platform.MacOS:
		base = "/Users"
	default:
		base = "/home"
	}
	return joinFor(p, base, "actions", "temp")
}

// ToolCacheDir returns the root of the versioned tool cache.
func ToolCacheDir(runnerToolCache, userCacheDir string) string {
	if dir := strings.TrimSpace(runnerToolCache); dir != "" {
		return dir
	}
	if userCacheDir == "" {
		userCacheDir = os.TempDir()
	}
	return filepath.Join(userCacheDir, "setup-clojure", "tools")
}

// ScratchDir returns a fresh, uniquely named directory path under root. The
// directory is not created.
func ScratchDir(root string) string {
	return filepath.Join(root, uuid.NewString())
}

// EnsureDir creates dir on fs when it is missing.
func EnsureDir(fs afero.Fs, dir string) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// joinFor joins path elements with the separator of the target platform so the
// result is stable regardless of where it is computed.
func joinFor(p platform.Platform, base string, elem ...string) string {
	sep := "/"
	if p.IsWindows() {
		sep = `\`
	}
	out := strings.TrimRight(base, `/\`)
	for _, e := range elem {
		out += sep + e
	}
	return out
}
