package tools

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"setupclojure/internal/paths"
	"setupclojure/internal/platform"
)

// ToolCache is the versioned store of installed tools on a runner.
type ToolCache interface {
	// Find returns the directory of a complete entry.
	Find(tool, version string, arch platform.Arch) (string, bool)
	// Path returns where an entry lives whether or not it exists yet.
	Path(tool, version string, arch platform.Arch) string
	// CacheDir copies the contents of src into the entry and marks it complete.
	CacheDir(src, tool, version string, arch platform.Arch) (string, error)
	// CacheFile copies a single file into the entry under targetName.
	CacheFile(src, tool, targetName, version string, arch platform.Arch) (string, error)
}

// DirCache lays entries out as <root>/<tool>/<version>/<arch> with an
// <arch>.complete marker written once the entry is fully populated.
type DirCache struct {
	FS   afero.Fs
	Root string
}

func NewDirCache(fs afero.Fs, root string) *DirCache {
	return &DirCache{FS: fs, Root: root}
}

func (c *DirCache) Path(tool, version string, arch platform.Arch) string {
	return filepath.Join(c.Root, tool, CacheVersion(version), string(arch))
}

func (c *DirCache) marker(tool, version string, arch platform.Arch) string {
	return c.Path(tool, version, arch) + ".complete"
}

func (c *DirCache) Find(tool, version string, arch platform.Arch) (string, bool) {
	if tool == "" || version == "" {
		return "", false
	}
	dir := c.Path(tool, version, arch)
	if ok, err := paths.DirExists(c.FS, dir); err != nil || !ok {
		return "", false
	}
	if ok, err := paths.FileExists(c.FS, c.marker(tool, version, arch)); err != nil || !ok {
		return "", false
	}
	return dir, true
}

func (c *DirCache) CacheDir(src, tool, version string, arch platform.Arch) (string, error) {
	dest, err := c.prepare(tool, version, arch)
	if err != nil {
		return "", err
	}
	if err := copyTree(c.FS, src, dest); err != nil {
		return "", fmt.Errorf("cache %s %s: %w", tool, version, err)
	}
	return dest, c.complete(tool, version, arch)
}

func (c *DirCache) CacheFile(src, tool, targetName, version string, arch platform.Arch) (string, error) {
	dest, err := c.prepare(tool, version, arch)
	if err != nil {
		return "", err
	}
	if err := copyFile(c.FS, src, filepath.Join(dest, targetName)); err != nil {
		return "", fmt.Errorf("cache %s %s: %w", tool, version, err)
	}
	return dest, c.complete(tool, version, arch)
}

// prepare clears any partial entry so a retried install starts clean.
func (c *DirCache) prepare(tool, version string, arch platform.Arch) (string, error) {
	dest := c.Path(tool, version, arch)
	if err := c.FS.Remove(c.marker(tool, version, arch)); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("clear cache marker: %w", err)
	}
	if err := c.FS.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("clear cache entry: %w", err)
	}
	if err := c.FS.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create cache entry: %w", err)
	}
	return dest, nil
}

func (c *DirCache) complete(tool, version string, arch platform.Arch) error {
	if err := afero.WriteFile(c.FS, c.marker(tool, version, arch), nil, 0o644); err != nil {
		return fmt.Errorf("mark cache entry complete: %w", err)
	}
	return nil
}

func copyTree(fs afero.Fs, src, dest string) error {
	src = filepath.Clean(src)
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(fs, path, target)
	})
}

func copyFile(fs afero.Fs, src, dst string) error {
	source, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dest, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return err
	}
	if err := dest.Close(); err != nil {
		return err
	}
	return fs.Chmod(dst, info.Mode().Perm())
}

// patchFile rewrites every occurrence of old with replacement in place.
func patchFile(fs afero.Fs, path, old, replacement string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return err
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}
	patched := strings.ReplaceAll(string(data), old, replacement)
	return afero.WriteFile(fs, path, []byte(patched), info.Mode().Perm())
}
