// Package cache persists tool-cache directories across CI runs. A cache must
// never fail an install: callers log errors and carry on.
package cache

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Cache restores and saves a set of directories under a key.
type Cache interface {
	// Restore reports whether key existed and was unpacked over paths.
	Restore(ctx context.Context, key string, paths []string) (bool, error)
	// Save stores paths under key.
	Save(ctx context.Context, key string, paths []string) error
}

// ObjectStorage is a flat key/blob store.
type ObjectStorage interface {
	HasObject(ctx context.Context, key string) (bool, error)
	GetObject(ctx context.Context, key string, dst io.WriterAt) (int64, error)
	UploadObject(ctx context.Context, key string, src io.Reader) error
}

// NoCache never hits and drops every save.
type NoCache struct{}

func (NoCache) Restore(context.Context, string, []string) (bool, error) { return false, nil }

func (NoCache) Save(context.Context, string, []string) error { return nil }

// ArchiveCache stores directories as tar.gz objects in an ObjectStorage.
// Entries are immutable: saving an existing key is a no-op.
type ArchiveCache struct {
	Storage ObjectStorage
	FS      afero.Fs
	// TempDir holds archives while they are transferred.
	TempDir string
}

func NewArchiveCache(storage ObjectStorage, fs afero.Fs, tempDir string) *ArchiveCache {
	return &ArchiveCache{Storage: storage, FS: fs, TempDir: tempDir}
}

func objectName(key string) string {
	return key + ".tar.gz"
}

func (c *ArchiveCache) Restore(ctx context.Context, key string, paths []string) (bool, error) {
	name := objectName(key)
	ok, err := c.Storage.HasObject(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check cache entry %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	tmp, cleanup, err := c.tempFile()
	if err != nil {
		return false, err
	}
	defer cleanup()

	n, err := c.Storage.GetObject(ctx, name, tmp)
	if err != nil {
		return false, fmt.Errorf("fetch cache entry %s: %w", key, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	if err := readArchive(c.FS, tmp, paths); err != nil {
		return false, fmt.Errorf("unpack cache entry %s: %w", key, err)
	}
	log.WithFields(log.Fields{"key": key, "bytes": n}).Debug("restored cache entry")
	return true, nil
}

func (c *ArchiveCache) Save(ctx context.Context, key string, paths []string) error {
	var existing []string
	for _, p := range paths {
		if ok, _ := afero.Exists(c.FS, p); ok {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return fmt.Errorf("save cache entry %s: none of %v exist", key, paths)
	}

	name := objectName(key)
	if ok, err := c.Storage.HasObject(ctx, name); err == nil && ok {
		log.WithField("key", key).Debug("cache entry already exists")
		return nil
	}

	tmp, cleanup, err := c.tempFile()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := writeArchive(c.FS, tmp, paths); err != nil {
		return fmt.Errorf("pack cache entry %s: %w", key, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := c.Storage.UploadObject(ctx, name, tmp); err != nil {
		return fmt.Errorf("upload cache entry %s: %w", key, err)
	}
	log.WithField("key", key).Debug("saved cache entry")
	return nil
}

func (c *ArchiveCache) tempFile() (afero.File, func(), error) {
	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := c.FS.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("prepare cache temp dir: %w", err)
	}
	tmp, err := afero.TempFile(c.FS, dir, "cache-*.tar.gz")
	if err != nil {
		return nil, nil, fmt.Errorf("create cache temp file: %w", err)
	}
	return tmp, func() {
		_ = tmp.Close()
		_ = c.FS.Remove(tmp.Name())
	}, nil
}

var (
	_ Cache = NoCache{}
	_ Cache = (*ArchiveCache)(nil)
)
