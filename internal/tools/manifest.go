package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const manifestLockTimeout = 30 * time.Second

// ManifestStore persists the last install of every tool as JSON.
type ManifestStore struct {
	FS   afero.Fs
	Path string

	mu sync.Mutex
}

func NewManifestStore(fs afero.Fs, path string) *ManifestStore {
	return &ManifestStore{FS: fs, Path: path}
}

// Load reads the manifest. A missing file is an empty manifest.
func (m *ManifestStore) Load() (Manifest, error) {
	contents, err := afero.ReadFile(m.FS, m.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{Entries: map[string]ManifestEntry{}}, nil
		}
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(contents, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if manifest.Entries == nil {
		manifest.Entries = map[string]ManifestEntry{}
	}
	return manifest, nil
}

// Entries returns the manifest entries ordered by tool name.
func (m *ManifestStore) Entries() ([]ManifestEntry, error) {
	manifest, err := m.Load()
	if err != nil {
		return nil, err
	}
	entries := make([]ManifestEntry, 0, len(manifest.Entries))
	for _, e := range manifest.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Tool < entries[b].Tool })
	return entries, nil
}

// Record upserts entry. Concurrent writers in this process are serialized by a
// mutex and writers in other processes by a lock file next to the manifest.
func (m *ManifestStore) Record(entry ManifestEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), manifestLockTimeout)
	defer cancel()

	release, err := m.acquireLock(ctx)
	if err != nil {
		return err
	}
	defer release()

	manifest, err := m.Load()
	if err != nil {
		return err
	}
	manifest.Entries[entry.Tool] = entry
	return m.save(manifest)
}

func (m *ManifestStore) acquireLock(ctx context.Context) (func(), error) {
	dir := filepath.Dir(m.Path)
	if err := m.FS.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare manifest directory: %w", err)
	}

	lockPath := m.Path + ".lock"
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		f, err := m.FS.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = f.Close()
			return func() { _ = m.FS.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (m *ManifestStore) save(manifest Manifest) error {
	buf, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := afero.TempFile(m.FS, filepath.Dir(m.Path), "manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	defer func() { _ = m.FS.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest temp: %w", err)
	}

	if err := m.FS.Rename(tmp.Name(), m.Path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
