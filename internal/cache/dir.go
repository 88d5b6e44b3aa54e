package cache

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// DirStorage keeps objects as files in a directory, such as a volume that
// outlives individual runner jobs.
type DirStorage struct {
	FS  afero.Fs
	Dir string
}

func NewDirStorage(fs afero.Fs, dir string) *DirStorage {
	return &DirStorage{FS: fs, Dir: dir}
}

func (s *DirStorage) path(key string) string {
	return filepath.Join(s.Dir, filepath.Base(key))
}

func (s *DirStorage) HasObject(_ context.Context, key string) (bool, error) {
	return afero.Exists(s.FS, s.path(key))
}

func (s *DirStorage) GetObject(_ context.Context, key string, dst io.WriterAt) (int64, error) {
	f, err := s.FS.Open(s.path(key))
	if err != nil {
		return 0, fmt.Errorf("open object %s: %w", key, err)
	}
	defer f.Close()
	return io.Copy(io.NewOffsetWriter(dst, 0), f)
}

// UploadObject writes through a temp file so readers never observe a partial
// object.
func (s *DirStorage) UploadObject(_ context.Context, key string, src io.Reader) error {
	if err := s.FS.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("prepare cache dir: %w", err)
	}
	tmp, err := afero.TempFile(s.FS, s.Dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	defer func() { _ = s.FS.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	if err := s.FS.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("finalize object %s: %w", key, err)
	}
	return nil
}

var _ ObjectStorage = (*DirStorage)(nil)
