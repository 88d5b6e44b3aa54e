package cache

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

// writeArchive packs each directory of paths into w. Entry names are
// "<index>/<relative path>" so an archive restores onto the same path list
// regardless of where it was created.
func writeArchive(fs afero.Fs, w io.Writer, paths []string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for i, root := range paths {
		if ok, _ := afero.Exists(fs, root); !ok {
			continue
		}
		prefix := strconv.Itoa(i)
		err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			name := path.Join(prefix, filepath.ToSlash(rel))

			switch {
			case info.IsDir():
				return tw.WriteHeader(&tar.Header{
					Name:     name + "/",
					Mode:     int64(info.Mode().Perm()),
					Typeflag: tar.TypeDir,
				})
			case info.Mode().IsRegular():
				if err := tw.WriteHeader(&tar.Header{
					Name:     name,
					Mode:     int64(info.Mode().Perm()),
					Size:     info.Size(),
					Typeflag: tar.TypeReg,
				}); err != nil {
					return err
				}
				f, err := fs.Open(p)
				if err != nil {
					return err
				}
				_, err = io.Copy(tw, f)
				f.Close()
				return err
			default:
				return nil
			}
		})
		if err != nil {
			return fmt.Errorf("archive %s: %w", root, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// readArchive unpacks an archive made by writeArchive back onto paths.
func readArchive(fs afero.Fs, r io.Reader, paths []string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := restoreTarget(paths, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			mode := os.FileMode(header.Mode).Perm()
			out, err := fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			if err := fs.Chmod(target, mode); err != nil {
				return err
			}
		}
	}
}

func restoreTarget(paths []string, name string) (string, error) {
	name = strings.TrimSuffix(name, "/")
	idx, rel, _ := strings.Cut(name, "/")
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(paths) {
		return "", fmt.Errorf("archive entry %q does not match any cache path", name)
	}
	clean := path.Clean("/" + rel)
	return filepath.Join(paths[i], filepath.FromSlash(clean)), nil
}
