package blob

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// NewFS returns a Storage rooted at dir on the local filesystem.
func NewFS(dir string) Storage {
	return NewAferoFS(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// NewAferoFS returns a Storage over the given afero filesystem. Keys map to
// file paths relative to the filesystem root.
func NewAferoFS(fsys afero.Fs) Storage {
	return &fsStorage{fs: fsys}
}

type fsStorage struct {
	fs afero.Fs
}

func (s *fsStorage) Put(_ context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	name := filepath.FromSlash(key)
	if err := s.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	if err := afero.WriteFile(s.fs, name, data, 0o644); err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return nil
}

func (s *fsStorage) Get(_ context.Context, key string) (io.ReadCloser, int64, error) {
	if err := validateKey(key); err != nil {
		return nil, 0, err
	}
	name := filepath.FromSlash(key)
	info, err := s.fs.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, errdefs.Newf(errdefs.ErrNotFound, "blob %q", key)
		}
		return nil, 0, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	if info.IsDir() {
		return nil, 0, errdefs.Newf(errdefs.ErrNotFound, "blob %q", key)
	}
	file, err := s.fs.Open(name)
	if err != nil {
		return nil, 0, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return file, info.Size(), nil
}

func (s *fsStorage) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	root := filepath.FromSlash(strings.TrimSuffix(prefix, "/"))
	err := afero.Walk(s.fs, root, func(name string, info fs.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		key := path.Clean(filepath.ToSlash(name))
		key = strings.TrimPrefix(key, "/")
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return keys, nil
}

func (s *fsStorage) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.fs.Remove(filepath.FromSlash(key)); err != nil && !os.IsNotExist(err) {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return nil
}
