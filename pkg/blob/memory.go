package blob

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// NewMemory returns an in-memory Storage. Used in tests and for trying out
// the server without provisioning a real store.
func NewMemory() Storage {
	return &memoryStorage{data: xsync.NewMapOf[string, []byte]()}
}

type memoryStorage struct {
	data *xsync.MapOf[string, []byte]
}

func (s *memoryStorage) Put(_ context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.data.Store(key, bytes.Clone(data))
	return nil
}

func (s *memoryStorage) Get(_ context.Context, key string) (io.ReadCloser, int64, error) {
	if err := validateKey(key); err != nil {
		return nil, 0, err
	}
	data, ok := s.data.Load(key)
	if !ok {
		return nil, 0, errdefs.Newf(errdefs.ErrNotFound, "blob %q", key)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (s *memoryStorage) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	s.data.Range(func(key string, _ []byte) bool {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

func (s *memoryStorage) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.data.Delete(key)
	return nil
}
