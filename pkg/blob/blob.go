// Package blob defines the object store used for update bundle bytes, with
// filesystem, S3 and in-memory backends.
//
// Keys use "/" as the separator and never begin with "/". No atomicity is
// guaranteed between operations; callers must tolerate partial failure.
package blob

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// Storage is an opaque blob key-value store.
type Storage interface {
	// Put stores data under the key, overwriting any previous value.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns a reader over the value of the key and its size. Returns
	// an error wrapping errdefs.ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	// List returns every key under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ReadAll fetches the full value of the key.
func ReadAll(ctx context.Context, storage Storage, key string) ([]byte, error) {
	rc, _, err := storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// DeletePrefix removes every key under the prefix. Listing failure aborts,
// individual delete failures are collected and joined.
func DeletePrefix(ctx context.Context, storage Storage, prefix string) error {
	keys, err := storage.List(ctx, prefix)
	if err != nil {
		return err
	}
	var errs []error
	for _, key := range keys {
		errs = append(errs, storage.Delete(ctx, key))
	}
	return errors.Join(errs...)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "invalid blob key %q", key)
	}
	return nil
}
