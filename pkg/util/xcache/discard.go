package xcache

import (
	"context"
)

// NewDiscard returns a cache that stores nothing. Get still consults the
// loader so callers behave identically with caching disabled.
func NewDiscard[T any]() Cache[T] {
	return discardCacheImpl[T]{}
}

type discardCacheImpl[T any] struct{}

func (s discardCacheImpl[T]) Get(ctx context.Context, key string, options ...Option[T]) (T, bool) {
	o := MakeOptions(options...)
	return o.Loader(ctx, key)
}

func (s discardCacheImpl[T]) Set(_ context.Context, _ string, _ T) {}

func (s discardCacheImpl[T]) Delete(_ context.Context, _ string) {}
