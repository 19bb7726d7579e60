package xcache

import (
	"context"
	"time"

	"github.com/maypok86/otter"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCapacity = 4096
	defaultTTL      = time.Hour
)

// NewMemory returns an in-memory cache backed by otter. Concurrent misses
// for the same key share a single loader call.
func NewMemory[T any]() Cache[T] {
	cache, err := otter.MustBuilder[string, T](defaultCapacity).
		WithTTL(defaultTTL).
		Build()
	if err != nil {
		panic(err)
	}
	return &memoryCacheImpl[T]{
		cache: cache,
	}
}

type memoryCacheImpl[T any] struct {
	cache     otter.Cache[string, T]
	loadGroup singleflight.Group
}

func (s *memoryCacheImpl[T]) Get(ctx context.Context, key string, options ...Option[T]) (T, bool) {
	o := MakeOptions(options...)
	v, ok := s.cache.Get(key)
	if ok {
		return v, true
	}
	loaded, _, _ := s.loadGroup.Do(key, func() (any, error) {
		value, ok := o.Loader(ctx, key)
		if ok {
			s.cache.Set(key, value)
			return value, nil
		}
		return nil, nil //nolint:nilnil // miss is signaled by the nil value
	})
	if loaded == nil {
		var zero T
		return zero, false
	}
	return loaded.(T), true
}

func (s *memoryCacheImpl[T]) Set(_ context.Context, key string, value T) {
	s.cache.Set(key, value)
}

func (s *memoryCacheImpl[T]) Delete(_ context.Context, key string) {
	s.cache.Delete(key)
}
