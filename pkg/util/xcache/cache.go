// Package xcache provides a tiny read-through cache abstraction used on the
// hot serving path.
package xcache

import (
	"context"
)

// Cache is a string-keyed cache of values of type T.
type Cache[T any] interface {
	// Get returns the value of the key, loading it with the optional loader
	// when absent.
	Get(ctx context.Context, key string, options ...Option[T]) (T, bool)
	// Set saves the value of the key.
	Set(ctx context.Context, key string, value T)
	// Delete removes the value of the key.
	Delete(ctx context.Context, key string)
}

// ValueLoader loads the value of a missing key.
type ValueLoader[T any] func(ctx context.Context, key string) (T, bool)

// Option configures a Get call.
type Option[T any] func(*Options[T])

// Options holds the per-call options.
type Options[T any] struct {
	Loader ValueLoader[T]
}

// WithLoader sets the value loader invoked on a cache miss.
func WithLoader[T any](loader ValueLoader[T]) Option[T] {
	return func(o *Options[T]) {
		o.Loader = loader
	}
}

// MakeOptions applies the options, defaulting to a loader that always misses.
func MakeOptions[T any](options ...Option[T]) *Options[T] {
	o := &Options[T]{}
	for _, apply := range options {
		apply(o)
	}
	if o.Loader == nil {
		o.Loader = func(_ context.Context, _ string) (T, bool) {
			var zero T
			return zero, false
		}
	}
	return o
}
