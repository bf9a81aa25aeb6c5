package queries

import (
	"context"

	"snapgram-sync/internal/domain/query"
)

// State is what a read hook reports for one descriptor at the moment it is
// called. Data holds the last landed result, which may be stale.
type State[T any] struct {
	Data T

	// IsPending is set while no data has landed yet.
	IsPending bool
	// IsFetching is set while a refetch is in flight, with or without data.
	IsFetching bool
	// IsError is set when the fetch failed and there is no data to show.
	IsError bool
	IsStale bool
	Err     error

	// Disabled hooks were given an empty identifier and issued no call.
	Disabled bool
}

func typed[T any](s State[any]) State[T] {
	out := State[T]{
		IsPending:  s.IsPending,
		IsFetching: s.IsFetching,
		IsError:    s.IsError,
		IsStale:    s.IsStale,
		Err:        s.Err,
		Disabled:   s.Disabled,
	}
	if v, ok := s.Data.(T); ok {
		out.Data = v
	}
	return out
}

func disabled[T any]() State[T] {
	return State[T]{Disabled: true}
}

// UseTyped is the generic form of Cache.Use for fetchers returning T.
func UseTyped[T any](c *Cache, d query.Descriptor, fetch func(ctx context.Context) (T, error)) State[T] {
	return typed[T](c.Use(d, erase(fetch)))
}

// FetchTyped is the generic form of Cache.Fetch.
func FetchTyped[T any](ctx context.Context, c *Cache, d query.Descriptor, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, d, erase(fetch))
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

func erase[T any](fetch func(ctx context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}
