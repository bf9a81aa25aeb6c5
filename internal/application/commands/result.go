package commands

import (
	"context"
	"sync"
)

// Phase is where a mutation result is in its lifecycle.
type Phase int

const (
	PhasePending Phase = iota
	PhaseResolved
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseResolved:
		return "resolved"
	case PhaseRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Option configures one mutation invocation.
type Option func(*invokeOptions)

type invokeOptions struct {
	rollback func(error)
}

// WithRollback registers the caller's undo for optimistic local state.
// Nothing runs it automatically; see Result.Rollback.
func WithRollback(fn func(err error)) Option {
	return func(o *invokeOptions) {
		o.rollback = fn
	}
}

// Result tracks one mutation from pending to resolved or rejected.
// Callbacks registered after settlement run immediately.
type Result[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	phase Phase
	value T
	err   error

	rollback   func(error)
	rolledBack bool
	onSuccess  []func(T)
	onError    []func(error)
	onSettled  []func(T, error)
}

func newResult[T any](opts []Option) *Result[T] {
	var o invokeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Result[T]{
		done:     make(chan struct{}),
		rollback: o.rollback,
	}
}

func rejected[T any](err error, opts []Option) *Result[T] {
	r := newResult[T](opts)
	var zero T
	r.settle(zero, err)
	return r
}

// Phase reports the current phase.
func (r *Result[T]) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// IsPending reports whether the mutation is still running.
func (r *Result[T]) IsPending() bool {
	return r.Phase() == PhasePending
}

// Done is closed once the result settles.
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the result settles or ctx ends.
func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnSuccess registers fn to run with the value when the mutation resolves.
func (r *Result[T]) OnSuccess(fn func(T)) *Result[T] {
	r.mu.Lock()
	if r.phase == PhasePending {
		r.onSuccess = append(r.onSuccess, fn)
		r.mu.Unlock()
		return r
	}
	phase, value := r.phase, r.value
	r.mu.Unlock()

	if phase == PhaseResolved {
		fn(value)
	}
	return r
}

// OnError registers fn to run with the error when the mutation is rejected.
func (r *Result[T]) OnError(fn func(error)) *Result[T] {
	r.mu.Lock()
	if r.phase == PhasePending {
		r.onError = append(r.onError, fn)
		r.mu.Unlock()
		return r
	}
	phase, err := r.phase, r.err
	r.mu.Unlock()

	if phase == PhaseRejected {
		fn(err)
	}
	return r
}

// OnSettled registers fn to run once the mutation settles either way.
func (r *Result[T]) OnSettled(fn func(T, error)) *Result[T] {
	r.mu.Lock()
	if r.phase == PhasePending {
		r.onSettled = append(r.onSettled, fn)
		r.mu.Unlock()
		return r
	}
	value, err := r.value, r.err
	r.mu.Unlock()

	fn(value, err)
	return r
}

// Rollback runs the hook registered with WithRollback if the mutation was
// rejected. It runs at most once and reports whether it ran.
func (r *Result[T]) Rollback() bool {
	r.mu.Lock()
	if r.phase != PhaseRejected || r.rollback == nil || r.rolledBack {
		r.mu.Unlock()
		return false
	}
	r.rolledBack = true
	fn, err := r.rollback, r.err
	r.mu.Unlock()

	fn(err)
	return true
}

func (r *Result[T]) settle(value T, err error) {
	r.mu.Lock()
	if r.phase != PhasePending {
		r.mu.Unlock()
		return
	}
	r.value, r.err = value, err
	if err != nil {
		r.phase = PhaseRejected
	} else {
		r.phase = PhaseResolved
	}
	onSuccess, onError, onSettled := r.onSuccess, r.onError, r.onSettled
	r.onSuccess, r.onError, r.onSettled = nil, nil, nil
	r.mu.Unlock()

	if err != nil {
		for _, fn := range onError {
			fn(err)
		}
	} else {
		for _, fn := range onSuccess {
			fn(value)
		}
	}
	for _, fn := range onSettled {
		fn(value, err)
	}
	close(r.done)
}
