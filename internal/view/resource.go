// Package view models a data-bound view: every list or detail screen is in
// exactly one of the loading, error, not-found, empty or populated states.
package view

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"directory-console/internal/apperr"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateError
	StateNotFound
	StateEmpty
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateNotFound:
		return "not found"
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	}
	return "idle"
}

// Snapshot is the state of a resource at one point in time.
type Snapshot[T any] struct {
	State State
	Data  T
	Err   error
}

// Retryable reports whether the error state offers a retry.
func (s Snapshot[T]) Retryable() bool {
	return s.State == StateError && s.Err != nil && apperr.Retryable(s.Err)
}

// Message is the text shown for the non-populated states.
func (s Snapshot[T]) Message() string {
	switch s.State {
	case StateIdle:
		return ""
	case StateLoading:
		return "Loading..."
	case StateNotFound:
		return apperr.UserMessage(s.Err)
	case StateEmpty:
		return "No results found."
	case StateError:
		return apperr.UserMessage(s.Err)
	}
	return ""
}

// Fetch loads the resource data.
type Fetch[T any] func(ctx context.Context) (T, error)

// Resource holds the latest result of a Fetch. Only the most recently started
// load may change the state; after Close nothing does.
type Resource[T any] struct {
	fetch   Fetch[T]
	isEmpty func(T) bool

	mu     sync.Mutex
	snap   Snapshot[T]
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

// New returns an idle resource. isEmpty decides the empty state; when nil a
// nil value or a zero-length slice or map counts as empty.
func New[T any](fetch Fetch[T], isEmpty func(T) bool) *Resource[T] {
	if isEmpty == nil {
		isEmpty = defaultEmpty[T]
	}
	return &Resource[T]{fetch: fetch, isEmpty: isEmpty}
}

// Load runs the fetch and returns the resulting snapshot. A load overtaken by
// a newer one returns the newer state without applying its own result.
func (r *Resource[T]) Load(ctx context.Context) Snapshot[T] {
	r.mu.Lock()
	if r.closed {
		snap := r.snap
		r.mu.Unlock()
		return snap
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	gen := r.gen
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	var zero T
	r.snap = Snapshot[T]{State: StateLoading, Data: zero}
	r.mu.Unlock()
	defer cancel()

	data, err := r.fetch(ctx)
	next := r.classify(data, err)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || gen != r.gen {
		return r.snap
	}
	r.cancel = nil
	r.snap = next
	return next
}

// Retry repeats the last load.
func (r *Resource[T]) Retry(ctx context.Context) Snapshot[T] {
	return r.Load(ctx)
}

func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Close abandons any load in flight.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Resource[T]) classify(data T, err error) Snapshot[T] {
	switch {
	case err == nil && r.isEmpty(data):
		return Snapshot[T]{State: StateEmpty, Data: data}
	case err == nil:
		return Snapshot[T]{State: StatePopulated, Data: data}
	case errors.Is(err, apperr.ErrNotFound):
		return Snapshot[T]{State: StateNotFound, Err: err}
	}
	return Snapshot[T]{State: StateError, Err: err}
}

func defaultEmpty[T any](v T) bool {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
