// Package lazy provides a response wrapper whose payload is computed on first
// access and memoized for the lifetime of the wrapper.
//
// A Response separates "a call happened and returned a status" from "the body
// was decoded". The status is available as soon as the Response exists; the
// payload thunk runs only when Payload is called.
package lazy

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPayloadComputation is returned when the deferred payload thunk fails
var ErrPayloadComputation = errors.New("payload computation failed")

// Response holds a status code and a lazily computed payload
type Response[T any] struct {
	status int
	thunk  func() (T, error)

	mu     sync.Mutex
	loaded bool
	value  T
}

// NewResponse creates a Response without invoking thunk
func NewResponse[T any](status int, thunk func() (T, error)) *Response[T] {
	return &Response[T]{
		status: status,
		thunk:  thunk,
	}
}

// Status returns the status given at construction
func (r *Response[T]) Status() int {
	return r.status
}

// Payload returns the payload, invoking the thunk on the first call.
//
// A successful result is memoized and returned by every later call without
// invoking the thunk again. A failed attempt is not memoized: the error is
// returned and the next call retries the thunk.
//
// The thunk runs with the Response locked, so concurrent callers wait for a
// single invocation. The thunk must not call Payload, Loaded or String on
// the same Response: that call blocks on the lock the thunk holds and never
// returns. Status does not lock and is safe to call.
func (r *Response[T]) Payload() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return r.value, nil
	}

	var zero T
	if r.thunk == nil {
		return zero, fmt.Errorf("%w: no payload source", ErrPayloadComputation)
	}

	value, err := r.thunk()
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrPayloadComputation, err)
	}

	r.value = value
	r.loaded = true
	return r.value, nil
}

// Loaded reports whether the payload has been computed successfully
func (r *Response[T]) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// String implements fmt.Stringer
func (r *Response[T]) String() string {
	return fmt.Sprintf("Response(status=%d, loaded=%t)", r.status, r.Loaded())
}
