// Package pool wraps sync.Pool with type safety and an optional reset hook.
package pool

import (
	"sync"
)

// Pool is a typed sync.Pool. Items handed back through Put are reset
// before they become visible to the next Get.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

// New creates a Pool whose empty Gets are served by factory.
func New[T any](factory func() T) *Pool[T] {
	return NewWithReset(factory, nil)
}

// NewWithReset creates a Pool that calls reset on every item returned with Put.
func NewWithReset[T any](factory func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() any {
		return factory()
	}
	return p
}

// Get retrieves an item from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns x to the pool.
func (p *Pool[T]) Put(x T) {
	if p.reset != nil {
		p.reset(x)
	}
	p.pool.Put(x)
}
