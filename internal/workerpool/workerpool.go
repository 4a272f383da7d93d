// Package workerpool runs queued tasks on a fixed set of worker loops.
//
// The loops are hosted on an ants pool sized to match, so the pool never
// grows past the configured number of goroutines. Tasks are served in FIFO
// order.
package workerpool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

var (
	// ErrClosed is returned by Enqueue and Submit after Shutdown.
	ErrClosed = errors.New("workerpool: pool is shut down")
	// ErrDropped resolves the futures of tasks still queued at Shutdown.
	ErrDropped = errors.New("workerpool: task dropped at shutdown")
	// ErrPanic wraps the value recovered from a panicking task.
	ErrPanic = errors.New("workerpool: task panicked")
)

// Task is a unit of work whose outcome is delivered through a Future.
type Task func() (any, error)

// Option configures a Pool.
type Option func(*options)

type options struct {
	logger ants.Logger
}

// WithLogger routes the host pool's diagnostics to logger.
func WithLogger(logger ants.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// DefaultSize is one less than the number of CPUs, never below one, with
// machines reporting a single CPU treated as two.
func DefaultSize() int {
	return max(max(runtime.NumCPU(), 2)-1, 1)
}

type job struct {
	task   Task
	future *Future
}

// Pool is a fixed-size worker pool.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []job
	closed bool

	size int
	host *ants.Pool
	wg   sync.WaitGroup
	once sync.Once
}

// New starts a pool of size workers. A non-positive size selects DefaultSize.
func New(size int, opts ...Option) (*Pool, error) {
	if size <= 0 {
		size = DefaultSize()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	antsOpts := []ants.Option{ants.WithPreAlloc(true), ants.WithDisablePurge(true)}
	if o.logger != nil {
		antsOpts = append(antsOpts, ants.WithLogger(o.logger))
	}
	host, err := ants.NewPool(size, antsOpts...)
	if err != nil {
		return nil, fmt.Errorf("workerpool: %w", err)
	}

	p := &Pool{size: size, host: host}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		if err := host.Submit(p.loop); err != nil {
			p.wg.Done()
			p.Shutdown()
			return nil, fmt.Errorf("workerpool: starting worker %d: %w", i, err)
		}
	}
	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Len returns the number of tasks waiting for a worker.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Enqueue queues task and returns the Future of its outcome.
func (p *Pool) Enqueue(task Task) (*Future, error) {
	f := newFuture()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.queue = append(p.queue, job{task: task, future: f})
	p.mu.Unlock()
	p.cond.Signal()
	return f, nil
}

// Submit queues fn without tracking its outcome.
func (p *Pool) Submit(fn func()) error {
	_, err := p.Enqueue(func() (any, error) {
		fn()
		return nil, nil
	})
	return err
}

// Shutdown stops accepting tasks, drops the queued ones and waits for the
// tasks already running. It must not be called from inside a task.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		dropped := p.queue
		p.queue = nil
		p.mu.Unlock()
		p.cond.Broadcast()

		for _, j := range dropped {
			j.future.resolve(nil, ErrDropped)
		}
		p.wg.Wait()
		p.host.Release()
	})
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		j := p.queue[0]
		p.queue[0] = job{}
		p.queue = p.queue[1:]
		p.mu.Unlock()

		j.run()
	}
}

func (j job) run() {
	defer func() {
		if r := recover(); r != nil {
			j.future.resolve(nil, fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()
	v, err := j.task()
	j.future.resolve(v, err)
}
