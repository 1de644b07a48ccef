package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"snapbox/internal/logging"
	"snapbox/internal/metrics"
)

// ErrPoolStopped is returned when a job is submitted after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

type job struct {
	name string
	fn   func() error
	done chan error
}

// Pool runs blocking jobs on a fixed set of goroutines.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
	size    int
}

// NewPool starts size workers reading from a queue of the given capacity.
func NewPool(size, queue int) *Pool {
	if size < 1 {
		size = 1
	}
	if queue < 0 {
		queue = 0
	}

	p := &Pool{
		jobs: make(chan job, queue),
		size: size,
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	metrics.PoolWorkers.Set(float64(size))
	logging.Debug("Worker pool started with %d workers (queue %d)", size, queue)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for j := range p.jobs {
		err := run(j)
		switch {
		case err != nil:
			metrics.PoolJobsTotal.WithLabelValues("error").Inc()
			logging.Debug("Worker %d: job %s failed: %v", id, j.name, err)
		default:
			metrics.PoolJobsTotal.WithLabelValues("success").Inc()
		}
		j.done <- err
	}
}

// run executes a job, converting a panic into an error so one bad job cannot take
// down the pool.
func run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
			logging.Error("%v", err)
		}
	}()
	return j.fn()
}

// Submit queues fn and returns a channel that receives its result. It blocks only
// while the queue is full, and gives up when ctx is done.
func (p *Pool) Submit(ctx context.Context, name string, fn func() error) (<-chan error, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		metrics.PoolJobsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrPoolStopped
	}

	j := job{name: name, fn: fn, done: make(chan error, 1)}
	select {
	case p.jobs <- j:
		return j.done, nil
	case <-ctx.Done():
		metrics.PoolJobsTotal.WithLabelValues("rejected").Inc()
		return nil, ctx.Err()
	}
}

// Do queues fn and waits for it to finish.
func (p *Pool) Do(ctx context.Context, name string, fn func() error) error {
	done, err := p.Submit(ctx, name, fn)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects new jobs, lets queued jobs finish, and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}
