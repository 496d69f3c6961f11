// Package pool runs independent jobs on a fixed set of goroutine workers.
//
// Each job owns whatever streams it opens, so jobs never share a reader or
// writer; the pool only bounds how many run at once.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker pool is shut down")

// Job is one unit of work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result reports the outcome of a job.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
	Worker   int
}

// Stats contains pool counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Pending   int   `json:"pending"`
}

// Pool manages a pool of goroutine workers.
type Pool struct {
	workers int
	jobs    chan Job
	results chan Result
	wg      sync.WaitGroup

	active    int64
	completed int64
	failed    int64

	ctx     context.Context
	running bool
	mu      sync.RWMutex
}

// New starts workers goroutines. Cancelling ctx makes queued jobs fail with
// ctx.Err() instead of running. Results must be consumed for workers to make
// progress once the result buffer is full.
func New(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		workers: workers,
		jobs:    make(chan Job, workers),
		results: make(chan Result, workers),
		ctx:     ctx,
		running: true,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.results <- p.run(id, job)
	}
}

// run executes a single job, recovering from panics.
func (p *Pool) run(worker int, job Job) (res Result) {
	atomic.AddInt64(&p.active, 1)
	defer atomic.AddInt64(&p.active, -1)

	start := time.Now()
	res = Result{Name: job.Name, Worker: worker}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic in job %s: %v", job.Name, r)
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			atomic.AddInt64(&p.failed, 1)
		} else {
			atomic.AddInt64(&p.completed, 1)
		}
	}()

	if err := p.ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if job.Run == nil {
		res.Err = errors.New("no run function defined")
		return res
	}
	res.Err = job.Run(p.ctx)
	return res
}

// Submit queues job, blocking while every worker is busy and the queue is
// full.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return ErrClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Results returns the result channel. It is closed once Close has been
// called and every queued job has finished.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting jobs. Queued jobs still run; Results is closed after
// the last one.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Stats returns current pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Active:    atomic.LoadInt64(&p.active),
		Completed: atomic.LoadInt64(&p.completed),
		Failed:    atomic.LoadInt64(&p.failed),
		Pending:   len(p.jobs),
	}
}

// RunAll runs jobs on a new pool of workers and returns their results in
// completion order. The returned error joins every failed job's error.
func RunAll(ctx context.Context, workers int, jobs []Job) ([]Result, error) {
	p := New(ctx, workers)
	go func() {
		defer p.Close()
		for _, job := range jobs {
			if err := p.Submit(job); err != nil {
				return
			}
		}
	}()

	var (
		results []Result
		errs    []error
	)
	for res := range p.Results() {
		results = append(results, res)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	if len(results) < len(jobs) {
		errs = append(errs, fmt.Errorf("%d of %d jobs not run: %w", len(jobs)-len(results), len(jobs), ctx.Err()))
	}
	return results, errors.Join(errs...)
}
