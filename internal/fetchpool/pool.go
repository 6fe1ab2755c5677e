package fetchpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wikiglossary/pkg/logger"
)

// Job is one batch of page ids
type Job struct {
	Index int
	IDs   []int
}

// Result is the outcome of one Job
type Result[T any] struct {
	Job      Job
	Data     T
	Err      error
	Duration time.Duration
}

// FetchFunc fetches one batch. It must honour ctx.
type FetchFunc[T any] func(ctx context.Context, ids []int) (T, error)

// Pool runs FetchFunc over submitted batches with a fixed number of workers.
// Rate limiting is the FetchFunc's concern; workers share whatever limiter
// it waits on.
type Pool[T any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result[T]
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	fetch      FetchFunc[T]
	logger     logger.Logger
}

// New creates a pool bound to ctx
func New[T any](ctx context.Context, numWorkers int, fetch FetchFunc[T], log logger.Logger) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &Pool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numWorkers*2),
		results:    make(chan Result[T], numWorkers),
		ctx:        poolCtx,
		cancel:     cancel,
		fetch:      fetch,
		logger:     log,
	}
}

// Start launches the workers
func (p *Pool[T]) Start() {
	p.logger.DebugWithFields("Starting fetch pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the job queue, waits for workers and closes Results.
// Submit must not be called after Stop.
func (p *Pool[T]) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.cancel()
}

// Cancel aborts in-flight and queued work
func (p *Pool[T]) Cancel() {
	p.cancel()
}

// Submit queues a job, blocking while the queue is full
func (p *Pool[T]) Submit(job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("fetch pool is shutting down: %w", p.ctx.Err())
	}
}

// Results returns the result channel. It is closed by Stop.
func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}

func (p *Pool[T]) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		start := time.Now()
		data, err := p.fetch(p.ctx, job.IDs)
		result := Result[T]{Job: job, Data: data, Err: err, Duration: time.Since(start)}

		if err != nil {
			p.logger.WarnWithFields("Batch failed", map[string]interface{}{
				"worker_id": id,
				"batch":     job.Index,
				"error":     err.Error(),
			})
		}

		select {
		case p.results <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

// Batches splits ids into consecutive chunks of at most size
func Batches(ids []int, size int) [][]int {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]int
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

// Run fetches every batch through a pool of numWorkers and hands each
// successful result to collect on the calling goroutine, in completion
// order. The first failure cancels outstanding work; successful results that
// still arrive are collected before Run returns that failure.
func Run[T any](ctx context.Context, numWorkers int, batches [][]int, fetch FetchFunc[T], collect func(Result[T]) error, log logger.Logger) error {
	pool := New(ctx, numWorkers, fetch, log)
	pool.Start()

	go func() {
		defer pool.Stop()
		for i, ids := range batches {
			if err := pool.Submit(Job{Index: i, IDs: ids}); err != nil {
				return
			}
		}
	}()

	var firstErr error
	for result := range pool.Results() {
		if result.Err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("batch %d: %w", result.Job.Index, result.Err)
				pool.Cancel()
			}
			continue
		}
		if err := collect(result); err != nil && firstErr == nil {
			firstErr = err
			pool.Cancel()
		}
	}

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
