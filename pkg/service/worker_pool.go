package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// default job timeout is 10m
	DefaultTaskTimeout = 10 * time.Minute
	// default queue depth per pool
	DefaultQueueSize = 64
)

var (
	// ErrQueueFull is returned by Submit when the job queue has no free slot.
	ErrQueueFull = errors.New("worker pool queue is full")
	// ErrPoolStopped is returned by Submit after Stop.
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Job is a unit of work executed by exactly one worker.
type Job struct {
	ID  string
	Run func(ctx context.Context)
	// OnPanic is called with the recovered value when Run panics.
	OnPanic func(recovered interface{})
}

// WorkerPool runs jobs on a fixed set of goroutines fed by a bounded queue.
type WorkerPool struct {
	ctx       context.Context
	logger    Logger
	timeout   time.Duration
	queueSize int
	jobs      chan Job
	mu        sync.RWMutex
	stopped   bool
	wg        sync.WaitGroup
}

// NewWorkerPool creates a pool whose jobs run under mainCtx, never under a caller's context.
func NewWorkerPool(mainCtx context.Context, queueSize int, timeout time.Duration, logger Logger) *WorkerPool {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &WorkerPool{
		ctx:       mainCtx,
		logger:    logger,
		timeout:   timeout,
		queueSize: queueSize,
	}
}

// Start begins the worker pool with the specified number of workers
func (wp *WorkerPool) Start(workers int) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	wp.jobs = make(chan Job, wp.queueSize)
	for i := 0; i < workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.logger.Infof("Worker pool started with %d workers, queue size %d", workers, wp.queueSize)
}

// Submit enqueues job without blocking.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped || wp.jobs == nil {
		return ErrPoolStopped
	}
	select {
	case wp.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop gracefully stops the worker pool
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	if wp.jobs != nil {
		// Close the job channel to stop accepting new jobs
		close(wp.jobs)
	}
	wp.mu.Unlock()

	// Wait for all workers to drain the queue
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(n int) {
	defer wp.wg.Done()
	for job := range wp.jobs {
		wp.execute(n, job)
	}
}

func (wp *WorkerPool) execute(n int, job Job) {
	// Create a timeout context derived from the pool, so a dropped caller never cancels the job
	ctx, cancel := context.WithTimeout(wp.ctx, wp.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Errorf("Job %s panicked on worker %d: %v", job.ID, n, r)
			if job.OnPanic != nil {
				job.OnPanic(r)
			}
		}
	}()
	wp.logger.Debugf("Worker %d starting job %s", n, job.ID)
	job.Run(ctx)
	wp.logger.Debugf("Worker %d finished job %s", n, job.ID)
}

// panicError turns a recovered value into an error.
func panicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return errors.Wrap(err, "worker panic")
	}
	return fmt.Errorf("worker panic: %v", r)
}
