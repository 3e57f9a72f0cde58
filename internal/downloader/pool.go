package downloader

import (
	"context"
	"fmt"
	"sync"

	errs "picukidl/pkg/errors"
	"picukidl/pkg/logger"
	"picukidl/pkg/storage"
)

// Ensurer places one task on disk.
type Ensurer interface {
	Ensure(ctx context.Context, task storage.Task) storage.Result
}

// WorkerPool runs download tasks on a fixed number of workers. Every
// submitted task yields exactly one result, including tasks drained after
// cancellation.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan storage.Task
	resultQueue chan storage.Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	store       Ensurer
	logger      logger.Logger
	stopOnce    sync.Once
}

// NewWorkerPool creates a new download worker pool bound to ctx
func NewWorkerPool(ctx context.Context, numWorkers int, store Ensurer, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan storage.Task, numWorkers*2),
		resultQueue: make(chan storage.Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		store:       store,
		logger:      log.WithField("component", "pool"),
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for queued tasks to drain and closes the
// result channel. It is safe to call more than once.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()
		wp.logger.Debug("Worker pool stopped")
	})
}

// Submit queues a task. It fails once the pool's context is done.
func (wp *WorkerPool) Submit(task storage.Task) error {
	if err := wp.ctx.Err(); err != nil {
		return fmt.Errorf("worker pool is shutting down: %w", err)
	}
	select {
	case wp.jobQueue <- task:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel for consuming download results. The
// channel must be drained until it is closed by Stop.
func (wp *WorkerPool) Results() <-chan storage.Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for task := range wp.jobQueue {
		var result storage.Result
		if err := wp.ctx.Err(); err != nil {
			result = storage.Result{
				Task:   task,
				Status: storage.StatusFailed,
				Err:    errs.Wrap(errs.ErrorTypeCancelled, err, "download of %s not started", task.SourceURL),
			}
		} else {
			wp.logger.DebugWithFields("Worker processing task", map[string]interface{}{
				"worker_id": id,
				"url":       task.SourceURL,
				"category":  string(task.Category),
				"queued":    wp.GetQueueSize(),
			})
			result = wp.store.Ensure(wp.ctx, task)
		}

		wp.resultQueue <- result
	}
}

// GetQueueSize returns the current number of jobs in the queue
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.jobQueue)
}
