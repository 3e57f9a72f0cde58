package downloader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	errs "picukidl/pkg/errors"
	"picukidl/pkg/logger"
	"picukidl/pkg/storage"
)

// MockStore is a mock Ensurer that records every call
type MockStore struct {
	delay    time.Duration
	err      error
	calls    int32
	existing map[string]bool
	mu       sync.Mutex
}

func NewMockStore() *MockStore {
	return &MockStore{existing: make(map[string]bool)}
}

func (m *MockStore) Ensure(ctx context.Context, task storage.Task) storage.Result {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return storage.Result{Task: task, Status: storage.StatusFailed, Err: ctx.Err()}
		}
	}
	if m.err != nil {
		return storage.Result{Task: task, Status: storage.StatusFailed, Err: m.err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existing[task.SourceURL] {
		return storage.Result{Task: task, Status: storage.StatusSkippedExists, LocalPath: "/out/" + task.SourceURL}
	}
	m.existing[task.SourceURL] = true
	return storage.Result{Task: task, Status: storage.StatusCompleted, LocalPath: "/out/" + task.SourceURL, Size: 10}
}

func (m *MockStore) CallCount() int {
	return int(atomic.LoadInt32(&m.calls))
}

func collect(pool *WorkerPool) (*[]storage.Result, *sync.WaitGroup) {
	var results []storage.Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()
	return &results, &wg
}

func task(i int) storage.Task {
	return storage.Task{
		SourceURL: fmt.Sprintf("https://cdn.example.com/photo%d.jpg", i),
		Username:  "testuser",
		Category:  storage.CategoryImages,
	}
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	store := &MockStore{existing: map[string]bool{}, delay: 10 * time.Millisecond}
	pool := NewWorkerPool(context.Background(), 3, store, nil)
	pool.Start()
	results, wg := collect(pool)

	numJobs := 10
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(task(i)); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(*results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(*results))
	}
	for _, result := range *results {
		if result.Status != storage.StatusCompleted {
			t.Errorf("Expected completed, got %s (%v)", result.Status, result.Err)
		}
	}
	if store.CallCount() != numJobs {
		t.Errorf("Expected %d ensure calls, got %d", numJobs, store.CallCount())
	}
}

func TestWorkerPoolLogsQueueDepth(t *testing.T) {
	log := logger.NewTestLogger()
	pool := NewWorkerPool(context.Background(), 1, NewMockStore(), log)
	pool.Start()
	_, wg := collect(pool)

	if err := pool.Submit(task(1)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	pool.Stop()
	wg.Wait()

	msg, ok := log.FindMessage("Worker processing task")
	if !ok {
		t.Fatal("expected a task debug entry")
	}
	if _, ok := msg.Fields["queued"]; !ok {
		t.Errorf("expected queued field, got %v", msg.Fields)
	}
	if pool.GetQueueSize() != 0 {
		t.Errorf("Expected empty queue after Stop, got %d", pool.GetQueueSize())
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	store := NewMockStore()
	store.err = errs.New(errs.ErrorTypeNetwork, 0, "connection reset")

	pool := NewWorkerPool(context.Background(), 2, store, nil)
	pool.Start()
	results, wg := collect(pool)

	numJobs := 5
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(task(i)); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(*results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(*results))
	}
	for _, result := range *results {
		if result.Status != storage.StatusFailed || result.Err == nil {
			t.Errorf("Expected failed result with error, got %+v", result)
		}
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	store := NewMockStore()
	store.delay = 100 * time.Millisecond

	pool := NewWorkerPool(context.Background(), 5, store, nil)
	pool.Start()
	results, wg := collect(pool)

	numJobs := 10
	startTime := time.Now()
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(task(i)); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()
	elapsed := time.Since(startTime)

	// 5 workers, 10 jobs of 100ms each: about 200ms
	if elapsed > 450*time.Millisecond {
		t.Errorf("Downloads took too long: %v", elapsed)
	}
	if len(*results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(*results))
	}
}

func TestWorkerPoolCancellationStillYieldsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMockStore()
	store.delay = time.Hour

	pool := NewWorkerPool(ctx, 1, store, nil)
	pool.Start()
	results, wg := collect(pool)

	submitted := 0
	for i := 0; i < 3; i++ {
		if err := pool.Submit(task(i)); err == nil {
			submitted++
		}
	}
	cancel()

	if err := pool.Submit(task(99)); err == nil {
		t.Error("Expected Submit to fail after cancellation")
	}

	pool.Stop()
	wg.Wait()

	if len(*results) != submitted {
		t.Errorf("Expected %d results, got %d", submitted, len(*results))
	}
	for _, result := range *results {
		if result.Status != storage.StatusFailed {
			t.Errorf("Expected failed result after cancellation, got %s", result.Status)
		}
	}
}

func TestWorkerPoolStopIsIdempotent(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2, NewMockStore(), nil)
	pool.Start()
	_, wg := collect(pool)
	pool.Stop()
	pool.Stop()
	wg.Wait()
}
