package sweep

import (
	"context"
	"log"
	"sync"

	"portlink-backend/internal/store"
)

// Reconciler creates the ports a device's template still requires.
type Reconciler interface {
	ReconcilePorts(ctx context.Context, templateID, deviceID int64) (int, error)
}

// Result is the outcome of reconciling one device.
type Result struct {
	Device  store.DeviceRef
	Created int
	Err     error
}

// WorkerPool reconciles devices concurrently. Each device runs in its own
// transaction, so one failure does not affect the others.
type WorkerPool struct {
	size    int
	jobs    chan store.DeviceRef
	results chan Result
	rec     Reconciler
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, rec Reconciler) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan store.DeviceRef, size),
		results: make(chan Result, size),
		rec:     rec,
	}
}

// Start launches the worker goroutines. Results is closed once every worker
// has returned.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.wg.Add(wp.size)
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
	go func() {
		wp.wg.Wait()
		close(wp.results)
	}()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	for {
		select {
		case dev, ok := <-wp.jobs:
			if !ok {
				return
			}
			created, err := wp.rec.ReconcilePorts(ctx, dev.TemplateID, dev.ID)
			if err != nil {
				log.Printf("Worker %d: device %d (%s) failed: %v", id, dev.ID, dev.Name, err)
			}
			select {
			case wp.results <- Result{Device: dev, Created: created, Err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Dispatch queues a device. It gives up when ctx is cancelled.
func (wp *WorkerPool) Dispatch(ctx context.Context, dev store.DeviceRef) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case wp.jobs <- dev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close signals that no more devices will be dispatched.
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Results streams one Result per processed device.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.results
}
