package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// CPUWorkerPool runs blocking tasks on a fixed set of worker goroutines.
// All workers share a single queue - natural load balancing via Go channel semantics.
type CPUWorkerPool struct {
	name        string
	logger      *slog.Logger
	workerCount int

	// Single shared queue (all workers pull from this)
	queue chan *WorkUnit

	running  atomic.Bool
	started  atomic.Bool
	stopped  chan struct{}
	stopOnce sync.Once

	// sendMu is held for reading while Run enqueues. Start takes it for
	// writing after close(stopped) so every accepted unit is drained.
	sendMu sync.RWMutex

	inFlight  atomic.Int32
	completed atomic.Int64
	failed    atomic.Int64
}

// CPUWorkerPoolConfig configures a new CPU worker pool.
type CPUWorkerPoolConfig struct {
	Name        string
	Logger      *slog.Logger
	WorkerCount int // Number of worker goroutines (default: runtime.NumCPU())
	QueueSize   int // Queue size (default: 1024)
}

// NewCPUWorkerPool creates a new CPU worker pool. Work may be submitted
// before Start; it waits in the queue until workers are running.
func NewCPUWorkerPool(cfg CPUWorkerPoolConfig) *CPUWorkerPool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.Name
	if name == "" {
		name = "cpu"
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}

	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	return &CPUWorkerPool{
		name:        name,
		logger:      logger.With("pool", name, "type", PoolTypeCPU, "workers", workerCount),
		workerCount: workerCount,
		queue:       make(chan *WorkUnit, queueSize),
		stopped:     make(chan struct{}),
	}
}

// Name returns the pool name.
func (p *CPUWorkerPool) Name() string {
	return p.name
}

// Running reports whether workers are accepting work.
func (p *CPUWorkerPool) Running() bool {
	return p.running.Load()
}

// Start runs the workers. Blocks until ctx is cancelled, then fails any
// work still queued with ErrPoolStopped. A pool can only be started once.
func (p *CPUWorkerPool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		p.logger.Warn("cpu pool already started")
		return
	}

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	p.running.Store(true)
	p.logger.Info("cpu pool started")

	<-ctx.Done()
	p.running.Store(false)
	p.stopOnce.Do(func() { close(p.stopped) })
	wg.Wait()
	p.sendMu.Lock()
	p.sendMu.Unlock()

	drained := 0
	for {
		select {
		case unit := <-p.queue:
			unit.done <- WorkResult{WorkUnitID: unit.ID, Error: ErrPoolStopped}
			drained++
		default:
			p.logger.Info("cpu pool stopped", "drained", drained)
			return
		}
	}
}

// worker processes work units from the shared queue.
func (p *CPUWorkerPool) worker(ctx context.Context, id int) {
	p.logger.Debug("cpu worker started", "worker_id", id)
	for {
		select {
		case <-ctx.Done():
			return

		case unit := <-p.queue:
			p.inFlight.Add(1)
			result := p.process(unit)
			p.inFlight.Add(-1)
			if result.Error != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}
			p.logger.Debug("cpu worker completed unit", "worker_id", id, "unit_id", unit.ID, "task", unit.Task,
				"success", result.Error == nil, "duration", result.Duration)
			unit.done <- result
		}
	}
}

// process executes a work unit, converting a panic into an error.
func (p *CPUWorkerPool) process(unit *WorkUnit) (result WorkResult) {
	result.WorkUnitID = unit.ID

	// The submitter already gave up.
	if err := unit.ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			p.logger.Error("cpu task panicked", "unit_id", unit.ID, "task", unit.Task, "panic", r, "stack", string(debug.Stack()))
			result.Value = nil
			result.Error = fmt.Errorf("task %s panicked: %v", unit.Task, r)
		}
	}()

	result.Value, result.Error = unit.fn(unit.ctx)
	return result
}

// Run queues fn and waits for its result. It returns ctx.Err() as soon as
// ctx is done, even if fn is still executing on a worker.
func (p *CPUWorkerPool) Run(ctx context.Context, task string, fn TaskFunc) (any, error) {
	unit := &WorkUnit{
		ID:   uuid.New().String(),
		Task: task,
		ctx:  ctx,
		fn:   fn,
		done: make(chan WorkResult, 1),
	}

	if err := p.enqueue(ctx, unit); err != nil {
		return nil, err
	}

	select {
	case result := <-unit.done:
		return result.Value, result.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// enqueue puts unit on the queue unless the pool has stopped or ctx is done.
func (p *CPUWorkerPool) enqueue(ctx context.Context, unit *WorkUnit) error {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()

	select {
	case <-p.stopped:
		return ErrPoolStopped
	default:
	}

	select {
	case p.queue <- unit:
		p.logger.Debug("cpu pool accepted unit", "unit_id", unit.ID, "task", unit.Task, "queue_len", len(p.queue))
		return nil
	case <-p.stopped:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do is a typed wrapper around Run.
func Do[T any](ctx context.Context, p *CPUWorkerPool, task string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := p.Run(ctx, task, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return out, nil
}

// Status returns current pool status.
func (p *CPUWorkerPool) Status() PoolStatus {
	return PoolStatus{
		Name:       p.name,
		Type:       string(PoolTypeCPU),
		Running:    p.running.Load(),
		Workers:    p.workerCount,
		InFlight:   int(p.inFlight.Load()),
		QueueDepth: len(p.queue),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
	}
}
