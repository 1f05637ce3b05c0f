// Package workers provides the worker pool draining the meeting
// processing queue.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	smarterrors "github.com/oguzatay/smartmeet/pkg/errors"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/pipeline/queue"
)

// WorkerStatus represents the worker's current status.
type WorkerStatus string

const (
	WorkerStatusStarting WorkerStatus = "starting"
	WorkerStatusHealthy  WorkerStatus = "healthy"
	WorkerStatusDraining WorkerStatus = "draining"
	WorkerStatusStopped  WorkerStatus = "stopped"
)

// MessageHandler runs the pipeline for one dequeued meeting.
type MessageHandler func(ctx context.Context, msg *queue.ProcessMeetingMessage) error

// Config configures the pool.
type Config struct {
	Count           int           `yaml:"count"`
	BatchSize       int           `yaml:"batch_size"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RecoverInterval time.Duration `yaml:"recover_interval"`
}

// DefaultConfig returns the pool defaults. One meeting per dequeue:
// a pipeline run is minutes of work, batching buys nothing.
func DefaultConfig() Config {
	return Config{
		Count:           2,
		BatchSize:       1,
		HandlerTimeout:  15 * time.Minute,
		PollInterval:    1 * time.Second,
		ShutdownTimeout: 60 * time.Second,
		RecoverInterval: 1 * time.Minute,
	}
}

// Worker is a single consumer of the processing queue.
type Worker struct {
	ID           string
	Config       Config
	Status       WorkerStatus
	Queue        queue.Queue
	Handler      MessageHandler
	StartedAt    time.Time
	LastActivity time.Time

	ProcessedCount atomic.Int64
	FailedCount    atomic.Int64

	logger     logging.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         *sync.WaitGroup
}

// NewWorker creates a worker.
func NewWorker(config Config, q queue.Queue, handler MessageHandler, logger logging.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	return &Worker{
		ID:         id,
		Config:     config,
		Status:     WorkerStatusStarting,
		Queue:      q,
		Handler:    handler,
		logger:     logger.With(logging.F("worker_id", id)),
		ctx:        ctx,
		cancelFunc: cancel,
		wg:         &sync.WaitGroup{},
	}
}

// Start begins processing messages.
func (w *Worker) Start() {
	w.StartedAt = time.Now()
	w.Status = WorkerStatusHealthy
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		w.processLoop()
	}()
}

// Stop gracefully stops the worker, waiting up to the shutdown timeout
// for an in-flight meeting to finish.
func (w *Worker) Stop() {
	w.Status = WorkerStatusDraining
	w.cancelFunc()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.Config.ShutdownTimeout):
		w.logger.Warn("Worker shutdown timed out with work in flight")
	}
	w.Status = WorkerStatusStopped
}

func (w *Worker) processLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			messages, err := w.Queue.Dequeue(w.Config.BatchSize, w.Config.PollInterval)
			if err != nil {
				if err == w.ctx.Err() {
					return
				}
				w.logger.Warn("Dequeue failed", logging.Err(err))
				time.Sleep(w.Config.PollInterval)
				continue
			}

			for _, qm := range messages {
				if w.ctx.Err() != nil {
					return
				}
				w.processMessage(qm)
			}
		}
	}
}

func (w *Worker) processMessage(qm *queue.QueuedMessage) {
	w.LastActivity = time.Now()

	msg, err := qm.ParseMessage()
	if err != nil {
		// Undecodable message, never retryable
		w.Queue.MoveToDeadLetter(qm.ID, fmt.Sprintf("parse error: %v", err))
		w.FailedCount.Add(1)
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.Config.HandlerTimeout)
	defer cancel()

	if err := w.Handler(ctx, msg); err != nil {
		// A conflict means another run holds the meeting lock; retry
		// later rather than dead-lettering.
		if smarterrors.IsConflict(err) {
			w.logger.Info("Meeting locked by another run, requeueing",
				logging.F("meeting_id", msg.MeetingID))
			w.Queue.Nack(qm.ID)
			return
		}
		if smarterrors.IsValidation(err) {
			w.Queue.MoveToDeadLetter(qm.ID, err.Error())
		} else {
			w.Queue.Nack(qm.ID)
		}
		w.FailedCount.Add(1)
		w.logger.Error("Meeting processing failed",
			logging.F("meeting_id", msg.MeetingID), logging.Err(err))
		return
	}

	w.Queue.Ack(qm.ID)
	w.ProcessedCount.Add(1)
}

// Pool manages a set of workers on one queue.
type Pool struct {
	Config  Config
	Workers []*Worker
	Queue   queue.Queue
	Handler MessageHandler

	logger logging.Logger
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a worker pool.
func NewPool(config Config, q queue.Queue, handler MessageHandler, logger logging.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		Config:  config,
		Queue:   q,
		Handler: handler,
		Workers: make([]*Worker, 0, config.Count),
		logger:  logger.With(logging.F("component", "worker_pool")),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts all workers plus the stale-message recovery loop.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.Config.Count; i++ {
		worker := NewWorker(p.Config, p.Queue, p.Handler, p.logger)
		worker.Start()
		p.Workers = append(p.Workers, worker)
	}
	p.logger.Info("Worker pool started", logging.F("workers", p.Config.Count))

	if recoverer, ok := p.Queue.(interface{ RecoverStaleMessages() error }); ok {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.recoveryLoop(recoverer)
		}()
	}
}

func (p *Pool) recoveryLoop(recoverer interface{ RecoverStaleMessages() error }) {
	interval := p.Config.RecoverInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := recoverer.RecoverStaleMessages(); err != nil {
				p.logger.Warn("Stale message recovery failed", logging.Err(err))
			}
		}
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	var wg sync.WaitGroup
	for _, worker := range p.Workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Stop()
		}(worker)
	}
	wg.Wait()
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// PoolStats contains pool statistics.
type PoolStats struct {
	WorkerCount int
	ActiveCount int
	Processed   int64
	Failed      int64
}

// Stats returns pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := PoolStats{WorkerCount: len(p.Workers)}
	for _, w := range p.Workers {
		if w.Status == WorkerStatusHealthy {
			stats.ActiveCount++
		}
		stats.Processed += w.ProcessedCount.Load()
		stats.Failed += w.FailedCount.Load()
	}
	return stats
}
