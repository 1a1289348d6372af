package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowkit/taskstream/committer"
	"github.com/flowkit/taskstream/logger"
	"github.com/flowkit/taskstream/task"
)

// taskWorker drives a single task.Task in its own goroutine. A Task may own
// several co-partitioned TopicPartitions at once (the manager groups
// partitions by id), so workers are scoped one-per-task rather than
// one-per-partition: AddRecords for any of the task's partitions lands on
// the same worker, and Process pulls whichever of them is next in stream
// time.
type taskWorker struct {
	task      task.Task
	committer committer.Committer
	logger    logger.Logger

	wakeCh       chan struct{}
	doneCh       chan struct{}
	stopCh       chan struct{}
	errCh        chan error
	drainTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
}

func newTaskWorker(
	t task.Task, drainTimeout time.Duration, errCh chan error, l logger.Logger,
) *taskWorker {
	return &taskWorker{
		task:         t,
		committer:    committer.NewPeriodicCommitter(),
		logger:       l.With("component", "task-worker", "task.id", t.ID()),
		wakeCh:       make(chan struct{}, 1),
		doneCh:       make(chan struct{}),
		stopCh:       make(chan struct{}),
		errCh:        errCh,
		drainTimeout: drainTimeout,
	}
}

// Start begins the worker's processing loop in a separate goroutine.
func (w *taskWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *taskWorker) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.committer.Close()

	w.logger.Debug("task worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("context cancelled, draining remaining records")
			drainCtx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
			w.drainAndCommit(drainCtx)
			cancel()
			return

		case <-w.stopCh:
			w.logger.Debug("stop signal received, returning without drain")
			return

		case <-w.wakeCh:
			if err := w.process(ctx); err != nil {
				return
			}

		case <-w.committer.C():
			if err := w.task.Commit(ctx); err != nil {
				w.logger.Error("periodic commit failed", "error", err)
			}
		}
	}
}

// process drains whatever is currently buffered, reporting the count to
// the committer. A non-nil error has already been emitted to errCh.
func (w *taskWorker) process(ctx context.Context) error {
	n, err := drainTask(ctx, w.task)
	w.committer.RecordProcessed(n)
	if err != nil {
		w.logger.Error("task processing failed", "error", err)
		emitError(w.errCh, w.logger, fmt.Errorf("task %d: fatal processing error: %w", w.task.ID(), err))
		return err
	}
	return nil
}

// drainAndCommit runs one last drain/commit pass during shutdown, ignoring
// Wake/Stop and relying solely on ctx's deadline.
func (w *taskWorker) drainAndCommit(ctx context.Context) {
	if _, err := drainTask(ctx, w.task); err != nil {
		w.logger.Warn("error draining task during shutdown", "error", err)
	}
	if err := w.task.Commit(ctx); err != nil {
		w.logger.Warn("error committing task during shutdown", "error", err)
	}
}

// Wake signals the worker that new records are available. Non-blocking:
// if a wake is already pending the signal is coalesced.
func (w *taskWorker) Wake() {
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// Stop signals the worker to stop without draining.
func (w *taskWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopCh)
}

// WaitForStop waits for the worker to fully stop processing.
func (w *taskWorker) WaitForStop(timeout time.Duration) error {
	select {
	case <-w.doneCh:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for task worker %d to stop", w.task.ID())
	}
}

// IsStopped returns whether Stop has been called.
func (w *taskWorker) IsStopped() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopped
}

// TaskID returns the id of the task this worker drives.
func (w *taskWorker) TaskID() int {
	return w.task.ID()
}
