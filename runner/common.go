package runner

import (
	"context"

	"github.com/flowkit/taskstream/logger"
	"github.com/flowkit/taskstream/task"
)

// emitError emits an error to the provided channel without blocking
func emitError(errCh chan<- error, l logger.Logger, err error) {
	select {
	case errCh <- err:
	default:
		l.Error("Error channel full, dropping error", "error", err)
	}
}

// drainTask repeatedly calls t.Process until it reports nothing left
// buffered, returning how many records it processed along the way (an
// upper-bound estimate the caller feeds to its committer). Per-record
// retry/DLQ/skip policy is StreamTask's own job now (it owns the
// errorhandler.Handler configured for the task), so this loop only needs
// to keep calling Process and bail out on the first error it surfaces.
func drainTask(ctx context.Context, t task.Task) (int, error) {
	processed := 0
	for {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}

		buffered, err := t.Process(ctx)
		if err != nil {
			return processed, err
		}
		processed++
		if buffered == 0 {
			return processed, nil
		}
	}
}
