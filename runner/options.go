package runner

import (
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/flowkit/taskstream/logger"
)

type SingleThreadedOption interface {
	applySingleThreaded(*SingleThreadedConfig)
}

type PartitionedOption interface {
	applyPartitioned(*PartitionedConfig)
}

type loggerOption struct {
	logger logger.Logger
}

func (o loggerOption) applySingleThreaded(c *SingleThreadedConfig) {
	c.Logger = o.logger
}

func (o loggerOption) applyPartitioned(c *PartitionedConfig) {
	c.Logger = o.logger
}

func WithLogger(l logger.Logger) loggerOption {
	return loggerOption{logger: l}
}

type workerShutdownTimeoutOption time.Duration

func (o workerShutdownTimeoutOption) applyPartitioned(c *PartitionedConfig) {
	if o > 0 {
		c.WorkerShutdownTimeout = time.Duration(o)
	}
}

// WithWorkerShutdownTimeout sets the timeout for waiting on worker shutdown
func WithWorkerShutdownTimeout(d time.Duration) workerShutdownTimeoutOption {
	return workerShutdownTimeoutOption(d)
}

type drainTimeoutOption time.Duration

func (o drainTimeoutOption) applyPartitioned(c *PartitionedConfig) {
	if o > 0 {
		c.DrainTimeout = time.Duration(o)
	}
}

// WithDrainTimeout sets the timeout for draining a task's workers on shutdown
func WithDrainTimeout(d time.Duration) drainTimeoutOption {
	return drainTimeoutOption(d)
}

type pollErrorBackoffOption struct {
	b backoff.Backoff
}

func (o pollErrorBackoffOption) applySingleThreaded(c *SingleThreadedConfig) {
	if o.b != nil {
		c.PollErrorBackoff = o.b
	}
}

func (o pollErrorBackoffOption) applyPartitioned(c *PartitionedConfig) {
	if o.b != nil {
		c.PollErrorBackoff = o.b
	}
}

func WithPollErrorBackoff(b backoff.Backoff) pollErrorBackoffOption {
	return pollErrorBackoffOption{b: b}
}
