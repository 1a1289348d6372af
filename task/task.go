package task

import (
	"context"

	"github.com/flowkit/taskstream/kafka"
)

// Task owns a set of co-assigned partitions and drives them through a
// shared topology.
type Task interface {
	ID() int
	Partitions() []kafka.TopicPartition

	// AddRecords admits a freshly-fetched batch for partition. Safe to call
	// from a different goroutine than the one driving Process/Commit/Close.
	AddRecords(partition kafka.TopicPartition, records []kafka.ConsumerRecord) error

	// Process drains and processes at most one record, firing any due
	// punctuations along the way. Returns the number of records still
	// buffered across all of this task's partitions.
	Process(ctx context.Context) (int, error)

	// NeedsCommit requests that the next Process call run the commit
	// protocol once it finishes processing its record.
	NeedsCommit()

	// Commit runs the three-step commit protocol directly, independent of
	// NeedsCommit/Process (used by the runner during rebalance/shutdown).
	Commit(ctx context.Context) error

	Close() error
	IsClosed() bool
}
