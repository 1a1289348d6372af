package task

import (
	"time"

	"github.com/flowkit/taskstream/errorhandler"
	"github.com/flowkit/taskstream/telemetry"
)

// TimestampExtractor derives the stream-time timestamp for a record given
// its topic and deserialized key/value.
type TimestampExtractor func(topic string, key, value any) int64

// Config carries the options a StreamTask is constructed with.
type Config struct {
	// MaxBufferedRecordsPerPartition is the pause threshold (strict >) and
	// resume threshold (equality) for a single partition's RecordQueue.
	MaxBufferedRecordsPerPartition int

	// TimestampExtractor assigns a stream-time timestamp to each record.
	TimestampExtractor TimestampExtractor

	// CommitInterval is carried in Config but is not read by StreamTask or
	// by the runners in this module: the runners commit on the
	// committer.PeriodicCommitter defaults and call Commit directly.
	CommitInterval time.Duration

	// NumStreamThreads is not read by StreamTask or by the runners in this
	// module.
	NumStreamThreads int

	// ErrorHandler decides what to do with a record that fails
	// deserialization, processing, or production. A nil handler means
	// every failure propagates out of Process unchanged.
	ErrorHandler errorhandler.Handler

	// Telemetry receives the task's metrics. A nil value defaults to
	// telemetry.Noop().
	Telemetry *telemetry.Telemetry
}

// DefaultConfig returns sane defaults matching the teacher's existing
// runner defaults.
func DefaultConfig() Config {
	return Config{
		MaxBufferedRecordsPerPartition: 1000,
		TimestampExtractor: func(_ string, _, _ any) int64 {
			return 0
		},
		CommitInterval:   time.Second,
		NumStreamThreads: 1,
	}
}
