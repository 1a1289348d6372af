package runner

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/flowkit/taskstream/committer"
	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/logger"
	"github.com/flowkit/taskstream/task"
	"github.com/flowkit/taskstream/telemetry"
	"github.com/flowkit/taskstream/topology"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

var _ Runner = (*SingleThreadedRunner)(nil)
var _ kafka.RebalanceCallback = (*SingleThreadedRunner)(nil)

// SingleThreadedRunner drives every assigned partition through a single
// task.Task on the caller's goroutine: one poll loop, one Process call at a
// time, one committer. Simpler and lower-throughput than PartitionedRunner,
// useful for topologies with light per-record work or a single partition.
type SingleThreadedRunner struct {
	consumer kafka.Consumer
	producer kafka.Producer
	factory  task.Factory
	topology *topology.Topology
	config   SingleThreadedConfig

	logger    logger.Logger
	telemetry *telemetry.Telemetry

	mu        sync.Mutex
	t         task.Task
	committer committer.Committer
}

// NewSingleThreadedRunner creates a factory function for SingleThreadedRunner.
func NewSingleThreadedRunner(opts ...SingleThreadedOption) Factory {
	config := defaultSingleThreadedConfig()
	for _, opt := range opts {
		opt.applySingleThreaded(&config)
	}

	return func(
		t *topology.Topology, f task.Factory, consumer kafka.Consumer, producer kafka.Producer,
		tel *telemetry.Telemetry,
	) (Runner, error) {
		l := config.Logger.With("component", "runner", "runner", "single_threaded")

		return &SingleThreadedRunner{
			consumer:  consumer,
			producer:  producer,
			factory:   f,
			topology:  t,
			config:    config,
			logger:    l,
			telemetry: tel,
		}, nil
	}
}

// Run subscribes and blocks, polling and draining the task until ctx is
// cancelled.
func (r *SingleThreadedRunner) Run(ctx context.Context) error {
	defer r.shutdown()

	topics := r.topology.SourceTopics()
	if err := r.consumer.Subscribe(topics, r); err != nil {
		return fmt.Errorf("failed to subscribe to topics: %w", err)
	}

	r.logger.Info("single-threaded runner started", "topics", topics)

	var errAttempts uint
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("context cancelled, shutting down")
			return nil
		default:
		}

		if err := r.tick(ctx); err != nil {
			r.logger.Warn("tick error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.config.PollErrorBackoff.Next(errAttempts)):
			}
			errAttempts++
			continue
		}
		errAttempts = 0
	}
}

func (r *SingleThreadedRunner) tick(ctx context.Context) error {
	r.mu.Lock()
	t := r.t
	c := r.committer
	r.mu.Unlock()

	if err := r.doPoll(ctx, t); err != nil {
		return err
	}

	if t == nil {
		return nil
	}

	processed, err := drainTask(ctx, t)
	if err != nil {
		return fmt.Errorf("drain task: %w", err)
	}
	if c != nil {
		c.RecordProcessed(processed)
		select {
		case <-c.C():
			if err := t.Commit(ctx); err != nil {
				return fmt.Errorf("periodic commit: %w", err)
			}
		default:
		}
	}

	return nil
}

func (r *SingleThreadedRunner) doPoll(ctx context.Context, t task.Task) error {
	tel := r.telemetry
	pollStart := time.Now()

	ctx, receiveSpan := tel.Tracer.Start(
		ctx, "receive",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationTypeReceive,
		),
	)
	records, err := r.consumer.Poll(ctx)

	if err != nil {
		receiveSpan.RecordError(err)
		receiveSpan.End()

		tel.PollDuration.Record(
			ctx, time.Since(pollStart).Seconds(), metric.WithAttributes(
				telemetry.AttrPollStatus.String(telemetry.StatusError),
			),
		)
		return fmt.Errorf("failed to poll: %w", err)
	}

	tel.PollDuration.Record(
		ctx, time.Since(pollStart).Seconds(), metric.WithAttributes(
			telemetry.AttrPollStatus.String(telemetry.StatusSuccess),
		),
	)
	receiveSpan.SetAttributes(semconv.MessagingBatchMessageCount(len(records)))
	receiveSpan.End()

	if len(records) == 0 || t == nil {
		return nil
	}

	byPartition := make(map[kafka.TopicPartition][]kafka.ConsumerRecord)
	for _, rec := range records {
		tel.MessagesConsumed.Add(
			ctx, 1, metric.WithAttributes(
				semconv.MessagingDestinationName(rec.Topic),
				semconv.MessagingDestinationPartitionID(strconv.FormatInt(int64(rec.Partition), 10)),
			),
		)
		tp := rec.TopicPartition()
		byPartition[tp] = append(byPartition[tp], rec)
	}

	for tp, recs := range byPartition {
		if err := t.AddRecords(tp, recs); err != nil {
			r.logger.Error("failed to add records", "partition", tp, "error", err)
		}
	}

	return nil
}

func (r *SingleThreadedRunner) OnAssigned(partitions []kafka.TopicPartition) {
	r.logger.Info("partitions assigned", "partitions", partitions)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.t != nil {
		// already running a task: fold the newly assigned partitions in by
		// rebuilding it over the union. Co-partitioned single-threaded use
		// is expected to receive its whole assignment in one rebalance.
		merged := append(r.t.Partitions(), partitions...)
		if err := r.t.Close(); err != nil {
			r.logger.Error("failed to close existing task before reassignment", "error", err)
		}
		partitions = merged
	}

	t, err := r.factory(0, partitions)
	if err != nil {
		r.logger.Error("failed to create task for assigned partitions", "error", err)
		return
	}

	r.t = t
	r.committer = committer.NewPeriodicCommitter()

	r.telemetry.TasksActive.Add(
		context.Background(), int64(len(partitions)), metric.WithAttributes(
			telemetry.AttrRunnerType.String(telemetry.RunnerTypeSingleThreaded),
		),
	)

	r.consumer.ResumePartitions(partitions...)
}

func (r *SingleThreadedRunner) OnRevoked(partitions []kafka.TopicPartition) {
	r.logger.Info("partitions revoked", "partitions", partitions)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.t == nil {
		return
	}

	commitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.t.Commit(commitCtx); err != nil {
		r.logger.Error("failed to commit offsets on revoke", "error", err)
	}
	if err := r.t.Close(); err != nil {
		r.logger.Error("failed to close task on revoke", "error", err)
	}

	r.telemetry.TasksActive.Add(
		context.Background(), -int64(len(partitions)), metric.WithAttributes(
			telemetry.AttrRunnerType.String(telemetry.RunnerTypeSingleThreaded),
		),
	)

	r.t = nil
	if r.committer != nil {
		r.committer.Close()
		r.committer = nil
	}
}

func (r *SingleThreadedRunner) shutdown() {
	r.logger.Info("shutting down single-threaded runner")

	r.mu.Lock()
	t := r.t
	c := r.committer
	r.t = nil
	r.committer = nil
	r.mu.Unlock()

	if t == nil {
		return
	}
	if c != nil {
		c.Close()
	}

	commitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := t.Commit(commitCtx); err != nil {
		r.logger.Error("failed to commit offsets during shutdown", "error", err)
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer flushCancel()
	if err := r.producer.Flush(flushCtx); err != nil {
		r.logger.Error("failed to flush producer during shutdown", "error", err)
	}

	if err := t.Close(); err != nil {
		r.logger.Error("failed to close task during shutdown", "error", err)
	}

	r.logger.Info("single-threaded runner shutdown complete")
}
