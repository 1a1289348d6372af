package runner

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/logger"
	"github.com/flowkit/taskstream/task"
	"github.com/flowkit/taskstream/telemetry"
	"github.com/flowkit/taskstream/topology"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

var _ Runner = (*PartitionedRunner)(nil)
var _ kafka.RebalanceCallback = (*PartitionedRunner)(nil)

// PartitionedRunner processes records in parallel, with one goroutine per
// task (a task owns every co-partitioned partition sharing its id, per
// task.Manager's grouping convention). Record-level retry/DLQ/skip policy
// is entirely StreamTask's concern now; this runner only feeds records in
// and drives Process until drained.
type PartitionedRunner struct {
	consumer    kafka.Consumer
	producer    kafka.Producer
	taskManager task.Manager
	topology    *topology.Topology

	config PartitionedConfig

	workers map[int]*taskWorker
	mu      sync.RWMutex

	errCh chan error

	runCtx context.Context

	logger    logger.Logger
	telemetry *telemetry.Telemetry
}

// NewPartitionedRunner creates a factory function for PartitionedRunner
func NewPartitionedRunner(opts ...PartitionedOption) Factory {
	config := defaultPartitionedConfig()
	for _, opt := range opts {
		opt.applyPartitioned(&config)
	}

	return func(
		t *topology.Topology, f task.Factory, consumer kafka.Consumer, producer kafka.Producer,
		tel *telemetry.Telemetry,
	) (Runner, error) {
		l := config.Logger.With("component", "runner", "runner", "partitioned")

		return &PartitionedRunner{
			consumer:    consumer,
			producer:    producer,
			taskManager: task.NewManager(f, config.Logger),
			topology:    t,
			config:      config,
			workers:     make(map[int]*taskWorker),
			errCh:       make(chan error, 1),
			logger:      l,
			telemetry:   tel,
		}, nil
	}
}

// Run starts the partitioned runner and blocks until the context is cancelled
// or a fatal error occurs.
func (r *PartitionedRunner) Run(ctx context.Context) error {
	defer r.shutdown()

	var cancel context.CancelFunc
	r.runCtx, cancel = context.WithCancel(ctx)
	defer cancel()

	topics := r.topology.SourceTopics()
	if err := r.consumer.Subscribe(topics, r); err != nil {
		return fmt.Errorf("failed to subscribe to topics: %w", err)
	}

	r.logger.Info("partitioned runner started", "topics", topics)

	var errAttempts uint
	for {
		select {
		case err := <-r.errCh:
			r.logger.Error("fatal error received in Run()", "error", err)
			return err

		case <-ctx.Done():
			r.logger.Info("context cancelled, shutting down")
			return nil

		default:
			if err := r.doPoll(ctx); err != nil {
				r.logger.Warn("poll error", "error", err)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(r.config.PollErrorBackoff.Next(errAttempts)):
				}
				errAttempts++
			} else {
				errAttempts = 0
			}
		}
	}
}

func (r *PartitionedRunner) doPoll(ctx context.Context) error {
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

	if len(records) == 0 {
		return nil
	}

	r.logger.Debug("polled records", "count", len(records))

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

	r.mu.RLock()
	defer r.mu.RUnlock()

	woken := make(map[int]struct{})
	for tp, recs := range byPartition {
		t, ok := r.taskManager.TaskFor(tp)
		if !ok {
			r.logger.Warn("no task for partition, may have been rebalanced", "topic", tp.Topic, "partition", tp.Partition)
			continue
		}

		if err := t.AddRecords(tp, recs); err != nil {
			r.logger.Error("failed to add records to task", "task.id", t.ID(), "error", err)
			continue
		}

		woken[t.ID()] = struct{}{}
	}

	for id := range woken {
		if w, ok := r.workers[id]; ok {
			w.Wake()
		}
	}

	return nil
}

func (r *PartitionedRunner) OnAssigned(partitions []kafka.TopicPartition) {
	r.logger.Info("partitions assigned", "partitions", partitions)

	if err := r.taskManager.CreateTasks(partitions); err != nil {
		r.logger.Error("failed to create tasks for assigned partitions", "error", err)
		emitError(r.errCh, r.logger, fmt.Errorf("failed to create tasks: %w", err))
		return
	}

	r.telemetry.TasksActive.Add(
		context.Background(), int64(len(partitions)), metric.WithAttributes(
			telemetry.AttrRunnerType.String(telemetry.RunnerTypePartitioned),
		),
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int]struct{})
	for _, tp := range partitions {
		t, ok := r.taskManager.TaskFor(tp)
		if !ok {
			r.logger.Error("no task found for partition after creation", "partition", tp)
			continue
		}
		if _, exists := r.workers[t.ID()]; exists {
			continue
		}
		if _, already := seen[t.ID()]; already {
			continue
		}
		seen[t.ID()] = struct{}{}

		worker := newTaskWorker(t, r.config.DrainTimeout, r.errCh, r.logger)
		r.workers[t.ID()] = worker

		// make sure every partition is resumed, in case it was paused when
		// revoked but then reassigned to this runner; a no-op otherwise.
		r.consumer.ResumePartitions(t.Partitions()...)

		worker.Start(r.runCtx)

		r.logger.Debug("started worker for task", "task.id", t.ID())
	}
}

func (r *PartitionedRunner) OnRevoked(partitions []kafka.TopicPartition) {
	r.logger.Info("partitions revoked", "partitions", partitions)

	r.mu.Lock()
	ids := make(map[int]struct{})
	for _, tp := range partitions {
		if t, ok := r.taskManager.TaskFor(tp); ok {
			ids[t.ID()] = struct{}{}
		}
	}

	workersToStop := make([]*taskWorker, 0, len(ids))
	for id := range ids {
		if w, ok := r.workers[id]; ok {
			w.Stop()
			workersToStop = append(workersToStop, w)
		}
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, worker := range workersToStop {
		wg.Add(1)
		go func(w *taskWorker) {
			defer wg.Done()
			if err := w.WaitForStop(r.config.WorkerShutdownTimeout); err != nil {
				r.logger.Warn("timeout waiting for task worker to stop", "task.id", w.TaskID(), "error", err)
			}
		}(worker)
	}
	wg.Wait()

	commitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.consumer.Commit(commitCtx); err != nil {
		r.logger.Error("failed to commit offsets on revoke", "error", err)
	}

	if err := r.taskManager.CloseTasks(partitions); err != nil {
		r.logger.Error("failed to close tasks for revoked partitions", "error", err)
	}

	if err := r.taskManager.DeleteTasks(partitions); err != nil {
		r.logger.Error("failed to delete tasks for revoked partitions", "error", err)
	}

	r.telemetry.TasksActive.Add(
		context.Background(), -int64(len(partitions)), metric.WithAttributes(
			telemetry.AttrRunnerType.String(telemetry.RunnerTypePartitioned),
		),
	)

	r.mu.Lock()
	for id := range ids {
		delete(r.workers, id)
	}
	r.mu.Unlock()

	r.logger.Debug("completed handling partition revocation")
}

// shutdown gracefully stops all workers and commits final offsets
func (r *PartitionedRunner) shutdown() {
	r.logger.Info("shutting down partitioned runner")

	r.mu.RLock()
	allWorkers := make([]*taskWorker, 0, len(r.workers))
	for _, worker := range r.workers {
		allWorkers = append(allWorkers, worker)
	}
	r.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for _, worker := range allWorkers {
			wg.Add(1)
			go func(w *taskWorker) {
				defer wg.Done()
				_ = w.WaitForStop(r.config.WorkerShutdownTimeout)
			}(worker)
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Debug("all workers stopped")
	case <-time.After(r.config.DrainTimeout):
		r.logger.Warn("timeout waiting for workers to stop during shutdown")
	}

	r.mu.Lock()
	r.workers = make(map[int]*taskWorker)
	r.mu.Unlock()

	commitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.consumer.Commit(commitCtx); err != nil {
		r.logger.Error("failed to commit offsets during shutdown", "error", err)
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer flushCancel()

	if err := r.producer.Flush(flushCtx); err != nil {
		r.logger.Error("failed to flush producer during shutdown", "error", err)
	}

	if err := r.taskManager.Close(); err != nil {
		r.logger.Error("failed to close task manager", "error", err)
	}

	r.logger.Info("partitioned runner shutdown complete")
}

// WorkerCount returns the number of active task workers.
func (r *PartitionedRunner) WorkerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}
