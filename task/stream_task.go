package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flowkit/taskstream/collector"
	"github.com/flowkit/taskstream/errorhandler"
	"github.com/flowkit/taskstream/internal/group"
	"github.com/flowkit/taskstream/internal/punctuate"
	"github.com/flowkit/taskstream/internal/queue"
	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/logger"
	"github.com/flowkit/taskstream/processor"
	"github.com/flowkit/taskstream/record"
	"github.com/flowkit/taskstream/state"
	"github.com/flowkit/taskstream/telemetry"
	"github.com/flowkit/taskstream/topology"
)

var _ Task = (*StreamTask)(nil)
var errTaskClosed = errors.New("task: closed")

// StreamTask owns every assigned partition's RecordQueue (via its
// PartitionGroup), the topology's runtime node instances, a PunctuationQueue
// and a RecordCollector, and drives all of it single-threaded-cooperative:
// exactly one goroutine is expected to call Process/Commit/Close at a time,
// serialized by mu. AddRecords may be called concurrently from the runner's
// fetch loop.
type StreamTask struct {
	id int

	group       *group.Group
	punctuation *punctuate.Queue
	topology    *topology.Topology
	processors  map[string]processor.UntypedProcessor
	sinks       map[string]*sinkHandler
	state       state.Manager

	consumer     kafka.Consumer
	collector    *collector.Collector
	errorHandler errorhandler.Handler
	telemetry    *telemetry.Telemetry

	maxBuffered int
	logger      logger.Logger

	mu                 sync.Mutex
	consumedOffsets    map[kafka.TopicPartition]int64
	commitRequested    bool
	commitOffsetNeeded bool
	closed             bool

	// currentRecord is the metadata of the record presently flowing through
	// processAt/Forward, read by nodeContext.Record. Only valid while mu is
	// held by the goroutine driving Process.
	currentRecord record.Metadata
}

// New constructs a StreamTask over partitions, wiring topo's source/sink
// nodes to consumer and producer respectively.
func New(
	id int,
	partitions []kafka.TopicPartition,
	topo *topology.Topology,
	consumer kafka.Consumer,
	producer kafka.Producer,
	cfg Config,
	log logger.Logger,
) (*StreamTask, error) {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	log = log.With("component", "stream-task", "task.id", id)

	sourceFor := func(topicName string) (*topology.SourceNode, bool) {
		return topo.SourceByTopic(topicName)
	}

	extractor := group.TimestampExtractor(cfg.TimestampExtractor)

	g, err := group.New(partitions, sourceFor, extractor, log)
	if err != nil {
		return nil, fmt.Errorf("construct partition group: %w", err)
	}

	tel := cfg.Telemetry
	if tel == nil {
		tel = telemetry.Noop()
	}

	t := &StreamTask{
		id:              id,
		group:           g,
		punctuation:     punctuate.New(),
		topology:        topo,
		processors:      make(map[string]processor.UntypedProcessor),
		sinks:           make(map[string]*sinkHandler),
		state:           state.NewManager(),
		consumer:        consumer,
		collector:       collector.New(producer, log),
		errorHandler:    cfg.ErrorHandler,
		telemetry:       tel,
		maxBuffered:     cfg.MaxBufferedRecordsPerPartition,
		logger:          log,
		consumedOffsets: make(map[kafka.TopicPartition]int64),
	}

	for name := range topo.Nodes() {
		if supplier := topo.Supplier(name); supplier != nil {
			t.processors[name] = supplier()
		}
	}

	for _, name := range topo.Sinks() {
		if sn, ok := topo.Nodes()[name].(*topology.SinkNode); ok {
			t.sinks[name] = &sinkHandler{node: sn, collector: t.collector}
		}
	}

	for name, proc := range t.processors {
		proc.Init(&nodeContext{task: t, nodeName: name})
	}

	return t, nil
}

func (t *StreamTask) ID() int { return t.id }

func (t *StreamTask) Partitions() []kafka.TopicPartition {
	return t.group.Partitions()
}

// AddRecords admits a freshly-fetched batch for partition, pausing the
// partition's fetch if the queue crosses MaxBufferedRecordsPerPartition.
// This is the only place StreamTask issues a pause.
func (t *StreamTask) AddRecords(partition kafka.TopicPartition, records []kafka.ConsumerRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	size, err := t.group.AddRawRecords(partition, records)
	if err != nil {
		return fmt.Errorf("add records for %s: %w", partition, err)
	}

	if size > t.maxBuffered {
		t.consumer.PausePartitions(partition)
	}

	return nil
}

// Process drains and processes at most one record across every assigned
// partition, runs the commit protocol if requested, resumes backpressured
// partitions, and fires any punctuations stream time has caught up to.
func (t *StreamTask) Process(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, errTaskClosed
	}

	q, ok := t.group.NextQueue()
	if !ok {
		return 0, nil
	}

	stamped, ok := t.group.PollRecord(q)
	if !ok {
		return 0, nil
	}

	sourceName := q.SourceNode().Name()
	partition := q.Partition()

	procErr := t.dispatchStamped(ctx, sourceName, stamped)
	if procErr != nil {
		procErr = t.handleProcessError(ctx, stamped, sourceName, procErr)
	}

	if t.telemetry != nil {
		t.telemetry.StreamTime.Record(ctx, t.group.StreamTime())
	}

	if procErr != nil {
		// A handled failure (skip/DLQ/retry-succeeded) returns nil from
		// handleProcessError and falls through below; a fatal one leaves
		// consumedOffsets untouched so recovery replays this same record
		// rather than skipping past it silently.
		t.logger.Error("process failed", "node", sourceName, "offset", stamped.Offset(), "error", procErr)
		return t.group.NumBufferedTotal(), procErr
	}

	// The record was either processed cleanly or its failure was handled
	// (skipped/DLQ'd/retried to success): either way it's done with, so its
	// offset is safe to commit past.
	t.consumedOffsets[partition] = stamped.Offset()
	t.commitOffsetNeeded = true

	if t.commitRequested {
		if err := t.commitLocked(ctx); err != nil {
			return t.group.NumBufferedTotal(), err
		}
		t.commitRequested = false
	}

	if t.group.NumBuffered(partition) == t.maxBuffered {
		t.consumer.ResumePartitions(partition)
	}

	t.punctuation.MaybePunctuate(t.group.StreamTime())

	t.currentRecord = record.Metadata{}
	return t.group.NumBufferedTotal(), nil
}

// dispatchStamped dispatches a single polled record from its source node,
// surfacing a poison record's deserialization failure as a SerdeError
// instead of forwarding it into the topology.
func (t *StreamTask) dispatchStamped(ctx context.Context, sourceName string, stamped queue.StampedRecord) error {
	if stamped.DeserErr != nil {
		return NewSerdeError(stamped.DeserErr)
	}

	t.currentRecord = stamped.Record.Metadata
	if err := t.dispatchFromSource(ctx, sourceName, stamped.Record); err != nil {
		return NewProcessError(err, sourceName)
	}
	return nil
}

// handleProcessError runs t.errorHandler's policy against a dispatch
// failure, modeled on the runner's former processRecordWithRetry loop but
// driven from inside Process so every StreamTask enforces the same
// deserialization/processing/production failure policy regardless of which
// runner drives it. Returns nil if the error was handled (skipped, sent to
// DLQ, or a retry eventually succeeded), or the terminal error otherwise.
func (t *StreamTask) handleProcessError(
	ctx context.Context, stamped queue.StampedRecord, sourceName string, err error,
) error {
	if t.errorHandler == nil {
		return err
	}

	phase, node := classifyProcessError(err)
	if node == "" {
		node = sourceName
	}
	ec := errorhandler.NewErrorContext(stamped.Raw, err).WithNodeName(node).WithPhase(phase)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if t.telemetry != nil {
			t.telemetry.Errors.Add(ctx, 1)
		}

		action := t.errorHandler.Handle(ctx, ec)

		if t.telemetry != nil {
			t.telemetry.ErrorHandlerActions.Add(ctx, 1)
		}

		switch action.Type() {
		case errorhandler.ActionTypeContinue:
			t.logger.Warn(
				"skipping failed record", "offset", stamped.Offset(), "node", ec.NodeName, "error", ec.Error,
			)
			return nil

		case errorhandler.ActionTypeRetry:
			if phase == errorhandler.PhaseSerde {
				// bytes that failed to deserialize won't parse differently
				// on a retry; fail through instead of spinning forever.
				return err
			}

			ec = ec.IncrementAttempt()
			retryErr := t.dispatchStamped(ctx, sourceName, stamped)
			if retryErr == nil {
				return nil
			}

			phase, node = classifyProcessError(retryErr)
			if node == "" {
				node = sourceName
			}
			err = retryErr
			ec = ec.WithError(err).WithNodeName(node).WithPhase(phase)
			continue

		case errorhandler.ActionTypeSendToDLQ:
			a, ok := action.(errorhandler.ActionSendToDLQ)
			if !ok {
				return err
			}
			if dlqErr := t.sendToDLQ(ctx, stamped.Raw, ec, a.Topic()); dlqErr != nil {
				t.logger.Error("send to dlq failed", "error", dlqErr, "offset", stamped.Offset())
				return dlqErr
			}
			return nil

		case errorhandler.ActionTypeFail:
			return err

		default:
			return err
		}
	}
}

// classifyProcessError maps one of the task package's typed errors to the
// errorhandler phase/node pair its policy is routed on.
func classifyProcessError(err error) (errorhandler.ErrorPhase, string) {
	if _, ok := AsSerdeError(err); ok {
		return errorhandler.PhaseSerde, ""
	}
	if pe, ok := AsProductionError(err); ok {
		return errorhandler.PhaseProduction, pe.Node
	}
	if pe, ok := AsProcessError(err); ok {
		return errorhandler.PhaseProcessing, pe.Node
	}
	return errorhandler.PhaseProcessing, ""
}

// sendToDLQ republishes a failed raw record to topic via the task's own
// record collector, tagging it with diagnostic headers describing where
// and why it failed. Grounded on the runner's former sendToDLQ helper.
func (t *StreamTask) sendToDLQ(
	ctx context.Context, raw kafka.ConsumerRecord, ec errorhandler.ErrorContext, topic string,
) error {
	headers := make([]kafka.Header, len(raw.Headers), len(raw.Headers)+6)
	copy(headers, raw.Headers)

	headers = append(
		headers,
		kafka.Header{Key: "x-original-topic", Value: []byte(raw.Topic)},
		kafka.Header{Key: "x-original-partition", Value: []byte(fmt.Sprintf("%d", raw.Partition))},
		kafka.Header{Key: "x-original-offset", Value: []byte(fmt.Sprintf("%d", raw.Offset))},
		kafka.Header{Key: "x-error-phase", Value: []byte(ec.Phase.String())},
		kafka.Header{Key: "x-error-attempt", Value: []byte(fmt.Sprintf("%d", ec.Attempt))},
	)
	if ec.Error != nil {
		headers = append(headers, kafka.Header{Key: "x-error-message", Value: []byte(ec.Error.Error())})
	}
	if ec.NodeName != "" {
		headers = append(headers, kafka.Header{Key: "x-error-node", Value: []byte(ec.NodeName)})
	}

	return t.collector.Send(ctx, topic, raw.Key, raw.Value, headers)
}

func (t *StreamTask) dispatchFromSource(ctx context.Context, sourceName string, rec *record.UntypedRecord) error {
	for _, child := range t.topology.Children(sourceName) {
		if err := t.processAt(ctx, child, rec); err != nil {
			return fmt.Errorf("forward from %s to %s: %w", sourceName, child, err)
		}
	}
	return nil
}

func (t *StreamTask) processAt(ctx context.Context, nodeName string, rec *record.UntypedRecord) error {
	if sink, ok := t.sinks[nodeName]; ok {
		return sink.Process(ctx, rec)
	}

	proc, ok := t.processors[nodeName]
	if !ok {
		return fmt.Errorf("unknown node: %s", nodeName)
	}

	return proc.Process(ctx, rec)
}

// schedule registers nodeName to be punctuated every interval stream-time
// units, starting from the task's current stream time.
func (t *StreamTask) schedule(nodeName string, interval int64) {
	t.punctuation.Schedule(&punctuateTarget{task: t, nodeName: nodeName}, interval, t.group.StreamTime())
}

// NeedsCommit requests a commit at the next record boundary inside Process.
func (t *StreamTask) NeedsCommit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commitRequested = true
}

// Commit runs the commit protocol directly: flush local state, commit
// consumed offsets if any are pending, then flush the record collector.
func (t *StreamTask) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commitLocked(ctx)
}

func (t *StreamTask) commitLocked(ctx context.Context) error {
	if err := t.state.Flush(); err != nil {
		return fmt.Errorf("flush state manager: %w", err)
	}

	if t.commitOffsetNeeded {
		for tp, offset := range t.consumedOffsets {
			t.consumer.MarkRecords(kafka.ConsumerRecord{Topic: tp.Topic, Partition: tp.Partition, Offset: offset})
		}
		if err := t.consumer.Commit(ctx); err != nil {
			return fmt.Errorf("commit consumer offsets: %w", err)
		}
		t.commitOffsetNeeded = false
	}

	if err := t.collector.Flush(ctx); err != nil {
		return fmt.Errorf("flush record collector: %w", err)
	}

	return nil
}

// Close drains state: closes the partition group (clearing queues), clears
// consumed offsets, and closes every processor node in reverse topological
// order, then releases the record collector's producer.
func (t *StreamTask) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.group.Close()
	t.consumedOffsets = make(map[kafka.TopicPartition]int64)

	var lastErr error
	for _, name := range t.reverseTopologicalOrder() {
		if err := t.processors[name].Close(); err != nil {
			lastErr = fmt.Errorf("close processor %s: %w", name, err)
		}
	}

	t.collector.Close()
	t.closed = true
	return lastErr
}

func (t *StreamTask) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// reverseTopologicalOrder walks the topology from its source nodes and
// returns the visited processor node names in reverse visitation order, so
// Close tears down downstream nodes before the upstream nodes that feed them.
func (t *StreamTask) reverseTopologicalOrder() []string {
	visited := make(map[string]bool)
	var order []string

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		if _, ok := t.processors[name]; ok {
			order = append(order, name)
		}
		for _, child := range t.topology.Children(name) {
			visit(child)
		}
	}

	for _, sn := range t.topology.SourceNodes() {
		visit(sn.Name())
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// punctuateTarget adapts a single topology node into an
// internal/punctuate.Punctuator, invoking the node's Punctuate method (if it
// implements processor.UntypedPunctuator) and logging any error rather than
// propagating it, matching MaybePunctuate's error-free contract.
type punctuateTarget struct {
	task     *StreamTask
	nodeName string
}

func (p *punctuateTarget) Punctuate(streamTime int64) {
	proc, ok := p.task.processors[p.nodeName]
	if !ok {
		return
	}

	punctuator, ok := proc.(processor.UntypedPunctuator)
	if !ok {
		return
	}

	if p.task.telemetry != nil {
		p.task.telemetry.PunctuateFires.Add(context.Background(), 1)
	}

	if err := punctuator.Punctuate(context.Background(), streamTime); err != nil {
		p.task.logger.Error("punctuate failed", "node", p.nodeName, "error", err)
	}
}
