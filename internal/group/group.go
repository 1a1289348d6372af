// Package group implements PartitionGroup, the component that reconciles
// one RecordQueue per assigned partition into a single logical stream
// ordered by head-record timestamp, and derives the task's monotonic
// stream time from it.
package group

import (
	"fmt"

	"github.com/flowkit/taskstream/internal/queue"
	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/logger"
	"github.com/flowkit/taskstream/record"
	"github.com/flowkit/taskstream/topology"
)

// TimestampExtractor derives the ordering timestamp for a deserialized
// record. A negative result is clamped to -1 by Group and logged at Warn.
type TimestampExtractor func(topic string, key, value any) int64

// Group owns one Queue per assigned partition, fixed at construction, and
// merges them into a single time-ordered stream.
type Group struct {
	queues    map[kafka.TopicPartition]*queue.Queue
	order     []kafka.TopicPartition // registration order, used for tie-breaks
	extractor TimestampExtractor
	logger    logger.Logger

	streamTime int64
}

// New constructs a Group over the given partitions, each dispatching to the
// SourceNode topology registers for its topic. sourceFor(topic) must return a
// SourceNode for every assigned partition's topic; New fails otherwise.
func New(
	partitions []kafka.TopicPartition,
	sourceFor func(topic string) (*topology.SourceNode, bool),
	extractor TimestampExtractor,
	log logger.Logger,
) (*Group, error) {
	g := &Group{
		queues:     make(map[kafka.TopicPartition]*queue.Queue, len(partitions)),
		order:      make([]kafka.TopicPartition, 0, len(partitions)),
		extractor:  extractor,
		logger:     log,
		streamTime: -1,
	}

	for _, p := range partitions {
		source, ok := sourceFor(p.Topic)
		if !ok {
			return nil, fmt.Errorf("no source node registered for topic %q", p.Topic)
		}
		g.queues[p] = queue.New(p, source)
		g.order = append(g.order, p)
	}

	return g, nil
}

// AddRawRecords deserializes and admits raw records for partition, returning
// the queue's new size. The partition must have been part of the set Group
// was constructed with.
func (g *Group) AddRawRecords(partition kafka.TopicPartition, records []kafka.ConsumerRecord) (int, error) {
	q, ok := g.queues[partition]
	if !ok {
		return 0, fmt.Errorf("unknown partition: %s", partition)
	}

	source := q.SourceNode()
	for _, raw := range records {
		key, err := source.KeySerde().Deserialize(raw.Topic, raw.Key)
		if err != nil {
			g.logger.Warn(
				"deserialize key failed, admitting as poison record",
				"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset, "error", err,
			)
			q.Add(queue.NewPoisonRecord(raw, fmt.Errorf("deserialize key for %s: %w", partition, err)))
			continue
		}

		value, err := source.ValueSerde().Deserialize(raw.Topic, raw.Value)
		if err != nil {
			g.logger.Warn(
				"deserialize value failed, admitting as poison record",
				"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset, "error", err,
			)
			q.Add(queue.NewPoisonRecord(raw, fmt.Errorf("deserialize value for %s: %w", partition, err)))
			continue
		}

		rec := record.NewUntyped(
			key, value, record.Metadata{
				Topic:     raw.Topic,
				Partition: raw.Partition,
				Offset:    raw.Offset,
				Timestamp: raw.Timestamp,
				Headers:   headerMap(raw.Headers),
			},
		)

		ts := g.extractor(raw.Topic, key, value)
		if ts < 0 {
			g.logger.Warn(
				"timestamp extractor returned negative value, clamping to -1",
				"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset,
			)
			ts = -1
		}

		q.Add(queue.NewStampedRecord(raw, rec, ts))
	}

	return q.Size(), nil
}

func headerMap(headers []kafka.Header) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	m := make(map[string][]byte, len(headers))
	for _, h := range headers {
		m[h.Key] = h.Value
	}
	return m
}

// NextQueue returns the non-empty queue whose head record has the lowest
// timestamp, breaking ties by lowest partition id. ok is false iff every
// queue is empty.
func (g *Group) NextQueue() (*queue.Queue, bool) {
	var best *queue.Queue
	var bestTS int64
	var bestPartition int32

	for _, p := range g.order {
		q := g.queues[p]
		head, ok := q.Peek()
		if !ok {
			continue
		}

		ts := head.Timestamp()
		if best == nil || ts < bestTS || (ts == bestTS && p.Partition < bestPartition) {
			best = q
			bestTS = ts
			bestPartition = p.Partition
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

// PollRecord pops the head of q, which the caller must have just obtained
// via NextQueue.
func (g *Group) PollRecord(q *queue.Queue) (queue.StampedRecord, bool) {
	return q.Poll()
}

// StreamTime is the minimum TrackedTimestamp across all non-empty queues,
// clamped to never decrease across calls. When every queue is empty, the
// last value is held.
func (g *Group) StreamTime() int64 {
	min := int64(-1)
	first := true

	for _, p := range g.order {
		ts := g.queues[p].TrackedTimestamp()
		if ts < 0 {
			continue
		}
		if first || ts < min {
			min = ts
			first = false
		}
	}

	if first {
		// every queue empty: hold at the last value
		return g.streamTime
	}

	if min > g.streamTime {
		g.streamTime = min
	}
	return g.streamTime
}

// NumBuffered reports the number of records currently buffered for
// partition.
func (g *Group) NumBuffered(partition kafka.TopicPartition) int {
	q, ok := g.queues[partition]
	if !ok {
		return 0
	}
	return q.Size()
}

// NumBufferedTotal reports the number of records currently buffered across
// every assigned partition.
func (g *Group) NumBufferedTotal() int {
	total := 0
	for _, q := range g.queues {
		total += q.Size()
	}
	return total
}

// Partitions returns the fixed set of partitions this group owns.
func (g *Group) Partitions() []kafka.TopicPartition {
	out := make([]kafka.TopicPartition, len(g.order))
	copy(out, g.order)
	return out
}

// Close clears every queue's buffered records.
func (g *Group) Close() {
	for _, q := range g.queues {
		q.Clear()
	}
}
