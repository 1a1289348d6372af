// Package queue implements RecordQueue, the per-partition FIFO buffer that
// PartitionGroup drains from. Each queue pairs its buffered records with a
// tracker.Tracker so the group can cheaply ask "what's the lowest
// timestamp you're currently holding" without scanning the buffer.
package queue

import (
	"github.com/flowkit/taskstream/internal/tracker"
	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/record"
	"github.com/flowkit/taskstream/topology"
)

// StampedRecord pairs a deserialized record with the timestamp extracted
// for ordering purposes. It is immutable once constructed.
//
// A record whose key or value failed to deserialize is still admitted to
// the queue as a "poison" StampedRecord: Record is nil and DeserErr holds
// the failure. It still occupies its FIFO slot and carries the original
// offset, so the partition advances past it once polled instead of
// stalling on a batch-wide abort.
type StampedRecord struct {
	Raw       kafka.ConsumerRecord
	Record    *record.UntypedRecord
	DeserErr  error
	timestamp int64
}

func (s StampedRecord) Offset() int64    { return s.Raw.Offset }
func (s StampedRecord) Timestamp() int64 { return s.timestamp }

// NewStampedRecord pairs a raw/deserialized record pair with an explicit
// timestamp (the result of the task's configured TimestampExtractor).
func NewStampedRecord(raw kafka.ConsumerRecord, rec *record.UntypedRecord, timestamp int64) StampedRecord {
	return StampedRecord{Raw: raw, Record: rec, timestamp: timestamp}
}

// NewPoisonRecord wraps a raw record whose key or value failed to
// deserialize. Its timestamp is clamped to -1, the same value used for a
// negative extractor result, so it sorts first and is drained promptly.
func NewPoisonRecord(raw kafka.ConsumerRecord, deserErr error) StampedRecord {
	return StampedRecord{Raw: raw, DeserErr: deserErr, timestamp: -1}
}

// Queue is the FIFO buffer of StampedRecord for one partition. Insertion
// order is never reordered here; cross-queue reordering by timestamp is
// PartitionGroup's job.
type Queue struct {
	partition    kafka.TopicPartition
	source       *topology.SourceNode
	records      []StampedRecord
	tracker      *tracker.Tracker
	highestOffset int64
}

// New returns an empty Queue for partition, dispatching deserialized
// records to source.
func New(partition kafka.TopicPartition, source *topology.SourceNode) *Queue {
	return &Queue{
		partition:     partition,
		source:        source,
		tracker:       tracker.New(),
		highestOffset: -1,
	}
}

// Add appends a record to the FIFO tail and folds it into the tracker.
func (q *Queue) Add(r StampedRecord) {
	q.records = append(q.records, r)
	q.tracker.Add(r)
	if r.Offset() > q.highestOffset {
		q.highestOffset = r.Offset()
	}
}

// Poll pops the FIFO head. ok is false if the queue is empty.
func (q *Queue) Poll() (StampedRecord, bool) {
	if len(q.records) == 0 {
		return StampedRecord{}, false
	}
	head := q.records[0]
	q.records = q.records[1:]
	q.tracker.Remove(head)
	return head, true
}

// Peek returns the FIFO head without removing it.
func (q *Queue) Peek() (StampedRecord, bool) {
	if len(q.records) == 0 {
		return StampedRecord{}, false
	}
	return q.records[0], true
}

func (q *Queue) Size() int { return len(q.records) }

func (q *Queue) IsEmpty() bool { return len(q.records) == 0 }

func (q *Queue) Partition() kafka.TopicPartition { return q.partition }

func (q *Queue) SourceNode() *topology.SourceNode { return q.source }

// HighestOffset is the highest offset ever inserted, or -1 if none was.
func (q *Queue) HighestOffset() int64 { return q.highestOffset }

// TrackedTimestamp returns the tracker's current lower bound, or -1 if the
// queue is empty.
func (q *Queue) TrackedTimestamp() int64 { return q.tracker.Get() }

// Clear drops all buffered records, used when a task closes.
func (q *Queue) Clear() {
	q.records = nil
	q.tracker = tracker.New()
}
