// Package collector implements RecordCollector, the sink-facing component
// that routes produced records to the underlying kafka.Producer and counts
// the successful sends per output topic. A StreamTask's commit protocol
// calls Flush after committing consumer offsets.
package collector

import (
	"context"
	"sync"

	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/logger"
)

// Collector buffers nothing itself: kafka.Producer.Send (backed by
// KgoClient) is a synchronous, blocking produce, so durability is implicit
// on a successful return. Collector's job is bookkeeping: per-topic send
// sequence numbers standing in for "highest offset acknowledged", since
// kafka.Producer abstracts partition assignment away from the caller and
// never reports back which partition or offset a record landed at.
type Collector struct {
	producer kafka.Producer
	logger   logger.Logger

	mu       sync.Mutex
	sent     map[string]int64 // topic -> count of records successfully sent
	inflight int64
}

// New returns a Collector that sends through producer.
func New(producer kafka.Producer, log logger.Logger) *Collector {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Collector{
		producer: producer,
		logger:   log,
		sent:     make(map[string]int64),
	}
}

// Send forwards a record to topic via the underlying producer. On success
// the topic's send counter is incremented, standing in for the highest
// offset acknowledged for that topic.
func (c *Collector) Send(ctx context.Context, topic string, key, value []byte, headers []kafka.Header) error {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()

	err := c.producer.Send(ctx, topic, key, value, headers)

	c.mu.Lock()
	c.inflight--
	if err == nil {
		c.sent[topic]++
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("record collector send failed", "topic", topic, "error", err)
		return err
	}
	return nil
}

// Flush blocks until every record submitted before the call is durable.
func (c *Collector) Flush(ctx context.Context) error {
	return c.producer.Flush(ctx)
}

// SentCount reports how many records have been successfully sent to topic.
func (c *Collector) SentCount(topic string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[topic]
}

// Inflight reports the number of Send calls currently in progress, across
// all topics.
func (c *Collector) Inflight() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

// Close releases the underlying producer.
func (c *Collector) Close() {
	c.producer.Close()
}
