package task

import (
	"context"
	"fmt"

	"github.com/flowkit/taskstream/collector"
	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/record"
	"github.com/flowkit/taskstream/topology"
)

// sinkHandler serializes records reaching a topology exit point and hands
// them to the task's shared RecordCollector.
type sinkHandler struct {
	node      *topology.SinkNode
	collector *collector.Collector
}

func (s *sinkHandler) Process(ctx context.Context, rec *record.UntypedRecord) error {
	topic := s.node.Topic()

	key, err := s.node.KeySerde().Serialize(topic, rec.Key)
	if err != nil {
		return NewSerdeError(fmt.Errorf("serialize key for %s: %w", topic, err))
	}

	value, err := s.node.ValueSerde().Serialize(topic, rec.Value)
	if err != nil {
		return NewSerdeError(fmt.Errorf("serialize value for %s: %w", topic, err))
	}

	var headers []kafka.Header
	for k, v := range rec.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: v})
	}

	if err := s.collector.Send(ctx, topic, key, value, headers); err != nil {
		return NewProductionError(err, s.node.Name())
	}

	return nil
}
