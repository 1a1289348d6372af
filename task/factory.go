package task

import (
	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/logger"
	"github.com/flowkit/taskstream/topology"
)

// NewStreamTaskFactory returns a Factory that constructs StreamTasks wired
// to topo, consumer and producer, configured by cfg.
func NewStreamTaskFactory(
	topo *topology.Topology,
	consumer kafka.Consumer,
	producer kafka.Producer,
	cfg Config,
	log logger.Logger,
) Factory {
	return func(id int, partitions []kafka.TopicPartition) (Task, error) {
		return New(id, partitions, topo, consumer, producer, cfg, log)
	}
}
