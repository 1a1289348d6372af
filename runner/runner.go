package runner

import (
	"context"

	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/task"
	"github.com/flowkit/taskstream/telemetry"
	"github.com/flowkit/taskstream/topology"
)

type Runner interface {
	kafka.RebalanceCallback
	Run(ctx context.Context) error
}

type Factory = func(
	t *topology.Topology, f task.Factory, consumer kafka.Consumer, producer kafka.Producer,
	tel *telemetry.Telemetry,
) (Runner, error)
