package runner

import (
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/flowkit/taskstream/logger"
)

// BaseConfig is shared by all runners. Record-level error handling lives on
// task.Config now (StreamTask owns the errorhandler.Handler); BaseConfig
// only carries what's specific to driving the poll loop itself.
type BaseConfig struct {
	Logger           logger.Logger
	PollErrorBackoff backoff.Backoff
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		Logger:           logger.NewNoopLogger(),
		PollErrorBackoff: backoff.NewFixed(time.Second),
	}
}

type SingleThreadedConfig struct {
	BaseConfig
}

func defaultSingleThreadedConfig() SingleThreadedConfig {
	return SingleThreadedConfig{
		BaseConfig: defaultBaseConfig(),
	}
}

type PartitionedConfig struct {
	BaseConfig
	WorkerShutdownTimeout time.Duration
	DrainTimeout          time.Duration
}

func defaultPartitionedConfig() PartitionedConfig {
	return PartitionedConfig{
		BaseConfig:            defaultBaseConfig(),
		WorkerShutdownTimeout: 30 * time.Second,
		DrainTimeout:          60 * time.Second,
	}
}
