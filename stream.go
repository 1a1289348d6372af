package streams

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/logger"
	"github.com/flowkit/taskstream/runner"
	"github.com/flowkit/taskstream/task"
	"github.com/flowkit/taskstream/telemetry"
	"github.com/flowkit/taskstream/topology"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const Version = "v0.1.0" // x-release-please-version

var (
	ErrAlreadyRunning = errors.New("application is already running")
	ErrClosed         = errors.New("application is closed")
)

// Config carries Application-wide options: the logger, the OpenTelemetry
// providers used to build its Telemetry, and the task.Config every task the
// runner creates is constructed with (timestamp extraction, buffering,
// and the error-handling policy StreamTask enforces).
type Config struct {
	Logger         logger.Logger
	TaskConfig     task.Config
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Propagator     propagation.TextMapPropagator
}

type ConfigOption func(*Config)

func WithLogger(logger logger.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTaskConfig overrides the task.Config every task the runner creates is
// constructed with.
func WithTaskConfig(cfg task.Config) ConfigOption {
	return func(c *Config) {
		c.TaskConfig = cfg
	}
}

// WithTracerProvider sets the trace.TracerProvider the Application's
// Telemetry is built from. Defaults to a noop provider.
func WithTracerProvider(tp trace.TracerProvider) ConfigOption {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithMeterProvider sets the metric.MeterProvider the Application's
// Telemetry is built from. Defaults to a noop provider.
func WithMeterProvider(mp metric.MeterProvider) ConfigOption {
	return func(c *Config) {
		c.MeterProvider = mp
	}
}

// WithPropagator sets the context propagator used to extract trace context
// from record headers. Defaults to W3C trace context.
func WithPropagator(p propagation.TextMapPropagator) ConfigOption {
	return func(c *Config) {
		c.Propagator = p
	}
}

func defaultConfig() Config {
	return Config{
		Logger:     logger.NewNoopLogger(),
		TaskConfig: task.DefaultConfig(),
	}
}

type Application struct {
	topology *topology.Topology
	config   Config

	client kafka.Client
	logger logger.Logger

	mu        sync.Mutex
	running   bool
	runner    runner.Runner
	closeOnce sync.Once
	closedCh  chan struct{}
}

func NewApplication(client kafka.Client, topology *topology.Topology, opts ...ConfigOption) (*Application, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return NewApplicationWithConfig(client, topology, config)
}

func NewApplicationWithConfig(client kafka.Client, topology *topology.Topology, config Config) (*Application, error) {
	return &Application{
		topology: topology,
		config:   config,
		client:   client,
		logger:   config.Logger,
		closedCh: make(chan struct{}),
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	return a.RunWith(
		ctx, runner.NewSingleThreadedRunner(
			runner.WithLogger(a.logger),
		),
	)
}

func (a *Application) RunWith(ctx context.Context, factory runner.Factory) error {
	if err := a.startRunning(); err != nil {
		return err
	}
	defer a.Close()

	tel, err := telemetry.NewTelemetry(a.config.TracerProvider, a.config.MeterProvider, a.config.Propagator)
	if err != nil {
		return fmt.Errorf("failed to create telemetry: %w", err)
	}

	taskCfg := a.config.TaskConfig
	taskCfg.Telemetry = tel

	taskFactory := task.NewStreamTaskFactory(a.topology, a.client, a.client, taskCfg, a.logger)

	r, err := factory(a.topology, taskFactory, a.client, a.client, tel)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	a.mu.Lock()
	a.runner = r
	a.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-a.closedCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	return r.Run(runCtx)
}

func (a *Application) Close() {
	a.closeOnce.Do(
		func() {
			a.mu.Lock()
			defer a.mu.Unlock()

			a.running = false
			close(a.closedCh)
		},
	)
}

func (a *Application) startRunning() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return ErrAlreadyRunning
	}

	select {
	case <-a.closedCh:
		return ErrClosed
	default:
	}

	a.running = true
	return nil
}
