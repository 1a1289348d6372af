package processor

import (
	"context"

	"github.com/flowkit/taskstream/record"
	"github.com/flowkit/taskstream/state"
	"github.com/stretchr/testify/mock"
)

var _ Context[any, any] = (*MockContext[any, any])(nil)

type MockContext[K, V any] struct {
	mock.Mock
}

func NewMockContext[K, V any]() *MockContext[K, V] {
	return &MockContext[K, V]{}
}

func (c *MockContext[K, V]) Forward(ctx context.Context, record *record.Record[K, V]) error {
	args := c.Mock.Called(ctx, record)
	return args.Error(0)
}

func (c *MockContext[K, V]) ForwardTo(ctx context.Context, childName string, record *record.Record[K, V]) error {
	args := c.Mock.Called(ctx, childName, record)
	return args.Error(0)
}

func (c *MockContext[K, V]) Schedule(ctx context.Context, interval int64) error {
	args := c.Mock.Called(ctx, interval)
	return args.Error(0)
}

func (c *MockContext[K, V]) Record() record.Metadata {
	args := c.Mock.Called()
	return args.Get(0).(record.Metadata)
}

func (c *MockContext[K, V]) TaskID() int {
	args := c.Mock.Called()
	return args.Int(0)
}

func (c *MockContext[K, V]) StateManager() state.Manager {
	args := c.Mock.Called()
	s, _ := args.Get(0).(state.Manager)
	return s
}
