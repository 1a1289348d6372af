package processor

import (
	"context"

	"github.com/flowkit/taskstream/record"
	"github.com/flowkit/taskstream/state"
)

// processorAdapter erases a typed Processor[KIn,VIn,KOut,VOut] into an
// UntypedProcessor so it can be stored alongside every other node in a
// topology graph.
type processorAdapter[KIn, VIn, KOut, VOut any] struct {
	typed Processor[KIn, VIn, KOut, VOut]
}

func (a *processorAdapter[KIn, VIn, KOut, VOut]) Init(ctx UntypedContext) {
	a.typed.Init(&contextAdapter[KOut, VOut]{untyped: ctx})
}

func (a *processorAdapter[KIn, VIn, KOut, VOut]) Process(ctx context.Context, r *record.UntypedRecord) error {
	key, _ := r.Key.(KIn)
	value, _ := r.Value.(VIn)

	return a.typed.Process(
		ctx, &record.Record[KIn, VIn]{
			Key:      key,
			Value:    value,
			Metadata: r.Metadata,
		},
	)
}

func (a *processorAdapter[KIn, VIn, KOut, VOut]) Close() error {
	return a.typed.Close()
}

// typedPunctuator is implemented by a typed Processor that wants periodic
// callbacks at the interval it registered via Context.Schedule.
type typedPunctuator interface {
	Punctuate(ctx context.Context, streamTime int64) error
}

// Punctuate satisfies UntypedPunctuator unconditionally, so every
// processorAdapter can be scheduled; it only does something if the wrapped
// typed Processor itself implements Punctuate.
func (a *processorAdapter[KIn, VIn, KOut, VOut]) Punctuate(ctx context.Context, streamTime int64) error {
	if p, ok := any(a.typed).(typedPunctuator); ok {
		return p.Punctuate(ctx, streamTime)
	}
	return nil
}

// contextAdapter erases a typed Context[K,V] call down to the task's
// UntypedContext, re-wrapping the record so downstream nodes still see a
// *record.UntypedRecord regardless of what this node's own types are.
type contextAdapter[K, V any] struct {
	untyped UntypedContext
}

func (c *contextAdapter[K, V]) Forward(ctx context.Context, r *record.Record[K, V]) error {
	return c.untyped.Forward(ctx, r.ToUntyped())
}

func (c *contextAdapter[K, V]) ForwardTo(ctx context.Context, childName string, r *record.Record[K, V]) error {
	return c.untyped.ForwardTo(ctx, childName, r.ToUntyped())
}

func (c *contextAdapter[K, V]) Schedule(ctx context.Context, interval int64) error {
	return c.untyped.Schedule(ctx, interval)
}

func (c *contextAdapter[K, V]) Record() record.Metadata {
	return c.untyped.Record()
}

func (c *contextAdapter[K, V]) TaskID() int {
	return c.untyped.TaskID()
}

func (c *contextAdapter[K, V]) StateManager() state.Manager {
	return c.untyped.StateManager()
}
