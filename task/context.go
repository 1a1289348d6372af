package task

import (
	"context"
	"fmt"

	"github.com/flowkit/taskstream/processor"
	"github.com/flowkit/taskstream/record"
	"github.com/flowkit/taskstream/state"
)

var _ processor.UntypedContext = (*nodeContext)(nil)

// nodeContext is the per-node facade handed to a processor's Init. It
// resolves children/named-edges lazily through the owning task's topology
// rather than caching them, so it stays valid across the save/restore
// discipline StreamTask uses to track the currently-executing node during
// re-entrant Forward calls.
type nodeContext struct {
	task     *StreamTask
	nodeName string
}

func (c *nodeContext) Forward(ctx context.Context, rec *record.UntypedRecord) error {
	for _, child := range c.task.topology.Children(c.nodeName) {
		if err := c.task.processAt(ctx, child, rec); err != nil {
			return fmt.Errorf("forward to %s: %w", child, err)
		}
	}
	return nil
}

func (c *nodeContext) ForwardTo(ctx context.Context, childName string, rec *record.UntypedRecord) error {
	actualName := c.task.topology.ChildByName(c.nodeName, childName)
	if actualName == "" {
		return fmt.Errorf("unknown child name: %s", childName)
	}
	return c.task.processAt(ctx, actualName, rec)
}

// Schedule registers c.nodeName to be punctuated every interval stream-time
// units. Nodes that never implement processor.UntypedPunctuator may still
// call Schedule; MaybePunctuate will simply find nothing to invoke.
func (c *nodeContext) Schedule(_ context.Context, interval int64) error {
	c.task.schedule(c.nodeName, interval)
	return nil
}

// Record returns the metadata of the record currently flowing through this
// node. Only meaningful while called synchronously from within Process, the
// same discipline Forward/ForwardTo already rely on.
func (c *nodeContext) Record() record.Metadata {
	return c.task.currentRecord
}

func (c *nodeContext) TaskID() int {
	return c.task.id
}

func (c *nodeContext) StateManager() state.Manager {
	return c.task.state
}
