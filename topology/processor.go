package topology

import "github.com/flowkit/taskstream/processor"

// ProcessorSupplier constructs a fresh UntypedProcessor instance for a
// processor node. A new instance is created per task so that processor
// state is never shared across tasks owning different partitions.
type ProcessorSupplier = processor.ProcessorSupplier
