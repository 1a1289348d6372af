package record

import (
	"time"
)

type Metadata struct {
	Timestamp time.Time
	Headers   map[string][]byte

	Topic     string
	Partition int32
	Offset    int64
}

type Record[K, V any] struct {
	Key   K
	Value V
	Metadata
}

// UntypedRecord is a type-erased Record, used internally so a topology
// graph can route records between nodes of differing K/V types.
type UntypedRecord struct {
	Key   any
	Value any
	Metadata
}
