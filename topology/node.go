package topology

import (
	"github.com/flowkit/taskstream/processor"
	"github.com/flowkit/taskstream/serde"
)

type NodeType int

const (
	NodeTypeSource NodeType = iota
	NodeTypeProcessor
	NodeTypeSink
)

func (nt NodeType) String() string {
	switch nt {
	case NodeTypeSource:
		return "Source"
	case NodeTypeProcessor:
		return "Processor"
	case NodeTypeSink:
		return "Sink"
	default:
		return "Unknown"
	}
}

// Node represents a processing step in the topology
type Node interface {
	Name() string
	Type() NodeType // Source, Processor, Sink
}

var (
	_ Node = (*SourceNode)(nil)
	_ Node = (*processorNodeDef)(nil)
	_ Node = (*SinkNode)(nil)
)

// SourceNode is a topology entry point bound to one input topic. It carries
// the deserializers used to turn raw Kafka bytes into the key/value objects
// handed to the source node's own processor and, transitively, its children.
type SourceNode struct {
	name  string
	topic string

	keySerde   serde.UntypedSerde
	valueSerde serde.UntypedSerde
}

func (s *SourceNode) Name() string                 { return s.name }
func (s *SourceNode) Type() NodeType                { return NodeTypeSource }
func (s *SourceNode) Topic() string                 { return s.topic }
func (s *SourceNode) KeySerde() serde.UntypedSerde   { return s.keySerde }
func (s *SourceNode) ValueSerde() serde.UntypedSerde { return s.valueSerde }

type processorNodeDef struct {
	name     string
	supplier processor.ProcessorSupplier
}

func (p *processorNodeDef) Name() string {
	return p.name
}

func (p *processorNodeDef) Type() NodeType {
	return NodeTypeProcessor
}

// SinkNode is a topology exit point bound to one output topic. Records
// forwarded into it are serialized and handed to the RecordCollector.
type SinkNode struct {
	name  string
	topic string

	keySerde   serde.UntypedSerde
	valueSerde serde.UntypedSerde
}

func (s *SinkNode) Name() string                 { return s.name }
func (s *SinkNode) Type() NodeType                { return NodeTypeSink }
func (s *SinkNode) Topic() string                 { return s.topic }
func (s *SinkNode) KeySerde() serde.UntypedSerde   { return s.keySerde }
func (s *SinkNode) ValueSerde() serde.UntypedSerde { return s.valueSerde }
