package topology

import "github.com/flowkit/taskstream/serde"

type Builder struct {
	topology *Topology
}

func NewBuilder() *Builder {
	return &Builder{
		topology: NewTopology(),
	}
}

// AddSource registers a topology entry point reading from topic, using
// keySerde/valueSerde to deserialize raw record bytes. Use serde.Erase to
// adapt a typed serde.Serde[T].
func (b *Builder) AddSource(name, topic string, keySerde, valueSerde serde.UntypedSerde) *Builder {
	b.topology.nodes[name] = &SourceNode{
		name:       name,
		topic:      topic,
		keySerde:   keySerde,
		valueSerde: valueSerde,
	}
	b.topology.sources = append(b.topology.sources, name)
	return b
}

func (b *Builder) AddProcessor(name string, supplier ProcessorSupplier, parents ...string) *Builder {
	b.topology.nodes[name] = &processorNodeDef{
		name:     name,
		supplier: supplier,
	}

	for _, parent := range parents {
		b.topology.edges[parent] = append(b.topology.edges[parent], name)
	}

	return b
}

func (b *Builder) AddProcessorWithChildName(
	name string,
	supplier ProcessorSupplier,
	parent string,
	childName string,
) *Builder {
	b.topology.nodes[name] = &processorNodeDef{
		name:     name,
		supplier: supplier,
	}

	b.topology.edges[parent] = append(b.topology.edges[parent], name)

	if b.topology.namedEdges[parent] == nil {
		b.topology.namedEdges[parent] = make(map[string]string)
	}
	b.topology.namedEdges[parent][childName] = name

	return b
}

// AddSink registers a topology exit point publishing to topic, using
// keySerde/valueSerde to serialize forwarded records before they reach the
// RecordCollector.
func (b *Builder) AddSink(name, topic string, keySerde, valueSerde serde.UntypedSerde, parents ...string) *Builder {
	b.topology.nodes[name] = &SinkNode{
		name:       name,
		topic:      topic,
		keySerde:   keySerde,
		valueSerde: valueSerde,
	}
	b.topology.sinks = append(b.topology.sinks, name)

	for _, parent := range parents {
		b.topology.edges[parent] = append(b.topology.edges[parent], name)
	}

	return b
}

func (b *Builder) Build() *Topology {
	return b.topology
}
